package query

import (
	"cmp"
	"slices"

	"golang.org/x/text/collate"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection maps "asc"/"desc" to a Direction, defaulting to Desc.
func ParseDirection(s string) Direction {
	if Direction(s) == Asc {
		return Asc
	}
	return Desc
}

// SortState is the active sort key and direction.
type SortState struct {
	Field string    `json:"field"`
	Dir   Direction `json:"dir"`
}

// Toggle returns the state after the user picks field: picking the active field
// flips direction, picking a new field sorts it descending (most recent first).
func (s SortState) Toggle(field string) SortState {
	if field == s.Field {
		if s.Dir == Asc {
			return SortState{Field: field, Dir: Desc}
		}
		return SortState{Field: field, Dir: Asc}
	}
	return SortState{Field: field, Dir: Desc}
}

// Sort returns a new slice ordered by state. The sort is stable so ties keep
// their feed order. An unknown or empty field yields a copy in input order.
func Sort[T any](records []T, s Schema[T], state SortState) []T {
	out := slices.Clone(records)
	if out == nil {
		out = []T{}
	}
	f, ok := s.Field(state.Field)
	if !ok {
		return out
	}
	compare := comparator(s, f)
	if compare == nil {
		return out
	}
	if state.Dir != Asc {
		asc := compare
		compare = func(a, b T) int { return -asc(a, b) }
	}
	slices.SortStableFunc(out, compare)
	return out
}

// comparator builds an ascending comparison for f, or nil when f has no
// usable accessor.
func comparator[T any](s Schema[T], f Field[T]) func(a, b T) int {
	switch f.Kind {
	case Time:
		if f.Time == nil {
			return nil
		}
		return func(a, b T) int { return f.Time(a).Compare(f.Time(b)) }
	case Number:
		if f.Number == nil {
			return nil
		}
		return func(a, b T) int { return cmp.Compare(f.Number(a), f.Number(b)) }
	case Bool:
		if f.Bool == nil {
			return nil
		}
		return func(a, b T) int { return cmp.Compare(boolRank(f.Bool(a)), boolRank(f.Bool(b))) }
	case Enum:
		if f.String == nil {
			return nil
		}
		if len(f.Order) > 0 {
			return func(a, b T) int {
				return cmp.Compare(enumRank(f.Order, f.String(a)), enumRank(f.Order, f.String(b)))
			}
		}
		return collating(s, f)
	case Text:
		if f.String == nil {
			return nil
		}
		return collating(s, f)
	}
	return nil
}

// collating compares strings with a locale collator. A collator is not safe for
// concurrent use, so each sort gets its own.
func collating[T any](s Schema[T], f Field[T]) func(a, b T) int {
	c := collate.New(s.locale())
	return func(a, b T) int { return c.CompareString(f.String(a), f.String(b)) }
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func enumRank(order []string, v string) int {
	if i := slices.Index(order, v); i >= 0 {
		return i
	}
	return len(order)
}
