package query

import (
	"strings"
	"time"
)

// All is the sentinel categorical value that disables an equality filter.
const All = "all"

// Range bounds a time field. From is inclusive; To is inclusive through the end
// of its calendar day. A zero bound is not enforced.
type Range struct {
	From time.Time `json:"from,omitzero"`
	To   time.Time `json:"to,omitzero"`
}

// IsZero reports whether neither bound is set.
func (r Range) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// Contains reports whether t falls inside the range. A zero t never matches an
// active range.
func (r Range) Contains(t time.Time) bool {
	if r.IsZero() {
		return true
	}
	if t.IsZero() {
		return false
	}
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(endOfDay(r.To)) {
		return false
	}
	return true
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// Query is a set of named filter values. Dimensions combine with AND; values
// inside a single AnyOf dimension combine with OR.
type Query struct {
	// Search matches case-insensitively as a substring of any searchable field.
	Search string `json:"search,omitempty"`
	// Equals requires field == value. "" and All are inactive.
	Equals map[string]string `json:"equals,omitempty"`
	// AnyOf requires the field to contain at least one of the values
	// (case-sensitive). An empty list is inactive.
	AnyOf map[string][]string `json:"anyOf,omitempty"`
	// Ranges constrains time fields.
	Ranges map[string]Range `json:"ranges,omitempty"`
	// Flags requires bool fields to equal the given value.
	Flags map[string]bool `json:"flags,omitempty"`
}

// Active reports whether any dimension of q constrains the result.
func (q Query) Active() bool {
	if strings.TrimSpace(q.Search) != "" {
		return true
	}
	for _, v := range q.Equals {
		if v != "" && v != All {
			return true
		}
	}
	for _, vs := range q.AnyOf {
		if len(nonEmpty(vs)) > 0 {
			return true
		}
	}
	for _, r := range q.Ranges {
		if !r.IsZero() {
			return true
		}
	}
	return len(q.Flags) > 0
}

// Clone returns a deep copy of q.
func (q Query) Clone() Query {
	out := Query{Search: q.Search}
	if q.Equals != nil {
		out.Equals = make(map[string]string, len(q.Equals))
		for k, v := range q.Equals {
			out.Equals[k] = v
		}
	}
	if q.AnyOf != nil {
		out.AnyOf = make(map[string][]string, len(q.AnyOf))
		for k, v := range q.AnyOf {
			out.AnyOf[k] = append([]string(nil), v...)
		}
	}
	if q.Ranges != nil {
		out.Ranges = make(map[string]Range, len(q.Ranges))
		for k, v := range q.Ranges {
			out.Ranges[k] = v
		}
	}
	if q.Flags != nil {
		out.Flags = make(map[string]bool, len(q.Flags))
		for k, v := range q.Flags {
			out.Flags[k] = v
		}
	}
	return out
}

// nonEmpty drops empty strings, which would match every record as a
// substring.
func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Predicate reports whether a record satisfies a constraint.
type Predicate[T any] func(T) bool

// Compile turns q into the list of active predicates for schema s. Filters on
// fields the schema does not declare, or of the wrong kind, are dropped.
func Compile[T any](s Schema[T], q Query) []Predicate[T] {
	var preds []Predicate[T]

	// The search text is matched as given; only a blank one is inactive.
	if strings.TrimSpace(q.Search) != "" {
		needle := strings.ToLower(q.Search)
		var searchable []Field[T]
		for _, f := range s.Fields {
			if f.Searchable {
				searchable = append(searchable, f)
			}
		}
		preds = append(preds, func(r T) bool {
			for _, f := range searchable {
				if strings.Contains(strings.ToLower(f.text(r)), needle) {
					return true
				}
			}
			return false
		})
	}

	for name, want := range q.Equals {
		if want == "" || want == All {
			continue
		}
		f, ok := s.Field(name)
		if !ok || f.String == nil {
			continue
		}
		preds = append(preds, func(r T) bool { return f.String(r) == want })
	}

	for name, values := range q.AnyOf {
		values := nonEmpty(values)
		if len(values) == 0 {
			continue
		}
		f, ok := s.Field(name)
		if !ok || f.String == nil {
			continue
		}
		preds = append(preds, func(r T) bool {
			got := f.String(r)
			for _, v := range values {
				if strings.Contains(got, v) {
					return true
				}
			}
			return false
		})
	}

	for name, rng := range q.Ranges {
		if rng.IsZero() {
			continue
		}
		f, ok := s.Field(name)
		if !ok || f.Time == nil {
			continue
		}
		preds = append(preds, func(r T) bool { return rng.Contains(f.Time(r)) })
	}

	for name, want := range q.Flags {
		f, ok := s.Field(name)
		if !ok || f.Bool == nil {
			continue
		}
		preds = append(preds, func(r T) bool { return f.Bool(r) == want })
	}

	return preds
}

// Filter returns the records satisfying every active filter in q, in their
// original relative order. The input slice is never modified.
func Filter[T any](records []T, s Schema[T], q Query) []T {
	preds := Compile(s, q)
	out := make([]T, 0, len(records))
	for _, r := range records {
		if matchAll(r, preds) {
			out = append(out, r)
		}
	}
	return out
}

func matchAll[T any](r T, preds []Predicate[T]) bool {
	for _, p := range preds {
		if !p(r) {
			return false
		}
	}
	return true
}
