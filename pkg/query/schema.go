// Package query implements the record filtering, sorting, pagination,
// aggregation and selection engine shared by every portal dataset.
//
// A dataset describes its record type once with a Schema; every operation in
// this package is then driven by field names, so the content library, the
// compliance checklist and the audit log are configurations of one engine.
package query

import (
	"time"

	"golang.org/x/text/language"
)

// Kind selects how a field is compared and matched.
type Kind int

const (
	Text Kind = iota
	Enum
	Time
	Bool
	Number
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Enum:
		return "enum"
	case Time:
		return "time"
	case Bool:
		return "bool"
	case Number:
		return "number"
	default:
		return "unknown"
	}
}

// Field describes one named attribute of a record type.
// Exactly one accessor matching Kind must be set.
type Field[T any] struct {
	Name string
	Kind Kind

	// Searchable fields are scanned by the free-text search predicate.
	Searchable bool
	// Order ranks enum values for sorting; values not listed sort after listed ones.
	Order []string

	String func(T) string
	Time   func(T) time.Time
	Bool   func(T) bool
	Number func(T) float64
}

// Schema declares the fields of a record type.
type Schema[T any] struct {
	ID     func(T) string
	Fields []Field[T]
	// Locale drives string collation. The zero tag collates as English.
	Locale language.Tag
}

// Field returns the field with the given name.
func (s Schema[T]) Field(name string) (Field[T], bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field[T]{}, false
}

// FieldNames returns the declared field names in declaration order.
func (s Schema[T]) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// IDs extracts the identifiers of records, preserving order.
func (s Schema[T]) IDs(records []T) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = s.ID(r)
	}
	return ids
}

// text renders a string-like field value. Non-string kinds return "".
func (f Field[T]) text(r T) string {
	if (f.Kind == Text || f.Kind == Enum) && f.String != nil {
		return f.String(r)
	}
	return ""
}

func (s Schema[T]) locale() language.Tag {
	if s.Locale == language.Und {
		return language.English
	}
	return s.Locale
}
