// Package export serializes filtered record sequences for download.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/celerix-dev/celerix-compliance/pkg/query"
)

// Supported formats.
const (
	CSV  = "csv"
	JSON = "json"
)

// ErrUnknownFormat is returned for formats other than CSV and JSON.
var ErrUnknownFormat = errors.New("unknown export format")

// Table is a flat view of records: one column per schema field.
type Table struct {
	Header []string
	Rows   [][]string
}

// Flatten renders records as strings, one column per field of s in
// declaration order. Times are RFC 3339 in UTC; zero times are empty.
func Flatten[T any](records []T, s query.Schema[T]) Table {
	t := Table{Header: s.FieldNames(), Rows: make([][]string, 0, len(records))}
	for _, r := range records {
		row := make([]string, len(s.Fields))
		for i, f := range s.Fields {
			row[i] = cell(f, r)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func cell[T any](f query.Field[T], r T) string {
	switch {
	case f.Time != nil:
		if v := f.Time(r); !v.IsZero() {
			return v.UTC().Format(time.RFC3339)
		}
		return ""
	case f.Bool != nil:
		return strconv.FormatBool(f.Bool(r))
	case f.Number != nil:
		return strconv.FormatFloat(f.Number(r), 'f', -1, 64)
	case f.String != nil:
		return f.String(r)
	}
	return ""
}

// WriteCSV writes a header row followed by one row per record. Fields holding
// a comma, quote or line break are quoted with inner quotes doubled.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// Write serializes records in the given format.
func Write[T any](w io.Writer, format string, records []T, s query.Schema[T]) error {
	switch strings.ToLower(format) {
	case CSV:
		return WriteCSV(w, Flatten(records, s))
	case JSON:
		if records == nil {
			records = []T{}
		}
		return WriteJSON(w, records)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ContentType returns the MIME type for format.
func ContentType(format string) string {
	if strings.EqualFold(format, CSV) {
		return "text/csv; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

// Filename returns "{dataset}_{YYYY-MM-DD}.{format}".
func Filename(dataset, format string, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", dataset, now.Format(time.DateOnly), strings.ToLower(format))
}
