package query

import "time"

// Tally counts the records of one group and how many of them match.
type Tally struct {
	Total    int `json:"total"`
	Matching int `json:"matching"`
}

// Stats summarizes a filtered (not paginated) sequence.
type Stats struct {
	Total    int `json:"total"`
	Matching int `json:"matching"`
	Pending  int `json:"pending"`
	Overdue  int `json:"overdue"`
	// Groups maps a grouping field to each of its distinct values.
	Groups map[string]map[string]Tally `json:"groups"`
}

// StatsSpec configures Aggregate for a record type.
type StatsSpec[T any] struct {
	// Match is the boolean predicate counted by Matching (completed, published...).
	// A nil Match matches nothing.
	Match func(T) bool
	// Due returns the deadline of a record. Records with a zero deadline are
	// never overdue. A nil Due disables overdue counting.
	Due func(T) time.Time
	// GroupBy lists the schema fields to group by.
	GroupBy []string
}

// Aggregate computes Stats over records as of now.
func Aggregate[T any](records []T, s Schema[T], spec StatsSpec[T], now time.Time) Stats {
	stats := Stats{Groups: make(map[string]map[string]Tally, len(spec.GroupBy))}

	var groupers []Field[T]
	for _, name := range spec.GroupBy {
		stats.Groups[name] = map[string]Tally{}
		if f, ok := s.Field(name); ok && f.String != nil {
			groupers = append(groupers, f)
		}
	}

	for _, r := range records {
		matched := spec.Match != nil && spec.Match(r)
		stats.Total++
		if matched {
			stats.Matching++
		} else if spec.Due != nil {
			if due := spec.Due(r); !due.IsZero() && due.Before(now) {
				stats.Overdue++
			}
		}
		for _, f := range groupers {
			key := f.String(r)
			t := stats.Groups[f.Name][key]
			t.Total++
			if matched {
				t.Matching++
			}
			stats.Groups[f.Name][key] = t
		}
	}
	stats.Pending = stats.Total - stats.Matching
	return stats
}
