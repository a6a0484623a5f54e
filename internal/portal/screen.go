package portal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/celerix-dev/celerix-compliance/internal/engine"
	"github.com/celerix-dev/celerix-compliance/internal/export"
	"github.com/celerix-dev/celerix-compliance/pkg/query"
	"github.com/celerix-dev/celerix-compliance/pkg/schema"
)

// Result is one evaluated request: the requested page of the filtered and
// sorted sequence plus statistics over the whole filtered sequence.
type Result[T any] struct {
	query.Page[T]
	Sort  query.SortState `json:"sort"`
	Stats query.Stats     `json:"stats"`
}

// View is the current state of a screen as a renderer sees it.
type View[T any] struct {
	Result[T]
	Dataset  string      `json:"dataset"`
	Query    query.Query `json:"query"`
	Selected []string    `json:"selected"`
}

// Screen binds one record store to the query engine and keeps the per-screen
// filter, sort, page and selection state.
//
// Every change to the query or sort resets the page to 1. Selection is kept
// separately so it survives re-filtering; "select all" covers the whole
// filtered sequence, not just the visible page.
type Screen[T schema.Record] struct {
	name        string
	repo        engine.Repository[T]
	schema      query.Schema[T]
	stats       query.StatsSpec[T]
	defaultSort query.SortState
	logger      *AuditLogger
	now         func() time.Time

	mu        sync.Mutex
	query     query.Query
	sort      query.SortState
	pager     query.Pager
	gen       uint64 // bumped by every query, sort or page change
	selection *query.Selection
}

var _ Dataset = (*Screen[schema.AuditEntry])(nil)

// NewScreen creates a screen. logger may be nil to disable auditing.
func NewScreen[T schema.Record](
	name string,
	repo engine.Repository[T],
	s query.Schema[T],
	stats query.StatsSpec[T],
	defaultSort query.SortState,
	logger *AuditLogger,
	opts Options,
) *Screen[T] {
	return &Screen[T]{
		name:        name,
		repo:        repo,
		schema:      s,
		stats:       stats,
		defaultSort: defaultSort,
		logger:      logger,
		now:         opts.now(),
		sort:        defaultSort,
		pager:       query.Pager{Page: 1, Size: opts.PageSize},
		selection:   query.NewSelection(),
	}
}

func (s *Screen[T]) Name() string { return s.name }

// Schema returns the field schema of the screen.
func (s *Screen[T]) Schema() query.Schema[T] { return s.schema }

// Repository returns the underlying store.
func (s *Screen[T]) Repository() engine.Repository[T] { return s.repo }

func (s *Screen[T]) Fields() []FieldInfo {
	out := make([]FieldInfo, len(s.schema.Fields))
	for i, f := range s.schema.Fields {
		out[i] = FieldInfo{Name: f.Name, Kind: f.Kind.String(), Searchable: f.Searchable, Values: f.Order}
	}
	return out
}

func (s *Screen[T]) sortFor(req Request) query.SortState {
	if req.Sort.Field == "" {
		return s.defaultSort
	}
	if req.Sort.Dir == "" {
		req.Sort.Dir = query.Desc
	}
	return req.Sort
}

// Records returns the filtered and sorted, non-paginated sequence for req.
func (s *Screen[T]) Records(req Request) []T {
	filtered := query.Filter(s.repo.List(), s.schema, req.Query)
	return query.Sort(filtered, s.schema, s.sortFor(req))
}

// Run evaluates a stateless request.
func (s *Screen[T]) Run(req Request) Result[T] {
	req.Sort = s.sortFor(req)
	records := s.Records(req)
	return Result[T]{
		Page:  query.Paginate(records, query.Pager{Page: req.Page, Size: req.Size}),
		Sort:  req.Sort,
		Stats: query.Aggregate(records, s.schema, s.stats, s.now()),
	}
}

func (s *Screen[T]) Search(req Request) any { return s.Run(req) }

// Get returns one record.
func (s *Screen[T]) Get(id string) (T, error) { return s.repo.Get(id) }

func (s *Screen[T]) Lookup(id string) (any, error) { return s.repo.Get(id) }

// Summarize aggregates the records matching q.
func (s *Screen[T]) Summarize(q query.Query) query.Stats {
	return query.Aggregate(query.Filter(s.repo.List(), s.schema, q), s.schema, s.stats, s.now())
}

// Remove deletes one record, drops it from the selection and audits it.
func (s *Screen[T]) Remove(actor Actor, id string) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.selection.Prune(func(sel string) bool { return sel != id })
	s.audit(actor, "delete", id, schema.SeverityWarning, "Deleted "+s.name+" record", "")
	return nil
}

// Export writes the filtered, non-paginated sequence for req.
func (s *Screen[T]) Export(w io.Writer, format string, req Request) error {
	return export.Write(w, format, s.Records(req), s.schema)
}

// View evaluates the screen's current state. The stored page is clamped to
// the current result size.
func (s *Screen[T]) View() View[T] {
	s.mu.Lock()
	req := Request{Query: s.query.Clone(), Sort: s.sort, Page: s.pager.Page, Size: s.pager.Size}
	gen := s.gen
	s.mu.Unlock()

	res := s.Run(req)

	// Store the clamped page only if no change landed while Run executed.
	s.mu.Lock()
	if s.gen == gen {
		s.pager = query.Pager{Page: res.Page.Page, Size: res.Size}
	}
	s.mu.Unlock()

	return View[T]{Result: res, Dataset: s.name, Query: req.Query, Selected: s.selection.IDs()}
}

func (s *Screen[T]) Snapshot() any { return s.View() }

// SetQuery replaces the active filters and returns to page 1.
func (s *Screen[T]) SetQuery(q query.Query) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = q.Clone()
	s.pager.Page = 1
	s.gen++
}

// SortBy toggles the sort on field and returns to page 1.
func (s *Screen[T]) SortBy(field string) query.SortState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sort = s.sort.Toggle(field)
	s.pager.Page = 1
	s.gen++
	return s.sort
}

// SetPageSize changes the page size and returns to page 1.
func (s *Screen[T]) SetPageSize(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pager = query.Pager{Page: 1, Size: size}
	s.gen++
}

// Navigate moves between pages: "first", "prev", "next", "last" or "goto"
// with page. Moves past either end stop at the boundary.
func (s *Screen[T]) Navigate(action string, page int) error {
	s.mu.Lock()
	q := s.query.Clone()
	gen := s.gen
	s.mu.Unlock()
	n := len(query.Filter(s.repo.List(), s.schema, q))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		// The query changed underneath; count against the new one.
		q = s.query.Clone()
		n = len(query.Filter(s.repo.List(), s.schema, q))
	}
	p := s.pager.Clamp(n)
	switch action {
	case "first":
		p = p.First(n)
	case "prev":
		p = p.Prev(n)
	case "next":
		p = p.Next(n)
	case "last":
		p = p.Last(n)
	case "goto":
		p.Page = page
		p = p.Clamp(n)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	s.pager = p
	s.gen++
	return nil
}

// Toggle flips the selection of an existing record.
func (s *Screen[T]) Toggle(id string) (bool, error) {
	if _, err := s.repo.Get(id); err != nil {
		return false, err
	}
	return s.selection.Toggle(id), nil
}

// SelectAll selects every record of the current filtered sequence and returns
// the selection size.
func (s *Screen[T]) SelectAll() int {
	s.mu.Lock()
	q := s.query.Clone()
	s.mu.Unlock()
	s.selection.SelectAll(s.schema.IDs(query.Filter(s.repo.List(), s.schema, q)))
	return s.selection.Len()
}

func (s *Screen[T]) ClearSelection() { s.selection.Clear() }

func (s *Screen[T]) Selected() []string { return s.selection.IDs() }

// selectedRecords returns the selected records in store order. Selected ids
// whose records no longer exist are skipped.
func (s *Screen[T]) selectedRecords() ([]T, error) {
	if s.selection.Len() == 0 {
		return nil, ErrEmptySelection
	}
	var out []T
	for _, rec := range s.repo.List() {
		if s.selection.Has(rec.RecordID()) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Batch applies fn to every selected record, audits each one under action,
// then clears the selection. It returns the ids fn succeeded on.
func (s *Screen[T]) Batch(actor Actor, action string, fn func(T) error) ([]string, error) {
	records, err := s.selectedRecords()
	if err != nil {
		return nil, err
	}
	return s.apply(actor, action, records, fn)
}

// apply runs fn over records, audits each one under action and clears the
// selection once every record succeeded.
func (s *Screen[T]) apply(actor Actor, action string, records []T, fn func(T) error) ([]string, error) {
	done := make([]string, 0, len(records))
	for _, rec := range records {
		id := rec.RecordID()
		if err := fn(rec); err != nil {
			return done, fmt.Errorf("%s %s: %w", action, id, err)
		}
		done = append(done, id)
		s.audit(actor, action, id, schema.SeverityInfo, "Batch "+action+" of "+s.name+" record", "")
	}
	s.selection.Clear()
	return done, nil
}

// DeleteSelected deletes every selected record.
func (s *Screen[T]) DeleteSelected(actor Actor) ([]string, error) {
	return s.Batch(actor, "delete", func(rec T) error {
		err := s.repo.Delete(rec.RecordID())
		if errors.Is(err, engine.ErrNotFound) {
			return nil
		}
		return err
	})
}

// ExportSelected writes the selected records in store order. An empty
// selection is rejected before anything is written.
func (s *Screen[T]) ExportSelected(w io.Writer, format string, actor Actor) error {
	records, err := s.selectedRecords()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, format, records, s.schema); err != nil {
		return err
	}
	if _, err := s.apply(actor, "export", records, func(T) error { return nil }); err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}

func (s *Screen[T]) audit(actor Actor, action, id, severity, description, details string) {
	if s.logger == nil {
		return
	}
	err := s.logger.Record(Event{
		Actor:        actor,
		Action:       action,
		ResourceType: s.name,
		ResourceID:   id,
		Severity:     severity,
		Description:  description,
		Details:      details,
	})
	if err != nil {
		slog.Warn("audit entry not recorded", "dataset", s.name, "action", action, "id", id, "error", err)
	}
}
