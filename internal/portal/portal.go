// Package portal wires record stores to the query engine: each dataset is a
// Screen with its own filter, sort, page and selection state, and every
// mutation made through a screen is recorded in the audit log.
package portal

import (
	"errors"
	"io"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/celerix-dev/celerix-compliance/internal/engine"
	"github.com/celerix-dev/celerix-compliance/pkg/query"
	"github.com/celerix-dev/celerix-compliance/pkg/schema"
)

// Dataset names.
const (
	DatasetContent   = "content"
	DatasetChecklist = "checklist"
	DatasetAudit     = "audit"
)

var (
	// ErrEmptySelection is returned by batch operations with nothing selected.
	ErrEmptySelection = errors.New("no records selected")
	// ErrUnknownDataset is returned when a dataset name is not registered.
	ErrUnknownDataset = errors.New("unknown dataset")
	// ErrInvalidAction is returned for unknown page navigation actions.
	ErrInvalidAction = errors.New("invalid page action")
	// ErrNoTemplates is returned when checklist generation matches no template.
	ErrNoTemplates = errors.New("no requirement templates match")
)

// Actor identifies who performed an operation, for the audit log.
type Actor struct {
	Name string
	IP   string
}

// System is the actor used for internal operations.
var System = Actor{Name: "system"}

// NewID returns a time-ordered unique record id.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Options configures a Portal.
type Options struct {
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
	// Locale drives string collation when sorting.
	Locale language.Tag
	// PageSize is the initial page size of every screen.
	PageSize int
}

func (o Options) now() func() time.Time {
	if o.Now != nil {
		return o.Now
	}
	return time.Now
}

// Stores holds the repositories backing each dataset.
type Stores struct {
	Content   engine.Repository[schema.ContentItem]
	Checklist engine.Repository[schema.ChecklistItem]
	Audit     engine.Repository[schema.AuditEntry]
}

// FieldInfo describes a dataset field to clients.
type FieldInfo struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Searchable bool     `json:"searchable,omitempty"`
	Values     []string `json:"values,omitempty"`
}

// Request is a stateless query: filters, sort and page in one value.
type Request struct {
	Query query.Query     `json:"query"`
	Sort  query.SortState `json:"sort"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}

// Dataset is the type-erased face of a Screen used by transports.
type Dataset interface {
	Name() string
	Fields() []FieldInfo
	Search(req Request) any
	Lookup(id string) (any, error)
	Summarize(q query.Query) query.Stats
	Remove(actor Actor, id string) error
	Export(w io.Writer, format string, req Request) error

	Snapshot() any
	SetQuery(q query.Query)
	SortBy(field string) query.SortState
	SetPageSize(size int)
	Navigate(action string, page int) error
	Toggle(id string) (bool, error)
	SelectAll() int
	ClearSelection()
	Selected() []string
	DeleteSelected(actor Actor) ([]string, error)
	ExportSelected(w io.Writer, format string, actor Actor) error
}

// Portal groups the three compliance screens.
type Portal struct {
	Content   *ContentService
	Checklist *ChecklistService
	Audit     *Screen[schema.AuditEntry]
	Logger    *AuditLogger
	Dashboard *Dashboard

	datasets map[string]Dataset
	waiters  []interface{ Wait() }
}

// New builds a portal over the given stores.
func New(stores Stores, templates []schema.RequirementTemplate, opts Options) *Portal {
	now := opts.now()
	logger := NewAuditLogger(stores.Audit, now)

	content := NewContentScreen(stores.Content, logger, opts)
	checklist := NewChecklistScreen(stores.Checklist, logger, opts)
	audit := NewAuditScreen(stores.Audit, logger, opts)

	p := &Portal{
		Content:   &ContentService{Screen: content},
		Checklist: &ChecklistService{Screen: checklist, templates: slices.Clone(templates)},
		Audit:     audit,
		Logger:    logger,
		datasets: map[string]Dataset{
			DatasetContent:   content,
			DatasetChecklist: checklist,
			DatasetAudit:     audit,
		},
	}
	p.Dashboard = NewDashboard(p, now)
	return p
}

// Dataset returns the named dataset.
func (p *Portal) Dataset(name string) (Dataset, error) {
	d, ok := p.datasets[name]
	if !ok {
		return nil, ErrUnknownDataset
	}
	return d, nil
}

// Datasets returns the registered dataset names in order.
func (p *Portal) Datasets() []string {
	names := make([]string, 0, len(p.datasets))
	for name := range p.datasets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
