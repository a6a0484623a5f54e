package sdk

import (
	"encoding/json"
	"errors"

	"github.com/celerix-dev/celerix-compliance/pkg/query"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrUnknownDataset is returned when a dataset name is not served.
	ErrUnknownDataset = errors.New("unknown dataset")
)

// Request is a stateless query against one dataset.
type Request struct {
	Query query.Query     `json:"query"`
	Sort  query.SortState `json:"sort"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}

// Result is one page of records plus statistics over every matching record.
type Result[T any] struct {
	query.Page[T]
	Sort  query.SortState `json:"sort"`
	Stats query.Stats     `json:"stats"`
}

// --- Functional Interfaces (Interface Segregation) ---

// DatasetEnumeration lists the datasets a store serves.
type DatasetEnumeration interface {
	Datasets() ([]string, error)
}

// RecordReader defines the read operations on a dataset. Records are
// returned undecoded; see List and Get for typed access.
type RecordReader interface {
	List(dataset string, req Request) (Result[json.RawMessage], error)
	Get(dataset, id string) (json.RawMessage, error)
	Stats(dataset string, q query.Query) (query.Stats, error)
}

// RecordWriter defines the write operations on a dataset.
type RecordWriter interface {
	Delete(dataset, id string) error
}

// --- Composite Interfaces ---

// PortalStore is the primary interface for reading compliance records,
// whether served remotely or embedded in the process.
type PortalStore interface {
	DatasetEnumeration
	RecordReader
	RecordWriter

	Ping() error
	Close() error
}

// --- Generics Support ---

// List runs req and decodes the page items into T.
func List[T any](s RecordReader, dataset string, req Request) (Result[T], error) {
	raw, err := s.List(dataset, req)
	if err != nil {
		return Result[T]{}, err
	}
	out := Result[T]{Sort: raw.Sort, Stats: raw.Stats}
	out.Page = query.Page[T]{
		Items:      make([]T, len(raw.Items)),
		Page:       raw.Page.Page,
		Size:       raw.Size,
		Total:      raw.Total,
		TotalPages: raw.TotalPages,
		HasPrev:    raw.HasPrev,
		HasNext:    raw.HasNext,
	}
	for i, item := range raw.Items {
		if err := json.Unmarshal(item, &out.Items[i]); err != nil {
			return Result[T]{}, err
		}
	}
	return out, nil
}

// Get retrieves one record decoded into T.
func Get[T any](s RecordReader, dataset, id string) (T, error) {
	var target T
	raw, err := s.Get(dataset, id)
	if err != nil {
		return target, err
	}
	err = json.Unmarshal(raw, &target)
	return target, err
}
