// Package engine implements the in-memory record stores behind the portal and
// the persistence backends that snapshot them.
package engine

import (
	"errors"

	"github.com/celerix-dev/celerix-compliance/pkg/schema"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateID is returned when creating a record whose id is taken.
	ErrDuplicateID = errors.New("duplicate record id")
	// ErrEmptyID is returned when a record has no id.
	ErrEmptyID = errors.New("record id cannot be empty")
	// ErrNoSnapshot is returned by a Persister that holds nothing for a dataset.
	ErrNoSnapshot = errors.New("no snapshot for dataset")
)

// Repository is the storage contract the portal is written against.
// List returns a copy in store order; callers may not observe later mutations
// through it.
type Repository[T schema.Record] interface {
	List() []T
	Get(id string) (T, error)
	Create(rec T) error
	Update(rec T) error
	Delete(id string) error
	Len() int
}

// Persister stores one opaque snapshot per dataset.
type Persister interface {
	Save(dataset string, payload []byte) error
	Load(dataset string) ([]byte, error)
}
