package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/celerix-dev/celerix-compliance/pkg/schema"
)

// MemStore is an ordered, thread-safe record store. When a persister is set,
// each mutation snapshots the dataset and writes it in the background.
type MemStore[T schema.Record] struct {
	mu      sync.RWMutex
	name    string
	records []T
	index   map[string]int

	persister Persister
	wg        sync.WaitGroup
	saveMu    sync.Mutex
	version   uint64
	saved     uint64
}

var _ Repository[schema.AuditEntry] = (*MemStore[schema.AuditEntry])(nil)

// NewMemStore initializes a store named after its dataset.
// It accepts existing records (seed data or a loaded snapshot) and a persister,
// which may be nil.
func NewMemStore[T schema.Record](name string, initial []T, p Persister) (*MemStore[T], error) {
	m := &MemStore[T]{
		name:      name,
		records:   make([]T, 0, len(initial)),
		index:     make(map[string]int, len(initial)),
		persister: p,
	}
	for _, rec := range initial {
		if err := m.insertLocked(rec); err != nil {
			return nil, fmt.Errorf("seed %s: %w", name, err)
		}
	}
	return m, nil
}

// Load decodes the persisted snapshot of a dataset. A missing snapshot yields
// ErrNoSnapshot.
func Load[T schema.Record](name string, p Persister) ([]T, error) {
	payload, err := p.Load(name)
	if err != nil {
		return nil, err
	}
	var records []T
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("decode %s snapshot: %w", name, err)
	}
	return records, nil
}

// Open loads a dataset from p, falling back to seed when nothing was persisted.
func Open[T schema.Record](name string, seed []T, p Persister) (*MemStore[T], error) {
	if p == nil {
		return NewMemStore(name, seed, nil)
	}
	records, err := Load[T](name, p)
	switch {
	case errors.Is(err, ErrNoSnapshot):
		slog.Info("seeding dataset", "dataset", name, "records", len(seed))
		m, err := NewMemStore(name, seed, p)
		if err != nil {
			return nil, err
		}
		m.persist()
		return m, nil
	case err != nil:
		return nil, err
	}
	slog.Info("dataset loaded", "dataset", name, "records", len(records))
	return NewMemStore(name, records, p)
}

// Name returns the dataset name.
func (m *MemStore[T]) Name() string { return m.name }

// Wait waits for all background persistence tasks to complete.
func (m *MemStore[T]) Wait() {
	m.wg.Wait()
}

func (m *MemStore[T]) List() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, len(m.records))
	copy(out, m.records)
	return out
}

func (m *MemStore[T]) Get(id string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.index[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %q: %w", m.name, id, ErrNotFound)
	}
	return m.records[i], nil
}

func (m *MemStore[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MemStore[T]) Create(rec T) error {
	m.mu.Lock()
	if err := m.insertLocked(rec); err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()
	m.persist()
	return nil
}

// Update replaces the record with the same id in place.
func (m *MemStore[T]) Update(rec T) error {
	m.mu.Lock()
	i, ok := m.index[rec.RecordID()]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%s %q: %w", m.name, rec.RecordID(), ErrNotFound)
	}
	m.records[i] = rec
	m.mu.Unlock()
	m.persist()
	return nil
}

func (m *MemStore[T]) Delete(id string) error {
	m.mu.Lock()
	i, ok := m.index[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%s %q: %w", m.name, id, ErrNotFound)
	}
	m.records = append(m.records[:i], m.records[i+1:]...)
	delete(m.index, id)
	for j := i; j < len(m.records); j++ {
		m.index[m.records[j].RecordID()] = j
	}
	m.mu.Unlock()
	m.persist()
	return nil
}

// insertLocked appends rec. It MUST be called while holding m.mu.Lock or
// before the store is shared.
func (m *MemStore[T]) insertLocked(rec T) error {
	id := rec.RecordID()
	if id == "" {
		return ErrEmptyID
	}
	if _, ok := m.index[id]; ok {
		return fmt.Errorf("%s %q: %w", m.name, id, ErrDuplicateID)
	}
	m.index[id] = len(m.records)
	m.records = append(m.records, rec)
	return nil
}

// persist snapshots the dataset and saves it in the background. Snapshots
// carry a version so a slow write never overwrites a newer one.
func (m *MemStore[T]) persist() {
	if m.persister == nil {
		return
	}
	m.mu.Lock()
	m.version++
	v := m.version
	payload, err := json.Marshal(m.records)
	m.mu.Unlock()
	if err != nil {
		slog.Warn("snapshot encode failed", "dataset", m.name, "error", err)
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.saveMu.Lock()
		defer m.saveMu.Unlock()
		if v <= m.saved {
			return
		}
		if err := m.persister.Save(m.name, payload); err != nil {
			slog.Warn("snapshot save failed", "dataset", m.name, "error", err)
			return
		}
		m.saved = v
	}()
}
