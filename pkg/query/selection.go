package query

import "sync"

// Selection tracks selected record identifiers for batch operations. It is
// independent of filter, sort and page state so a selection survives
// re-filtering. Safe for concurrent use.
type Selection struct {
	mu    sync.Mutex
	order []string
	set   map[string]struct{}
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{set: make(map[string]struct{})}
}

// Toggle selects id if unselected, otherwise deselects it. It reports whether
// id is selected afterwards.
func (s *Selection) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.set[id]; ok {
		s.removeLocked(id)
		return false
	}
	s.set[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

// SelectAll adds every id in ids to the selection.
func (s *Selection) SelectAll(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if _, ok := s.set[id]; ok {
			continue
		}
		s.set[id] = struct{}{}
		s.order = append(s.order, id)
	}
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.set = make(map[string]struct{})
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.set[id]
	return ok
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// IDs returns the selected ids in selection order.
func (s *Selection) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.order...)
}

// Prune drops every id for which keep returns false.
func (s *Selection) Prune(keep func(id string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.order[:0]
	for _, id := range s.order {
		if keep(id) {
			kept = append(kept, id)
			continue
		}
		delete(s.set, id)
	}
	s.order = kept
}

func (s *Selection) removeLocked(id string) {
	delete(s.set, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
