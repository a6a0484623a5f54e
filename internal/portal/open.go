package portal

import (
	"fmt"

	"github.com/celerix-dev/celerix-compliance/internal/engine"
	"github.com/celerix-dev/celerix-compliance/internal/seed"
)

// Open loads every dataset from p, seeding the ones never persisted, and
// builds a portal over them. p may be nil for a purely in-memory portal.
func Open(p engine.Persister, data seed.Data, opts Options) (*Portal, error) {
	content, err := engine.Open(DatasetContent, data.Content, p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", DatasetContent, err)
	}
	checklist, err := engine.Open(DatasetChecklist, data.Checklist, p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", DatasetChecklist, err)
	}
	audit, err := engine.Open(DatasetAudit, data.Audit, p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", DatasetAudit, err)
	}

	portal := New(Stores{Content: content, Checklist: checklist, Audit: audit}, data.Templates, opts)
	portal.waiters = []interface{ Wait() }{content, checklist, audit}
	return portal, nil
}

// Wait blocks until every pending background save has finished.
func (p *Portal) Wait() {
	for _, w := range p.waiters {
		w.Wait()
	}
}
