package portal

import (
	"context"
	"sync"
	"time"

	"github.com/celerix-dev/celerix-compliance/pkg/query"
)

// Summary is the cross-dataset analytics view.
type Summary struct {
	Content   query.Stats `json:"content"`
	Checklist query.Stats `json:"checklist"`
	Audit     query.Stats `json:"audit"`
	// CompletionRate is the percentage of checklist items completed.
	CompletionRate float64   `json:"completionRate"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// Dashboard aggregates every dataset. LastUpdated only moves when the
// dashboard is touched, either by a caller or by Run.
type Dashboard struct {
	portal *Portal
	now    func() time.Time

	mu          sync.RWMutex
	lastUpdated time.Time
}

func NewDashboard(p *Portal, now func() time.Time) *Dashboard {
	return &Dashboard{portal: p, now: now, lastUpdated: now()}
}

// Summary computes fresh statistics over the unfiltered datasets.
func (d *Dashboard) Summary() Summary {
	s := Summary{
		Content:   d.portal.Content.Summarize(query.Query{}),
		Checklist: d.portal.Checklist.Summarize(query.Query{}),
		Audit:     d.portal.Audit.Summarize(query.Query{}),
	}
	if s.Checklist.Total > 0 {
		s.CompletionRate = float64(s.Checklist.Matching) * 100 / float64(s.Checklist.Total)
	}
	d.mu.RLock()
	s.LastUpdated = d.lastUpdated
	d.mu.RUnlock()
	return s
}

// Touch stamps LastUpdated with the current time.
func (d *Dashboard) Touch() time.Time {
	now := d.now()
	d.mu.Lock()
	d.lastUpdated = now
	d.mu.Unlock()
	return now
}

// Run touches the dashboard every interval until ctx is done.
func (d *Dashboard) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Touch()
		}
	}
}
