package portal

import (
	"time"

	"github.com/celerix-dev/celerix-compliance/internal/engine"
	"github.com/celerix-dev/celerix-compliance/pkg/schema"
)

// Event is one auditable operation.
type Event struct {
	Actor        Actor
	Action       string
	ResourceType string
	ResourceID   string
	Severity     string
	Description  string
	Details      string
}

// AuditLogger appends audit entries straight to the audit store. It holds no
// screen locks, so any screen (the audit screen included) may log through it.
type AuditLogger struct {
	store engine.Repository[schema.AuditEntry]
	now   func() time.Time
}

func NewAuditLogger(store engine.Repository[schema.AuditEntry], now func() time.Time) *AuditLogger {
	if now == nil {
		now = time.Now
	}
	return &AuditLogger{store: store, now: now}
}

// Record appends ev, discarding the stored entry.
func (l *AuditLogger) Record(ev Event) error {
	_, err := l.Append(ev)
	return err
}

// Append stores ev as a new audit entry and returns it.
func (l *AuditLogger) Append(ev Event) (schema.AuditEntry, error) {
	severity := ev.Severity
	if severity == "" {
		severity = schema.SeverityInfo
	}
	actor := ev.Actor.Name
	if actor == "" {
		actor = System.Name
	}
	entry := schema.AuditEntry{
		ID:           NewID(),
		Timestamp:    l.now(),
		Actor:        actor,
		Action:       ev.Action,
		ResourceType: ev.ResourceType,
		ResourceID:   ev.ResourceID,
		Severity:     severity,
		Description:  ev.Description,
		Details:      ev.Details,
		IPAddress:    ev.Actor.IP,
	}
	if err := l.store.Create(entry); err != nil {
		return schema.AuditEntry{}, err
	}
	return entry, nil
}
