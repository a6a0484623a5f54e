package portal

import (
	"slices"
	"time"

	"github.com/celerix-dev/celerix-compliance/internal/engine"
	"github.com/celerix-dev/celerix-compliance/pkg/query"
	"github.com/celerix-dev/celerix-compliance/pkg/schema"
)

// ContentSchema declares the filterable fields of content items.
var ContentSchema = query.Schema[schema.ContentItem]{
	ID: func(c schema.ContentItem) string { return c.ID },
	Fields: []query.Field[schema.ContentItem]{
		{Name: "id", Kind: query.Text, String: func(c schema.ContentItem) string { return c.ID }},
		{Name: "title", Kind: query.Text, Searchable: true, String: func(c schema.ContentItem) string { return c.Title }},
		{Name: "description", Kind: query.Text, Searchable: true, String: func(c schema.ContentItem) string { return c.Description }},
		{Name: "content", Kind: query.Text, Searchable: true, String: func(c schema.ContentItem) string { return c.Content }},
		{Name: "category", Kind: query.Enum, Searchable: true, String: func(c schema.ContentItem) string { return c.Category }},
		{Name: "regulator", Kind: query.Enum, Searchable: true, String: func(c schema.ContentItem) string { return c.Regulator }},
		{Name: "status", Kind: query.Enum, Order: schema.ContentStatuses, String: func(c schema.ContentItem) string { return c.Status }},
		{Name: "author", Kind: query.Text, String: func(c schema.ContentItem) string { return c.Author }},
		{Name: "createdAt", Kind: query.Time, Time: func(c schema.ContentItem) time.Time { return c.CreatedAt }},
		{Name: "updatedAt", Kind: query.Time, Time: func(c schema.ContentItem) time.Time { return c.UpdatedAt }},
		{Name: "publishedAt", Kind: query.Time, Time: func(c schema.ContentItem) time.Time { return c.PublishedAt }},
	},
}

// ChecklistSchema declares the filterable fields of checklist items.
var ChecklistSchema = query.Schema[schema.ChecklistItem]{
	ID: func(c schema.ChecklistItem) string { return c.ID },
	Fields: []query.Field[schema.ChecklistItem]{
		{Name: "id", Kind: query.Text, String: func(c schema.ChecklistItem) string { return c.ID }},
		{Name: "title", Kind: query.Text, Searchable: true, String: func(c schema.ChecklistItem) string { return c.Title }},
		{Name: "description", Kind: query.Text, Searchable: true, String: func(c schema.ChecklistItem) string { return c.Description }},
		{Name: "regulator", Kind: query.Enum, Searchable: true, String: func(c schema.ChecklistItem) string { return c.Regulator }},
		{Name: "category", Kind: query.Enum, Searchable: true, String: func(c schema.ChecklistItem) string { return c.Category }},
		{Name: "riskLevel", Kind: query.Enum, Order: schema.RiskLevels, String: func(c schema.ChecklistItem) string { return c.RiskLevel }},
		{Name: "completed", Kind: query.Bool, Bool: func(c schema.ChecklistItem) bool { return c.Completed }},
		{Name: "dueDate", Kind: query.Time, Time: func(c schema.ChecklistItem) time.Time { return c.DueDate }},
		{Name: "completedAt", Kind: query.Time, Time: func(c schema.ChecklistItem) time.Time { return c.CompletedAt }},
		{Name: "createdAt", Kind: query.Time, Time: func(c schema.ChecklistItem) time.Time { return c.CreatedAt }},
		{Name: "updatedAt", Kind: query.Time, Time: func(c schema.ChecklistItem) time.Time { return c.UpdatedAt }},
	},
}

// AuditSchema declares the filterable fields of audit entries.
var AuditSchema = query.Schema[schema.AuditEntry]{
	ID: func(a schema.AuditEntry) string { return a.ID },
	Fields: []query.Field[schema.AuditEntry]{
		{Name: "id", Kind: query.Text, String: func(a schema.AuditEntry) string { return a.ID }},
		{Name: "timestamp", Kind: query.Time, Time: func(a schema.AuditEntry) time.Time { return a.Timestamp }},
		{Name: "actor", Kind: query.Text, Searchable: true, String: func(a schema.AuditEntry) string { return a.Actor }},
		{Name: "action", Kind: query.Enum, Searchable: true, String: func(a schema.AuditEntry) string { return a.Action }},
		{Name: "resourceType", Kind: query.Enum, Searchable: true, String: func(a schema.AuditEntry) string { return a.ResourceType }},
		{Name: "resourceId", Kind: query.Text, Searchable: true, String: func(a schema.AuditEntry) string { return a.ResourceID }},
		{Name: "severity", Kind: query.Enum, Order: schema.Severities, String: func(a schema.AuditEntry) string { return a.Severity }},
		{Name: "description", Kind: query.Text, Searchable: true, String: func(a schema.AuditEntry) string { return a.Description }},
		{Name: "details", Kind: query.Text, Searchable: true, String: func(a schema.AuditEntry) string { return a.Details }},
		{Name: "ipAddress", Kind: query.Text, String: func(a schema.AuditEntry) string { return a.IPAddress }},
	},
}

// ContentStats counts published items per category, status and regulator.
var ContentStats = query.StatsSpec[schema.ContentItem]{
	Match:   func(c schema.ContentItem) bool { return c.Status == schema.StatusPublished },
	GroupBy: []string{"category", "status", "regulator"},
}

// ChecklistStats counts completed and overdue items per category, risk level
// and regulator. Items without a due date are never overdue.
var ChecklistStats = query.StatsSpec[schema.ChecklistItem]{
	Match:   func(c schema.ChecklistItem) bool { return c.Completed },
	Due:     func(c schema.ChecklistItem) time.Time { return c.DueDate },
	GroupBy: []string{"category", "riskLevel", "regulator"},
}

// AuditStats counts error and critical entries per severity, action and
// resource type.
var AuditStats = query.StatsSpec[schema.AuditEntry]{
	Match: func(a schema.AuditEntry) bool {
		return a.Severity == schema.SeverityError || a.Severity == schema.SeverityCritical
	},
	GroupBy: []string{"severity", "action", "resourceType"},
}

func withLocale[T any](s query.Schema[T], opts Options) query.Schema[T] {
	s.Locale = opts.Locale
	s.Fields = slices.Clone(s.Fields)
	return s
}

// NewContentScreen configures a screen over content items, newest first.
func NewContentScreen(repo engine.Repository[schema.ContentItem], logger *AuditLogger, opts Options) *Screen[schema.ContentItem] {
	return NewScreen(DatasetContent, repo, withLocale(ContentSchema, opts), ContentStats,
		query.SortState{Field: "updatedAt", Dir: query.Desc}, logger, opts)
}

// NewChecklistScreen configures a screen over checklist items, newest first.
func NewChecklistScreen(repo engine.Repository[schema.ChecklistItem], logger *AuditLogger, opts Options) *Screen[schema.ChecklistItem] {
	return NewScreen(DatasetChecklist, repo, withLocale(ChecklistSchema, opts), ChecklistStats,
		query.SortState{Field: "createdAt", Dir: query.Desc}, logger, opts)
}

// NewAuditScreen configures a screen over the audit log, most recent first.
func NewAuditScreen(repo engine.Repository[schema.AuditEntry], logger *AuditLogger, opts Options) *Screen[schema.AuditEntry] {
	return NewScreen(DatasetAudit, repo, withLocale(AuditSchema, opts), AuditStats,
		query.SortState{Field: "timestamp", Dir: query.Desc}, logger, opts)
}
