// Package schema defines the record types managed by the Celerix compliance portal.
package schema

import "time"

// Record is implemented by every type held in a record store.
type Record interface {
	RecordID() string
}

// Content statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Audit severities, in increasing order.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Risk levels for checklist items, in increasing order.
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// Severities lists audit severities from least to most severe.
var Severities = []string{SeverityInfo, SeverityWarning, SeverityError, SeverityCritical}

// RiskLevels lists checklist risk levels from lowest to highest.
var RiskLevels = []string{RiskLow, RiskMedium, RiskHigh, RiskCritical}

// ContentStatuses lists the content lifecycle states in order.
var ContentStatuses = []string{StatusDraft, StatusPublished, StatusArchived}

// ContentItem is a regulatory document or page managed by the content library.
type ContentItem struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title" binding:"required"`
	Description string    `json:"description" yaml:"description"`
	Content     string    `json:"content" yaml:"content"`
	Category    string    `json:"category" yaml:"category" binding:"required"`
	Regulator   string    `json:"regulator" yaml:"regulator"`
	Status      string    `json:"status" yaml:"status" binding:"omitempty,oneof=draft published archived"`
	Author      string    `json:"author" yaml:"author"`
	Tags        []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"updatedAt"`
	PublishedAt time.Time `json:"publishedAt,omitzero" yaml:"publishedAt,omitempty"`
}

func (c ContentItem) RecordID() string { return c.ID }

// ChecklistItem is a single compliance requirement tracked to completion.
type ChecklistItem struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title" binding:"required"`
	Description string    `json:"description" yaml:"description"`
	Regulator   string    `json:"regulator" yaml:"regulator"`
	Category    string    `json:"category" yaml:"category"`
	RiskLevel   string    `json:"riskLevel" yaml:"riskLevel"`
	Completed   bool      `json:"completed" yaml:"completed"`
	DueDate     time.Time `json:"dueDate,omitzero" yaml:"dueDate,omitempty"`
	CompletedAt time.Time `json:"completedAt,omitzero" yaml:"completedAt,omitempty"`
	TemplateID  string    `json:"templateId,omitempty" yaml:"templateId,omitempty"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"updatedAt"`
}

func (c ChecklistItem) RecordID() string { return c.ID }

// AuditEntry represents a standardized event log entry.
type AuditEntry struct {
	ID           string    `json:"id" yaml:"id"`
	Timestamp    time.Time `json:"timestamp" yaml:"timestamp"`
	Actor        string    `json:"actor" yaml:"actor"`
	Action       string    `json:"action" yaml:"action"`
	ResourceType string    `json:"resourceType" yaml:"resourceType"`
	ResourceID   string    `json:"resourceId" yaml:"resourceId"`
	Severity     string    `json:"severity" yaml:"severity"`
	Description  string    `json:"description" yaml:"description"`
	Details      string    `json:"details,omitempty" yaml:"details,omitempty"`
	IPAddress    string    `json:"ipAddress,omitempty" yaml:"ipAddress,omitempty"`
}

func (a AuditEntry) RecordID() string { return a.ID }

// RequirementTemplate is a reusable regulatory requirement from which checklist
// items are generated.
type RequirementTemplate struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Regulator   string `json:"regulator" yaml:"regulator"`
	Category    string `json:"category" yaml:"category"`
	RiskLevel   string `json:"riskLevel" yaml:"riskLevel"`
	DueInDays   int    `json:"dueInDays" yaml:"dueInDays"`
}
