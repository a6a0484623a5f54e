package portal

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/celerix-dev/celerix-compliance/pkg/schema"
)

// ErrInvalidRecord is returned when a record fails validation.
var ErrInvalidRecord = errors.New("invalid record")

// ContentService manages the content library on top of its screen.
type ContentService struct {
	*Screen[schema.ContentItem]
}

func validateContent(c schema.ContentItem) error {
	switch {
	case strings.TrimSpace(c.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidRecord)
	case strings.TrimSpace(c.Category) == "":
		return fmt.Errorf("%w: category is required", ErrInvalidRecord)
	}
	switch c.Status {
	case schema.StatusDraft, schema.StatusPublished, schema.StatusArchived:
		return nil
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, c.Status)
	}
}

// Create stores a new content item. Id and timestamps are assigned here; a
// missing status defaults to draft and a missing author to the actor.
func (s *ContentService) Create(actor Actor, item schema.ContentItem) (schema.ContentItem, error) {
	now := s.now()
	item.ID = NewID()
	if item.Status == "" {
		item.Status = schema.StatusDraft
	}
	if item.Author == "" {
		item.Author = actor.Name
	}
	if err := validateContent(item); err != nil {
		return schema.ContentItem{}, err
	}
	item.CreatedAt, item.UpdatedAt = now, now
	if item.Status == schema.StatusPublished {
		item.PublishedAt = now
	}
	if err := s.repo.Create(item); err != nil {
		return schema.ContentItem{}, err
	}
	s.audit(actor, "create", item.ID, schema.SeverityInfo, "Created content: "+item.Title, "")
	return item, nil
}

// Update replaces the editable fields of an existing item. The audit entry
// carries a patch of the body text when it changed.
func (s *ContentService) Update(actor Actor, id string, in schema.ContentItem) (schema.ContentItem, error) {
	old, err := s.repo.Get(id)
	if err != nil {
		return schema.ContentItem{}, err
	}
	item := old
	item.Title = in.Title
	item.Description = in.Description
	item.Content = in.Content
	item.Category = in.Category
	item.Regulator = in.Regulator
	item.Tags = in.Tags
	if in.Status != "" {
		item.Status = in.Status
	}
	if err := validateContent(item); err != nil {
		return schema.ContentItem{}, err
	}
	item.UpdatedAt = s.now()
	if item.Status == schema.StatusPublished && old.Status != schema.StatusPublished {
		item.PublishedAt = item.UpdatedAt
	}
	if err := s.repo.Update(item); err != nil {
		return schema.ContentItem{}, err
	}
	s.audit(actor, "update", id, schema.SeverityInfo, "Updated content: "+item.Title, ContentPatch(old.Content, item.Content))
	return item, nil
}

// ContentPatch renders the change from old to updated as patch text, or ""
// when they are equal.
func ContentPatch(old, updated string) string {
	if old == updated {
		return ""
	}
	dmp := diffmatchpatch.New()
	return dmp.PatchToText(dmp.PatchMake(old, updated))
}

func (s *ContentService) setStatus(actor Actor, id, status string) (schema.ContentItem, error) {
	item, err := s.repo.Get(id)
	if err != nil {
		return schema.ContentItem{}, err
	}
	if err := s.applyStatus(&item, status); err != nil {
		return schema.ContentItem{}, err
	}
	s.audit(actor, statusAction(status), id, schema.SeverityInfo, "Changed content status to "+status+": "+item.Title, "")
	return item, nil
}

func (s *ContentService) applyStatus(item *schema.ContentItem, status string) error {
	item.Status = status
	item.UpdatedAt = s.now()
	if status == schema.StatusPublished {
		item.PublishedAt = item.UpdatedAt
	}
	return s.repo.Update(*item)
}

func statusAction(status string) string {
	if status == schema.StatusPublished {
		return "publish"
	}
	return "archive"
}

// Publish marks an item published and stamps its publish time.
func (s *ContentService) Publish(actor Actor, id string) (schema.ContentItem, error) {
	return s.setStatus(actor, id, schema.StatusPublished)
}

// Archive marks an item archived.
func (s *ContentService) Archive(actor Actor, id string) (schema.ContentItem, error) {
	return s.setStatus(actor, id, schema.StatusArchived)
}

// PublishSelected publishes every selected item and clears the selection.
func (s *ContentService) PublishSelected(actor Actor) ([]string, error) {
	ids, err := s.Batch(actor, "publish", func(item schema.ContentItem) error {
		return s.applyStatus(&item, schema.StatusPublished)
	})
	if err != nil {
		slog.Warn("batch publish stopped", "published", len(ids), "error", err)
	}
	return ids, err
}
