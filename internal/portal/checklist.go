package portal

import (
	"fmt"
	"slices"
	"time"

	"github.com/celerix-dev/celerix-compliance/pkg/schema"
)

// GenerateRequest selects requirement templates by regulator and category.
// Within each list any value matches; an empty list matches everything.
type GenerateRequest struct {
	Regulators []string `json:"regulators"`
	Categories []string `json:"categories"`
}

func (r GenerateRequest) matches(t schema.RequirementTemplate) bool {
	if len(r.Regulators) > 0 && !slices.Contains(r.Regulators, t.Regulator) {
		return false
	}
	if len(r.Categories) > 0 && !slices.Contains(r.Categories, t.Category) {
		return false
	}
	return true
}

// ChecklistService manages compliance checklist items on top of their screen.
type ChecklistService struct {
	*Screen[schema.ChecklistItem]
	templates []schema.RequirementTemplate
}

// Templates returns the known requirement templates.
func (s *ChecklistService) Templates() []schema.RequirementTemplate {
	return slices.Clone(s.templates)
}

// Generate creates one checklist item per matching template, due DueInDays
// from now. Templates that already have an open item are skipped.
func (s *ChecklistService) Generate(actor Actor, req GenerateRequest) ([]schema.ChecklistItem, error) {
	open := make(map[string]bool)
	for _, item := range s.repo.List() {
		if item.TemplateID != "" && !item.Completed {
			open[item.TemplateID] = true
		}
	}

	now := s.now()
	matched := 0
	created := []schema.ChecklistItem{}
	for _, t := range s.templates {
		if !req.matches(t) {
			continue
		}
		matched++
		if open[t.ID] {
			continue
		}
		item := schema.ChecklistItem{
			ID:          NewID(),
			Title:       t.Title,
			Description: t.Description,
			Regulator:   t.Regulator,
			Category:    t.Category,
			RiskLevel:   t.RiskLevel,
			TemplateID:  t.ID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if t.DueInDays > 0 {
			item.DueDate = now.Add(time.Duration(t.DueInDays) * 24 * time.Hour)
		}
		if err := s.repo.Create(item); err != nil {
			return created, fmt.Errorf("generate from %s: %w", t.ID, err)
		}
		created = append(created, item)
		s.audit(actor, "generate", item.ID, schema.SeverityInfo, "Generated checklist item: "+item.Title, "template "+t.ID)
	}
	if matched == 0 {
		return nil, ErrNoTemplates
	}
	return created, nil
}

// SetCompleted marks an item done or reopens it. Completing stamps
// CompletedAt; reopening clears it.
func (s *ChecklistService) SetCompleted(actor Actor, id string, done bool) (schema.ChecklistItem, error) {
	item, err := s.repo.Get(id)
	if err != nil {
		return schema.ChecklistItem{}, err
	}
	now := s.now()
	item.Completed = done
	item.UpdatedAt = now
	item.CompletedAt = time.Time{}
	action := "reopen"
	if done {
		item.CompletedAt = now
		action = "complete"
	}
	if err := s.repo.Update(item); err != nil {
		return schema.ChecklistItem{}, err
	}
	s.audit(actor, action, id, schema.SeverityInfo, "Checklist item "+action+": "+item.Title, "")
	return item, nil
}
