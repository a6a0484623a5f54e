// Package seed provides the mock records the portal is seeded with at startup.
package seed

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/celerix-dev/celerix-compliance/pkg/schema"
)

//go:embed seed.yaml
var defaultSeed []byte

// Data is the full set of seed records.
type Data struct {
	Content   []schema.ContentItem         `yaml:"content"`
	Checklist []schema.ChecklistItem       `yaml:"checklist"`
	Audit     []schema.AuditEntry          `yaml:"audit"`
	Templates []schema.RequirementTemplate `yaml:"templates"`
}

// Default returns the embedded seed data.
func Default() (Data, error) {
	return Parse(defaultSeed)
}

// Parse decodes seed data from YAML.
func Parse(raw []byte) (Data, error) {
	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Data{}, fmt.Errorf("parse seed: %w", err)
	}
	return d, nil
}
