// Package checklist holds the per-class inspection templates and the
// conversational dialogue that walks a driver through them.
package checklist

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
)

//go:embed templates.yaml
var templatesYAML []byte

// ItemDef is one template entry.
type ItemDef struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
}

// Templates maps every vehicle class to its ordered item definitions.
type Templates map[domain.VehicleClass][]ItemDef

// ParseTemplates decodes a YAML document keyed by vehicle class name.
// Every known class must be present, and item ids must be non-empty and
// unique within a class.
func ParseTemplates(data []byte) (Templates, error) {
	var raw map[string][]ItemDef
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("checklist.ParseTemplates: %w", err)
	}

	out := make(Templates, len(raw))
	for name, defs := range raw {
		class, err := domain.ParseVehicleClass(name)
		if err != nil {
			return nil, fmt.Errorf("checklist.ParseTemplates: %w", err)
		}
		seen := make(map[string]bool, len(defs))
		for i, d := range defs {
			if strings.TrimSpace(d.ID) == "" || strings.TrimSpace(d.Label) == "" {
				return nil, fmt.Errorf("checklist.ParseTemplates: %s item %d: id and label are required", name, i)
			}
			if seen[d.ID] {
				return nil, fmt.Errorf("checklist.ParseTemplates: %s: duplicate item id %q", name, d.ID)
			}
			seen[d.ID] = true
		}
		out[class] = defs
	}

	for _, c := range domain.VehicleClasses() {
		if _, ok := out[c]; !ok {
			return nil, fmt.Errorf("checklist.ParseTemplates: no template for %s", c)
		}
	}
	return out, nil
}

var defaultTemplates = sync.OnceValue(func() Templates {
	t, err := ParseTemplates(templatesYAML)
	if err != nil {
		panic(err)
	}
	return t
})

// Default returns the embedded templates.
func Default() Templates {
	return defaultTemplates()
}

// Items returns a fresh, all-unchecked checklist for class.
func (t Templates) Items(class domain.VehicleClass) []domain.ChecklistItem {
	defs := t[class]
	items := make([]domain.ChecklistItem, len(defs))
	for i, d := range defs {
		items[i] = domain.ChecklistItem{ID: d.ID, Label: d.Label}
	}
	return items
}
