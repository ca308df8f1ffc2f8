// Package rulefile reads and writes rule sets as YAML. The same format backs
// the built-in defaults and user exports.
package rulefile

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/pattern"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Document is a set of categories and the rules that target them by name.
type Document struct {
	Categories []CategoryEntry `yaml:"categories,omitempty"`
	Rules      []RuleEntry     `yaml:"rules"`
}

// CategoryEntry describes one category.
type CategoryEntry struct {
	Name         string `yaml:"name"`
	Color        string `yaml:"color,omitempty"`
	Icon         string `yaml:"icon,omitempty"`
	ID           int    `yaml:"id,omitempty"`
	DisplayOrder int    `yaml:"display_order,omitempty"`
	IsDefault    bool   `yaml:"is_default,omitempty"`
}

// RuleEntry describes one rule. Active defaults to true when omitted.
type RuleEntry struct {
	Active    *bool  `yaml:"active,omitempty"`
	Category  string `yaml:"category"`
	Pattern   string `yaml:"pattern"`
	MatchType string `yaml:"match_type"`
	Priority  int    `yaml:"priority"`
}

// Defaults returns the built-in categories and rules.
func Defaults() (*Document, error) {
	doc, err := Parse(defaultsYAML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse default rules: %w", err)
	}
	return doc, nil
}

// Parse decodes a YAML document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode rule file: %w", err)
	}
	return &doc, nil
}

// Load reads a YAML document from path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user supplied rule file
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}
	return Parse(data)
}

// Write encodes doc as YAML.
func Write(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode rule file: %w", err)
	}
	return enc.Close()
}

// Category converts an entry into a model category.
func (c CategoryEntry) Category() model.Category {
	return model.Category{
		ID:           c.ID,
		Name:         c.Name,
		Color:        c.Color,
		Icon:         c.Icon,
		DisplayOrder: c.DisplayOrder,
		IsDefault:    c.IsDefault,
	}
}

// ResolveRules converts entries into validated rules, looking category names
// up with lookup.
func (d *Document) ResolveRules(lookup func(name string) (int, bool)) ([]model.Rule, error) {
	rules := make([]model.Rule, 0, len(d.Rules))
	for i, entry := range d.Rules {
		categoryID, ok := lookup(entry.Category)
		if !ok {
			return nil, fmt.Errorf("rule %d: unknown category %q", i+1, entry.Category)
		}

		matchType, err := model.ParseMatchType(entry.MatchType)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}

		rule := model.Rule{
			CategoryID: categoryID,
			Pattern:    entry.Pattern,
			MatchType:  matchType,
			Priority:   entry.Priority,
			IsActive:   entry.Active == nil || *entry.Active,
		}
		if err := pattern.ValidateRule(rule); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// CategoryLookup returns a case-insensitive name lookup over categories.
func CategoryLookup(categories []model.Category) func(string) (int, bool) {
	byName := make(map[string]int, len(categories))
	for _, c := range categories {
		byName[strings.ToUpper(c.Name)] = c.ID
	}
	return func(name string) (int, bool) {
		id, ok := byName[strings.ToUpper(strings.TrimSpace(name))]
		return id, ok
	}
}

// FromRules builds an exportable document. Rules pointing at unknown
// categories are skipped.
func FromRules(rules []model.Rule, categories []model.Category) *Document {
	names := make(map[int]string, len(categories))
	doc := &Document{}
	for _, c := range categories {
		names[c.ID] = c.Name
		doc.Categories = append(doc.Categories, CategoryEntry{
			Name:         c.Name,
			Color:        c.Color,
			Icon:         c.Icon,
			DisplayOrder: c.DisplayOrder,
			IsDefault:    c.IsDefault,
		})
	}

	for _, r := range rules {
		name, ok := names[r.CategoryID]
		if !ok {
			continue
		}
		entry := RuleEntry{
			Category:  name,
			Pattern:   r.Pattern,
			MatchType: string(r.MatchType),
			Priority:  r.Priority,
		}
		if !r.IsActive {
			inactive := false
			entry.Active = &inactive
		}
		doc.Rules = append(doc.Rules, entry)
	}
	return doc
}
