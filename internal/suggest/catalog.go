// Package suggest serves the static sample content shown next to note and
// form fields: suggestion lists keyed by (section, age group, modality) and
// the modality insight cards.
package suggest

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"carenote/internal/clinical"
)

//go:embed catalog.yaml
var catalogYAML []byte

type Key struct {
	Section  clinical.Section
	AgeGroup clinical.AgeGroup
	Modality clinical.Modality
}

type InsightKey struct {
	Modality clinical.Modality
	AgeGroup clinical.AgeGroup
}

type Insight struct {
	Summary string   `json:"summary"`
	Details []string `json:"details"`
}

type Catalog struct {
	suggestions map[Key][]string
	insights    map[InsightKey]Insight
}

type catalogFile struct {
	Suggestions []struct {
		Section  string   `yaml:"section"`
		AgeGroup string   `yaml:"age_group"`
		Modality string   `yaml:"modality"`
		Items    []string `yaml:"items"`
	} `yaml:"suggestions"`
	Insights []struct {
		Modality string   `yaml:"modality"`
		AgeGroup string   `yaml:"age_group"`
		Summary  string   `yaml:"summary"`
		Details  []string `yaml:"details"`
	} `yaml:"insights"`
}

// ParseCatalog decodes catalog YAML. Every key must use known enum values
// and appear once.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{
		suggestions: make(map[Key][]string, len(f.Suggestions)),
		insights:    make(map[InsightKey]Insight, len(f.Insights)),
	}
	for i, s := range f.Suggestions {
		section := clinical.Section(s.Section)
		if !section.Known() {
			return nil, fmt.Errorf("suggestion %d: unknown section %q", i, s.Section)
		}
		ag, err := clinical.ParseAgeGroup(s.AgeGroup)
		if err != nil {
			return nil, fmt.Errorf("suggestion %d: age group %q: %w", i, s.AgeGroup, err)
		}
		m, err := clinical.ParseModality(s.Modality)
		if err != nil {
			return nil, fmt.Errorf("suggestion %d: modality %q: %w", i, s.Modality, err)
		}
		k := Key{section, ag, m}
		if _, dup := c.suggestions[k]; dup {
			return nil, fmt.Errorf("suggestion %d: duplicate key %v", i, k)
		}
		c.suggestions[k] = s.Items
	}
	for i, in := range f.Insights {
		ag, err := clinical.ParseAgeGroup(in.AgeGroup)
		if err != nil {
			return nil, fmt.Errorf("insight %d: age group %q: %w", i, in.AgeGroup, err)
		}
		m, err := clinical.ParseModality(in.Modality)
		if err != nil {
			return nil, fmt.Errorf("insight %d: modality %q: %w", i, in.Modality, err)
		}
		c.insights[InsightKey{m, ag}] = Insight{Summary: in.Summary, Details: in.Details}
	}
	return c, nil
}

var defaultCatalog = mustParse(catalogYAML)

func mustParse(data []byte) *Catalog {
	c, err := ParseCatalog(data)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() *Catalog { return defaultCatalog }

// Lookup returns a copy of the suggestions for k. Unmapped keys give an
// empty, non-nil slice.
func (c *Catalog) Lookup(k Key) []string {
	return append([]string{}, c.suggestions[k]...)
}

func (c *Catalog) Insight(m clinical.Modality, g clinical.AgeGroup) (Insight, bool) {
	in, ok := c.insights[InsightKey{m, g}]
	return in, ok
}
