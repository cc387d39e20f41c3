// Package taxonomy holds the fixed risk classification contract: the 23 risk
// classes, their rule identifiers, the severity grid, and the safety measure
// catalog. Model output is validated against this catalog and never extends
// it; a class the catalog does not know is discarded, not invented.
package taxonomy

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var taxonomyYAML []byte

//go:embed measures.yaml
var measuresYAML []byte

// Category groups risk classes by the kind of harm involved.
type Category string

const (
	CategoryPhysical      Category = "PHYSICAL"
	CategoryEnvironmental Category = "ENVIRONMENTAL"
	CategoryPsychological Category = "PSYCHOLOGICAL"
)

// Class is one risk class from the fixed taxonomy.
type Class struct {
	Name       string   `yaml:"name" json:"name"`
	Category   Category `yaml:"category" json:"category"`
	RuleID     string   `yaml:"rule_id" json:"rule_id"`
	Summary    string   `yaml:"summary" json:"summary"`
	Indicators []string `yaml:"indicators" json:"indicators,omitempty"`
	Measures   []string `yaml:"measures" json:"measures"`
}

// Measure is a catalog safety measure referenced by risk classes.
type Measure struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Responsible string `yaml:"responsible" json:"responsible"`
	Due         string `yaml:"due" json:"due"`
}

// Catalog is the loaded, cross-checked taxonomy.
type Catalog struct {
	classes    []Class
	byName     map[string]*Class
	byRuleID   map[string]*Class
	measures   []Measure
	measureIDs map[string]*Measure
}

type taxonomyFile struct {
	Classes []Class `yaml:"classes"`
}

type measuresFile struct {
	Measures []Measure `yaml:"measures"`
}

// Load parses the embedded catalogs and verifies internal consistency. Every
// measure a class references must exist, and names and rule IDs must be
// unique.
func Load() (*Catalog, error) {
	var tax taxonomyFile
	if err := yaml.Unmarshal(taxonomyYAML, &tax); err != nil {
		return nil, fmt.Errorf("taxonomy: parse classes: %w", err)
	}
	var meas measuresFile
	if err := yaml.Unmarshal(measuresYAML, &meas); err != nil {
		return nil, fmt.Errorf("taxonomy: parse measures: %w", err)
	}

	cat := &Catalog{
		classes:    tax.Classes,
		byName:     make(map[string]*Class, len(tax.Classes)),
		byRuleID:   make(map[string]*Class, len(tax.Classes)),
		measures:   meas.Measures,
		measureIDs: make(map[string]*Measure, len(meas.Measures)),
	}

	for i := range cat.measures {
		m := &cat.measures[i]
		if m.ID == "" {
			return nil, fmt.Errorf("taxonomy: measure %d has no id", i)
		}
		if _, dup := cat.measureIDs[m.ID]; dup {
			return nil, fmt.Errorf("taxonomy: duplicate measure id %s", m.ID)
		}
		cat.measureIDs[m.ID] = m
	}

	for i := range cat.classes {
		cls := &cat.classes[i]
		if cls.Name == "" || cls.RuleID == "" {
			return nil, fmt.Errorf("taxonomy: class %d missing name or rule id", i)
		}
		if _, dup := cat.byName[cls.Name]; dup {
			return nil, fmt.Errorf("taxonomy: duplicate class %s", cls.Name)
		}
		if _, dup := cat.byRuleID[cls.RuleID]; dup {
			return nil, fmt.Errorf("taxonomy: duplicate rule id %s", cls.RuleID)
		}
		switch cls.Category {
		case CategoryPhysical, CategoryEnvironmental, CategoryPsychological:
		default:
			return nil, fmt.Errorf("taxonomy: class %s has unknown category %q", cls.Name, cls.Category)
		}
		for _, id := range cls.Measures {
			if _, ok := cat.measureIDs[id]; !ok {
				return nil, fmt.Errorf("taxonomy: class %s references unknown measure %s", cls.Name, id)
			}
		}
		cat.byName[cls.Name] = cls
		cat.byRuleID[cls.RuleID] = cls
	}

	return cat, nil
}

// MustLoad panics on catalog errors. The catalogs are embedded and covered by
// tests, so a failure here is a build defect.
func MustLoad() *Catalog {
	cat, err := Load()
	if err != nil {
		panic(err)
	}
	return cat
}

// Classes returns all risk classes in catalog order.
func (c *Catalog) Classes() []Class {
	out := make([]Class, len(c.classes))
	copy(out, c.classes)
	return out
}

// ClassByName looks up a class by its canonical name (case-insensitive).
func (c *Catalog) ClassByName(name string) (Class, bool) {
	cls, ok := c.byName[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Class{}, false
	}
	return *cls, true
}

// ClassByRuleID looks up a class by rule identifier.
func (c *Catalog) ClassByRuleID(ruleID string) (Class, bool) {
	cls, ok := c.byRuleID[strings.ToUpper(strings.TrimSpace(ruleID))]
	if !ok {
		return Class{}, false
	}
	return *cls, true
}

// MeasureByID looks up a measure.
func (c *Catalog) MeasureByID(id string) (Measure, bool) {
	m, ok := c.measureIDs[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return Measure{}, false
	}
	return *m, true
}

// MeasuresFor resolves the measures for a set of class names, deduplicated
// and ordered by measure ID.
func (c *Catalog) MeasuresFor(classNames ...string) []Measure {
	seen := make(map[string]bool)
	var out []Measure
	for _, name := range classNames {
		cls, ok := c.ClassByName(name)
		if !ok {
			continue
		}
		for _, id := range cls.Measures {
			if seen[id] {
				continue
			}
			seen[id] = true
			if m, ok := c.MeasureByID(id); ok {
				out = append(out, m)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
