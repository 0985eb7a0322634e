package sweep

import (
	"slices"
	"strings"
)

// Category is the classification of one top-level configuration section,
// driving which generator logic applies to it.
type Category int

const (
	// CategoryIgnored marks sections that match no rule and are never swept.
	CategoryIgnored Category = iota
	// CategoryTargeted marks targeted or global interventions: sections with a
	// multiplier leaf and an event-window sub-structure.
	CategoryTargeted
	// CategoryApplied marks applied-forcing interventions, which share the
	// targeted shape but may carry their own nested parameters such as peak
	// magnitude and boundary selection.
	CategoryApplied
	// CategoryModulator marks the reserved spatial-modulator configuration
	// section. It is never swept on its own; it is only consumed when an
	// intervention declares a modulator function.
	CategoryModulator
	// CategoryStructural marks global structural parameters such as grid
	// resolution and ion-profile choice, swept by simple single-path specs.
	CategoryStructural
)

func (c Category) String() string {
	switch c {
	case CategoryTargeted:
		return "targeted"
	case CategoryApplied:
		return "applied"
	case CategoryModulator:
		return "modulator"
	case CategoryStructural:
		return "structural"
	default:
		return "ignored"
	}
}

// ModulatorSection is the reserved name of the spatial-modulator
// configuration section.
const ModulatorSection = "modulator function properties"

// Classifier assigns each top-level section name to a category by name
// pattern. Classification is pure and total: every name maps to exactly one
// category, including CategoryIgnored.
type Classifier struct {
	// StructuralSections lists the section names holding global structural
	// parameters, e.g. "general options" and "world options".
	StructuralSections []string
}

// Classify returns the category for one section name.
func (c *Classifier) Classify(name string) Category {
	switch {
	case name == ModulatorSection:
		return CategoryModulator
	case strings.HasPrefix(name, "change"),
		strings.HasPrefix(name, "break"),
		strings.HasPrefix(name, "block"):
		return CategoryTargeted
	case strings.HasPrefix(name, "apply"):
		return CategoryApplied
	case slices.Contains(c.StructuralSections, name):
		return CategoryStructural
	default:
		return CategoryIgnored
	}
}

// SectionsByCategory classifies every name and groups the results, preserving
// the given order within each category.
func (c *Classifier) SectionsByCategory(names []string) map[Category][]string {
	out := make(map[Category][]string)
	for _, name := range names {
		cat := c.Classify(name)
		out[cat] = append(out[cat], name)
	}
	return out
}
