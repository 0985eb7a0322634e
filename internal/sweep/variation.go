package sweep

import (
	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/biosweep/internal/configtree"
)

// Variation is one concrete, baseline-derived parameterization. It fully
// determines a configuration document: applying Overrides on top of the
// baseline through configtree.WithOverrides yields the document to run.
// Variations are immutable once created; the dispatcher never modifies them.
type Variation struct {
	// ID uniquely correlates this variation with its eventual run outcome.
	ID string
	// Section is the top-level section this variation sweeps.
	Section string
	// Phase is the combinatorial strategy that produced the variation.
	Phase Phase
	// Multiplier is the primary scalar applied to the target leaf. For
	// multi-path phases the authoritative record is Overrides.
	Multiplier float64
	// Overrides maps leaf paths to their overridden values.
	Overrides map[string]cty.Value
	// SpatialFunction names the modulator function applied, if any.
	SpatialFunction string
	// SpatialParams records how a spatially-expanded child differs from its
	// siblings (secondary multiplier, bitmap asset path).
	SpatialParams map[string]cty.Value
}

func newVariation(section string, phase Phase, multiplier float64) Variation {
	return Variation{
		ID:         uuid.NewString(),
		Section:    section,
		Phase:      phase,
		Multiplier: multiplier,
		Overrides:  make(map[string]cty.Value),
	}
}

// child derives a new variation from v with copied overrides, a fresh ID and
// the given spatial function tag. The parent is left untouched.
func (v Variation) child(spatialFunction string) Variation {
	overrides := make(map[string]cty.Value, len(v.Overrides)+4)
	for path, val := range v.Overrides {
		overrides[path] = val
	}
	return Variation{
		ID:              uuid.NewString(),
		Section:         v.Section,
		Phase:           v.Phase,
		Multiplier:      v.Multiplier,
		Overrides:       overrides,
		SpatialFunction: spatialFunction,
		SpatialParams:   make(map[string]cty.Value, 2),
	}
}

// Materialize applies the variation's overrides over the baseline and
// returns the concrete configuration document. The result shares no mutable
// state with the baseline or with any sibling variation's document.
func (v Variation) Materialize(baseline *configtree.Tree) (*configtree.Tree, error) {
	return baseline.WithOverrides(v.Overrides)
}
