package sweep

import (
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/biosweep/internal/configtree"
)

// Spec declares one sweep: the target leaf path(s), the ordered multiplier
// set and the phase that governs how variations are constructed.
type Spec struct {
	Section  string
	Category Category
	Phase    Phase
	// Paths are the swept leaf paths. Single takes exactly one, pair exactly
	// two, grouped one or more. Sum ignores them and noise falls back to
	// every numeric leaf when none are given.
	Paths []string
	// Multipliers is the ordered multiplier set. It may include 0 (the
	// fully-disabled control case) and 1 (baseline identity) as sentinel
	// points for comparison.
	Multipliers []float64
	// RebaseZeroTo substitutes a zero baseline value before scaling, for
	// interventions whose disabled baseline would otherwise absorb every
	// multiplier.
	RebaseZeroTo float64
}

// Generator is a pure variation factory: no side effects, no I/O. The same
// inputs always produce the same sequence, including the noise phase, which
// is driven entirely by NoiseSeed.
type Generator struct {
	// SimulationLength is the requested simulation length, which fixes the
	// event window of every scheduled intervention.
	SimulationLength float64
	// NoiseSamples is the number of variations produced per noise-phase spec.
	NoiseSamples int
	// NoiseAmplitude bounds the relative perturbation drawn around 1.
	NoiseAmplitude float64
	// NoiseSeed makes the noise phase reproducible.
	NoiseSeed int64
}

// Generate produces the ordered variation sequence for one spec. Failures
// are specification errors: they occur before any dispatch and concern only
// this spec's section.
func (g *Generator) Generate(baseline *configtree.Tree, spec Spec) ([]Variation, error) {
	if spec.Phase != PhaseNoise {
		if len(spec.Multipliers) == 0 {
			return nil, &SpecError{Section: spec.Section, Reason: "empty multiplier set"}
		}
		for _, m := range spec.Multipliers {
			if math.IsNaN(m) || math.IsInf(m, 0) {
				return nil, &SpecError{Section: spec.Section, Reason: "multiplier set contains a non-finite value"}
			}
		}
	}

	switch spec.Phase {
	case PhaseSingle:
		return g.single(baseline, spec)
	case PhasePair:
		return g.pair(baseline, spec)
	case PhaseGrouped:
		return g.grouped(baseline, spec)
	case PhaseSum:
		return g.sum(baseline, spec)
	case PhaseNoise:
		return g.noise(baseline, spec)
	default:
		return nil, &SpecError{Section: spec.Section, Reason: "unknown phase " + string(spec.Phase)}
	}
}

// GenerateValues produces one variation per concrete value, for enumerated
// parameters such as ion profiles or grid sizes where a multiplier sweep
// makes no sense.
func (g *Generator) GenerateValues(baseline *configtree.Tree, section, path string, values []cty.Value, phase Phase) ([]Variation, error) {
	if len(values) == 0 {
		return nil, &SpecError{Section: section, Reason: "empty value set"}
	}
	if _, err := baseline.Get(path); err != nil {
		return nil, &SpecError{Section: section, Reason: "target path unavailable", Err: err}
	}

	variations := make([]Variation, 0, len(values))
	for _, val := range values {
		v := newVariation(section, phase, 1)
		v.Overrides[path] = val
		variations = append(variations, v)
	}
	return variations, nil
}

func (g *Generator) single(baseline *configtree.Tree, spec Spec) ([]Variation, error) {
	if len(spec.Paths) != 1 {
		return nil, &SpecError{Section: spec.Section, Reason: "single phase takes exactly one path"}
	}
	base, err := g.baseValue(baseline, spec, spec.Paths[0])
	if err != nil {
		return nil, err
	}

	variations := make([]Variation, 0, len(spec.Multipliers))
	for _, m := range spec.Multipliers {
		v := newVariation(spec.Section, spec.Phase, m)
		v.Overrides[spec.Paths[0]] = cty.NumberFloatVal(base * m)
		g.applyEventWindow(&v, sectionOf(spec.Paths[0]), spec.Category, m)
		variations = append(variations, v)
	}
	return variations, nil
}

func (g *Generator) pair(baseline *configtree.Tree, spec Spec) ([]Variation, error) {
	if len(spec.Paths) != 2 {
		return nil, &SpecError{Section: spec.Section, Reason: "pair phase takes exactly two paths"}
	}
	first, err := g.baseValue(baseline, spec, spec.Paths[0])
	if err != nil {
		return nil, err
	}
	second, err := g.baseValue(baseline, spec, spec.Paths[1])
	if err != nil {
		return nil, err
	}

	variations := make([]Variation, 0, len(spec.Multipliers)*len(spec.Multipliers))
	for _, m1 := range spec.Multipliers {
		for _, m2 := range spec.Multipliers {
			v := newVariation(spec.Section, spec.Phase, m1)
			v.Overrides[spec.Paths[0]] = cty.NumberFloatVal(first * m1)
			v.Overrides[spec.Paths[1]] = cty.NumberFloatVal(second * m2)
			g.applyEventWindow(&v, sectionOf(spec.Paths[0]), spec.Category, m1)
			g.applyEventWindow(&v, sectionOf(spec.Paths[1]), spec.Category, m2)
			variations = append(variations, v)
		}
	}
	return variations, nil
}

func (g *Generator) grouped(baseline *configtree.Tree, spec Spec) ([]Variation, error) {
	if len(spec.Paths) == 0 {
		return nil, &SpecError{Section: spec.Section, Reason: "grouped phase takes at least one path"}
	}
	bases := make([]float64, len(spec.Paths))
	for i, path := range spec.Paths {
		base, err := g.baseValue(baseline, spec, path)
		if err != nil {
			return nil, err
		}
		bases[i] = base
	}

	variations := make([]Variation, 0, len(spec.Multipliers))
	for _, m := range spec.Multipliers {
		v := newVariation(spec.Section, spec.Phase, m)
		for i, path := range spec.Paths {
			v.Overrides[path] = cty.NumberFloatVal(bases[i] * m)
		}
		for _, section := range distinctSections(spec.Paths) {
			g.applyEventWindow(&v, section, spec.Category, m)
		}
		variations = append(variations, v)
	}
	return variations, nil
}

func (g *Generator) sum(baseline *configtree.Tree, spec Spec) ([]Variation, error) {
	paths := baseline.NumericLeafPaths()
	if len(paths) == 0 {
		return nil, &SpecError{Section: spec.Section, Reason: "baseline has no numeric leaves"}
	}
	bases := make([]float64, len(paths))
	for i, path := range paths {
		base, err := baseline.Number(path)
		if err != nil {
			return nil, &SpecError{Section: spec.Section, Reason: "numeric leaf unavailable", Err: err}
		}
		bases[i] = base
	}

	variations := make([]Variation, 0, len(spec.Multipliers))
	for _, m := range spec.Multipliers {
		v := newVariation(spec.Section, spec.Phase, m)
		for i, path := range paths {
			v.Overrides[path] = cty.NumberFloatVal(bases[i] * m)
		}
		variations = append(variations, v)
	}
	return variations, nil
}

func (g *Generator) noise(baseline *configtree.Tree, spec Spec) ([]Variation, error) {
	if g.NoiseSamples <= 0 {
		return nil, &SpecError{Section: spec.Section, Reason: "noise phase requires a positive sample count"}
	}
	if g.NoiseAmplitude <= 0 {
		return nil, &SpecError{Section: spec.Section, Reason: "noise phase requires a positive amplitude"}
	}

	paths := spec.Paths
	if len(paths) == 0 {
		paths = baseline.NumericLeafPaths()
	} else {
		paths = append([]string(nil), paths...)
		sort.Strings(paths)
	}
	bases := make([]float64, len(paths))
	for i, path := range paths {
		base, err := g.baseValue(baseline, spec, path)
		if err != nil {
			return nil, err
		}
		bases[i] = base
	}

	rng := rand.New(rand.NewSource(g.NoiseSeed))
	variations := make([]Variation, 0, g.NoiseSamples)
	for i := 0; i < g.NoiseSamples; i++ {
		v := newVariation(spec.Section, spec.Phase, 1)
		for j, path := range paths {
			factor := 1 + g.NoiseAmplitude*(2*rng.Float64()-1)
			v.Overrides[path] = cty.NumberFloatVal(bases[j] * factor)
			if len(paths) == 1 {
				v.Multiplier = factor
			}
			g.applyEventWindow(&v, sectionOf(path), spec.Category, factor)
		}
		variations = append(variations, v)
	}
	return variations, nil
}

// baseValue resolves the baseline number a sweep scales, applying the
// zero-rebase rule when configured.
func (g *Generator) baseValue(baseline *configtree.Tree, spec Spec, path string) (float64, error) {
	base, err := baseline.Number(path)
	if err != nil {
		return 0, &SpecError{Section: spec.Section, Reason: "target path unavailable", Err: err}
	}
	if base == 0 && spec.RebaseZeroTo != 0 {
		base = spec.RebaseZeroTo
	}
	return base, nil
}

// applyEventWindow sets the event-window leaves of a scheduled intervention
// to a fixed, deterministic function of the simulation length. The zero
// multiplier instead disables the event entirely: it is the sweep's control
// case and must stay distinguishable from the absence of a variation.
func (g *Generator) applyEventWindow(v *Variation, section string, category Category, multiplier float64) {
	if category != CategoryTargeted && category != CategoryApplied {
		return
	}
	if multiplier == 0 {
		v.Overrides[configtree.Join(section, "event happens")] = cty.False
		return
	}
	v.Overrides[configtree.Join(section, "event happens")] = cty.True
	v.Overrides[configtree.Join(section, "change start")] = cty.NumberFloatVal(0)
	v.Overrides[configtree.Join(section, "change finish")] = cty.NumberFloatVal(g.SimulationLength)
	v.Overrides[configtree.Join(section, "change rate")] = cty.NumberFloatVal(g.SimulationLength / 10)
}

func sectionOf(path string) string {
	if i := strings.Index(path, configtree.Separator); i >= 0 {
		return path[:i]
	}
	return path
}

func distinctSections(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, path := range paths {
		section := sectionOf(path)
		if !seen[section] {
			seen[section] = true
			out = append(out, section)
		}
	}
	return out
}
