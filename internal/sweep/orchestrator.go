package sweep

import (
	"context"
	"fmt"
	"slices"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/biosweep/internal/configtree"
	"github.com/vk/biosweep/internal/ctxlog"
)

// voltageBoundaryPairs enumerates the boundary selections swept for the
// external-voltage intervention. The negative boundary always opposes the
// positive one.
var voltageBoundaryPairs = [][2]string{
	{"top", "bottom"},
	{"bottom", "top"},
	{"left", "right"},
	{"right", "left"},
}

// Structural describes the structural-parameter sweeps walked alongside the
// intervention sweeps.
type Structural struct {
	// GridSizes are the absolute computational grid sizes to enumerate.
	GridSizes []float64
	// IonProfiles are the named ion profiles to enumerate.
	IonProfiles []string
	// WorldOptionLeaves are the world-option scalars swept by multiplier.
	WorldOptionLeaves []string
}

// Orchestrator walks the classified sections of a baseline in the fixed
// phase order noise, single, pair, grouped, sum, invoking the classifier,
// the generator and the spatial expander, and collecting the resulting
// variation stream for the dispatcher.
type Orchestrator struct {
	Classifier *Classifier
	Generator  *Generator
	Expander   *Expander

	// Multipliers is the primary sweep set applied to intervention and
	// structural scalar targets.
	Multipliers []float64
	// Groups declares the path groups swept by the grouped phase.
	Groups map[string][]string
	// SpatialSections lists the interventions eligible for spatial-modulator
	// expansion.
	SpatialSections []string
	// Structural configures the structural-parameter sweeps.
	Structural Structural
}

// Plan is the generation result for one baseline: the full variation
// sequence plus the sections whose sweeps were skipped by a local
// specification or generation error. Sibling sections always continue.
type Plan struct {
	Variations []Variation
	Skipped    map[string]error
}

// PlanBatch generates the complete variation sequence for the requested
// phases, walked in canonical order. Only a fatal baseline problem returns
// an error; per-section failures are recorded in Plan.Skipped.
func (o *Orchestrator) PlanBatch(ctx context.Context, baseline *configtree.Tree, phases []Phase) (*Plan, error) {
	if baseline == nil {
		return nil, fmt.Errorf("baseline configuration is required")
	}
	logger := ctxlog.FromContext(ctx)

	plan := &Plan{Skipped: make(map[string]error)}
	byCategory := o.Classifier.SectionsByCategory(baseline.Sections())

	for _, phase := range PhaseOrder {
		if !slices.Contains(phases, phase) {
			continue
		}
		logger.Info("Planning sweep phase.", "phase", phase)

		switch phase {
		case PhaseNoise, PhaseSingle:
			o.planPerSection(ctx, plan, baseline, byCategory, phase)
			if phase == PhaseSingle {
				o.planStructural(ctx, plan, baseline)
			}
		case PhasePair:
			o.planPairs(ctx, plan, baseline, byCategory)
		case PhaseGrouped:
			o.planGroups(ctx, plan, baseline)
		case PhaseSum:
			o.planSum(ctx, plan, baseline)
		}
	}

	logger.Info("Sweep planning finished.", "variations", len(plan.Variations), "skipped_sections", len(plan.Skipped))
	return plan, nil
}

// planPerSection sweeps every targeted and applied intervention one section
// at a time.
func (o *Orchestrator) planPerSection(ctx context.Context, plan *Plan, baseline *configtree.Tree, byCategory map[Category][]string, phase Phase) {
	logger := ctxlog.FromContext(ctx)

	for _, category := range []Category{CategoryTargeted, CategoryApplied} {
		for _, section := range byCategory[category] {
			spec := o.sectionSpec(section, category, phase)
			variations, err := o.Generator.Generate(baseline, spec)
			if err != nil {
				logger.Warn("Skipping section sweep.", "section", section, "phase", phase, "error", err)
				plan.Skipped[section] = err
				continue
			}

			variations, err = o.postProcess(baseline, section, variations)
			if err != nil {
				logger.Warn("Skipping section expansion.", "section", section, "phase", phase, "error", err)
				plan.Skipped[section] = err
				continue
			}
			plan.Variations = append(plan.Variations, variations...)
		}
	}
}

// postProcess applies the per-section special cases after generation:
// boundary enumeration for external voltage and spatial-modulator expansion
// for the declared spatially-modulatable interventions.
func (o *Orchestrator) postProcess(baseline *configtree.Tree, section string, variations []Variation) ([]Variation, error) {
	if section == "apply external voltage" {
		return expandBoundaries(section, variations), nil
	}
	if o.Expander != nil && slices.Contains(o.SpatialSections, section) {
		var out []Variation
		for _, v := range variations {
			children, err := o.Expander.Expand(baseline, v)
			if err != nil {
				return nil, err
			}
			out = append(out, children...)
		}
		return out, nil
	}
	return variations, nil
}

// expandBoundaries crosses each variation with the supported boundary pairs.
func expandBoundaries(section string, variations []Variation) []Variation {
	out := make([]Variation, 0, len(variations)*len(voltageBoundaryPairs))
	for _, v := range variations {
		for _, pair := range voltageBoundaryPairs {
			child := v.child("")
			child.SpatialParams = nil
			child.Overrides[configtree.Join(section, "positive voltage boundary")] = cty.StringVal(pair[0])
			child.Overrides[configtree.Join(section, "negative voltage boundary")] = cty.StringVal(pair[1])
			out = append(out, child)
		}
	}
	return out
}

// planPairs sweeps the cross product of every unordered pair of target
// leaves drawn from the same intervention category.
func (o *Orchestrator) planPairs(ctx context.Context, plan *Plan, baseline *configtree.Tree, byCategory map[Category][]string) {
	logger := ctxlog.FromContext(ctx)

	for _, category := range []Category{CategoryTargeted, CategoryApplied} {
		sections := byCategory[category]
		for i := 0; i < len(sections); i++ {
			for j := i + 1; j < len(sections); j++ {
				first, second := sections[i], sections[j]
				spec := Spec{
					Section:  first + " + " + second,
					Category: category,
					Phase:    PhasePair,
					Paths: []string{
						configtree.Join(first, targetLeaf(first)),
						configtree.Join(second, targetLeaf(second)),
					},
					Multipliers: o.Multipliers,
				}
				variations, err := o.Generator.Generate(baseline, spec)
				if err != nil {
					logger.Warn("Skipping pair sweep.", "sections", spec.Section, "error", err)
					plan.Skipped[spec.Section] = err
					continue
				}
				plan.Variations = append(plan.Variations, variations...)
			}
		}
	}
}

// planGroups applies one shared multiplier simultaneously across each
// declared path group.
func (o *Orchestrator) planGroups(ctx context.Context, plan *Plan, baseline *configtree.Tree) {
	logger := ctxlog.FromContext(ctx)

	names := make([]string, 0, len(o.Groups))
	for name := range o.Groups {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		spec := Spec{
			Section:     name,
			Category:    CategoryTargeted,
			Phase:       PhaseGrouped,
			Paths:       o.Groups[name],
			Multipliers: o.Multipliers,
		}
		variations, err := o.Generator.Generate(baseline, spec)
		if err != nil {
			logger.Warn("Skipping group sweep.", "group", name, "error", err)
			plan.Skipped[name] = err
			continue
		}
		plan.Variations = append(plan.Variations, variations...)
	}
}

// planSum applies one multiplier to every numeric leaf of the baseline.
func (o *Orchestrator) planSum(ctx context.Context, plan *Plan, baseline *configtree.Tree) {
	logger := ctxlog.FromContext(ctx)

	spec := Spec{Section: "all numeric leaves", Phase: PhaseSum, Multipliers: o.Multipliers}
	variations, err := o.Generator.Generate(baseline, spec)
	if err != nil {
		logger.Warn("Skipping sum sweep.", "error", err)
		plan.Skipped[spec.Section] = err
		return
	}
	plan.Variations = append(plan.Variations, variations...)
}

// planStructural sweeps grid resolution, ion profile, world-option scalars
// and customized ion concentrations.
func (o *Orchestrator) planStructural(ctx context.Context, plan *Plan, baseline *configtree.Tree) {
	logger := ctxlog.FromContext(ctx)
	record := func(section string, variations []Variation, err error) {
		if err != nil {
			logger.Warn("Skipping structural sweep.", "section", section, "error", err)
			plan.Skipped[section] = err
			return
		}
		plan.Variations = append(plan.Variations, variations...)
	}

	gridPath := configtree.Join("general options", "comp grid size")
	if baseline.Has(gridPath) && len(o.Structural.GridSizes) > 0 {
		values := make([]cty.Value, len(o.Structural.GridSizes))
		for i, size := range o.Structural.GridSizes {
			values[i] = cty.NumberFloatVal(size)
		}
		variations, err := o.Generator.GenerateValues(baseline, "comp grid size", gridPath, values, PhaseSingle)
		record("comp grid size", variations, err)
	}

	profilePath := configtree.Join("general options", "ion profile")
	if baseline.Has(profilePath) && len(o.Structural.IonProfiles) > 0 {
		values := make([]cty.Value, len(o.Structural.IonProfiles))
		for i, profile := range o.Structural.IonProfiles {
			values[i] = cty.StringVal(profile)
		}
		variations, err := o.Generator.GenerateValues(baseline, "ion profile", profilePath, values, PhaseSingle)
		record("ion profile", variations, err)
	}

	for _, leaf := range o.Structural.WorldOptionLeaves {
		path := configtree.Join("world options", leaf)
		if !baseline.Has(path) {
			continue
		}
		spec := Spec{
			Section:     leaf,
			Category:    CategoryStructural,
			Phase:       PhaseSingle,
			Paths:       []string{path},
			Multipliers: o.Multipliers,
		}
		variations, err := o.Generator.Generate(baseline, spec)
		record(leaf, variations, err)
	}

	customPath := configtree.Join("general options", "customized ion profile")
	if custom, err := baseline.Get(customPath); err == nil && custom.Type().IsObjectType() {
		attrs := custom.AsValueMap()
		names := make([]string, 0, len(attrs))
		for name := range attrs {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			if !attrs[name].Type().Equals(cty.Number) {
				continue
			}
			spec := Spec{
				Section:     name,
				Category:    CategoryStructural,
				Phase:       PhaseSingle,
				Paths:       []string{configtree.Join(customPath, name)},
				Multipliers: o.Multipliers,
			}
			variations, err := o.Generator.Generate(baseline, spec)
			record(name, variations, err)
		}
	}
}

// targetLeaf selects the swept leaf within an intervention section. Most
// interventions scale their multiplier; a few scale a differently named
// magnitude.
func targetLeaf(section string) string {
	switch section {
	case "block gap junctions":
		return "random fraction"
	case "apply external voltage":
		return "peak voltage"
	default:
		return "multiplier"
	}
}

// sectionSpec builds the per-section spec for the noise and single phases,
// including the zero-rebase rule for interventions whose stock baseline
// value is zero.
func (o *Orchestrator) sectionSpec(section string, category Category, phase Phase) Spec {
	spec := Spec{
		Section:     section,
		Category:    category,
		Phase:       phase,
		Paths:       []string{configtree.Join(section, targetLeaf(section))},
		Multipliers: o.Multipliers,
	}
	if section == "break ecm junctions" {
		spec.RebaseZeroTo = 1
	}
	return spec
}
