package sweep

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/biosweep/internal/configtree"
)

func testOrchestrator() *Orchestrator {
	return &Orchestrator{
		Classifier: &Classifier{StructuralSections: []string{"general options", "world options"}},
		Generator:  &Generator{SimulationLength: 100, NoiseSamples: 8, NoiseAmplitude: 0.1, NoiseSeed: 1},
		Expander: &Expander{
			Functions:            []string{FuncPeriodic},
			SecondaryMultipliers: []float64{1, 2},
		},
		Multipliers:     []float64{0, 1, 2},
		SpatialSections: []string{"change K mem"},
		Structural: Structural{
			GridSizes:         []float64{20, 25},
			IonProfiles:       []string{"basic", "mammal"},
			WorldOptionLeaves: []string{"world size", "membrane thickness"},
		},
	}
}

func countBySection(variations []Variation) map[string]int {
	counts := make(map[string]int)
	for _, v := range variations {
		counts[v.Section]++
	}
	return counts
}

func TestOrchestrator_PlanBatch_SinglePhase(t *testing.T) {
	baseline := testBaseline(t)
	orch := testOrchestrator()

	plan, err := orch.PlanBatch(context.Background(), baseline, []Phase{PhaseSingle})
	require.NoError(t, err)
	assert.Empty(t, plan.Skipped)

	counts := countBySection(plan.Variations)

	// Plain targeted section: one variation per multiplier.
	assert.Equal(t, 3, counts["apply pressure"])
	// Zero-baseline section still sweeps through the rebase rule.
	assert.Equal(t, 3, counts["break ecm junctions"])
	// Spatially-modulatable section: each multiplier expands into the
	// periodic secondary sweep.
	assert.Equal(t, 3*2, counts["change K mem"])
	// External voltage crosses every multiplier with each boundary pair.
	assert.Equal(t, 3*4, counts["apply external voltage"])
	// Structural sweeps: enumerated values plus multiplier sweeps. The
	// membrane thickness leaf is absent and silently passed over.
	assert.Equal(t, 2, counts["comp grid size"])
	assert.Equal(t, 2, counts["ion profile"])
	assert.Equal(t, 3, counts["world size"])
	assert.NotContains(t, counts, "membrane thickness")
	assert.Equal(t, 3, counts["extracellular K+ concentration"])
	assert.Equal(t, 3, counts["extracellular Na+ concentration"])
}

func TestOrchestrator_PlanBatch_VoltageBoundaries(t *testing.T) {
	baseline := testBaseline(t)
	orch := testOrchestrator()

	plan, err := orch.PlanBatch(context.Background(), baseline, []Phase{PhaseSingle})
	require.NoError(t, err)

	type pair struct{ positive, negative string }
	seen := make(map[pair]int)
	for _, v := range plan.Variations {
		if v.Section != "apply external voltage" {
			continue
		}
		positive := v.Overrides["apply external voltage/positive voltage boundary"]
		negative := v.Overrides["apply external voltage/negative voltage boundary"]
		seen[pair{positive.AsString(), negative.AsString()}]++
	}

	expected := []pair{
		{"top", "bottom"},
		{"bottom", "top"},
		{"left", "right"},
		{"right", "left"},
	}
	require.Len(t, seen, len(expected))
	for _, p := range expected {
		assert.Equal(t, 3, seen[p], "boundary pair %v", p)
	}
}

func TestOrchestrator_PlanBatch_PairPhase(t *testing.T) {
	baseline := testBaseline(t)
	orch := testOrchestrator()

	plan, err := orch.PlanBatch(context.Background(), baseline, []Phase{PhasePair})
	require.NoError(t, err)
	assert.Empty(t, plan.Skipped)

	counts := countBySection(plan.Variations)
	// One targeted pair and one applied pair, each crossing the full
	// multiplier set with itself. Pairs never mix categories.
	assert.Equal(t, 3*3, counts["break ecm junctions + change K mem"])
	assert.Equal(t, 3*3, counts["apply external voltage + apply pressure"])
	assert.Len(t, counts, 2)
}

func TestOrchestrator_PlanBatch_GroupedPhase(t *testing.T) {
	baseline := testBaseline(t)
	orch := testOrchestrator()
	orch.Groups = map[string][]string{
		"membrane interventions": {
			"change K mem/multiplier",
			"apply pressure/multiplier",
		},
	}

	plan, err := orch.PlanBatch(context.Background(), baseline, []Phase{PhaseGrouped})
	require.NoError(t, err)
	require.Len(t, plan.Variations, 3)
	for _, v := range plan.Variations {
		assert.Equal(t, "membrane interventions", v.Section)
		assert.Equal(t, PhaseGrouped, v.Phase)
	}
}

func TestOrchestrator_PlanBatch_SumPhase(t *testing.T) {
	baseline := testBaseline(t)
	orch := testOrchestrator()

	plan, err := orch.PlanBatch(context.Background(), baseline, []Phase{PhaseSum})
	require.NoError(t, err)
	require.Len(t, plan.Variations, 3)
	assert.Equal(t, PhaseSum, plan.Variations[0].Phase)
}

func TestOrchestrator_PlanBatch_PhaseOrderIsCanonical(t *testing.T) {
	baseline := testBaseline(t)
	orch := testOrchestrator()

	// Requested out of order; planned in canonical order.
	plan, err := orch.PlanBatch(context.Background(), baseline, []Phase{PhaseSum, PhaseNoise})
	require.NoError(t, err)
	require.NotEmpty(t, plan.Variations)

	assert.Equal(t, PhaseNoise, plan.Variations[0].Phase)
	assert.Equal(t, PhaseSum, plan.Variations[len(plan.Variations)-1].Phase)
}

func TestOrchestrator_PlanBatch_SkipsBrokenSectionAndContinues(t *testing.T) {
	doc := `
change K mem:
  multiplier: 10.0
  event happens: false
change Na mem:
  strength: 4.0
`
	baseline, err := configtree.FromYAML([]byte(doc))
	require.NoError(t, err)

	orch := testOrchestrator()
	orch.SpatialSections = nil
	orch.Structural = Structural{}

	plan, err := orch.PlanBatch(context.Background(), baseline, []Phase{PhaseSingle})
	require.NoError(t, err)

	// The section without a multiplier leaf is skipped with its error; the
	// healthy sibling still sweeps.
	require.Contains(t, plan.Skipped, "change Na mem")
	var specErr *SpecError
	assert.ErrorAs(t, plan.Skipped["change Na mem"], &specErr)
	assert.Equal(t, 3, countBySection(plan.Variations)["change K mem"])
}

func TestOrchestrator_PlanBatch_RequiresBaseline(t *testing.T) {
	orch := testOrchestrator()
	_, err := orch.PlanBatch(context.Background(), nil, []Phase{PhaseSingle})
	require.Error(t, err)
}

func TestOrchestrator_PlanBatch_BlockGapJunctionsTarget(t *testing.T) {
	doc := `
block gap junctions:
  random fraction: 100.0
  event happens: false
`
	baseline, err := configtree.FromYAML([]byte(doc))
	require.NoError(t, err)

	orch := testOrchestrator()
	orch.SpatialSections = nil
	orch.Structural = Structural{}

	plan, err := orch.PlanBatch(context.Background(), baseline, []Phase{PhaseSingle})
	require.NoError(t, err)
	assert.Empty(t, plan.Skipped)
	require.Len(t, plan.Variations, 3)
	assert.InDelta(t, 200, num(t, plan.Variations[2].Overrides["block gap junctions/random fraction"]), 1e-9)
}
