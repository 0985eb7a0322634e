package sweep

import "fmt"

// Phase is the combinatorial strategy governing how variations are built
// from a baseline.
type Phase string

const (
	// PhaseNoise draws bounded random perturbations around the baseline.
	PhaseNoise Phase = "noise"
	// PhaseSingle sweeps one parameter path at a time to isolate individual effects.
	PhaseSingle Phase = "single"
	// PhasePair sweeps the cross product of two independent paths to capture
	// direct two-way interactions.
	PhasePair Phase = "pair"
	// PhaseGrouped applies one shared multiplier across a declared parameter group.
	PhaseGrouped Phase = "grouped"
	// PhaseSum applies one multiplier to every numeric leaf to capture
	// cumulative, global effects.
	PhaseSum Phase = "sum"
)

// PhaseOrder is the fixed order in which the orchestrator walks phases.
var PhaseOrder = []Phase{PhaseNoise, PhaseSingle, PhasePair, PhaseGrouped, PhaseSum}

// ParsePhase validates a phase name.
func ParsePhase(s string) (Phase, error) {
	for _, p := range PhaseOrder {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown sweep phase %q", s)
}
