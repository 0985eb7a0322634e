// Package engine abstracts the external simulation engine. One run accepts
// a fully-materialized configuration document and executes a fixed, ordered
// phase sequence, reporting per-phase status and log text. Phase sequencing
// is internal to the engine; callers treat a run as a single atomic call.
package engine

import "context"

// Phases is the fixed sequence every run walks, in order. On the first
// failing phase the run stops; later phases are never attempted.
var Phases = []string{"seed", "init", "sim", "plot init", "plot sim"}

// Phase status values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// PhaseStatus records the result of one engine phase.
type PhaseStatus struct {
	Phase   string `json:"phase"`
	Status  string `json:"status"`
	Details string `json:"details"`
}

// Report is the per-run result: one entry per attempted phase.
type Report struct {
	Phases []PhaseStatus `json:"phases"`
}

// Succeeded reports whether every phase of the sequence completed.
func (r *Report) Succeeded() bool {
	if len(r.Phases) != len(Phases) {
		return false
	}
	for _, p := range r.Phases {
		if p.Status != StatusSuccess {
			return false
		}
	}
	return true
}

// FailedPhase returns the first failed phase, if any.
func (r *Report) FailedPhase() (PhaseStatus, bool) {
	for _, p := range r.Phases {
		if p.Status != StatusSuccess {
			return p, true
		}
	}
	return PhaseStatus{}, false
}

// Job is one simulation run request: the concrete configuration document
// plus an optional working directory for engines that produce artifacts.
type Job struct {
	ID         string
	ConfigYAML []byte
	Workdir    string
}

// Engine runs one simulation job. A non-nil error means the run could not be
// carried out at all (transport failure, missing binary, cancellation); an
// engine-side phase failure is reported through the Report instead.
type Engine interface {
	Run(ctx context.Context, job Job) (*Report, error)
}
