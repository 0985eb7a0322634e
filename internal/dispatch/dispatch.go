// Package dispatch executes simulation run requests over a bounded pool of
// concurrent workers. Every request yields exactly one outcome, correlated
// by variation ID rather than by completion order, and one task's failure
// never cancels its siblings: independent experiment runs stay isolated
// from one another.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vk/biosweep/internal/ctxlog"
	"github.com/vk/biosweep/internal/engine"
)

// Request is one fully-materialized run: the configuration document derived
// from a single variation.
type Request struct {
	VariationID string
	ConfigYAML  []byte
	Workdir     string
}

// Status of one outcome.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Failure reasons for outcomes that never produced an engine report.
const (
	ReasonTimeout   = "timeout"
	ReasonCancelled = "cancelled"
)

// Outcome is the recorded result of dispatching one variation. Exactly one
// outcome is created per request, by the dispatcher, and never retried
// implicitly.
type Outcome struct {
	VariationID string         `json:"variation_id"`
	Status      Status         `json:"status"`
	Report      *engine.Report `json:"report,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Dispatcher issues one engine invocation per request through a fixed-size
// worker pool. The pool size is the sole admission-control knob: issuing
// every request at once would defeat backpressure against the engine.
type Dispatcher struct {
	Engine  engine.Engine
	Workers int
	// Deadline bounds the whole batch. When exceeded, in-flight requests are
	// cancelled and recorded as timeout failures; completed outcomes are
	// preserved. Zero means no deadline beyond the caller's context.
	Deadline time.Duration
	// OnOutcome, when set, observes every outcome as it is recorded. Calls
	// are serialized.
	OnOutcome func(Outcome)
}

// Dispatch runs all requests and returns exactly one outcome per request,
// in request order. The only error condition is a misconfigured dispatcher;
// per-task failures are always local to their outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, requests []Request) ([]Outcome, error) {
	if d.Engine == nil {
		return nil, errors.New("dispatcher requires an engine")
	}
	workers := d.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(requests) && len(requests) > 0 {
		workers = len(requests)
	}

	logger := ctxlog.FromContext(ctx)
	logger.Info("Dispatching batch.", "requests", len(requests), "workers", workers)

	runCtx := ctx
	if d.Deadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.Deadline)
		defer cancel()
	}

	outcomes := make([]Outcome, len(requests))
	jobs := make(chan int)
	var wg sync.WaitGroup
	var notifyMu sync.Mutex

	record := func(i int, outcome Outcome) {
		outcomes[i] = outcome
		if d.OnOutcome != nil {
			notifyMu.Lock()
			d.OnOutcome(outcome)
			notifyMu.Unlock()
		}
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			workerLogger := logger.With("workerID", workerID)
			for i := range jobs {
				record(i, d.runOne(runCtx, workerLogger, requests[i]))
			}
		}(w)
	}

	for i := range requests {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	logger.Info("Batch dispatch finished.", "outcomes", len(outcomes))
	return outcomes, nil
}

func (d *Dispatcher) runOne(ctx context.Context, logger *slog.Logger, req Request) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{
			VariationID: req.VariationID,
			Status:      StatusFailure,
			Error:       reasonFor(err),
		}
	}

	logger.Debug("Worker picked up run request.", "variationID", req.VariationID)
	report, err := d.Engine.Run(ctx, engine.Job{
		ID:         req.VariationID,
		ConfigYAML: req.ConfigYAML,
		Workdir:    req.Workdir,
	})

	switch {
	case err != nil:
		// Transport-level failure: recorded, never retried, never allowed
		// to disturb sibling tasks.
		logger.Warn("Run request failed.", "variationID", req.VariationID, "error", err)
		reason := err.Error()
		if ctxErr := ctx.Err(); ctxErr != nil {
			reason = reasonFor(ctxErr)
		}
		return Outcome{VariationID: req.VariationID, Status: StatusFailure, Error: reason}
	case !report.Succeeded():
		// The engine completed but reported a failed phase. Its diagnostic
		// text travels verbatim; the dispatcher does not interpret it. A
		// report that covers only part of the phase sequence without naming
		// a failure is broken on the engine side and is called out as such.
		failed, ok := report.FailedPhase()
		if !ok {
			logger.Warn("Engine returned an incomplete report.", "variationID", req.VariationID, "phases", len(report.Phases))
			return Outcome{
				VariationID: req.VariationID,
				Status:      StatusFailure,
				Report:      report,
				Error:       fmt.Sprintf("engine returned an incomplete report: %d of %d phases", len(report.Phases), len(engine.Phases)),
			}
		}
		logger.Warn("Engine reported phase failure.", "variationID", req.VariationID, "phase", failed.Phase)
		return Outcome{
			VariationID: req.VariationID,
			Status:      StatusFailure,
			Report:      report,
			Error:       fmt.Sprintf("phase %q failed", failed.Phase),
		}
	default:
		logger.Debug("Run request succeeded.", "variationID", req.VariationID)
		return Outcome{VariationID: req.VariationID, Status: StatusSuccess, Report: report}
	}
}

func reasonFor(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return ReasonCancelled
}
