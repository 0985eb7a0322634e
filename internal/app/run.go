package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/vk/biosweep/internal/artifact"
	"github.com/vk/biosweep/internal/configtree"
	"github.com/vk/biosweep/internal/ctxlog"
	"github.com/vk/biosweep/internal/dispatch"
	"github.com/vk/biosweep/internal/server"
	"github.com/vk/biosweep/internal/stream"
	"github.com/vk/biosweep/internal/sweep"
)

// Run executes the selected mode: the API server when no baseline is given,
// a one-shot batch sweep otherwise.
func (a *App) Run(ctx context.Context, opts *Options) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	var onOutcome func(dispatch.Outcome)
	if a.cfg.StreamURL != "" {
		publisher, err := stream.Dial(ctx, a.cfg.StreamURL, a.cfg.StreamNamespace, a.cfg.StreamTimeout)
		if err != nil {
			return fmt.Errorf("failed to start progress stream: %w", err)
		}
		defer publisher.Close()
		onOutcome = publisher.Publish
	}

	if opts.BaselinePath == "" {
		return a.serve(onOutcome)
	}
	return a.runBatch(ctx, opts, onOutcome)
}

// serve blocks running the HTTP API server.
func (a *App) serve(onOutcome func(dispatch.Outcome)) error {
	opts := server.Options{
		Workspace:     a.newWorkspace(),
		Engine:        a.newEngine(),
		Orchestrator:  a.newOrchestrator(),
		Workers:       a.cfg.Workers,
		BatchDeadline: a.cfg.BatchDeadline,
		DefaultUser:   a.cfg.DefaultUser,
		OnOutcome:     onOutcome,
		Logger:        a.logger,
	}
	if a.cfg.UploadURL != "" {
		uploader := artifact.NewUploader(a.cfg.EngineTimeout)
		defer uploader.Close()
		opts.Uploader = uploader
		opts.UploadURL = a.cfg.UploadURL
	}
	srv := server.New(opts)
	return srv.ListenAndServe(fmt.Sprintf(":%d", a.cfg.Port))
}

// runBatch plans the sweep for the baseline document, dispatches every
// variation and writes the outcomes as JSON.
func (a *App) runBatch(ctx context.Context, opts *Options, onOutcome func(dispatch.Outcome)) error {
	data, err := os.ReadFile(opts.BaselinePath)
	if err != nil {
		return fmt.Errorf("failed to read baseline document: %w", err)
	}
	baseline, err := configtree.FromYAML(data)
	if err != nil {
		return fmt.Errorf("invalid baseline document: %w", err)
	}

	phases := make([]sweep.Phase, 0, len(opts.Phases))
	for _, raw := range opts.Phases {
		phase, err := sweep.ParsePhase(raw)
		if err != nil {
			return err
		}
		phases = append(phases, phase)
	}

	orchestrator := a.newOrchestrator()
	plan, err := orchestrator.PlanBatch(ctx, baseline, phases)
	if err != nil {
		return fmt.Errorf("failed to plan batch: %w", err)
	}
	for section, reason := range plan.Skipped {
		a.logger.Warn("Section sweep skipped.", "section", section, "reason", reason)
	}

	requests, failed := dispatch.BuildRequests(baseline, plan.Variations)
	dispatcher := &dispatch.Dispatcher{
		Engine:    a.newEngine(),
		Workers:   a.cfg.Workers,
		Deadline:  a.cfg.BatchDeadline,
		OnOutcome: onOutcome,
	}
	outcomes, err := dispatcher.Dispatch(ctx, requests)
	if err != nil {
		return err
	}
	outcomes = append(outcomes, failed...)

	encoded, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode outcomes: %w", err)
	}
	if opts.OutcomesPath != "" {
		if err := os.WriteFile(opts.OutcomesPath, encoded, 0o644); err != nil {
			return fmt.Errorf("failed to write outcomes: %w", err)
		}
		a.logger.Info("Batch outcomes written.", "path", opts.OutcomesPath, "outcomes", len(outcomes))
		return nil
	}
	_, err = fmt.Fprintln(a.outW, string(encoded))
	return err
}
