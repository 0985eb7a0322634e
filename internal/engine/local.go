package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/vk/biosweep/internal/ctxlog"
)

// configFileName is the name the materialized document is written under in
// the run's working directory.
const configFileName = "sim_config_file.yaml"

// Local invokes the simulation engine binary as a subprocess, one command
// per phase, from the job's working directory.
type Local struct {
	// Binary is the engine executable, "betse" by default.
	Binary string
	// PhaseTimeout bounds each phase subprocess. Zero means no extra bound
	// beyond the caller's context.
	PhaseTimeout time.Duration
}

// NewLocal returns a Local runner for the given binary.
func NewLocal(binary string, phaseTimeout time.Duration) *Local {
	if binary == "" {
		binary = "betse"
	}
	return &Local{Binary: binary, PhaseTimeout: phaseTimeout}
}

// Run writes the configuration document into the working directory and
// walks the phase sequence, capturing per-phase output. The first failing
// phase stops the run; its diagnostics are recorded verbatim.
func (l *Local) Run(ctx context.Context, job Job) (*Report, error) {
	logger := ctxlog.FromContext(ctx).With("engine", "local", "job", job.ID)

	workdir := job.Workdir
	if workdir == "" {
		tmp, err := os.MkdirTemp("", "biosweep-run-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create working directory: %w", err)
		}
		defer os.RemoveAll(tmp)
		workdir = tmp
	}

	configPath := filepath.Join(workdir, configFileName)
	if err := os.WriteFile(configPath, job.ConfigYAML, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write configuration document: %w", err)
	}

	report := &Report{}
	for _, phase := range Phases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger.Debug("Running engine phase.", "phase", phase)

		status, err := l.runPhase(ctx, phase, configPath, workdir)
		if err != nil {
			return nil, err
		}
		report.Phases = append(report.Phases, status)
		if status.Status != StatusSuccess {
			logger.Warn("Engine phase failed, stopping run.", "phase", phase)
			return report, nil
		}
	}
	return report, nil
}

func (l *Local) runPhase(ctx context.Context, phase, configPath, workdir string) (PhaseStatus, error) {
	phaseCtx := ctx
	if l.PhaseTimeout > 0 {
		var cancel context.CancelFunc
		phaseCtx, cancel = context.WithTimeout(ctx, l.PhaseTimeout)
		defer cancel()
	}

	// Multi-word phases such as "plot init" become separate arguments.
	args := append(strings.Fields(phase), configPath)
	cmd := exec.CommandContext(phaseCtx, l.Binary, args...)
	cmd.Dir = workdir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return PhaseStatus{Phase: phase, Status: StatusSuccess, Details: strings.TrimSpace(stdout.String())}, nil
	}

	// A missing binary means no phase can ever run: that is a setup error,
	// not an engine-reported failure.
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return PhaseStatus{}, fmt.Errorf("engine binary %q unavailable: %w", l.Binary, err)
	}
	if ctxErr := phaseCtx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) && ctx.Err() == nil {
			return PhaseStatus{
				Phase:   phase,
				Status:  StatusFailed,
				Details: fmt.Sprintf("phase timed out after %s", l.PhaseTimeout),
			}, nil
		}
		return PhaseStatus{}, ctxErr
	}

	details := strings.TrimSpace(stdout.String() + "\n" + stderr.String())
	return PhaseStatus{Phase: phase, Status: StatusFailed, Details: details}, nil
}
