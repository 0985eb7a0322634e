package engine

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"

	"github.com/vk/biosweep/internal/ctxlog"
)

// runPath is the remote simulation worker's run endpoint.
const runPath = "/v1/simulations/run"

// Remote forwards jobs to a remote simulation worker over HTTP. The worker
// accepts one configuration document per call and answers with the per-phase
// report.
type Remote struct {
	client *resty.Client
}

// NewRemote returns a Remote engine client for the worker at baseURL.
func NewRemote(baseURL string, timeout time.Duration) *Remote {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	return &Remote{client: client}
}

// Run posts the job's configuration document and decodes the worker's
// report. Transport-level failures (connection, timeout, non-2xx status)
// are returned as errors; a failed phase inside a 2xx response is a valid
// Report and is passed through untouched.
func (r *Remote) Run(ctx context.Context, job Job) (*Report, error) {
	logger := ctxlog.FromContext(ctx).With("engine", "remote", "job", job.ID)
	logger.Debug("Posting job to simulation worker.")

	var report Report
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-yaml").
		SetHeader("X-Job-ID", job.ID).
		SetBody(job.ConfigYAML).
		SetResult(&report).
		Post(runPath)
	if err != nil {
		return nil, fmt.Errorf("simulation worker request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("simulation worker returned %s: %s", resp.Status(), resp.String())
	}

	logger.Debug("Simulation worker answered.", "phases", len(report.Phases))
	return &report, nil
}

// Close releases the underlying HTTP client.
func (r *Remote) Close() error {
	return r.client.Close()
}
