package server

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vk/biosweep/internal/configtree"
	"github.com/vk/biosweep/internal/dispatch"
	"github.com/vk/biosweep/internal/engine"
	"github.com/vk/biosweep/internal/sweep"
	"github.com/vk/biosweep/internal/workspace"
)

// simulationDocument extracts the uploaded configuration document from a
// request: either a multipart YAML file under "sim_config_file" or a JSON
// body carrying the document under "sim_config_data". JSON keys arrive
// underscored and are normalized to the engine's key style.
func simulationDocument(c *gin.Context) (*configtree.Tree, error) {
	if file, err := c.FormFile("sim_config_file"); err == nil {
		src, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open uploaded file: %w", err)
		}
		defer src.Close()
		data, err := io.ReadAll(src)
		if err != nil {
			return nil, fmt.Errorf("failed to read uploaded file: %w", err)
		}
		return configtree.FromYAML(data)
	}

	var body struct {
		SimConfigData map[string]any `json:"sim_config_data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, fmt.Errorf("request carries neither a config file nor config data: %w", err)
	}
	normalized, ok := workspace.NormalizeKeys(body.SimConfigData).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("config data is not a document")
	}
	return configtree.FromAny(normalized)
}

// handleSimulation runs one uploaded document through the full engine phase
// sequence and responds with the packaged run directory.
func (s *Server) handleSimulation(c *gin.Context) {
	logger := s.opts.Logger

	tree, err := simulationDocument(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := c.Query("user")
	if user == "" {
		user = s.opts.DefaultUser
	}

	run, err := s.opts.Workspace.CreateRun(user)
	if err != nil {
		logger.Error("Failed to create run directory.", "user", user, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to allocate run workspace"})
		return
	}
	defer run.Cleanup()

	tree = workspace.SetSavePaths(tree)
	configPath, err := run.WriteConfig(tree)
	if err != nil {
		logger.Error("Failed to write run configuration.", "dir", run.Dir, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare run workspace"})
		return
	}

	doc, err := tree.ToYAML()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to serialize configuration"})
		return
	}

	runID := uuid.NewString()
	logger.Info("Running simulation.", "runID", runID, "user", user, "config", configPath)
	report, err := s.opts.Engine.Run(c.Request.Context(), engine.Job{
		ID:         runID,
		ConfigYAML: doc,
		Workdir:    run.Dir,
	})
	if err != nil {
		logger.Error("Simulation run failed.", "runID", runID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("simulation engine failed: %v", err)})
		return
	}

	// Failed-phase diagnostics travel inside the archive next to whatever
	// artifacts the engine managed to produce.
	for _, phase := range report.Phases {
		if phase.Status == engine.StatusFailed {
			name := strings.ReplaceAll(phase.Phase, " ", "_") + "_fail_logs.txt"
			if err := run.WriteLog(name, phase.Details); err != nil {
				logger.Warn("Failed to record phase log.", "phase", phase.Phase, "error", err)
			}
		}
	}

	if err := run.RemoveAssets(); err != nil {
		logger.Warn("Failed to drop staged assets.", "dir", run.GeoDir, "error", err)
	}
	zipPath, err := run.Archive()
	if err != nil {
		logger.Error("Failed to package run directory.", "dir", run.Dir, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to package run results"})
		return
	}

	// Offloading is best-effort: the caller still gets the archive even when
	// the storage endpoint is down.
	if s.opts.Uploader != nil && s.opts.UploadURL != "" {
		if err := s.opts.Uploader.Upload(c.Request.Context(), zipPath, s.opts.UploadURL); err != nil {
			logger.Warn("Failed to offload run archive.", "archive", zipPath, "error", err)
		}
	}

	logger.Info("Simulation finished.", "runID", runID, "succeeded", report.Succeeded(), "archive", zipPath)
	c.FileAttachment(zipPath, filepath.Base(zipPath))
}

// batchRequest is the JSON body of a batch submission.
type batchRequest struct {
	Baseline map[string]any `json:"baseline" binding:"required"`
	Phases   []string       `json:"phases"`
}

// batchResponse reports every outcome plus the sections whose sweeps were
// skipped during planning.
type batchResponse struct {
	BatchID  string             `json:"batch_id"`
	Total    int                `json:"total"`
	Outcomes []dispatch.Outcome `json:"outcomes"`
	Skipped  map[string]string  `json:"skipped,omitempty"`
}

// handleBatch plans the experiment sweep for an uploaded baseline and
// dispatches every variation, responding once all outcomes are recorded.
func (s *Server) handleBatch(c *gin.Context) {
	logger := s.opts.Logger

	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	normalized, ok := workspace.NormalizeKeys(req.Baseline).(map[string]any)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "baseline is not a document"})
		return
	}
	baseline, err := configtree.FromAny(normalized)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid baseline: %v", err)})
		return
	}

	phases := []sweep.Phase{sweep.PhaseSingle}
	if len(req.Phases) > 0 {
		phases = phases[:0]
		for _, raw := range req.Phases {
			phase, err := sweep.ParsePhase(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			phases = append(phases, phase)
		}
	}

	batchID := uuid.NewString()
	logger.Info("Planning batch.", "batchID", batchID, "phases", phases)

	plan, err := s.opts.Orchestrator.PlanBatch(c.Request.Context(), baseline, phases)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("failed to plan batch: %v", err)})
		return
	}

	requests, failed := dispatch.BuildRequests(baseline, plan.Variations)
	dispatcher := &dispatch.Dispatcher{
		Engine:    s.opts.Engine,
		Workers:   s.opts.Workers,
		Deadline:  s.opts.BatchDeadline,
		OnOutcome: s.opts.OnOutcome,
	}
	outcomes, err := dispatcher.Dispatch(c.Request.Context(), requests)
	if err != nil {
		logger.Error("Batch dispatch failed.", "batchID", batchID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	outcomes = append(outcomes, failed...)

	skipped := make(map[string]string, len(plan.Skipped))
	for section, reason := range plan.Skipped {
		skipped[section] = reason.Error()
	}

	logger.Info("Batch finished.", "batchID", batchID, "outcomes", len(outcomes))
	c.JSON(http.StatusOK, batchResponse{
		BatchID:  batchID,
		Total:    len(outcomes),
		Outcomes: outcomes,
		Skipped:  skipped,
	})
}
