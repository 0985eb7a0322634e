// Package server exposes the simulation and batch-sweep operations over
// HTTP. The server is a thin shell: it validates and normalizes uploaded
// documents, then hands them to the workspace, orchestrator and dispatcher.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vk/biosweep/internal/artifact"
	"github.com/vk/biosweep/internal/dispatch"
	"github.com/vk/biosweep/internal/engine"
	"github.com/vk/biosweep/internal/sweep"
	"github.com/vk/biosweep/internal/workspace"
)

// Options carries the collaborators the server forwards requests to.
type Options struct {
	Workspace    *workspace.Manager
	Engine       engine.Engine
	Orchestrator *sweep.Orchestrator

	// Workers bounds concurrent engine invocations per batch.
	Workers int
	// BatchDeadline bounds one whole batch dispatch. Zero means unbounded.
	BatchDeadline time.Duration
	// DefaultUser owns runs submitted without an explicit user.
	DefaultUser string
	// Uploader and UploadURL, when both set, offload every finished run
	// archive to a pre-signed storage URL so archives do not accumulate
	// under the data root.
	Uploader  *artifact.Uploader
	UploadURL string
	// OnOutcome, when set, observes every batch outcome as it is recorded.
	OnOutcome func(dispatch.Outcome)

	Logger *slog.Logger
}

// Server routes HTTP requests to the simulation and sweep subsystems.
type Server struct {
	opts   Options
	router *gin.Engine
}

// New assembles the router. The caller owns the listener lifecycle via
// Router or ListenAndServe.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DefaultUser == "" {
		opts.DefaultUser = "default"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{opts: opts, router: router}

	router.GET("/health", s.handleHealth)
	v1 := router.Group("/v1")
	v1.POST("/simulations", s.handleSimulation)
	v1.POST("/batches", s.handleBatch)

	return s
}

// Router returns the underlying handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe blocks serving requests on the given address.
func (s *Server) ListenAndServe(addr string) error {
	s.opts.Logger.Info("API server listening.", "addr", addr)
	return s.router.Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
