// Package app wires configuration, engine, orchestrator, dispatcher and
// HTTP server together and drives either of the two run modes: the API
// server or a one-shot batch sweep.
package app

import (
	"io"
	"log/slog"

	"github.com/vk/biosweep/internal/config"
	"github.com/vk/biosweep/internal/engine"
	"github.com/vk/biosweep/internal/sweep"
	"github.com/vk/biosweep/internal/workspace"
)

// Options holds everything the command line selects for one invocation.
type Options struct {
	// ConfigPath points at the optional HCL configuration file.
	ConfigPath string
	// BaselinePath selects batch mode: the baseline YAML document to sweep.
	// Empty means serve mode.
	BaselinePath string
	// Phases are the sweep phases requested for batch mode.
	Phases []string
	// OutcomesPath is where batch outcomes are written as JSON. Empty means
	// stdout.
	OutcomesPath string

	LogFormat string
	LogLevel  string
}

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	cfg    *config.Config
}

// NewApp resolves configuration and builds a fully initialized App with its
// own isolated logger.
func NewApp(outW io.Writer, opts *Options) (*App, error) {
	logger := newLogger(opts.LogLevel, opts.LogFormat, outW)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("Configuration resolved.", "config", opts.ConfigPath)

	return &App{outW: outW, logger: logger, cfg: cfg}, nil
}

// newEngine selects the engine implementation: a remote engine when a URL is
// configured, the local subprocess engine otherwise.
func (a *App) newEngine() engine.Engine {
	if a.cfg.EngineURL != "" {
		a.logger.Info("Using remote simulation engine.", "url", a.cfg.EngineURL)
		return engine.NewRemote(a.cfg.EngineURL, a.cfg.EngineTimeout)
	}
	a.logger.Info("Using local simulation engine.", "binary", a.cfg.EngineBinary)
	return engine.NewLocal(a.cfg.EngineBinary, a.cfg.EngineTimeout)
}

// newOrchestrator assembles the sweep pipeline from the resolved
// configuration.
func (a *App) newOrchestrator() *sweep.Orchestrator {
	return &sweep.Orchestrator{
		Classifier: &sweep.Classifier{
			StructuralSections: []string{"general options", "world options"},
		},
		Generator: &sweep.Generator{
			SimulationLength: a.cfg.SimulationLength,
			NoiseSamples:     a.cfg.NoiseSamples,
			NoiseAmplitude:   a.cfg.NoiseAmplitude,
			NoiseSeed:        a.cfg.NoiseSeed,
		},
		Expander: &sweep.Expander{
			Functions:            a.cfg.ModulatorFunctions,
			SecondaryMultipliers: a.cfg.GradientMultipliers,
			AssetDir:             a.cfg.AssetDir,
		},
		Multipliers:     a.cfg.Multipliers,
		Groups:          a.cfg.Groups,
		SpatialSections: a.cfg.SpatialSections,
		Structural: sweep.Structural{
			GridSizes:         a.cfg.GridSizes,
			IonProfiles:       a.cfg.IonProfiles,
			WorldOptionLeaves: a.cfg.WorldOptionLeaves,
		},
	}
}

func (a *App) newWorkspace() *workspace.Manager {
	return &workspace.Manager{
		DataRoot:  a.cfg.DataRoot,
		GeoSource: a.cfg.GeoSource,
	}
}
