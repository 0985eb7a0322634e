// Package config declares and loads the application's sweep configuration
// surface: the recognized multiplier sets, the closed set of modulator
// function names, the phase order and the engine endpoints. These are fixed
// configuration constants consumed by the orchestrator, never derived at
// runtime. The file format is HCL.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/vk/biosweep/internal/sweep"
)

// File mirrors the on-disk HCL layout. Every block and attribute is
// optional; omitted values fall back to the stock sweep surface.
type File struct {
	Server *ServerBlock `hcl:"server,block"`
	Engine *EngineBlock `hcl:"engine,block"`
	Sweep  *SweepBlock  `hcl:"sweep,block"`
	Stream *StreamBlock `hcl:"stream,block"`
}

// ServerBlock configures the HTTP API shell.
type ServerBlock struct {
	Port        *int    `hcl:"port,optional"`
	DataRoot    *string `hcl:"data_root,optional"`
	DefaultUser *string `hcl:"default_user,optional"`
	GeoSource   *string `hcl:"geo_source,optional"`
	UploadURL   *string `hcl:"upload_url,optional"`
}

// EngineBlock configures how simulation runs are carried out.
type EngineBlock struct {
	Binary        *string `hcl:"binary,optional"`
	URL           *string `hcl:"url,optional"`
	Timeout       *string `hcl:"timeout,optional"`
	Workers       *int    `hcl:"workers,optional"`
	BatchDeadline *string `hcl:"batch_deadline,optional"`
}

// SweepBlock configures the experiment-sweep surface.
type SweepBlock struct {
	SimulationLength    *float64     `hcl:"simulation_length,optional"`
	Multipliers         []float64    `hcl:"multipliers,optional"`
	GradientMultipliers []float64    `hcl:"gradient_multipliers,optional"`
	ModulatorFunctions  []string     `hcl:"modulator_functions,optional"`
	AssetDir            *string      `hcl:"asset_dir,optional"`
	SpatialSections     []string     `hcl:"spatial_sections,optional"`
	GridSizeStart       *float64     `hcl:"grid_size_start,optional"`
	GridSizeStep        *float64     `hcl:"grid_size_step,optional"`
	GridSizeCount       *int         `hcl:"grid_size_count,optional"`
	IonProfiles         []string     `hcl:"ion_profiles,optional"`
	WorldOptionLeaves   []string     `hcl:"world_option_leaves,optional"`
	Noise               *NoiseBlock  `hcl:"noise,block"`
	Groups              []GroupBlock `hcl:"group,block"`
}

// NoiseBlock configures the noise phase.
type NoiseBlock struct {
	Samples   int     `hcl:"samples"`
	Amplitude float64 `hcl:"amplitude"`
	Seed      int64   `hcl:"seed"`
}

// GroupBlock declares one parameter group for the grouped phase.
type GroupBlock struct {
	Name  string   `hcl:"name,label"`
	Paths []string `hcl:"paths"`
}

// Config is the resolved configuration: defaults overlaid with anything the
// HCL file sets.
type Config struct {
	Port        int
	DataRoot    string
	DefaultUser string
	GeoSource   string
	UploadURL   string

	EngineBinary  string
	EngineURL     string
	EngineTimeout time.Duration
	Workers       int
	BatchDeadline time.Duration

	SimulationLength    float64
	Multipliers         []float64
	GradientMultipliers []float64
	ModulatorFunctions  []string
	AssetDir            string
	SpatialSections     []string
	GridSizes           []float64
	IonProfiles         []string
	WorldOptionLeaves   []string

	NoiseSamples   int
	NoiseAmplitude float64
	NoiseSeed      int64

	Groups map[string][]string

	StreamURL       string
	StreamNamespace string
	StreamTimeout   time.Duration
}

// StreamBlock configures the optional progress stream.
type StreamBlock struct {
	URL       string  `hcl:"url"`
	Namespace *string `hcl:"namespace,optional"`
	Timeout   *string `hcl:"timeout,optional"`
}

// Default returns the stock sweep surface.
func Default() *Config {
	return &Config{
		Port:        8080,
		DataRoot:    "betse_data",
		DefaultUser: "default",
		GeoSource:   "",

		EngineBinary:  "betse",
		EngineTimeout: 120 * time.Second,
		Workers:       10,

		SimulationLength:    100,
		Multipliers:         []float64{0, 0.25, 0.5, 0.75, 1, 1.25, 1.5, 1.75, 2},
		GradientMultipliers: []float64{0.5, 1, 1.5, 2},
		ModulatorFunctions:  append([]string(nil), sweep.DefaultModulatorFunctions...),
		AssetDir:            "geo",
		SpatialSections: []string{
			"change Ca mem",
			"change Cl mem",
			"change K mem",
			"change Na mem",
			"apply pressure",
		},
		GridSizes:   gridSizes(10, 5, 8),
		IonProfiles: []string{"basic", "basic_Ca", "mammal", "amphibian", "custom"},
		WorldOptionLeaves: []string{
			"world size",
			"cell radius",
			"cell height",
			"cell spacing",
			"lattice disorder",
			"alpha shape",
		},

		NoiseSamples:   8,
		NoiseAmplitude: 0.1,
		NoiseSeed:      1,

		Groups:          map[string][]string{},
		StreamNamespace: "/",
		StreamTimeout:   10 * time.Second,
	}
}

// Load resolves the configuration from an HCL file overlaid on the
// defaults. An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file unavailable: %w", err)
	}

	var file File
	if err := hclsimple.DecodeFile(path, nil, &file); err != nil {
		return nil, fmt.Errorf("failed to decode config file %q: %w", path, err)
	}
	if err := cfg.apply(&file); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) apply(file *File) error {
	if s := file.Server; s != nil {
		setIf(&c.Port, s.Port)
		setIf(&c.DataRoot, s.DataRoot)
		setIf(&c.DefaultUser, s.DefaultUser)
		setIf(&c.GeoSource, s.GeoSource)
		setIf(&c.UploadURL, s.UploadURL)
	}
	if e := file.Engine; e != nil {
		setIf(&c.EngineBinary, e.Binary)
		setIf(&c.EngineURL, e.URL)
		setIf(&c.Workers, e.Workers)
		if e.Timeout != nil {
			timeout, err := time.ParseDuration(*e.Timeout)
			if err != nil {
				return fmt.Errorf("invalid engine timeout: %w", err)
			}
			c.EngineTimeout = timeout
		}
		if e.BatchDeadline != nil {
			deadline, err := time.ParseDuration(*e.BatchDeadline)
			if err != nil {
				return fmt.Errorf("invalid batch deadline: %w", err)
			}
			c.BatchDeadline = deadline
		}
	}
	if s := file.Sweep; s != nil {
		setIf(&c.SimulationLength, s.SimulationLength)
		setIf(&c.AssetDir, s.AssetDir)
		if len(s.Multipliers) > 0 {
			c.Multipliers = s.Multipliers
		}
		if len(s.GradientMultipliers) > 0 {
			c.GradientMultipliers = s.GradientMultipliers
		}
		if len(s.ModulatorFunctions) > 0 {
			c.ModulatorFunctions = s.ModulatorFunctions
		}
		if len(s.SpatialSections) > 0 {
			c.SpatialSections = s.SpatialSections
		}
		if len(s.IonProfiles) > 0 {
			c.IonProfiles = s.IonProfiles
		}
		if len(s.WorldOptionLeaves) > 0 {
			c.WorldOptionLeaves = s.WorldOptionLeaves
		}
		if s.GridSizeStart != nil || s.GridSizeStep != nil || s.GridSizeCount != nil {
			start, step, count := 10.0, 5.0, 8
			setIf(&start, s.GridSizeStart)
			setIf(&step, s.GridSizeStep)
			setIf(&count, s.GridSizeCount)
			c.GridSizes = gridSizes(start, step, count)
		}
		if s.Noise != nil {
			c.NoiseSamples = s.Noise.Samples
			c.NoiseAmplitude = s.Noise.Amplitude
			c.NoiseSeed = s.Noise.Seed
		}
		for _, g := range s.Groups {
			c.Groups[g.Name] = g.Paths
		}
	}
	if s := file.Stream; s != nil {
		c.StreamURL = s.URL
		setIf(&c.StreamNamespace, s.Namespace)
		if s.Timeout != nil {
			timeout, err := time.ParseDuration(*s.Timeout)
			if err != nil {
				return fmt.Errorf("invalid stream timeout: %w", err)
			}
			c.StreamTimeout = timeout
		}
	}
	return nil
}

// gridSizes enumerates the absolute grid sizes swept for the computational
// grid: count steps above the starting size.
func gridSizes(start, step float64, count int) []float64 {
	sizes := make([]float64, 0, count)
	size := start
	for i := 0; i < count; i++ {
		size += step
		sizes = append(sizes, size)
	}
	return sizes
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
