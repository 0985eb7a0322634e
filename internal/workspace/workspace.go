// Package workspace manages the on-disk layout of simulation runs: one
// directory per run holding the configuration document, staged geometry
// assets, engine artifacts and logs, packaged as a zip archive when the run
// finishes.
package workspace

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/biosweep/internal/configtree"
)

// ConfigFileName is the name the materialized document is saved under
// inside a run directory.
const ConfigFileName = "sim_config_file.yaml"

// Manager creates run directories under a data root, one numbered directory
// per run per user.
type Manager struct {
	// DataRoot is the base directory holding all runs.
	DataRoot string
	// GeoSource is the directory of geometry assets staged into each run.
	GeoSource string
}

// Run is one simulation run's working directory.
type Run struct {
	Dir    string
	GeoDir string
}

// CreateRun allocates the next numbered run directory for the user and
// stages the geometry assets into it.
func (m *Manager) CreateRun(userID string) (*Run, error) {
	base := filepath.Join(m.DataRoot, userID)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create user data directory: %w", err)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("failed to list user data directory: %w", err)
	}
	dir := filepath.Join(base, fmt.Sprintf("run_%d", len(entries)+1))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	run := &Run{Dir: dir, GeoDir: filepath.Join(dir, "geo")}
	if m.GeoSource != "" {
		if err := os.MkdirAll(run.GeoDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create geometry directory: %w", err)
		}
		if err := os.CopyFS(run.GeoDir, os.DirFS(m.GeoSource)); err != nil {
			return nil, fmt.Errorf("failed to stage geometry assets: %w", err)
		}
	}
	return run, nil
}

// SetSavePaths rewires the document's file-saving sections so every
// artifact the engine produces lands inside the run directory. Sections are
// replaced wholesale; documents missing them gain them.
func SetSavePaths(tree *configtree.Tree) *configtree.Tree {
	initSaving := cty.ObjectVal(map[string]cty.Value{
		"directory": cty.StringVal("INITS"),
		"file":      cty.StringVal("init_1.betse.gz"),
		"worldfile": cty.StringVal("world_1.betse.gz"),
	})
	simSaving := cty.ObjectVal(map[string]cty.Value{
		"directory": cty.StringVal("SIMS"),
		"file":      cty.StringVal("sim_1.betse.gz"),
	})
	resultsSaving := cty.ObjectVal(map[string]cty.Value{
		"init directory": cty.StringVal(path.Join("RESULTS", "init_1")),
		"sim directory":  cty.StringVal(path.Join("RESULTS", "sim_1")),
	})

	out := tree.
		WithSection("init file saving", initSaving).
		WithSection("sim file saving", simSaving).
		WithSection("results file saving", resultsSaving).
		WithSection("file handling", cty.ObjectVal(map[string]cty.Value{
			"init file saving":    initSaving,
			"sim file saving":     simSaving,
			"results file saving": resultsSaving,
		}))

	// Networks reference auxiliary documents staged next to the config.
	if out.Has("general network/expression data file") {
		out, _ = out.WithOverride("general network/expression data file", cty.StringVal("expression_data.yaml"))
	}
	grn := "gene regulatory network settings"
	if out.Has(configtree.Join(grn, "gene regulatory network config")) {
		out, _ = out.WithOverride(configtree.Join(grn, "gene regulatory network config"), cty.StringVal("grn_basic.yaml"))
	}
	if out.Has(configtree.Join(grn, "sim-grn settings", "save to directory")) {
		out, _ = out.WithOverride(configtree.Join(grn, "sim-grn settings", "save to directory"), cty.StringVal(path.Join("RESULTS", "GRN")))
	}
	if out.Has(configtree.Join(grn, "sim-grn settings", "save to file")) {
		out, _ = out.WithOverride(configtree.Join(grn, "sim-grn settings", "save to file"), cty.StringVal("GRN_1.betse.gz"))
	}
	return out
}

// WriteConfig persists the document into the run directory and returns its
// path.
func (r *Run) WriteConfig(tree *configtree.Tree) (string, error) {
	data, err := tree.ToYAML()
	if err != nil {
		return "", fmt.Errorf("failed to serialize configuration document: %w", err)
	}
	configPath := filepath.Join(r.Dir, ConfigFileName)
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write configuration document: %w", err)
	}
	return configPath, nil
}

// WriteLog appends a named log file to the run directory.
func (r *Run) WriteLog(name, content string) error {
	return os.WriteFile(filepath.Join(r.Dir, name), []byte(content), 0o644)
}

// RemoveAssets drops the staged geometry assets, which are inputs rather
// than results and have no place in the packaged archive.
func (r *Run) RemoveAssets() error {
	return os.RemoveAll(r.GeoDir)
}

// Archive packages the run directory into a sibling zip file and returns
// its path.
func (r *Run) Archive() (string, error) {
	zipPath := r.Dir + ".zip"
	f, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	err = filepath.WalkDir(r.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(r.Dir, p)
		if err != nil {
			return err
		}
		dst, err := w.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		src, err := os.Open(p)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(dst, src)
		return err
	})
	if err != nil {
		w.Close()
		return "", fmt.Errorf("failed to package run directory: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}
	return zipPath, nil
}

// Cleanup removes the run directory, keeping any archive built from it.
func (r *Run) Cleanup() error {
	return os.RemoveAll(r.Dir)
}
