package workspace

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/biosweep/internal/configtree"
)

func TestManager_CreateRun_NumbersRunsPerUser(t *testing.T) {
	m := &Manager{DataRoot: t.TempDir()}

	first, err := m.CreateRun("alice")
	require.NoError(t, err)
	assert.Equal(t, "run_1", filepath.Base(first.Dir))

	second, err := m.CreateRun("alice")
	require.NoError(t, err)
	assert.Equal(t, "run_2", filepath.Base(second.Dir))

	// Another user starts its own numbering.
	other, err := m.CreateRun("bob")
	require.NoError(t, err)
	assert.Equal(t, "run_1", filepath.Base(other.Dir))
}

func TestManager_CreateRun_StagesGeometryAssets(t *testing.T) {
	geoSource := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(geoSource, "circle.png"), []byte{0x89}, 0o644))

	m := &Manager{DataRoot: t.TempDir(), GeoSource: geoSource}
	run, err := m.CreateRun("alice")
	require.NoError(t, err)

	staged := filepath.Join(run.GeoDir, "circle.png")
	assert.FileExists(t, staged)

	require.NoError(t, run.RemoveAssets())
	assert.NoDirExists(t, run.GeoDir)
}

func TestSetSavePaths_RedirectsEngineArtifacts(t *testing.T) {
	doc := `
general options:
  ion profile: basic
init file saving:
  directory: /somewhere/else
general network:
  expression data file: /absolute/expression.yaml
`
	tree, err := configtree.FromYAML([]byte(doc))
	require.NoError(t, err)

	out := SetSavePaths(tree)

	dir, err := out.String("init file saving/directory")
	require.NoError(t, err)
	assert.Equal(t, "INITS", dir)

	simFile, err := out.String("sim file saving/file")
	require.NoError(t, err)
	assert.Equal(t, "sim_1.betse.gz", simFile)

	resultsDir, err := out.String("results file saving/sim directory")
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(filepath.Join("RESULTS", "sim_1")), resultsDir)

	expression, err := out.String("general network/expression data file")
	require.NoError(t, err)
	assert.Equal(t, "expression_data.yaml", expression)

	// The input document is untouched.
	original, err := tree.String("init file saving/directory")
	require.NoError(t, err)
	assert.Equal(t, "/somewhere/else", original)
}

func TestRun_WriteConfigAndArchive(t *testing.T) {
	m := &Manager{DataRoot: t.TempDir()}
	run, err := m.CreateRun("alice")
	require.NoError(t, err)

	tree, err := configtree.FromYAML([]byte("general options:\n  ion profile: basic\n"))
	require.NoError(t, err)

	configPath, err := run.WriteConfig(tree)
	require.NoError(t, err)
	assert.Equal(t, ConfigFileName, filepath.Base(configPath))

	require.NoError(t, run.WriteLog("sim_fail_logs.txt", "convergence failure"))

	zipPath, err := run.Archive()
	require.NoError(t, err)
	require.FileExists(t, zipPath)

	reader, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer reader.Close()

	names := make(map[string]bool)
	for _, f := range reader.File {
		names[f.Name] = true
	}
	assert.True(t, names[ConfigFileName], "archive misses the configuration document: %v", names)
	assert.True(t, names["sim_fail_logs.txt"])

	// Cleanup drops the run directory but keeps the archive.
	require.NoError(t, run.Cleanup())
	assert.NoDirExists(t, run.Dir)
	assert.FileExists(t, zipPath)
}
