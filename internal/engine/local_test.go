package engine

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeStubBinary creates an executable shell script standing in for the
// engine binary. Its behavior is driven by the script body.
func writeStubBinary(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub engine scripts require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "betse-stub")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestLocal_Run_WalksEveryPhase(t *testing.T) {
	binary := writeStubBinary(t, `echo "ran $@"`)
	workdir := t.TempDir()
	local := NewLocal(binary, 0)

	report, err := local.Run(context.Background(), Job{
		ID:         "job-1",
		ConfigYAML: []byte("general options:\n  ion profile: basic\n"),
		Workdir:    workdir,
	})
	require.NoError(t, err)
	require.Len(t, report.Phases, len(Phases))
	assert.True(t, report.Succeeded())

	for i, status := range report.Phases {
		assert.Equal(t, Phases[i], status.Phase)
		assert.Equal(t, StatusSuccess, status.Status)
		assert.Contains(t, status.Details, "ran "+Phases[i])
	}

	// The document lands next to the artifacts the phases produce.
	written, err := os.ReadFile(filepath.Join(workdir, configFileName))
	require.NoError(t, err)
	assert.Contains(t, string(written), "ion profile")
}

func TestLocal_Run_StopsAtFirstFailingPhase(t *testing.T) {
	binary := writeStubBinary(t, `
if [ "$1" = "sim" ]; then
  echo "convergence failure" >&2
  exit 1
fi
echo ok`)
	local := NewLocal(binary, 0)

	report, err := local.Run(context.Background(), Job{ID: "job-2", ConfigYAML: []byte("{}\n"), Workdir: t.TempDir()})
	require.NoError(t, err)

	// seed, init, sim attempted; plotting never reached.
	require.Len(t, report.Phases, 3)
	assert.False(t, report.Succeeded())

	failed, ok := report.FailedPhase()
	require.True(t, ok)
	assert.Equal(t, "sim", failed.Phase)
	assert.Contains(t, failed.Details, "convergence failure")
}

func TestLocal_Run_PhaseTimeoutIsReportedNotFatal(t *testing.T) {
	binary := writeStubBinary(t, `
if [ "$1" = "seed" ]; then
  sleep 2
fi
echo ok`)
	local := NewLocal(binary, 100*time.Millisecond)

	report, err := local.Run(context.Background(), Job{ID: "job-3", ConfigYAML: []byte("{}\n"), Workdir: t.TempDir()})
	require.NoError(t, err)
	require.Len(t, report.Phases, 1)

	failed, ok := report.FailedPhase()
	require.True(t, ok)
	assert.Equal(t, "seed", failed.Phase)
	assert.Contains(t, failed.Details, "timed out")
}

func TestLocal_Run_MissingBinaryIsAnError(t *testing.T) {
	local := NewLocal(filepath.Join(t.TempDir(), "no-such-binary"), 0)

	report, err := local.Run(context.Background(), Job{ID: "job-4", ConfigYAML: []byte("{}\n"), Workdir: t.TempDir()})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Contains(t, err.Error(), "unavailable")
}

func TestLocal_Run_CancelledContext(t *testing.T) {
	binary := writeStubBinary(t, `echo ok`)
	local := NewLocal(binary, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := local.Run(ctx, Job{ID: "job-5", ConfigYAML: []byte("{}\n"), Workdir: t.TempDir()})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewLocal_DefaultsBinary(t *testing.T) {
	assert.Equal(t, "betse", NewLocal("", 0).Binary)
}
