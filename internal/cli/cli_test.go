package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ServeModeDefaults(t *testing.T) {
	var out bytes.Buffer
	opts, exit, err := Parse(nil, &out)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Empty(t, opts.BaselinePath)
	assert.Equal(t, []string{"single"}, opts.Phases)
	assert.Equal(t, "text", opts.LogFormat)
	assert.Equal(t, "info", opts.LogLevel)
}

func TestParse_BatchMode(t *testing.T) {
	var out bytes.Buffer
	args := []string{
		"-baseline", "baseline.yaml",
		"-phases", "noise, single ,pair",
		"-out", "outcomes.json",
		"-config", "biosweep.hcl",
		"-log-format", "json",
		"-log-level", "debug",
	}
	opts, exit, err := Parse(args, &out)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, "baseline.yaml", opts.BaselinePath)
	assert.Equal(t, []string{"noise", "single", "pair"}, opts.Phases)
	assert.Equal(t, "outcomes.json", opts.OutcomesPath)
	assert.Equal(t, "biosweep.hcl", opts.ConfigPath)
	assert.Equal(t, "json", opts.LogFormat)
	assert.Equal(t, "debug", opts.LogLevel)
}

func TestParse_HelpExitsCleanly(t *testing.T) {
	var out bytes.Buffer
	_, exit, err := Parse([]string{"-h"}, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Contains(t, out.String(), "Usage")
}

func TestParse_InvalidArguments(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{name: "unknown flag", args: []string{"-frequency", "10"}},
		{name: "bad log format", args: []string{"-log-format", "yaml"}},
		{name: "bad log level", args: []string{"-log-level", "loud"}},
		{name: "batch without phases", args: []string{"-baseline", "b.yaml", "-phases", " , "}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			_, _, err := Parse(tc.args, &out)
			require.Error(t, err)

			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
		})
	}
}
