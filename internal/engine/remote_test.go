package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemote_Run_DecodesWorkerReport(t *testing.T) {
	var gotPath, gotJobID, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotJobID = r.Header.Get("X-Job-ID")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Report{Phases: []PhaseStatus{
			{Phase: "seed", Status: StatusSuccess},
			{Phase: "init", Status: StatusSuccess},
			{Phase: "sim", Status: StatusSuccess},
			{Phase: "plot init", Status: StatusSuccess},
			{Phase: "plot sim", Status: StatusSuccess},
		}})
	}))
	defer server.Close()

	remote := NewRemote(server.URL, time.Second)
	defer remote.Close()

	report, err := remote.Run(context.Background(), Job{
		ID:         "job-remote",
		ConfigYAML: []byte("general options: {}\n"),
	})
	require.NoError(t, err)
	assert.True(t, report.Succeeded())

	assert.Equal(t, "/v1/simulations/run", gotPath)
	assert.Equal(t, "job-remote", gotJobID)
	assert.Contains(t, gotBody, "general options")
}

func TestRemote_Run_PhaseFailurePassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Report{Phases: []PhaseStatus{
			{Phase: "seed", Status: StatusFailed, Details: "mesh generation failed"},
		}})
	}))
	defer server.Close()

	remote := NewRemote(server.URL, time.Second)
	defer remote.Close()

	report, err := remote.Run(context.Background(), Job{ID: "job-fail"})
	require.NoError(t, err)
	assert.False(t, report.Succeeded())

	failed, ok := report.FailedPhase()
	require.True(t, ok)
	assert.Equal(t, "mesh generation failed", failed.Details)
}

func TestRemote_Run_NonSuccessStatusIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "worker overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	remote := NewRemote(server.URL, time.Second)
	defer remote.Close()

	report, err := remote.Run(context.Background(), Job{ID: "job-503"})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Contains(t, err.Error(), "503")
}

func TestRemote_Run_TransportFailureIsAnError(t *testing.T) {
	remote := NewRemote("http://127.0.0.1:1", 200*time.Millisecond)
	defer remote.Close()

	_, err := remote.Run(context.Background(), Job{ID: "job-unreachable"})
	require.Error(t, err)
}
