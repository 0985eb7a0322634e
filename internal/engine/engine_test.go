package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_Succeeded(t *testing.T) {
	testCases := []struct {
		name     string
		report   Report
		expected bool
	}{
		{
			name: "all phases succeeded",
			report: Report{Phases: []PhaseStatus{
				{Phase: "seed", Status: StatusSuccess},
				{Phase: "init", Status: StatusSuccess},
				{Phase: "sim", Status: StatusSuccess},
				{Phase: "plot init", Status: StatusSuccess},
				{Phase: "plot sim", Status: StatusSuccess},
			}},
			expected: true,
		},
		{
			name: "run stopped early",
			report: Report{Phases: []PhaseStatus{
				{Phase: "seed", Status: StatusSuccess},
				{Phase: "init", Status: StatusFailed},
			}},
			expected: false,
		},
		{
			name:     "empty report",
			report:   Report{},
			expected: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.report.Succeeded())
		})
	}
}

func TestReport_FailedPhase(t *testing.T) {
	report := Report{Phases: []PhaseStatus{
		{Phase: "seed", Status: StatusSuccess},
		{Phase: "init", Status: StatusFailed, Details: "mesh generation failed"},
	}}

	failed, ok := report.FailedPhase()
	require.True(t, ok)
	assert.Equal(t, "init", failed.Phase)
	assert.Equal(t, "mesh generation failed", failed.Details)

	_, ok = (&Report{}).FailedPhase()
	assert.False(t, ok)
}
