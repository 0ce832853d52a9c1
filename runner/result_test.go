package runner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/schemaguard/schemaguard/types"
)

func TestEmptyRunSkips(t *testing.T) {
	result := &RunResult{RunID: "run-1"}
	result.Status = determineRunStatus(result)
	assert.Equal(t, types.TestStatusSkip, result.Status)
}

func TestRunResultAggregation(t *testing.T) {
	result := &RunResult{RunID: "run-1"}

	result.addResult(types.TestResult{
		Node:     types.TestNode{UniqueID: "test.p.a", Severity: types.SeverityError},
		Status:   types.TestStatusPass,
		Duration: 10 * time.Millisecond,
	})
	result.addResult(types.TestResult{
		Node:     types.TestNode{UniqueID: "test.p.b", Severity: types.SeverityWarn},
		Status:   types.TestStatusFail,
		Failures: 2,
		Duration: 5 * time.Millisecond,
	})
	result.Status = determineRunStatus(result)

	assert.Equal(t, 2, result.Stats.Total)
	assert.Equal(t, 1, result.Stats.Passed)
	assert.Equal(t, 1, result.Stats.Failed)
	assert.EqualValues(t, 2, result.TotalFailures())
	assert.Equal(t, 15*time.Millisecond, result.Duration)

	// The only failure is warn severity, so the run passes.
	assert.Equal(t, types.TestStatusPass, result.Status)
}

func TestErrorFailsRunRegardlessOfSeverity(t *testing.T) {
	result := &RunResult{RunID: "run-1"}
	result.addResult(types.TestResult{
		Node:    types.TestNode{UniqueID: "test.p.a", Severity: types.SeverityWarn},
		Status:  types.TestStatusError,
		Message: "no such table",
	})
	result.Status = determineRunStatus(result)

	assert.Equal(t, 1, result.Stats.Errored)
	assert.Equal(t, types.TestStatusFail, result.Status)
}
