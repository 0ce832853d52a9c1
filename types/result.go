package types

import (
	"strconv"
	"time"
)

// TestResult captures the outcome of a single schema test execution.
// Every enabled, selected node produces exactly one TestResult.
type TestResult struct {
	Node     TestNode
	Status   TestStatus
	Failures int64  // count of violating rows; 0 unless Status is fail
	Message  string // failure count as text, or the error description
	Duration time.Duration
	Skipped  bool
}

// NewCountResult builds a result from an executed failure count, classifying
// pass/fail by whether the count is zero.
func NewCountResult(node TestNode, failures int64, duration time.Duration) TestResult {
	status := TestStatusPass
	if failures > 0 {
		status = TestStatusFail
	}
	return TestResult{
		Node:     node,
		Status:   status,
		Failures: failures,
		Message:  strconv.FormatInt(failures, 10),
		Duration: duration,
	}
}

// NewErrorResult builds a result for a node whose execution failed.
// Execution errors are isolated to the node; they never propagate.
func NewErrorResult(node TestNode, err error, duration time.Duration) TestResult {
	return TestResult{
		Node:     node,
		Status:   TestStatusError,
		Message:  err.Error(),
		Duration: duration,
	}
}

// FailsRun reports whether this result should flip the overall run to failed.
// Warn-severity failures are recorded but do not fail the run.
func (r TestResult) FailsRun() bool {
	switch r.Status {
	case TestStatusFail:
		return r.Node.Severity != SeverityWarn
	case TestStatusError:
		return true
	default:
		return false
	}
}
