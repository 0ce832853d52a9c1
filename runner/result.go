package runner

import (
	"fmt"
	"time"

	"github.com/schemaguard/schemaguard/types"
)

// ResultStats tracks per-status counts and summed failure counts for a run.
type ResultStats struct {
	Total     int
	Passed    int
	Failed    int
	Errored   int
	Skipped   int
	Failures  int64 // sum of failing-row counts across all nodes
	StartTime time.Time
	EndTime   time.Time
}

// RunResult captures the complete outcome of one test run.
type RunResult struct {
	RunID string

	// Results holds exactly one entry per enabled, selected test node,
	// ordered by unique id for deterministic assertions.
	Results []types.TestResult

	Status   types.TestStatus
	Stats    ResultStats
	Duration time.Duration // summed per-test durations
	// WallClockTime is the elapsed time of the run; with concurrent
	// execution it is less than Duration.
	WallClockTime time.Duration
}

// TotalFailures returns the summed failing-row counts across all results.
func (r *RunResult) TotalFailures() int64 {
	return r.Stats.Failures
}

// String returns a single-line summary of the run.
func (r *RunResult) String() string {
	return fmt.Sprintf("run %s: %s (%d tests: %d passed, %d failed, %d errored, %d skipped, %d total failures) in %s",
		r.RunID, r.Status,
		r.Stats.Total, r.Stats.Passed, r.Stats.Failed, r.Stats.Errored, r.Stats.Skipped,
		r.Stats.Failures, r.WallClockTime.Round(time.Millisecond))
}

// addResult folds one test result into the run's stats.
func (r *RunResult) addResult(result types.TestResult) {
	r.Results = append(r.Results, result)
	r.Stats.Total++
	r.Duration += result.Duration
	r.Stats.Failures += result.Failures

	switch result.Status {
	case types.TestStatusPass:
		r.Stats.Passed++
	case types.TestStatusFail:
		r.Stats.Failed++
	case types.TestStatusError:
		r.Stats.Errored++
	case types.TestStatusSkip:
		r.Stats.Skipped++
	}
}

// determineRunStatus classifies the whole run. Warn-severity failures do not
// flip the outcome; errors and error-severity failures do.
func determineRunStatus(result *RunResult) types.TestStatus {
	if result.Stats.Total == 0 {
		return types.TestStatusSkip
	}
	for _, r := range result.Results {
		if r.FailsRun() {
			return types.TestStatusFail
		}
	}
	return types.TestStatusPass
}
