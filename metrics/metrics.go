package metrics

import (
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/schemaguard/schemaguard/types"
)

const (
	MetricsNamespace = "schemaguard"
)

var (
	validResults = []types.TestStatus{
		types.TestStatusPass, types.TestStatusFail, types.TestStatusSkip, types.TestStatusError,
	}

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	schemaTestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "schema_tests_total",
		Help:      "Count of schema test executions",
	}, []string{
		"run_id",
		"name",
		"status",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Result of schema test runs",
	}, []string{
		"run_id",
		"result",
	})

	runTestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_total",
		Help:      "Total number of schema tests in a run",
	}, []string{
		"run_id",
	})

	runTestPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_passed",
		Help:      "Number of passed schema tests in a run",
	}, []string{
		"run_id",
	})

	runTestFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_failed",
		Help:      "Number of failed schema tests in a run",
	}, []string{
		"run_id",
	})

	runTestErrored = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_errored",
		Help:      "Number of errored schema tests in a run",
	}, []string{
		"run_id",
	})

	runFailureRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_failure_rows",
		Help:      "Summed failing-row counts across a run",
	}, []string{
		"run_id",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of schema test runs",
	}, []string{
		"run_id",
	})
)

// RecordError increments the error counter for a named error class.
func RecordError(error string) {
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordTest records the outcome of a single schema test execution.
func RecordTest(runID string, name string, status types.TestStatus) {
	if !isValidResult(status) {
		return
	}
	schemaTestsTotal.WithLabelValues(runID, name, string(status)).Inc()
}

// RecordRun records the aggregated outcome of a test run.
func RecordRun(
	runID string,
	result string,
	total int,
	passed int,
	failed int,
	errored int,
	failures int64,
	duration time.Duration,
) {
	runResults.WithLabelValues(runID, result).Set(1)
	runTestTotal.WithLabelValues(runID).Add(float64(total))
	runTestPassed.WithLabelValues(runID).Add(float64(passed))
	runTestFailed.WithLabelValues(runID).Add(float64(failed))
	runTestErrored.WithLabelValues(runID).Add(float64(errored))
	runFailureRows.WithLabelValues(runID).Set(float64(failures))
	runDuration.WithLabelValues(runID).Set(duration.Seconds())
}

func isValidResult(result types.TestStatus) bool {
	return slices.Contains(validResults, result)
}
