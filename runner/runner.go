// Package runner compiles and executes schema test nodes against the target
// database and aggregates their results.
package runner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/jmoiron/sqlx"
	rsql "github.com/rqlite/sql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/schemaguard/schemaguard/artifacts"
	"github.com/schemaguard/schemaguard/macros"
	"github.com/schemaguard/schemaguard/manifest"
	"github.com/schemaguard/schemaguard/metrics"
	"github.com/schemaguard/schemaguard/selector"
	"github.com/schemaguard/schemaguard/types"
)

const defaultConcurrency = 4

// TestRunner defines the interface for running schema tests
type TestRunner interface {
	RunTests(ctx context.Context, selection selector.Selection) (*RunResult, error)
}

// Config holds configuration for creating a new runner
type Config struct {
	Manifest *manifest.Manifest
	Macros   *macros.Registry
	DB       *sqlx.DB
	Log      hclog.Logger
	// Vars are command-line variable bindings; they override project vars.
	Vars map[string]any
	// Concurrency is the number of test workers (0 = default).
	Concurrency int
	// Artifacts, when set, receives compiled SQL and run results.
	Artifacts *artifacts.Writer
}

// runner struct implements the TestRunner interface
type runner struct {
	manifest    *manifest.Manifest
	macros      *macros.Registry
	db          *sqlx.DB
	log         hclog.Logger
	vars        map[string]any
	concurrency int
	artifacts   *artifacts.Writer
	tracer      trace.Tracer
}

// NewTestRunner creates a new test runner instance
func NewTestRunner(cfg Config) (TestRunner, error) {
	if cfg.Manifest == nil {
		return nil, fmt.Errorf("manifest is required")
	}
	if cfg.Macros == nil {
		return nil, fmt.Errorf("macro registry is required")
	}
	if cfg.DB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if cfg.Log == nil {
		cfg.Log = hclog.NewNullLogger()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}

	// Project vars form the base; command-line vars override.
	vars := make(map[string]any, len(cfg.Manifest.Project.Vars)+len(cfg.Vars))
	for k, v := range cfg.Manifest.Project.Vars {
		vars[k] = v
	}
	for k, v := range cfg.Vars {
		vars[k] = v
	}

	return &runner{
		manifest:    cfg.Manifest,
		macros:      cfg.Macros,
		db:          cfg.DB,
		log:         cfg.Log.Named("runner"),
		vars:        vars,
		concurrency: cfg.Concurrency,
		artifacts:   cfg.Artifacts,
		tracer:      otel.Tracer("schema test runner"),
	}, nil
}

// RunTests executes the selected test nodes concurrently and returns the
// aggregated result. Failure of one node never cancels or affects siblings;
// the fan-in join collects every result before returning.
func (r *runner) RunTests(ctx context.Context, selection selector.Selection) (*RunResult, error) {
	runID := uuid.New().String()
	start := time.Now()

	result := &RunResult{
		RunID: runID,
		Stats: ResultStats{StartTime: start},
	}

	var skippedDisabled int
	runnable := make([]types.TestNode, 0, len(r.manifest.Nodes))
	for _, node := range selection.Apply(r.manifest.Nodes) {
		if !node.Enabled {
			skippedDisabled++
			continue
		}
		runnable = append(runnable, node)
	}

	r.log.Info("starting test run",
		"run_id", runID,
		"selected", len(runnable),
		"disabled", skippedDisabled,
		"concurrency", r.concurrency)

	workChan := make(chan types.TestNode)
	resultChan := make(chan types.TestResult)

	var wg sync.WaitGroup
	for i := 0; i < r.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for node := range workChan {
				resultChan <- r.executeNode(ctx, runID, node)
			}
		}()
	}

	go func() {
		defer close(workChan)
		for _, node := range runnable {
			select {
			case workChan <- node:
			case <-ctx.Done():
				r.log.Debug("context cancelled while dispatching tests")
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for testResult := range resultChan {
		result.addResult(testResult)
	}

	sort.Slice(result.Results, func(i, j int) bool {
		return result.Results[i].Node.UniqueID < result.Results[j].Node.UniqueID
	})

	result.WallClockTime = time.Since(start)
	result.Status = determineRunStatus(result)
	result.Stats.EndTime = time.Now()

	if r.artifacts != nil {
		if err := r.artifacts.WriteRunResults(runID, result.Status, result.Results); err != nil {
			r.log.Warn("failed to write run results artifact", "error", err)
		}
	}

	r.log.Info("test run complete", "run_id", runID, "status", result.Status,
		"total", result.Stats.Total, "failures", result.Stats.Failures)
	return result, nil
}

// executeNode compiles and runs a single test node. Execution-time errors
// (malformed query, connection failure) yield an error-status result rather
// than propagating.
func (r *runner) executeNode(ctx context.Context, runID string, node types.TestNode) types.TestResult {
	ctx, span := r.tracer.Start(ctx, node.Name)
	defer span.End()

	start := time.Now()

	compiled, err := r.compileNode(node)
	if err != nil {
		r.log.Error("test compilation failed", "test", node.Name, "error", err)
		result := types.NewErrorResult(node, err, time.Since(start))
		metrics.RecordTest(runID, node.Name, result.Status)
		return result
	}
	node.CompiledSQL = compiled

	if r.artifacts != nil {
		if err := r.artifacts.WriteCompiledSQL(node); err != nil {
			r.log.Warn("failed to write compiled SQL artifact", "test", node.Name, "error", err)
		}
	}

	var count int64
	if err := r.db.GetContext(ctx, &count, compiled); err != nil {
		r.log.Error("test execution failed", "test", node.Name, "error", err)
		result := types.NewErrorResult(node, err, time.Since(start))
		metrics.RecordTest(runID, node.Name, result.Status)
		return result
	}

	result := types.NewCountResult(node, count, time.Since(start))
	metrics.RecordTest(runID, node.Name, result.Status)
	r.log.Debug("test executed", "test", node.Name, "status", result.Status, "failures", count)
	return result
}

// compileNode renders the node's macro into SQL and checks the compiled text
// actually parses as a statement before it is sent to the database.
func (r *runner) compileNode(node types.TestNode) (string, error) {
	relation, err := r.relationFor(node)
	if err != nil {
		return "", err
	}

	compiled, err := r.macros.CompileTest(node, relation, r.vars)
	if err != nil {
		return "", err
	}

	if _, err := rsql.NewParser(strings.NewReader(compiled)).ParseStatement(); err != nil {
		return "", err
	}
	return compiled, nil
}

// relationFor resolves the SQL relation a node queries. Source tests address
// the seeded source table directly; model tests address the built model, with
// ephemeral models inlined as subqueries.
func (r *runner) relationFor(node types.TestNode) (string, error) {
	if node.IsSourceTest() {
		return node.Model, nil
	}
	model := r.manifest.ModelFor(node)
	if model == nil {
		return "", fmt.Errorf("unknown model %q", node.Model)
	}
	return model.Relation(), nil
}
