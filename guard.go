// Package schemaguard wires the manifest, macro registry, selector, and
// runner into the schema test service.
package schemaguard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/schemaguard/schemaguard/artifacts"
	"github.com/schemaguard/schemaguard/db"
	"github.com/schemaguard/schemaguard/exitcodes"
	"github.com/schemaguard/schemaguard/macros"
	"github.com/schemaguard/schemaguard/manifest"
	"github.com/schemaguard/schemaguard/runner"
	"github.com/schemaguard/schemaguard/selector"
	"github.com/schemaguard/schemaguard/types"
)

// Guard is the schema test service. It runs tests once or periodically at the
// configured interval. Its wiring deliberately contains no hook executor:
// project lifecycle hooks belong to the build task only.
type Guard struct {
	ctx      context.Context
	config   *Config
	version  string
	manifest *manifest.Manifest
	runner   runner.TestRunner
	conn     *sqlx.DB
	result   *runner.RunResult

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup

	shutdownCallback func(error) // Callback to signal application shutdown
}

// New creates the test service: loads the manifest, the macro registry, and
// the database connection, and builds the test runner.
func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*Guard, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("creating schemaguard with config",
		"projectDir", config.ProjectDir,
		"models", config.Models,
		"exclude", config.Exclude,
		"strict", config.Strict,
		"runInterval", config.RunInterval)

	m, err := manifest.Load(manifest.Config{
		Log:        config.Log,
		ProjectDir: config.ProjectDir,
		Strict:     config.Strict,
	})
	if err != nil {
		return nil, err
	}

	registry := macros.NewRegistry(macros.Config{
		Log:     config.Log,
		Project: m.Project.Name,
	})
	if err := registry.LoadProjectMacros(nil, config.ProjectDir, m.Project); err != nil {
		return nil, fmt.Errorf("failed to load project macros: %w", err)
	}

	conn, err := db.Connect(config.Database, config.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to target database: %w", err)
	}

	writer, err := artifacts.NewWriter(config.ArtifactDir, config.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact writer: %w", err)
	}

	testRunner, err := runner.NewTestRunner(runner.Config{
		Manifest:    m,
		Macros:      registry,
		DB:          conn,
		Log:         config.Log,
		Vars:        config.Vars,
		Concurrency: config.Concurrency,
		Artifacts:   writer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create test runner: %w", err)
	}

	return &Guard{
		ctx:              ctx,
		config:           config,
		version:          version,
		manifest:         m,
		runner:           testRunner,
		conn:             conn,
		done:             make(chan struct{}),
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start runs the schema tests immediately, then periodically at the
// configured interval unless in run-once mode.
func (g *Guard) Start(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			g.config.Log.Error("runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	g.ctx = ctx
	g.done = make(chan struct{})
	g.running.Store(true)

	if g.config.RunOnce {
		g.config.Log.Info("starting schemaguard in run-once mode")
	} else {
		g.config.Log.Info("starting schemaguard in continuous mode", "interval", g.config.RunInterval)
	}

	err := g.runTests()
	if err != nil {
		g.config.Log.Error("runtime error running tests", "error", err)
		return err
	}

	if g.config.RunOnce {
		g.config.Log.Info("tests completed, exiting (run-once mode)")

		if g.result != nil && g.result.Status == types.TestStatusFail {
			return NewTestFailureError(g.result.String())
		}

		go func() {
			g.shutdownCallback(nil)
		}()
		return nil
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.config.Log.Debug("starting periodic test runner goroutine", "interval", g.config.RunInterval)

		for {
			select {
			case <-time.After(g.config.RunInterval):
				if !g.running.Load() {
					g.config.Log.Debug("service stopped, exiting periodic test runner")
					return
				}
				g.config.Log.Info("running periodic tests")
				if err := g.runTests(); err != nil {
					g.config.Log.Error("error running periodic tests", "error", err)
				}

			case <-g.done:
				g.config.Log.Debug("done signal received, stopping periodic test runner")
				return

			case <-ctx.Done():
				g.config.Log.Debug("context canceled, stopping periodic test runner")
				g.running.Store(false)
				return
			}
		}
	}()
	g.config.Log.Debug("schemaguard started successfully")
	return nil
}

// runTests runs the selected tests and processes the results
func (g *Guard) runTests() error {
	selection := selector.NewSelection(g.config.Models, g.config.Exclude)

	result, err := g.runner.RunTests(g.ctx, selection)
	if err != nil {
		// This is a runtime error (not a test failure)
		return NewRuntimeError(err)
	}
	g.result = result

	g.printResultsTable(result)
	fmt.Println(g.result.String())

	NewDefaultMetricsReporter().ReportResults(result.RunID, result)
	g.config.Log.Info("test run completed", "run_id", result.RunID, "status", g.result.Status)
	return nil
}

// Result returns the most recent run result.
func (g *Guard) Result() *runner.RunResult {
	return g.result
}

// Stop stops the schemaguard service.
func (g *Guard) Stop(ctx context.Context) error {
	g.config.Log.Info("stopping schemaguard")
	if !g.running.Load() {
		return nil
	}

	g.running.Store(false)
	close(g.done)
	g.wg.Wait()

	if g.conn != nil {
		if err := g.conn.Close(); err != nil {
			g.config.Log.Warn("error closing database connection", "error", err)
		}
	}
	g.config.Log.Info("schemaguard stopped")
	return nil
}
