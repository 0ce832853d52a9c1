package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/urfave/cli/v2"

	schemaguard "github.com/schemaguard/schemaguard"
	"github.com/schemaguard/schemaguard/exitcodes"
	"github.com/schemaguard/schemaguard/flags"
	"github.com/schemaguard/schemaguard/manifest"
	"github.com/schemaguard/schemaguard/service"
)

var (
	Version   = "v0.3.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "schemaguard"
	app.Usage = "Schema data-quality test runner for SQL projects"
	app.Description = "schemaguard expands declarative schema tests into SQL and runs them against a target database"
	app.Commands = []*cli.Command{
		{
			Name:   "test",
			Usage:  "Run schema tests (project hooks never fire here)",
			Flags:  flags.Flags,
			Action: runTests,
		},
		{
			Name:   "run",
			Usage:  "Build the project's models, with on-run-start/on-run-end hooks",
			Flags:  flags.Flags,
			Action: runBuild,
		},
	}
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			if manifest.IsCompilationError(err) || schemaguard.IsRuntimeError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			} else if schemaguard.IsTestFailureError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.TestFailure))
			} else {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.TestFailure))
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		os.Exit(exitcodes.RuntimeErr)
	}
}

// newLogger builds the application logger from the log-level flag.
func newLogger(ctx *cli.Context) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  "schemaguard",
		Level: hclog.LevelFromString(ctx.String(flags.LogLevel.Name)),
	})
}

// runTests is the action for the "test" command.
func runTests(ctx *cli.Context) error {
	log := newLogger(ctx)

	cfg, err := schemaguard.NewConfig(ctx, log)
	if err != nil {
		return schemaguard.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	guard, err := schemaguard.New(ctx.Context, cfg, Version, func(error) {})
	if err != nil {
		if manifest.IsCompilationError(err) {
			return err
		}
		return schemaguard.NewRuntimeError(fmt.Errorf("failed to create schemaguard: %w", err))
	}

	if cfg.RunOnce {
		return guard.Start(ctx.Context)
	}

	// Continuous mode: expose healthz and metrics while the periodic runner works.
	svc := service.New(log)
	svc.Start(ctx.Context)
	defer svc.Shutdown()

	if err := guard.Start(ctx.Context); err != nil {
		return err
	}
	<-ctx.Context.Done()
	return guard.Stop(context.Background())
}

// runBuild is the action for the "run" command.
func runBuild(ctx *cli.Context) error {
	log := newLogger(ctx)

	cfg, err := schemaguard.NewConfig(ctx, log)
	if err != nil {
		return schemaguard.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	builder, err := schemaguard.NewBuilder(cfg)
	if err != nil {
		if manifest.IsCompilationError(err) {
			return err
		}
		return schemaguard.NewRuntimeError(fmt.Errorf("failed to create builder: %w", err))
	}
	defer builder.Close()

	built, err := builder.Run(ctx.Context)
	if err != nil {
		return schemaguard.NewRuntimeError(err)
	}
	fmt.Printf("Completed successfully: built %d models\n", built)
	return nil
}
