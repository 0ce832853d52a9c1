package schemaguard

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/schemaguard/schemaguard/db"
	"github.com/schemaguard/schemaguard/flags"
)

// Config holds the application configuration
type Config struct {
	ProjectDir  string
	Database    db.Config
	Models      []string       // selection expressions to include
	Exclude     []string       // selection expressions to exclude
	Vars        map[string]any // command-line variable bindings
	Strict      bool           // escalate schema-definition warnings to errors
	Concurrency int            // number of concurrent test workers
	RunInterval time.Duration  // interval between test runs
	RunOnce     bool           // exit after one test run
	ArtifactDir string         // directory for compiled SQL and run results
	Log         hclog.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log hclog.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	projectDir, err := filepath.Abs(ctx.String(flags.ProjectDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}

	vars, err := ParseVars(ctx.String(flags.Vars.Name))
	if err != nil {
		return nil, err
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)

	artifactDir := ctx.String(flags.ArtifactDir.Name)
	if !filepath.IsAbs(artifactDir) {
		artifactDir = filepath.Join(projectDir, artifactDir)
	}

	return &Config{
		ProjectDir: projectDir,
		Database: db.Config{
			Driver: ctx.String(flags.DBDriver.Name),
			DSN:    ctx.String(flags.DBDSN.Name),
		},
		Models:      ctx.StringSlice(flags.Models.Name),
		Exclude:     ctx.StringSlice(flags.Exclude.Name),
		Vars:        vars,
		Strict:      ctx.Bool(flags.Strict.Name),
		Concurrency: ctx.Int(flags.Concurrency.Name),
		RunInterval: runInterval,
		RunOnce:     runInterval == 0,
		ArtifactDir: artifactDir,
		Log:         log,
	}, nil
}

// ParseVars parses the --vars flag value, an inline YAML mapping such as
// '{myvar: foo}'.
func ParseVars(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var vars map[string]any
	if err := yaml.Unmarshal([]byte(raw), &vars); err != nil {
		return nil, fmt.Errorf("failed to parse --vars (expected an inline YAML mapping): %w", err)
	}
	return vars, nil
}
