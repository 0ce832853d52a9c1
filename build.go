package schemaguard

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/schemaguard/schemaguard/db"
	"github.com/schemaguard/schemaguard/hooks"
	"github.com/schemaguard/schemaguard/manifest"
)

// Builder materializes the project's models. Unlike the test service, the
// builder owns a hook executor and fires the project's on-run-start and
// on-run-end hooks around the build.
type Builder struct {
	config   *Config
	manifest *manifest.Manifest
	conn     *sqlx.DB
	hooks    *hooks.Executor
}

// NewBuilder creates the build task for a project.
func NewBuilder(config *Config) (*Builder, error) {
	m, err := manifest.Load(manifest.Config{
		Log:        config.Log,
		ProjectDir: config.ProjectDir,
		Strict:     config.Strict,
	})
	if err != nil {
		return nil, err
	}

	conn, err := db.Connect(config.Database, config.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to target database: %w", err)
	}

	return &Builder{
		config:   config,
		manifest: m,
		conn:     conn,
		hooks:    hooks.NewExecutor(conn, config.Log),
	}, nil
}

// Run materializes every enabled, non-ephemeral model and returns the number
// of models built. Hooks run in declaration order around the build.
func (b *Builder) Run(ctx context.Context) (int, error) {
	project := b.manifest.Project

	if err := b.hooks.RunStart(ctx, project.OnRunStart); err != nil {
		return 0, err
	}

	built := 0
	for _, name := range b.manifest.ModelNames() {
		model := b.manifest.Models[name]
		if !model.Enabled || model.Materialized == manifest.MaterializedEphemeral {
			continue
		}
		if err := b.buildModel(ctx, model); err != nil {
			return built, fmt.Errorf("failed to build model %s: %w", model.Name, err)
		}
		built++
		b.config.Log.Debug("built model", "model", model.Name, "materialized", model.Materialized)
	}

	if err := b.hooks.RunEnd(ctx, project.OnRunEnd); err != nil {
		return built, err
	}

	b.config.Log.Info("build complete", "models", built)
	return built, nil
}

// buildModel materializes one model as a view or table.
func (b *Builder) buildModel(ctx context.Context, model *manifest.Model) error {
	body := strings.TrimRight(strings.TrimSpace(model.RawSQL), ";")

	var drop, create string
	switch model.Materialized {
	case manifest.MaterializedTable:
		drop = fmt.Sprintf("drop table if exists %s", model.Name)
		create = fmt.Sprintf("create table %s as %s", model.Name, body)
	default:
		drop = fmt.Sprintf("drop view if exists %s", model.Name)
		create = fmt.Sprintf("create view %s as %s", model.Name, body)
	}

	if _, err := b.conn.ExecContext(ctx, drop); err != nil {
		return err
	}
	_, err := b.conn.ExecContext(ctx, create)
	return err
}

// Close releases the builder's database connection.
func (b *Builder) Close() error {
	return b.conn.Close()
}
