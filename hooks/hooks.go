// Package hooks executes project-level on-run-start and on-run-end SQL.
//
// Only the build task constructs an Executor. The test task's wiring has no
// hooks dependency at all, so hooks firing during a test run is impossible by
// construction rather than merely checked for.
package hooks

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/jmoiron/sqlx"
)

// Executor runs hook statements against the target database.
type Executor struct {
	db  *sqlx.DB
	log hclog.Logger
}

// NewExecutor creates a hook executor for the build task.
func NewExecutor(db *sqlx.DB, log hclog.Logger) *Executor {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Executor{db: db, log: log.Named("hooks")}
}

// RunStart executes the on-run-start hooks in declaration order.
func (e *Executor) RunStart(ctx context.Context, statements []string) error {
	return e.run(ctx, "on-run-start", statements)
}

// RunEnd executes the on-run-end hooks in declaration order.
func (e *Executor) RunEnd(ctx context.Context, statements []string) error {
	return e.run(ctx, "on-run-end", statements)
}

func (e *Executor) run(ctx context.Context, phase string, statements []string) error {
	for i, stmt := range statements {
		e.log.Debug("executing hook", "phase", phase, "index", i)
		if _, err := e.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s hook %d failed: %w", phase, i+1, err)
		}
	}
	return nil
}
