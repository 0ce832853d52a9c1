// Package db provides the database connection layer shared by the build and
// test tasks. Connections are pooled; each concurrent test execution checks
// out its own connection from the pool.
package db

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/jmoiron/sqlx"

	// Database drivers. sqlite3 is the default target; postgres targets use pq.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Config holds configuration for a database connection.
type Config struct {
	Driver string // "sqlite3" or "postgres"
	DSN    string

	// Connection pool settings
	MaxIdleConns    int           // Maximum idle connections in pool (default: 4)
	MaxOpenConns    int           // Maximum open connections (default: 16)
	ConnMaxLifetime time.Duration // Maximum connection lifetime (default: 5 minutes)
}

// Connect opens a pooled database connection using the provided configuration.
func Connect(cfg Config, log hclog.Logger) (*sqlx.DB, error) {
	if cfg.Driver == "" {
		cfg.Driver = "sqlite3"
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	conn, err := sqlx.Connect(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxIdleConns := cfg.MaxIdleConns
	if maxIdleConns == 0 {
		maxIdleConns = 4
	}
	conn.SetMaxIdleConns(maxIdleConns)

	maxOpenConns := cfg.MaxOpenConns
	if maxOpenConns == 0 {
		maxOpenConns = 16
	}
	conn.SetMaxOpenConns(maxOpenConns)

	connMaxLifetime := cfg.ConnMaxLifetime
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	conn.SetConnMaxLifetime(connMaxLifetime)

	if log != nil {
		log.Info("connected to database",
			"driver", cfg.Driver,
			"max_idle_conns", maxIdleConns,
			"max_open_conns", maxOpenConns)
	}
	return conn, nil
}
