package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "SCHEMAGUARD"

// prefixEnvVar builds the environment variable names for a flag.
func prefixEnvVar(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	ProjectDir = &cli.StringFlag{
		Name:    "project",
		Value:   ".",
		EnvVars: prefixEnvVar("PROJECT"),
		Usage:   "Path to the project directory containing schemaguard_project.yml",
	}
	DBDriver = &cli.StringFlag{
		Name:    "db-driver",
		Value:   "sqlite3",
		EnvVars: prefixEnvVar("DB_DRIVER"),
		Usage:   "Database driver ('sqlite3' or 'postgres')",
	}
	DBDSN = &cli.StringFlag{
		Name:     "db-dsn",
		Value:    "",
		Required: true,
		EnvVars:  prefixEnvVar("DB_DSN"),
		Usage:    "Database connection string for the target database",
	}
	Models = &cli.StringSliceFlag{
		Name:    "models",
		Aliases: []string{"m"},
		EnvVars: prefixEnvVar("MODELS"),
		Usage:   "Selection expressions to include (model name, 'tag:<name>', 'source:<name>')",
	}
	Exclude = &cli.StringSliceFlag{
		Name:    "exclude",
		EnvVars: prefixEnvVar("EXCLUDE"),
		Usage:   "Selection expressions to exclude after inclusion applies",
	}
	Vars = &cli.StringFlag{
		Name:    "vars",
		Value:   "",
		EnvVars: prefixEnvVar("VARS"),
		Usage:   "Run-time variable bindings as inline YAML (eg. '{myvar: foo}')",
	}
	Strict = &cli.BoolFlag{
		Name:    "strict",
		Value:   false,
		EnvVars: prefixEnvVar("STRICT"),
		Usage:   "Escalate schema-definition warnings to errors (malformed metadata is always fatal)",
	}
	Concurrency = &cli.IntFlag{
		Name:    "concurrency",
		Value:   0,
		EnvVars: prefixEnvVar("CONCURRENCY"),
		Usage:   "Number of concurrent test workers (0 = default)",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: prefixEnvVar("RUN_INTERVAL"),
		Usage:   "Interval between test runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	ArtifactDir = &cli.StringFlag{
		Name:    "target-dir",
		Value:   "target",
		EnvVars: prefixEnvVar("TARGET_DIR"),
		Usage:   "Directory for compiled SQL and run result artifacts",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVar("LOG_LEVEL"),
		Usage:   "Log level (trace, debug, info, warn, error)",
	}
)

var requiredFlags = []cli.Flag{
	DBDSN,
}

var optionalFlags = []cli.Flag{
	ProjectDir,
	DBDriver,
	Models,
	Exclude,
	Vars,
	Strict,
	Concurrency,
	RunInterval,
	ArtifactDir,
	LogLevel,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
