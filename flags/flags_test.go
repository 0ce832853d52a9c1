package flags

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestUniqueFlagNames checks that no two flags share a name or alias.
func TestUniqueFlagNames(t *testing.T) {
	seen := map[string]bool{}
	for _, flag := range Flags {
		for _, name := range flag.Names() {
			require.False(t, seen[name], "duplicate flag name %s", name)
			seen[name] = true
		}
	}
}

// TestEnvVarFormat checks that every flag's env var carries the app prefix.
func TestEnvVarFormat(t *testing.T) {
	for _, flag := range Flags {
		values := flagEnvVars(flag)
		require.NotEmpty(t, values, "flag %s has no env vars", flag.Names()[0])
		for _, envVar := range values {
			assert.True(t, strings.HasPrefix(envVar, EnvVarPrefix+"_"),
				"env var %s does not start with %s_", envVar, EnvVarPrefix)
			assert.Equal(t, strings.ToUpper(envVar), envVar, "env var %s is not upper case", envVar)
		}
	}
}

func flagEnvVars(flag cli.Flag) []string {
	switch f := flag.(type) {
	case *cli.StringFlag:
		return f.EnvVars
	case *cli.StringSliceFlag:
		return f.EnvVars
	case *cli.BoolFlag:
		return f.EnvVars
	case *cli.IntFlag:
		return f.EnvVars
	case *cli.DurationFlag:
		return f.EnvVars
	default:
		return nil
	}
}

func TestCheckRequired(t *testing.T) {
	run := func(args ...string) error {
		app := cli.NewApp()
		app.Flags = Flags
		app.Action = CheckRequired
		return app.Run(append([]string{"schemaguard"}, args...))
	}

	require.NoError(t, run("--db-dsn", ":memory:"))

	// urfave enforces Required before the action; CheckRequired backs it up.
	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db-dsn")
}
