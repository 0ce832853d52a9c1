package schemaguard

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaguard/schemaguard/db"
	"github.com/schemaguard/schemaguard/types"
)

const hookedProjectFile = `
name: test
on-run-start:
  - "insert into hook_log values ('start')"
on-run-end:
  - "insert into hook_log values ('end')"
`

// newHookedProject lays out a one-model project on disk whose hooks write to
// hook_log, plus a shared sqlite database holding the seed data.
func newHookedProject(t *testing.T, seedRows string) (*Config, *sqlx.DB) {
	t.Helper()
	dir := t.TempDir()
	projectDir := filepath.Join(dir, "project")
	modelsDir := filepath.Join(projectDir, "models")
	require.NoError(t, os.MkdirAll(modelsDir, 0o755))

	write := func(path, content string) {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write(filepath.Join(projectDir, "schemaguard_project.yml"), hookedProjectFile)
	write(filepath.Join(modelsDir, "my_model.sql"), "select * from seed\n")
	write(filepath.Join(modelsDir, "schema.yml"), `
version: 2
models:
  - name: my_model
    columns:
      - name: id
        tests: [not_null]
`)

	dsn := fmt.Sprintf("file:%s?cache=shared", filepath.Join(dir, "fixture.db"))
	conn, err := db.Connect(db.Config{DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	for _, stmt := range []string{
		"create table hook_log (phase text)",
		"create table seed (id integer)",
		"insert into seed values " + seedRows,
	} {
		_, err := conn.Exec(stmt)
		require.NoError(t, err)
	}

	cfg := &Config{
		ProjectDir:  projectDir,
		Database:    db.Config{DSN: dsn},
		RunOnce:     true,
		ArtifactDir: filepath.Join(dir, "target"),
		Log:         hclog.NewNullLogger(),
	}
	return cfg, conn
}

func hookLogPhases(t *testing.T, conn *sqlx.DB) []string {
	t.Helper()
	var phases []string
	require.NoError(t, conn.Select(&phases, "select phase from hook_log"))
	return phases
}

func TestGuardRunOncePassing(t *testing.T) {
	cfg, conn := newHookedProject(t, "(1), (2)")
	_, err := conn.Exec("create view my_model as select * from seed")
	require.NoError(t, err)

	shutdown := make(chan error, 1)
	guard, err := New(context.Background(), cfg, "test", func(err error) { shutdown <- err })
	require.NoError(t, err)
	defer guard.Stop(context.Background())

	require.NoError(t, guard.Start(context.Background()))
	require.NoError(t, <-shutdown)

	result := guard.Result()
	require.NotNil(t, result)
	assert.Equal(t, types.TestStatusPass, result.Status)
	assert.Equal(t, 1, result.Stats.Total)

	// The test task never fires project hooks.
	assert.Empty(t, hookLogPhases(t, conn))

	// Run artifacts land under the target directory.
	assert.FileExists(t, filepath.Join(cfg.ArtifactDir, "run_results.json"))
	assert.FileExists(t, filepath.Join(cfg.ArtifactDir, "compiled", "not_null_my_model_id.sql"))
}

func TestGuardRunOnceFailing(t *testing.T) {
	cfg, conn := newHookedProject(t, "(1), (null)")
	_, err := conn.Exec("create view my_model as select * from seed")
	require.NoError(t, err)

	guard, err := New(context.Background(), cfg, "test", func(error) {})
	require.NoError(t, err)
	defer guard.Stop(context.Background())

	err = guard.Start(context.Background())
	require.Error(t, err)

	var failure *TestFailureError
	assert.ErrorAs(t, err, &failure)
	assert.Equal(t, types.TestStatusFail, guard.Result().Status)
	assert.Empty(t, hookLogPhases(t, conn))
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil, "test", nil)
	require.Error(t, err)
}
