package hooks

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conn, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestRunStartExecutesInOrder(t *testing.T) {
	conn := newTestDB(t)
	e := NewExecutor(conn, nil)

	err := e.RunStart(context.Background(), []string{
		"create table hook_log (phase text)",
		"insert into hook_log values ('start')",
	})
	require.NoError(t, err)

	var phases []string
	require.NoError(t, conn.Select(&phases, "select phase from hook_log"))
	assert.Equal(t, []string{"start"}, phases)
}

func TestRunEndStopsOnFirstFailure(t *testing.T) {
	conn := newTestDB(t)
	e := NewExecutor(conn, nil)

	_, err := conn.Exec("create table hook_log (phase text)")
	require.NoError(t, err)

	err = e.RunEnd(context.Background(), []string{
		"insert into hook_log values ('end')",
		"insert into missing_table values (1)",
		"insert into hook_log values ('never')",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "on-run-end hook 2")

	var count int
	require.NoError(t, conn.Get(&count, "select count(*) from hook_log"))
	assert.Equal(t, 1, count)
}

func TestNoHooksIsANoop(t *testing.T) {
	e := NewExecutor(newTestDB(t), nil)
	require.NoError(t, e.RunStart(context.Background(), nil))
	require.NoError(t, e.RunEnd(context.Background(), nil))
}
