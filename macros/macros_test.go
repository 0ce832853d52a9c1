package macros

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaguard/schemaguard/manifest"
	"github.com/schemaguard/schemaguard/types"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(Config{Project: "test"})
}

func TestBuiltinNotNull(t *testing.T) {
	r := newTestRegistry(t)
	macro, err := r.Resolve("not_null", "")
	require.NoError(t, err)

	sql, err := macro.Render(RenderContext{Relation: "table_copy", Column: "email"})
	require.NoError(t, err)
	assert.Contains(t, sql, "from table_copy")
	assert.Contains(t, sql, "email is null")
}

func TestBuiltinUnique(t *testing.T) {
	r := newTestRegistry(t)
	sql, err := r.CompileTest(types.TestNode{TestName: "unique", Column: "id"}, "table_copy", nil)
	require.NoError(t, err)
	assert.Contains(t, sql, "group by id")
	assert.Contains(t, sql, "having count(*) > 1")
}

func TestBuiltinAcceptedValues(t *testing.T) {
	r := newTestRegistry(t)
	node := types.TestNode{
		TestName: "accepted_values",
		Column:   "favorite_color",
		Args:     map[string]any{"values": []any{"red", "blue", 3.14159265}},
	}
	sql, err := r.CompileTest(node, "table_copy", nil)
	require.NoError(t, err)
	assert.Contains(t, sql, "not in ('red', 'blue', 3.14159265)")
}

func TestBuiltinAcceptedValuesRequiresValues(t *testing.T) {
	r := newTestRegistry(t)
	node := types.TestNode{TestName: "accepted_values", Column: "favorite_color", Args: map[string]any{}}
	_, err := r.CompileTest(node, "table_copy", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"values"`)
}

func TestBuiltinRelationships(t *testing.T) {
	r := newTestRegistry(t)
	node := types.TestNode{
		TestName: "relationships",
		Column:   "favorite_color",
		Args:     map[string]any{"to": "table_copy", "field": "favorite_color"},
	}
	sql, err := r.CompileTest(node, "table_summary", nil)
	require.NoError(t, err)
	assert.Contains(t, sql, "select favorite_color from table_copy")
}

func TestQuoteList(t *testing.T) {
	out, err := quoteList([]any{"o'brien", 7, true})
	require.NoError(t, err)
	assert.Equal(t, "'o''brien', 7, true", out)

	_, err = quoteList([]any{})
	require.Error(t, err)

	_, err = quoteList("not-a-list")
	require.Error(t, err)
}

func TestProjectMacroOverridesBuiltin(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register("test", "not_null", "select 0 -- overridden"))

	macro, err := r.Resolve("not_null", "")
	require.NoError(t, err)
	assert.Equal(t, "test", macro.Package)
}

func TestDispatchDefaultsToLocalOverride(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register("test_utils", "type_one", "select 1 -- package"))
	require.NoError(t, r.Register("test", "type_one", "select 1 -- local"))

	// Unconfigured namespaces search the project first.
	macro, err := r.Resolve("type_one", "test_utils")
	require.NoError(t, err)
	assert.Equal(t, "test", macro.Package)
}

func TestDispatchHonorsConfiguredSearchOrder(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register("test_utils", "type_one", "select 1 -- test_utils"))
	require.NoError(t, r.Register("local_utils", "type_one", "select 1 -- local_utils"))

	r.SetSearchOrder("test_utils", []string{"local_utils", "test_utils"})

	macro, err := r.Resolve("type_one", "test_utils")
	require.NoError(t, err)
	assert.Equal(t, "local_utils", macro.Package)
}

func TestResolveUnknownMacro(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Resolve("no_such_test", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_such_test")
}

func TestVarLookup(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register("test", "wants_var",
		`select count(*) from {{ .Relation }} where col != '{{ .Var "myvar" }}'`))

	node := types.TestNode{TestName: "wants_var"}

	_, err := r.CompileTest(node, "table_copy", nil)
	require.Error(t, err, "missing var must fail the render")

	sql, err := r.CompileTest(node, "table_copy", map[string]any{"myvar": "foo"})
	require.NoError(t, err)
	assert.Contains(t, sql, "!= 'foo'")
}

func TestLoadProjectMacros(t *testing.T) {
	fs := afero.NewMemMapFs()
	write := func(path, content string) {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	write("/project/macros/test_every_value_is_blue.sql",
		"select count(*) from {{ .Relation }} where {{ .Column }} != 'blue'")
	write("/project/packages/test_utils/macros/test_type_one.sql",
		"select count(*) from (select 1 union all select 2) validation_errors")

	project := &manifest.Project{
		Name:       "test",
		MacroPaths: []string{"macros"},
		Dispatch: []manifest.DispatchConfig{
			{MacroNamespace: "test_utils", SearchOrder: []string{"local_utils", "test_utils"}},
		},
	}

	r := newTestRegistry(t)
	require.NoError(t, r.LoadProjectMacros(fs, "/project", project))

	local, err := r.Resolve("every_value_is_blue", "")
	require.NoError(t, err)
	assert.Equal(t, "test", local.Package)

	pkg, err := r.Resolve("type_one", "test_utils")
	require.NoError(t, err)
	assert.Equal(t, "test_utils", pkg.Package)

	sql, err := pkg.Render(RenderContext{})
	require.NoError(t, err)
	assert.True(t, strings.Contains(sql, "union all"))
}
