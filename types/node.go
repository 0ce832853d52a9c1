package types

import "slices"

// TestNode is a single executable schema test, expanded from the metadata of
// a model or source column. Its compiled SQL returns one row with one column:
// the count of rows violating the assertion.
type TestNode struct {
	// UniqueID identifies the node within a run, of the form
	// "test.<project>.<name>" with an optional 10-char hash suffix appended
	// when two nodes collide on the base id.
	UniqueID string

	// Name is the human-readable test name, e.g. "not_null_table_copy_email".
	Name string

	// TestName is the generic or custom test macro this node invokes,
	// e.g. "not_null" or "every_value_is_blue".
	TestName string

	// Namespace is the macro namespace the test was declared with.
	// Empty means the project's own macros plus the built-ins.
	Namespace string

	// Model is the name of the model under test. For source tests it is the
	// source table name.
	Model string

	// Source is the source name when the test targets a source table,
	// empty for model tests.
	Source string

	// Column is the column under test; empty for model-level tests.
	Column string

	// Args carries the remaining test arguments (e.g. accepted values,
	// relationship targets) passed through to the macro.
	Args map[string]any

	Tags     []string
	Severity Severity
	Enabled  bool

	// CompiledSQL is set once the node's template has been rendered.
	CompiledSQL string
}

// HasTag reports whether the node's tag set contains tag.
func (n TestNode) HasTag(tag string) bool {
	return slices.Contains(n.Tags, tag)
}

// IsSourceTest reports whether the node targets a source table rather than a model.
func (n TestNode) IsSourceTest() bool {
	return n.Source != ""
}
