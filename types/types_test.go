package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Severity
		wantErr bool
	}{
		{name: "empty defaults to error", input: "", want: SeverityError},
		{name: "lowercase error", input: "error", want: SeverityError},
		{name: "uppercase warn", input: "WARN", want: SeverityWarn},
		{name: "mixed case", input: "Warn", want: SeverityWarn},
		{name: "padded", input: "  warn ", want: SeverityWarn},
		{name: "invalid", input: "critical", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseSeverity(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestHasTag(t *testing.T) {
	node := TestNode{Tags: []string{"schema", "table_favorite_color"}}
	assert.True(t, node.HasTag("schema"))
	assert.True(t, node.HasTag("table_favorite_color"))
	assert.False(t, node.HasTag("xfail"))
	assert.False(t, TestNode{}.HasTag("anything"))
}

func TestNewCountResult(t *testing.T) {
	node := TestNode{Name: "not_null_table_copy_email"}

	passing := NewCountResult(node, 0, time.Second)
	assert.Equal(t, TestStatusPass, passing.Status)
	assert.Equal(t, "0", passing.Message)
	assert.False(t, passing.FailsRun())

	failing := NewCountResult(node, 3, time.Second)
	assert.Equal(t, TestStatusFail, failing.Status)
	assert.EqualValues(t, 3, failing.Failures)
	assert.Equal(t, "3", failing.Message)
	assert.True(t, failing.FailsRun())
}

func TestWarnSeverityDoesNotFailRun(t *testing.T) {
	node := TestNode{Name: "type_two_model_a_", Severity: SeverityWarn}
	result := NewCountResult(node, 5, 0)
	assert.Equal(t, TestStatusFail, result.Status)
	assert.False(t, result.FailsRun())
}

func TestNewErrorResult(t *testing.T) {
	node := TestNode{Name: "unique_table_copy_id"}
	result := NewErrorResult(node, errors.New("no such table: table_copy"), 0)
	assert.Equal(t, TestStatusError, result.Status)
	assert.Equal(t, "no such table: table_copy", result.Message)
	assert.True(t, result.FailsRun())
}
