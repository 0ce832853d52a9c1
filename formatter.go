package schemaguard

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/schemaguard/schemaguard/runner"
	"github.com/schemaguard/schemaguard/types"
)

// printResultsTable renders the per-node results of a run to stdout.
func (g *Guard) printResultsTable(result *runner.RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("Schema Test Results (%s)", formatDuration(result.WallClockTime)))

	t.AppendHeader(table.Row{
		"Test", "Status", "Failures", "Severity", "Duration",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Failures", Align: text.AlignRight},
		{Name: "Duration", Align: text.AlignRight},
	})

	for _, r := range result.Results {
		t.AppendRow(table.Row{
			r.Node.Name,
			getResultString(r.Status),
			r.Message,
			r.Node.Severity,
			formatDuration(r.Duration),
		})
	}

	t.AppendFooter(table.Row{
		fmt.Sprintf("%d tests", result.Stats.Total),
		getResultString(result.Status),
		result.Stats.Failures,
		"",
		formatDuration(result.WallClockTime),
	})
	t.Render()
}

// getResultString returns a marked string representing the test result
func getResultString(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "✓ pass"
	case types.TestStatusSkip:
		return "- skip"
	case types.TestStatusError:
		return "! error"
	default:
		return "✗ fail"
	}
}

// formatDuration rounds a duration for table display.
func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
