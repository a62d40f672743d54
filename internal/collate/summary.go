// Package collate turns a finished run into its outward artifacts: the
// console summary table and the per-plugin result directory on disk.
package collate

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/plugin"
)

// Status colors
var (
	colorOK      = lipgloss.Color("#10B981") // Green
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorError   = lipgloss.Color("#EF4444") // Red
	colorMuted   = lipgloss.Color("#9CA3AF") // Muted gray
	colorBorder  = lipgloss.Color("#374151") // Dark gray
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// statusStyle picks the cell color for an execution status.
func statusStyle(status core.ExecutionStatus) lipgloss.Style {
	switch {
	case status >= core.StatusError:
		return cellStyle.Foreground(colorError)
	case status == core.StatusWarning:
		return cellStyle.Foreground(colorWarning)
	case status == core.StatusOK:
		return cellStyle.Foreground(colorOK)
	default:
		return cellStyle.Foreground(colorMuted)
	}
}

// Summary renders the run outcome as a console table, one row per plugin
// plus a leading connection row when a remote transport was used.
type Summary struct {
	out io.Writer
}

// NewSummary builds a Summary writing to out. A nil out means stdout.
func NewSummary(out io.Writer) *Summary {
	if out == nil {
		out = os.Stdout
	}
	return &Summary{out: out}
}

// Collate implements plugin.Collator.
func (s *Summary) Collate(_ context.Context, report *plugin.RunReport) error {
	var rows [][]string
	var statuses []core.ExecutionStatus

	if report.Connection != nil {
		rows = append(rows, []string{report.Connection.Task, report.Connection.Status.String(), report.Connection.Message})
		statuses = append(statuses, report.Connection.Status)
	}
	for i := range report.Results {
		result := &report.Results[i]
		rows = append(rows, []string{result.Source, result.Status().String(), resultMessage(result)})
		statuses = append(statuses, result.Status())
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers("SOURCE", "STATUS", "MESSAGE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			if col == 1 {
				return statusStyle(statuses[row])
			}
			return cellStyle
		})

	if _, err := fmt.Fprintf(s.out, "%s %s\n%s\n", report.System.Name, report.RunID, t); err != nil {
		return err
	}
	_, err := fmt.Fprintf(s.out, "overall: %s\n", report.WorstStatus())
	return err
}

// resultMessage picks the most informative message for a plugin row. The
// analysis verdict wins over the collection summary when both exist.
func resultMessage(result *core.PluginResult) string {
	if result.AnalysisResult != nil && result.AnalysisResult.Message != "" {
		return result.AnalysisResult.Message
	}
	if result.CollectionResult != nil {
		return result.CollectionResult.Message
	}
	return ""
}
