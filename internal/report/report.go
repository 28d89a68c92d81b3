// Package report renders test runs for humans (a results table followed by
// the output of failing tests) and for machines (JSON).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/eugenenazirov/litrun/internal/runner"
	"github.com/eugenenazirov/litrun/internal/shtest"
)

// TextOptions tunes WriteText.
type TextOptions struct {
	// ShowAll lists passing tests in the table as well.
	ShowAll bool
}

// WriteText renders run as a table followed by the details of failing tests.
func WriteText(w io.Writer, run runner.Run, opts TextOptions) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("%s (run %s)", run.Suite, run.ID))
	style := table.StyleLight
	style.Format.Footer = text.FormatDefault
	t.SetStyle(style)

	t.AppendHeader(table.Row{"Status", "Test", "Duration"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", WidthMax: 120, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
	})

	for _, result := range run.Results {
		if !opts.ShowAll && !result.Status.IsFailure() {
			continue
		}
		t.AppendRow(table.Row{result.Status, result.Name, formatDuration(result.Duration)})
	}

	t.AppendFooter(table.Row{overallStatus(run), summaryLine(run.Summary), formatDuration(run.Duration)})
	t.Render()

	for _, result := range run.Results {
		if !result.Status.IsFailure() {
			continue
		}
		if err := writeFailure(w, result); err != nil {
			return err
		}
	}
	return nil
}

func writeFailure(w io.Writer, result shtest.Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n******************** TEST '%s' %s ********************\n", result.Name, result.Status)
	if result.FailedCommand != "" {
		fmt.Fprintf(&b, "Command: %s\nExit Code: %d\n", result.FailedCommand, result.ExitCode)
	}
	if result.Output != "" {
		b.WriteString(strings.TrimRight(result.Output, "\n"))
		b.WriteString("\n")
	}
	b.WriteString("********************\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON encodes run as indented JSON.
func WriteJSON(w io.Writer, run runner.Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	return nil
}

// SaveJSON writes run to path as JSON.
func SaveJSON(path string, run runner.Run) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close results file: %w", closeErr)
		}
	}()

	return WriteJSON(f, run)
}

func summaryLine(summary runner.Summary) string {
	parts := make([]string, 0, len(shtest.Statuses())+1)
	parts = append(parts, fmt.Sprintf("%d tests", summary.Total))
	for _, status := range shtest.Statuses() {
		if count := summary.Counts[status]; count > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", count, status))
		}
	}
	return strings.Join(parts, ", ")
}

func overallStatus(run runner.Run) string {
	if run.Passed() {
		return "PASS"
	}
	return "FAIL"
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
