// Package ui renders diagnostics, run summaries, and tabular output for
// the command line.
package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/smelter-dev/smelter/internal/pipeline"
	"github.com/smelter-dev/smelter/schema/diag"
)

func severityColor(s diag.Severity) *color.Color {
	switch s {
	case diag.Error:
		return color.New(color.FgRed)
	case diag.Warning:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}

func severitySymbol(s diag.Severity) string {
	switch s {
	case diag.Error:
		return "❌"
	case diag.Warning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}

// RenderIssue writes one diagnostic line plus its remediation hint.
func RenderIssue(w io.Writer, issue diag.Issue, noColor bool) {
	line := severityColor(issue.Severity)
	if noColor {
		line.DisableColor()
	}
	line.Fprintf(w, "%s %s\n", severitySymbol(issue.Severity), issue)

	if issue.Suggestion != "" {
		cyan := color.New(color.FgCyan)
		if noColor {
			cyan.DisableColor()
		}
		cyan.Fprintf(w, "   → %s\n", issue.Suggestion)
	}
}

// RenderIssues writes every issue in the result, most severe first.
func RenderIssues(w io.Writer, result diag.Result, noColor bool) {
	for _, issue := range result.Errors() {
		RenderIssue(w, issue, noColor)
	}
	for _, issue := range result.Warnings() {
		RenderIssue(w, issue, noColor)
	}
	for _, issue := range result.Infos() {
		RenderIssue(w, issue, noColor)
	}
}

// RenderSummary writes the run outcome line below the diagnostics.
func RenderSummary(w io.Writer, summary *pipeline.Summary, noColor bool) {
	duration := summary.Duration.Round(time.Millisecond)

	if summary.Failed == 0 && summary.Skipped == 0 {
		green := color.New(color.FgGreen, color.Bold)
		if noColor {
			green.DisableColor()
		}
		green.Fprintf(w, "✓ %d of %d modules generated", summary.Generated, summary.Modules)
		fmt.Fprintf(w, " (%d files, %s)\n", len(summary.Files), duration)
		return
	}

	red := color.New(color.FgRed, color.Bold)
	if noColor {
		red.DisableColor()
	}
	red.Fprintf(w, "❌ %d of %d modules generated", summary.Generated, summary.Modules)
	fmt.Fprintf(w, " (%d failed, %d skipped, %s)\n", summary.Failed, summary.Skipped, duration)
}

// WriteSuccess writes a green confirmation line.
func WriteSuccess(w io.Writer, message string, noColor bool) {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	green.Fprintf(w, "✓ %s\n", message)
}

// WriteError writes a red failure line.
func WriteError(w io.Writer, message string, noColor bool) {
	red := color.New(color.FgRed, color.Bold)
	if noColor {
		red.DisableColor()
	}
	red.Fprintf(w, "❌ %s\n", message)
}
