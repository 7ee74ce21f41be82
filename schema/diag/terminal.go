package diag

import (
	"fmt"
	"strings"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// FormatForTerminal formats an issue for terminal output with ANSI colors
func (i Issue) FormatForTerminal() string {
	var sb strings.Builder

	severityColor := severityColor(i.Severity)
	sb.WriteString(fmt.Sprintf("%s%s%s [%s]: %s\n",
		colorBold+severityColor,
		titleCase(i.Severity.String()),
		colorReset,
		i.Code,
		i.Message))

	if i.Module != "" || i.TypeName != "" {
		where := i.Module
		if i.TypeName != "" {
			if where != "" {
				where += "."
			}
			where += i.TypeName
		}
		sb.WriteString(fmt.Sprintf("  %s-->%s %s\n", colorCyan, colorReset, where))
	}

	if i.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  %shelp:%s %s\n", colorCyan, colorReset, i.Suggestion))
	}

	return sb.String()
}

// FormatForTerminal renders every issue followed by a one-line summary
func (r *Result) FormatForTerminal() string {
	var sb strings.Builder
	for _, issue := range r.Issues {
		sb.WriteString(issue.FormatForTerminal())
	}

	errCount := r.ErrorCount()
	warnCount := r.WarningCount()
	switch {
	case errCount > 0:
		sb.WriteString(fmt.Sprintf("%s%s%s %d error(s), %d warning(s)\n",
			colorBold+colorRed, "failed:", colorReset, errCount, warnCount))
	case warnCount > 0:
		sb.WriteString(fmt.Sprintf("%s%s%s %d warning(s)\n",
			colorBold+colorYellow, "passed with warnings:", colorReset, warnCount))
	}
	return sb.String()
}

func severityColor(s Severity) string {
	switch s {
	case Error:
		return colorRed
	case Warning:
		return colorYellow
	default:
		return colorCyan
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
