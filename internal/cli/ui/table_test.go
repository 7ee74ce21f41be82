package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestTableRender(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	table := NewTable(&buf, true, "STARTED", "MODULES", "TRIGGER")
	table.AddRow("2025-03-14 10:30", "12", "cli")
	table.AddRow("2025-03-14 10:31", "3", "watch")
	table.Render()

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, separator, and two rows, got %d lines:\n%s", len(lines), out)
	}

	if !strings.HasPrefix(lines[0], "STARTED") {
		t.Errorf("expected header line, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "─") {
		t.Errorf("expected separator line, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "cli") || !strings.Contains(lines[3], "watch") {
		t.Errorf("expected row content, got %q and %q", lines[2], lines[3])
	}
}

func TestTableColumnAlignment(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	table := NewTable(&buf, true, "A", "B")
	table.AddRow("longer-cell", "x")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	// The header cell pads out to the widest row cell.
	if !strings.HasPrefix(lines[0], "A          ") {
		t.Errorf("expected padded header, got %q", lines[0])
	}
}

func TestTableRenderEmptyHeaders(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, true)
	table.AddRow("ignored")
	table.Render()

	if buf.Len() != 0 {
		t.Errorf("expected no output for a table without headers, got %q", buf.String())
	}
}

func TestKeyValueTableRender(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	table := NewKeyValueTable(&buf, true)
	table.AddRow("status", "watching")
	table.AddRow("files", "42")
	table.Render()

	out := buf.String()
	if !strings.Contains(out, "status:") {
		t.Errorf("expected key with colon, got %q", out)
	}
	if !strings.Contains(out, "watching") || !strings.Contains(out, "42") {
		t.Errorf("expected values, got %q", out)
	}

	// Keys pad to a common width, so values start in the same column.
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if strings.Index(lines[0], "watching") != strings.Index(lines[1], "42") {
		t.Errorf("expected aligned values, got:\n%s", out)
	}
}

func TestKeyValueTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewKeyValueTable(&buf, true).Render()

	if buf.Len() != 0 {
		t.Errorf("expected no output for an empty table, got %q", buf.String())
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 4); got != "ab  " {
		t.Errorf("padRight(ab, 4) = %q", got)
	}
	if got := padRight("abcd", 2); got != "abcd" {
		t.Errorf("padRight(abcd, 2) = %q", got)
	}
}
