package commands

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/smelter-dev/smelter/internal/history"
)

// scaffoldHistoryProject writes a project config with history enabled and
// seeds the SQLite store with the given records.
func scaffoldHistoryProject(t *testing.T, dir string, records []history.Record) {
	t.Helper()

	configContent := "project: acme\nsources:\n  - crds\noutput: generated\nhistory:\n  enabled: true\n"
	if err := os.WriteFile(dir+"/smelter.yaml", []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write smelter.yaml: %v", err)
	}

	store, err := history.OpenSQLite(dir + "/" + history.DefaultPath)
	if err != nil {
		t.Fatalf("failed to open history store: %v", err)
	}
	defer store.Close()
	for _, rec := range records {
		if err := store.Append(context.Background(), rec); err != nil {
			t.Fatalf("failed to seed history: %v", err)
		}
	}
}

func TestNewHistoryCommand(t *testing.T) {
	cmd := NewHistoryCommand()

	if cmd.Use != "history" {
		t.Errorf("expected Use to be 'history', got %s", cmd.Use)
	}

	if cmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	limit := cmd.Flags().Lookup("limit")
	if limit == nil {
		t.Fatal("expected --limit flag to be registered")
	}
	if limit.DefValue != "20" {
		t.Errorf("expected --limit default to be '20', got %s", limit.DefValue)
	}

	if cmd.Flags().Lookup("json") == nil {
		t.Error("expected --json flag to be registered")
	}
}

func TestRunHistory_Disabled(t *testing.T) {
	tmpDir := t.TempDir()
	scaffoldProject(t, tmpDir, nil)

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	_, _, err := execute(t, NewHistoryCommand(), []string{})

	if err == nil {
		t.Fatal("expected error when history is disabled, got nil")
	}
	if !strings.Contains(err.Error(), "history is disabled") {
		t.Errorf("expected 'history is disabled' error, got: %v", err)
	}
}

func TestRunHistory_Empty(t *testing.T) {
	tmpDir := t.TempDir()
	scaffoldHistoryProject(t, tmpDir, nil)

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	out, _, err := execute(t, NewHistoryCommand(), []string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No runs recorded yet.") {
		t.Errorf("expected the empty-history line, got: %s", out)
	}
}

func TestRunHistory_ListsRuns(t *testing.T) {
	tmpDir := t.TempDir()
	base := time.Now().UTC()
	scaffoldHistoryProject(t, tmpDir, []history.Record{
		{
			ExecutionID: "run-1",
			StartedAt:   base.Add(-time.Hour),
			DurationMS:  1500,
			Modules:     3,
			Generated:   3,
			Warnings:    1,
			Trigger:     history.TriggerCLI,
		},
		{
			ExecutionID: "run-2",
			StartedAt:   base,
			DurationMS:  80,
			Modules:     3,
			Generated:   2,
			Failed:      1,
			Errors:      2,
			Trigger:     history.TriggerWatch,
		},
	})

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	out, _, err := execute(t, NewHistoryCommand(), []string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(out, "TRIGGER") {
		t.Errorf("expected the table header, got: %s", out)
	}
	if !strings.Contains(out, "watch") || !strings.Contains(out, "cli") {
		t.Errorf("expected both triggers in the output, got: %s", out)
	}
	if !strings.Contains(out, "0E 1W") {
		t.Errorf("expected the issue counts column, got: %s", out)
	}
	if !strings.Contains(out, "1.5s") {
		t.Errorf("expected the formatted duration, got: %s", out)
	}

	// Newest first.
	if strings.Index(out, "watch") > strings.Index(out, "cli") {
		t.Errorf("expected the watch run before the cli run, got: %s", out)
	}
}

func TestRunHistory_JSON(t *testing.T) {
	tmpDir := t.TempDir()
	scaffoldHistoryProject(t, tmpDir, []history.Record{
		{
			ExecutionID: "run-1",
			StartedAt:   time.Now().UTC(),
			DurationMS:  250,
			Modules:     1,
			Generated:   1,
			Trigger:     history.TriggerDaemon,
		},
	})

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	out, _, err := execute(t, NewHistoryCommand(), []string{"--json"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var records []history.Record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].ExecutionID != "run-1" {
		t.Errorf("expected execution ID run-1, got %s", records[0].ExecutionID)
	}
	if records[0].Trigger != history.TriggerDaemon {
		t.Errorf("expected trigger daemon, got %s", records[0].Trigger)
	}
}

func TestRunHistory_LimitFlag(t *testing.T) {
	tmpDir := t.TempDir()
	base := time.Now().UTC()
	records := make([]history.Record, 3)
	for i := range records {
		records[i] = history.Record{
			ExecutionID: "run",
			StartedAt:   base.Add(time.Duration(i) * time.Minute),
			Modules:     1,
			Generated:   1,
			Trigger:     history.TriggerCLI,
		}
	}
	scaffoldHistoryProject(t, tmpDir, records)

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	out, _, err := execute(t, NewHistoryCommand(), []string{"--json", "-n", "2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed []history.Record
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}
	if len(parsed) != 2 {
		t.Errorf("expected 2 records, got %d", len(parsed))
	}
}
