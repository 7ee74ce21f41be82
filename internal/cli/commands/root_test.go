package commands

import (
	"strings"
	"testing"
)

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	if cmd.Use != "smelter" {
		t.Errorf("expected Use to be 'smelter', got %s", cmd.Use)
	}

	if cmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	if cmd.Long == "" {
		t.Error("expected Long description to be set")
	}

	if cmd.PersistentFlags().Lookup("no-color") == nil {
		t.Error("expected --no-color flag to be registered")
	}

	// Check subcommands are registered
	expectedCommands := []string{
		"version",
		"init",
		"generate",
		"validate",
		"graph",
		"watch",
		"status",
		"stop",
		"history",
	}

	for _, expected := range expectedCommands {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == expected {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected command %s to be registered", expected)
		}
	}
}

func TestNewVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"
	BuildDate = "2026-01-01"

	out, _, err := execute(t, NewVersionCommand(), []string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, expected := range []string{"1.0.0-test", "abc123", "2026-01-01", "go1."} {
		if !strings.Contains(out, expected) {
			t.Errorf("expected output to contain %q, got: %s", expected, out)
		}
	}
}

func TestRootCommandUnknownSubcommand(t *testing.T) {
	_, _, err := execute(t, NewRootCommand(), []string{"smelt"})

	if err == nil {
		t.Fatal("expected error for unknown subcommand, got nil")
	}
	if !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("expected 'unknown command' error, got: %v", err)
	}
}
