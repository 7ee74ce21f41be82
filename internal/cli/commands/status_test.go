package commands

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/smelter-dev/smelter/internal/daemon"
)

// startDaemon runs a daemon over the scaffolded project in the current
// directory and waits for its control socket to come up.
func startDaemon(t *testing.T) (*daemon.Daemon, chan error) {
	t.Helper()

	d := daemon.New(daemon.Config{
		Project:    "acme",
		Sources:    []string{"crds"},
		Output:     "generated",
		Debounce:   50 * time.Millisecond,
		Extensions: []string{".yaml", ".yml"},
		Host:       "127.0.0.1",
		Port:       0,
		SocketPath: ".smelter/daemon.sock",
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(".smelter/daemon.sock"); err == nil && d.Ready() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("daemon control socket never came up")
		}
		time.Sleep(20 * time.Millisecond)
	}
	return d, done
}

func TestNewStatusCommand(t *testing.T) {
	cmd := NewStatusCommand()

	if cmd.Use != "status" {
		t.Errorf("expected Use to be 'status', got %s", cmd.Use)
	}

	if cmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	if cmd.Flags().Lookup("json") == nil {
		t.Error("expected --json flag to be registered")
	}
}

func TestNewStopCommand(t *testing.T) {
	cmd := NewStopCommand()

	if cmd.Use != "stop" {
		t.Errorf("expected Use to be 'stop', got %s", cmd.Use)
	}

	if cmd.Short == "" {
		t.Error("expected Short description to be set")
	}
}

func TestRunStatus_DaemonNotRunning(t *testing.T) {
	tmpDir := t.TempDir()
	scaffoldProject(t, tmpDir, nil)

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	_, _, err := execute(t, NewStatusCommand(), []string{})

	if err == nil {
		t.Fatal("expected error when no daemon is running, got nil")
	}
	if !strings.Contains(err.Error(), "daemon is not running") {
		t.Errorf("expected 'daemon is not running' error, got: %v", err)
	}
}

func TestRunStatus_RunningDaemon(t *testing.T) {
	tmpDir := t.TempDir()
	scaffoldProject(t, tmpDir, map[string]string{"widget.yaml": widgetCRD})

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	startDaemon(t)

	out, _, err := execute(t, NewStatusCommand(), []string{"--json"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var status daemon.Status
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}
	if status.Status != "ok" {
		t.Errorf("expected status ok, got %s", status.Status)
	}
	if status.Runs != 1 {
		t.Errorf("expected 1 run, got %d", status.Runs)
	}
	if status.LastRun == nil || status.LastRun.Generated != 1 {
		t.Errorf("expected a last run with 1 generated module, got %+v", status.LastRun)
	}
}

func TestRunStatus_RunningDaemonTable(t *testing.T) {
	tmpDir := t.TempDir()
	scaffoldProject(t, tmpDir, map[string]string{"widget.yaml": widgetCRD})

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	startDaemon(t)

	out, _, err := execute(t, NewStatusCommand(), []string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, expected := range []string{"Status", "ok", "Runs", "Last result", "1 generated"} {
		if !strings.Contains(out, expected) {
			t.Errorf("expected output to contain %q, got: %s", expected, out)
		}
	}
}

func TestRunStop_StopsDaemon(t *testing.T) {
	tmpDir := t.TempDir()
	scaffoldProject(t, tmpDir, map[string]string{"widget.yaml": widgetCRD})

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	_, done := startDaemon(t)

	out, _, err := execute(t, NewStopCommand(), []string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "daemon stopping") {
		t.Errorf("expected a stopping line, got: %s", out)
	}

	select {
	case runErr := <-done:
		if runErr != nil {
			t.Errorf("daemon exited with error: %v", runErr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}
