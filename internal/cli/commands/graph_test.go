package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
)

// crossRefCRD builds a CRD whose spec references a type in another module.
func crossRefCRD(group, kind, targetModule, targetType string) string {
	plural := strings.ToLower(kind) + "s"
	return fmt.Sprintf(`apiVersion: apiextensions.k8s.io/v1
kind: CustomResourceDefinition
metadata:
  name: %s.%s
spec:
  group: %s
  names:
    kind: %s
    plural: %s
  scope: Namespaced
  versions:
    - name: v1
      served: true
      storage: true
      schema:
        openAPIV3Schema:
          type: object
          properties:
            spec:
              type: object
              properties:
                link:
                  $ref: "#/definitions/%s.%s"
`, plural, group, group, kind, plural, targetModule, targetType)
}

func TestNewGraphCommand(t *testing.T) {
	cmd := NewGraphCommand()

	if cmd.Use != "graph [sources...]" {
		t.Errorf("expected Use to be 'graph [sources...]', got %s", cmd.Use)
	}

	if cmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	if cmd.Flags().Lookup("cycles") == nil {
		t.Error("expected --cycles flag to be registered")
	}

	if cmd.Flags().Lookup("json") == nil {
		t.Error("expected --json flag to be registered")
	}
}

func TestRunGraph_Order(t *testing.T) {
	tmpDir := t.TempDir()
	scaffoldProject(t, tmpDir, map[string]string{
		"widget.yaml": widgetCRD,
		"alpha.yaml":  crossRefCRD("a.example.com", "Alpha", "example.com.v1", "Widget"),
	})

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	out, _, err := execute(t, NewGraphCommand(), []string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines of output, got %d: %q", len(lines), out)
	}

	// Dependencies come before their dependents.
	if lines[0] != "example.com.v1" {
		t.Errorf("expected example.com.v1 first, got %q", lines[0])
	}
	if lines[1] != "a.example.com.v1 (depends on example.com.v1)" {
		t.Errorf("unexpected dependent line: %q", lines[1])
	}
}

func TestRunGraph_OrderJSON(t *testing.T) {
	tmpDir := t.TempDir()
	scaffoldProject(t, tmpDir, map[string]string{
		"widget.yaml": widgetCRD,
		"alpha.yaml":  crossRefCRD("a.example.com", "Alpha", "example.com.v1", "Widget"),
	})

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	out, _, err := execute(t, NewGraphCommand(), []string{"--json"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var report struct {
		Order []string `json:"order"`
		Edges []struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"edges"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}

	if len(report.Order) != 2 || report.Order[0] != "example.com.v1" {
		t.Errorf("unexpected order: %v", report.Order)
	}
	if len(report.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(report.Edges))
	}
	if report.Edges[0].From != "a.example.com.v1" || report.Edges[0].To != "example.com.v1" {
		t.Errorf("unexpected edge: %+v", report.Edges[0])
	}
}

func TestRunGraph_OrderJSONNoEdges(t *testing.T) {
	tmpDir := t.TempDir()
	scaffoldProject(t, tmpDir, map[string]string{"widget.yaml": widgetCRD})

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	out, _, err := execute(t, NewGraphCommand(), []string{"--json"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The edges key must be a list even when empty.
	if !strings.Contains(out, `"edges": []`) {
		t.Errorf("expected an empty edges array, got: %s", out)
	}
}

func TestRunGraph_OrderFailsOnCycle(t *testing.T) {
	tmpDir := t.TempDir()
	scaffoldProject(t, tmpDir, map[string]string{
		"alpha.yaml": crossRefCRD("a.example.com", "Alpha", "b.example.com.v1", "Beta"),
		"beta.yaml":  crossRefCRD("b.example.com", "Beta", "a.example.com.v1", "Alpha"),
	})

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	_, _, err := execute(t, NewGraphCommand(), []string{})

	if err == nil {
		t.Fatal("expected error for a cyclic graph, got nil")
	}
	if !strings.Contains(err.Error(), "circular dependency detected") {
		t.Errorf("expected a circular dependency error, got: %v", err)
	}
	if !strings.Contains(err.Error(), "--cycles") {
		t.Errorf("expected a hint pointing at --cycles, got: %v", err)
	}
}

func TestRunGraph_CyclesNone(t *testing.T) {
	tmpDir := t.TempDir()
	scaffoldProject(t, tmpDir, map[string]string{"widget.yaml": widgetCRD})

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	out, _, err := execute(t, NewGraphCommand(), []string{"--cycles"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "no dependency cycles") {
		t.Errorf("expected a no-cycles line, got: %s", out)
	}
}

func TestRunGraph_CyclesFound(t *testing.T) {
	tmpDir := t.TempDir()
	scaffoldProject(t, tmpDir, map[string]string{
		"alpha.yaml": crossRefCRD("a.example.com", "Alpha", "b.example.com.v1", "Beta"),
		"beta.yaml":  crossRefCRD("b.example.com", "Beta", "a.example.com.v1", "Alpha"),
	})

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	out, _, err := execute(t, NewGraphCommand(), []string{"--cycles"})

	if err == nil {
		t.Fatal("expected error when cycles exist, got nil")
	}
	if !strings.Contains(err.Error(), "1 dependency cycle(s) found") {
		t.Errorf("expected a cycle count error, got: %v", err)
	}
	if !strings.Contains(out, "cycle 1: a.example.com.v1, b.example.com.v1") {
		t.Errorf("expected the cycle members, got: %s", out)
	}
}

func TestRunGraph_CyclesJSON(t *testing.T) {
	tmpDir := t.TempDir()
	scaffoldProject(t, tmpDir, map[string]string{
		"alpha.yaml": crossRefCRD("a.example.com", "Alpha", "b.example.com.v1", "Beta"),
		"beta.yaml":  crossRefCRD("b.example.com", "Beta", "a.example.com.v1", "Alpha"),
	})

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	out, _, err := execute(t, NewGraphCommand(), []string{"--cycles", "--json"})

	if err == nil {
		t.Fatal("expected error when cycles exist, got nil")
	}

	var report struct {
		Cycles [][]string `json:"cycles"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}
	if len(report.Cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(report.Cycles))
	}
	if len(report.Cycles[0]) != 2 {
		t.Errorf("expected 2 members in the cycle, got %v", report.Cycles[0])
	}
}
