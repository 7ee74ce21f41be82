package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smelter-dev/smelter/internal/history"
	"github.com/smelter-dev/smelter/schema/diag"
)

const widgetCRD = `apiVersion: apiextensions.k8s.io/v1
kind: CustomResourceDefinition
metadata:
  name: widgets.example.com
spec:
  group: example.com
  names:
    kind: Widget
    plural: widgets
  scope: Namespaced
  versions:
    - name: v1
      served: true
      storage: true
      schema:
        openAPIV3Schema:
          type: object
          description: Widget configures one widget.
          properties:
            spec:
              type: object
              properties:
                replicas:
                  type: integer
                  minimum: 1
                paused:
                  type: boolean
              required:
                - replicas
`

const danglingRefCRD = `apiVersion: apiextensions.k8s.io/v1
kind: CustomResourceDefinition
metadata:
  name: brokens.broken.example.com
spec:
  group: broken.example.com
  names:
    kind: Broken
    plural: brokens
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
                part:
                  $ref: "#/definitions/MissingPart"
`

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

func writeManifest(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type fakeStore struct {
	records []history.Record
	err     error
}

func (f *fakeStore) Append(_ context.Context, rec history.Record) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeStore) Recent(context.Context, int) ([]history.Record, error) {
	return f.records, nil
}

func (f *fakeStore) Close() error { return nil }

func filePaths(s *Summary) []string {
	paths := make([]string, 0, len(s.Files))
	for _, f := range s.Files {
		paths = append(paths, f.Path)
	}
	return paths
}

func TestRunGeneratesModule(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "widget.yaml", widgetCRD)

	summary, err := New(WithProject("acme")).Run(context.Background(), path)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.ExecutionID)
	assert.Equal(t, 1, summary.Modules)
	assert.Equal(t, 1, summary.Generated)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 0, summary.Skipped)
	assert.False(t, summary.Issues.HasErrors())

	assert.ElementsMatch(t, []string{
		"example_com/v1/widget.ncl",
		"example_com/v1/widgetspec.ncl",
		"example_com/v1/mod.ncl",
		"mod.ncl",
		"Nickel-pkg.ncl",
	}, filePaths(summary))

	byPath := make(map[string]string, len(summary.Files))
	for _, f := range summary.Files {
		byPath[f.Path] = f.Content
	}
	assert.Contains(t, byPath["mod.ncl"], "# Main module for acme")
	assert.Contains(t, byPath["Nickel-pkg.ncl"], `name = "acme"`)
	assert.Contains(t, byPath["example_com/v1/widgetspec.ncl"], "replicas")
}

func TestRunValidationFailureBlocksModule(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "broken.yaml", danglingRefCRD)

	summary, err := New().Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Modules)
	assert.Equal(t, 0, summary.Generated)
	assert.Equal(t, 1, summary.Failed)
	assert.Empty(t, summary.Files)

	var found bool
	for _, issue := range summary.Issues.Errors() {
		if issue.Code == diag.CodeUnknownReference {
			found = true
			assert.Equal(t, "broken.example.com.v1", issue.Module)
		}
	}
	assert.True(t, found, "expected an unknown-reference error")
}

func TestRunCycleFailsSubgraphOnly(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeManifest(t, dir, "alpha.yaml",
			crossRefCRD("a.example.com", "Alpha", "b.example.com.v1", "Beta")),
		writeManifest(t, dir, "beta.yaml",
			crossRefCRD("b.example.com", "Beta", "a.example.com.v1", "Alpha")),
		writeManifest(t, dir, "delta.yaml",
			crossRefCRD("d.example.com", "Delta", "a.example.com.v1", "Alpha")),
		writeManifest(t, dir, "widget.yaml", widgetCRD),
	}

	summary, err := New().Run(context.Background(), paths...)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Modules)
	assert.Equal(t, 1, summary.Generated)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 1, summary.Skipped)

	// Only the unrelated module generates; the cycle blocks the root
	// module too.
	for _, p := range filePaths(summary) {
		assert.True(t, strings.HasPrefix(p, "example_com/v1/"), p)
	}

	var cycleModules, skippedModules []string
	for _, issue := range summary.Issues.Issues {
		if issue.Code != diag.CodeCircularDependency {
			continue
		}
		if issue.IsError() {
			cycleModules = append(cycleModules, issue.Module)
		} else {
			skippedModules = append(skippedModules, issue.Module)
		}
	}
	assert.ElementsMatch(t, []string{"a.example.com.v1", "b.example.com.v1"}, cycleModules)
	assert.Equal(t, []string{"d.example.com.v1"}, skippedModules)
}

func TestRunRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "widget.yaml", widgetCRD)
	store := &fakeStore{}

	summary, err := New(WithHistory(store)).
		RunAs(context.Background(), history.TriggerWatch, path)
	require.NoError(t, err)

	require.Len(t, store.records, 1)
	rec := store.records[0]
	assert.Equal(t, summary.ExecutionID, rec.ExecutionID)
	assert.Equal(t, history.TriggerWatch, rec.Trigger)
	assert.Equal(t, 1, rec.Modules)
	assert.Equal(t, 1, rec.Generated)
	assert.Equal(t, 0, rec.Failed)
	assert.Equal(t, 0, rec.Errors)
}

func TestRunToleratesHistoryFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "widget.yaml", widgetCRD)
	store := &fakeStore{err: errors.New("connection refused")}

	summary, err := New(WithHistory(store)).Run(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Generated)
}

func TestRunEmptySources(t *testing.T) {
	summary, err := New().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Modules)
	assert.Equal(t, 0, summary.Generated)
	assert.Empty(t, summary.Files)
}

func TestRunUnreadableSource(t *testing.T) {
	_, err := New().Run(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to walk sources")
}

func TestRunCanceledContext(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "widget.yaml", widgetCRD)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Run(ctx, path)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyze(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "widget.yaml", widgetCRD)

	input, issues, err := New().Analyze(path)
	require.NoError(t, err)

	require.Len(t, input.Modules, 1)
	assert.Equal(t, "example.com.v1", input.Modules[0].Name)
	assert.True(t, input.Modules[0].HasType("Widget"))
	assert.True(t, input.Modules[0].HasType("WidgetSpec"))
	assert.False(t, issues.HasErrors())
}
