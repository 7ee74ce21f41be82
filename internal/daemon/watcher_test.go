package daemon

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startWatcher(t *testing.T, roots []string) (*Watcher, chan []string) {
	t.Helper()
	batches := make(chan []string, 8)
	w, err := NewWatcher(roots, []string{".yaml", ".yml"}, 50*time.Millisecond, zap.NewNop(), func(files []string) {
		batches <- files
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { w.Stop() })
	return w, batches
}

func expectBatch(t *testing.T, batches chan []string) []string {
	t.Helper()
	select {
	case batch := <-batches:
		return batch
	case <-time.After(3 * time.Second):
		t.Fatal("no batch delivered")
		return nil
	}
}

func expectNoBatch(t *testing.T, batches chan []string) {
	t.Helper()
	select {
	case batch := <-batches:
		t.Fatalf("unexpected batch: %v", batch)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherReportsSettledBatch(t *testing.T) {
	dir := t.TempDir()
	_, batches := startWatcher(t, []string{dir})

	writeSource(t, dir, "notes.txt", "not a schema")
	writeSource(t, dir, "widget.yaml", widgetCRD)

	batch := expectBatch(t, batches)
	assert.Equal(t, []string{filepath.Join(dir, "widget.yaml")}, batch)
}

func TestWatcherCoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	_, batches := startWatcher(t, []string{dir})

	writeSource(t, dir, "a.yaml", "a: 1")
	writeSource(t, dir, "b.yaml", "b: 2")
	writeSource(t, dir, "a.yaml", "a: 3")

	batch := expectBatch(t, batches)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "b.yaml"),
	}, batch)
}

func TestWatcherPicksUpNewDirectories(t *testing.T) {
	dir := t.TempDir()
	_, batches := startWatcher(t, []string{dir})

	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the create event time to land before writing into the new
	// directory.
	time.Sleep(200 * time.Millisecond)

	writeSource(t, sub, "deep.yaml", "x: 1")

	batch := expectBatch(t, batches)
	assert.Contains(t, batch, filepath.Join(sub, "deep.yaml"))
}

func TestWatcherIgnoresHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	_, batches := startWatcher(t, []string{dir})

	writeSource(t, dir, ".swap.yaml", "editor: scratch")
	expectNoBatch(t, batches)
}

func TestWatcherReportsRemovals(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "widget.yaml", widgetCRD)

	_, batches := startWatcher(t, []string{dir})
	require.NoError(t, os.Remove(path))

	batch := expectBatch(t, batches)
	assert.Contains(t, batch, path)
}

func TestWatcherFileRoot(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "widget.yaml", widgetCRD)

	_, batches := startWatcher(t, []string{path})
	writeSource(t, dir, "widget.yaml", widgetCRD+"\n# touched\n")

	batch := expectBatch(t, batches)
	assert.Contains(t, batch, path)
}

func TestWatcherMissingRoot(t *testing.T) {
	w, err := NewWatcher([]string{filepath.Join(t.TempDir(), "missing")}, nil, 0, zap.NewNop(), nil)
	require.NoError(t, err)

	err = w.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot watch")
}

func TestWatcherStopIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, _ := startWatcher(t, []string{dir})

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}

func TestDebouncerCoalesces(t *testing.T) {
	var (
		mu      sync.Mutex
		batches [][]string
	)
	d := newDebouncer(30 * time.Millisecond)
	d.setCallback(func(files []string) {
		mu.Lock()
		batches = append(batches, files)
		mu.Unlock()
	})

	d.add("b.yaml")
	d.add("a.yaml")
	d.add("b.yaml")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][]string{{"a.yaml", "b.yaml"}}, batches)
}
