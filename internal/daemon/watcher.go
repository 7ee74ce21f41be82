package daemon

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher monitors the configured source roots and reports settled
// batches of schema file changes.
type Watcher struct {
	watcher    *fsnotify.Watcher
	debouncer  *debouncer
	roots      []string
	extensions map[string]struct{}
	logger     *zap.Logger
	stopChan   chan struct{}
	wg         sync.WaitGroup
}

// NewWatcher creates a watcher over the given roots. A root may be a
// directory, a file, or a glob pattern. Events pass the filter when the
// file's extension is in extensions; onBatch receives each settled batch.
func NewWatcher(roots, extensions []string, debounce time.Duration, logger *zap.Logger, onBatch func([]string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}

	w := &Watcher{
		watcher:    fsw,
		debouncer:  newDebouncer(debounce),
		roots:      roots,
		extensions: exts,
		logger:     logger,
		stopChan:   make(chan struct{}),
	}
	w.debouncer.setCallback(onBatch)
	return w, nil
}

// Start registers the roots and begins delivering batches.
func (w *Watcher) Start() error {
	for _, root := range w.roots {
		if err := w.addRoot(root); err != nil {
			return err
		}
	}
	w.wg.Add(1)
	go w.watch()
	return nil
}

// Stop stops the watcher. Safe to call more than once.
func (w *Watcher) Stop() error {
	select {
	case <-w.stopChan:
		return nil
	default:
		close(w.stopChan)
	}
	err := w.watcher.Close()
	w.wg.Wait()
	w.debouncer.stop()
	return err
}

func (w *Watcher) addRoot(root string) error {
	if info, err := os.Stat(root); err == nil {
		if info.IsDir() {
			return w.addTree(root)
		}
		return w.add(filepath.Dir(root))
	}

	// Roots straight from config may be glob patterns.
	matches, err := filepath.Glob(root)
	if err != nil || len(matches) == 0 {
		return fmt.Errorf("cannot watch %s: no such file or directory", root)
	}
	for _, match := range matches {
		if err := w.addRoot(match); err != nil {
			return err
		}
	}
	return nil
}

// addTree watches root and every directory below it. fsnotify itself
// does not recurse.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if strings.HasPrefix(entry.Name(), ".") && path != root {
			return fs.SkipDir
		}
		return w.add(path)
	})
}

func (w *Watcher) add(dir string) error {
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	w.logger.Debug("watching directory", zap.String("dir", dir))
	return nil
}

func (w *Watcher) watch() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}

	// New directories join the watch set so nested manifests are seen.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", zap.String("dir", event.Name), zap.Error(err))
			}
			return
		}
	}

	// Removals and renames matter as much as writes: a deleted source
	// changes the generated set.
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !w.matches(event.Name) {
		return
	}
	w.logger.Debug("file changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
	w.debouncer.add(event.Name)
}

func (w *Watcher) matches(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	_, ok := w.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// debouncer collects changed paths and fires once they settle.
type debouncer struct {
	duration time.Duration
	timer    *time.Timer
	files    map[string]struct{}
	mutex    sync.Mutex
	callback func([]string)
}

func newDebouncer(duration time.Duration) *debouncer {
	return &debouncer{
		duration: duration,
		files:    make(map[string]struct{}),
	}
}

func (d *debouncer) setCallback(callback func([]string)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.callback = callback
}

func (d *debouncer) add(file string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.files[file] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, d.flush)
}

func (d *debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.files) == 0 {
		return
	}
	files := make([]string, 0, len(d.files))
	for file := range d.files {
		files = append(files, file)
	}
	sort.Strings(files)
	d.files = make(map[string]struct{})

	if d.callback != nil {
		d.callback(files)
	}
}

func (d *debouncer) stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
