// Package daemon runs the long-lived regeneration service: a debounced
// watcher over the schema sources, an HTTP control surface with metrics,
// a local JSON-RPC socket, and a WebSocket hub that tells subscribers
// when a run lands.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/smelter-dev/smelter/internal/cache"
	"github.com/smelter-dev/smelter/internal/history"
	"github.com/smelter-dev/smelter/internal/pipeline"
)

// Config carries the daemon's runtime settings.
type Config struct {
	Project    string
	Sources    []string
	Output     string
	Debounce   time.Duration
	Extensions []string
	Host       string
	Port       int
	SocketPath string
	TokenHash  string
	JWTSecret  string
}

// Daemon watches schema sources and regenerates output when they change.
type Daemon struct {
	cfg      Config
	logger   *zap.Logger
	pipe     *pipeline.Pipeline
	store    cache.Store
	tracker  *cache.Tracker
	metrics  *Metrics
	hub      *Hub
	verifier *Verifier

	runCh  chan runRequest
	stopFn context.CancelFunc

	mu         sync.RWMutex
	startedAt  time.Time
	ready      bool
	runs       int
	failedRuns int
	lastRun    *pipeline.Summary
}

type runRequest struct {
	trigger string
	force   bool
}

// Option configures the daemon.
type Option func(*Daemon)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Daemon) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithPipeline sets the pipeline used for runs.
func WithPipeline(p *pipeline.Pipeline) Option {
	return func(d *Daemon) {
		if p != nil {
			d.pipe = p
		}
	}
}

// WithCache enables incremental fingerprint tracking through the store.
func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(d *Daemon) {
		d.store = store
		d.tracker = cache.NewTracker(store, ttl)
	}
}

// New creates a daemon from the given configuration.
func New(cfg Config, opts ...Option) *Daemon {
	d := &Daemon{
		cfg:     cfg,
		logger:  zap.NewNop(),
		metrics: NewMetrics(),
		runCh:   make(chan runRequest, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.pipe == nil {
		d.pipe = pipeline.New(pipeline.WithProject(cfg.Project), pipeline.WithLogger(d.logger))
	}
	d.hub = NewHub(d.logger)
	d.verifier = NewVerifier(cfg.TokenHash, cfg.JWTSecret)
	return d
}

// Run starts the daemon and blocks until the context is canceled, a
// shutdown is requested, or the control server fails.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.stopFn = cancel

	d.mu.Lock()
	d.startedAt = time.Now().UTC()
	d.mu.Unlock()

	// First run on startup, so a fresh daemon always has current output.
	d.execute(ctx, history.TriggerDaemon, true)
	d.setReady(true)

	watcher, err := NewWatcher(d.cfg.Sources, d.cfg.Extensions, d.cfg.Debounce, d.logger, func(files []string) {
		d.logger.Info("sources changed", zap.Int("files", len(files)))
		d.Regenerate(history.TriggerWatch, false)
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Stop()

	server := &http.Server{
		Addr:              net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port)),
		Handler:           d.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		d.logger.Info("control server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("control server failed: %w", err)
		}
	}()

	var rpc *RPCServer
	if d.cfg.SocketPath != "" {
		rpc, err = d.serveRPC(ctx)
		if err != nil {
			return fmt.Errorf("failed to open control socket: %w", err)
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case sig := <-quit:
			d.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
			break loop
		case err := <-errCh:
			runErr = err
			break loop
		case req := <-d.runCh:
			d.execute(ctx, req.trigger, req.force)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("control server shutdown failed", zap.Error(err))
	}
	if rpc != nil {
		if err := rpc.Close(); err != nil {
			d.logger.Warn("control socket close failed", zap.Error(err))
		}
	}
	d.hub.Close()
	d.logger.Info("daemon stopped")
	return runErr
}

// Regenerate queues a pipeline run. When force is true the fingerprint
// check is bypassed. A queued request absorbs later ones until it starts;
// force survives the merge.
func (d *Daemon) Regenerate(trigger string, force bool) {
	req := runRequest{trigger: trigger, force: force}
	for {
		select {
		case d.runCh <- req:
			return
		default:
		}
		select {
		case old := <-d.runCh:
			req.force = req.force || old.force
		default:
		}
	}
}

// Shutdown asks a running daemon to stop.
func (d *Daemon) Shutdown() {
	if d.stopFn != nil {
		d.stopFn()
	}
}

// Ready reports whether the initial run has completed.
func (d *Daemon) Ready() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ready
}

func (d *Daemon) setReady(ready bool) {
	d.mu.Lock()
	d.ready = ready
	d.mu.Unlock()
}

// execute performs one regeneration attempt end to end.
func (d *Daemon) execute(ctx context.Context, trigger string, force bool) {
	sources, err := pipeline.DiscoverSources(d.cfg.Sources)
	if err != nil {
		d.failRun(fmt.Errorf("source discovery failed: %w", err))
		return
	}
	d.metrics.SetFilesWatched(len(sources))

	fingerprints, err := cache.FingerprintFiles(sources)
	if err != nil {
		d.failRun(fmt.Errorf("fingerprinting failed: %w", err))
		return
	}

	if !force && d.tracker != nil {
		changed, err := d.tracker.Changed(ctx, fingerprints)
		if err != nil {
			d.logger.Warn("fingerprint lookup failed", zap.Error(err))
		} else if !changed {
			d.logger.Debug("sources unchanged, skipping run")
			return
		}
	}

	summary, err := d.pipe.RunAs(ctx, trigger, sources...)
	if err != nil {
		d.failRun(fmt.Errorf("run failed: %w", err))
		return
	}

	if err := pipeline.WriteFiles(d.cfg.Output, summary.Files); err != nil {
		d.logger.Error("failed to write output", zap.Error(err))
		d.noteRun(summary, true)
		d.metrics.ObserveRun(summary.Duration, true)
		d.hub.NotifyRunFailed(summary.ExecutionID, err.Error())
		return
	}

	if d.tracker != nil {
		if err := d.tracker.Commit(ctx, fingerprints); err != nil {
			d.logger.Warn("failed to commit fingerprints", zap.Error(err))
		}
		d.metrics.SetCacheSize(len(fingerprints))
	}

	failed := summary.Failed > 0
	d.noteRun(summary, failed)
	d.metrics.ObserveRun(summary.Duration, failed)
	d.hub.NotifyRunCompleted(summary)
	d.logger.Info("run completed",
		zap.String("execution_id", summary.ExecutionID),
		zap.Int("generated", summary.Generated),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration))
}

// failRun records a run that never reached the pipeline.
func (d *Daemon) failRun(err error) {
	d.logger.Error("run aborted", zap.Error(err))
	d.noteRun(nil, true)
	d.metrics.ObserveRun(0, true)
	d.hub.NotifyRunFailed("", err.Error())
}

func (d *Daemon) noteRun(summary *pipeline.Summary, failed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.runs++
	if failed {
		d.failedRuns++
	}
	if summary != nil {
		d.lastRun = summary
	}
}

// Status is the daemon state reported by /health and daemon/status.
type Status struct {
	Status        string   `json:"status"`
	UptimeSeconds float64  `json:"uptime_seconds"`
	Runs          int      `json:"runs"`
	FailedRuns    int      `json:"failed_runs"`
	Subscribers   int      `json:"subscribers"`
	LastRun       *LastRun `json:"last_run,omitempty"`
}

// LastRun summarizes the most recent completed run.
type LastRun struct {
	ExecutionID string    `json:"execution_id"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
	Modules     int       `json:"modules"`
	Generated   int       `json:"generated"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	Errors      int       `json:"errors"`
	Warnings    int       `json:"warnings"`
}

// CurrentStatus snapshots the daemon state.
func (d *Daemon) CurrentStatus() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Status:        "ok",
		UptimeSeconds: time.Since(d.startedAt).Seconds(),
		Runs:          d.runs,
		FailedRuns:    d.failedRuns,
		Subscribers:   d.hub.ConnectionCount(),
	}
	if d.lastRun != nil {
		status.LastRun = &LastRun{
			ExecutionID: d.lastRun.ExecutionID,
			StartedAt:   d.lastRun.StartedAt,
			DurationMS:  d.lastRun.Duration.Milliseconds(),
			Modules:     d.lastRun.Modules,
			Generated:   d.lastRun.Generated,
			Failed:      d.lastRun.Failed,
			Skipped:     d.lastRun.Skipped,
			Errors:      d.lastRun.Issues.ErrorCount(),
			Warnings:    d.lastRun.Issues.WarningCount(),
		}
	}
	return status
}
