package commands

import (
	"context"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/smelter-dev/smelter/internal/cache"
	"github.com/smelter-dev/smelter/internal/cli/config"
	"github.com/smelter-dev/smelter/internal/daemon"
	"github.com/smelter-dev/smelter/internal/pipeline"
)

var (
	watchHost    string
	watchPort    int
	watchNoCache bool
	watchVerbose bool
)

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch sources and regenerate on change",
		Long: `Run the regeneration daemon: watch the configured source directories,
recompile every settled change batch, and serve the control surface.

Endpoints:
  GET  /health      daemon state and last run
  GET  /ready       readiness probe
  GET  /metrics     Prometheus metrics
  POST /regenerate  force a run (auth required when configured)
  GET  /ws          WebSocket reload events

When daemon.socket is configured, a JSON-RPC control socket answers
daemon/status, daemon/regenerate and daemon/shutdown.`,
		Example: `  # Watch with the settings from smelter.yaml
  smelter watch

  # Bind the control server elsewhere
  smelter watch --host 0.0.0.0 --port 9000

  # Recompile every batch, even when fingerprints match
  smelter watch --no-cache`,
		RunE: runWatch,
	}

	cmd.Flags().StringVar(&watchHost, "host", "", "Bind address for the control server (default: from smelter.yaml)")
	cmd.Flags().IntVar(&watchPort, "port", 0, "Port for the control server (default: from smelter.yaml)")
	cmd.Flags().BoolVar(&watchNoCache, "no-cache", false, "Disable the incremental fingerprint cache")
	cmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "Debug-level logging")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}

	logger := newLogger(watchVerbose)
	defer logger.Sync()

	host := cfg.Daemon.Host
	if watchHost != "" {
		host = watchHost
	}
	port := cfg.Daemon.Port
	if watchPort != 0 {
		port = watchPort
	}

	pipeOpts := []pipeline.Option{
		pipeline.WithProject(cfg.Project),
		pipeline.WithLogger(logger),
	}
	if cfg.History.Enabled {
		store, err := openHistory(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		pipeOpts = append(pipeOpts, pipeline.WithHistory(store))
	}

	opts := []daemon.Option{
		daemon.WithLogger(logger),
		daemon.WithPipeline(pipeline.New(pipeOpts...)),
	}
	if !watchNoCache {
		store, err := openCache(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		opts = append(opts, daemon.WithCache(store, cfg.Cache.TTL))
	}

	d := daemon.New(daemon.Config{
		Project:    cfg.Project,
		Sources:    cfg.Sources,
		Output:     cfg.Output,
		Debounce:   cfg.Watch.Debounce,
		Extensions: cfg.Watch.Extensions,
		Host:       host,
		Port:       port,
		SocketPath: cfg.Daemon.Socket,
		TokenHash:  cfg.Daemon.AuthToken,
		JWTSecret:  cfg.Daemon.JWTSecret,
	}, opts...)

	infoColor := color.New(color.FgCyan)
	infoColor.Fprintf(cmd.OutOrStdout(), "Watching %s (control server on %s:%d)\n",
		strings.Join(cfg.Sources, ", "), host, port)

	return d.Run(cmd.Context())
}

func newLogger(verbose bool) *zap.Logger {
	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	if verbose {
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := zapCfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	if cfg.Cache.Backend == "redis" {
		return cache.OpenRedis(ctx, cfg.Cache.Redis.Addr, cfg.Cache.Redis.Password, cfg.Cache.Redis.DB, "smelter")
	}
	return cache.NewMemoryStore(), nil
}
