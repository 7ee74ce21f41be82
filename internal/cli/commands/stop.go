package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/smelter-dev/smelter/internal/cli/config"
	"github.com/smelter-dev/smelter/internal/cli/ui"
	"github.com/smelter-dev/smelter/internal/daemon"
)

// NewStopCommand creates the stop command
func NewStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		Long:  "Ask the watch daemon to shut down over its control socket.",
		RunE:  runStop,
	}
}

func runStop(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}

	conn, err := dialDaemon(cfg.Daemon.Socket)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	var result daemon.ControlResult
	if _, err := conn.Call(ctx, daemon.MethodShutdown, nil, &result); err != nil {
		return fmt.Errorf("shutdown call failed: %w", err)
	}

	ui.WriteSuccess(cmd.OutOrStdout(), "daemon "+result.Status, noColor)
	return nil
}
