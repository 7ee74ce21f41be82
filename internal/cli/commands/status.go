package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.lsp.dev/jsonrpc2"

	"github.com/smelter-dev/smelter/internal/cli/config"
	"github.com/smelter-dev/smelter/internal/cli/ui"
	"github.com/smelter-dev/smelter/internal/daemon"
)

var statusJSON bool

// NewStatusCommand creates the status command
func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running daemon's state",
		Long: `Query the watch daemon over its control socket and print its state:
uptime, run counters, reload subscribers, and the last run's result.`,
		Example: `  # Human-readable state
  smelter status

  # Machine-readable state
  smelter status --json`,
		RunE: runStatus,
	}

	cmd.Flags().BoolVar(&statusJSON, "json", false, "Output the state in JSON format")

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	var status daemon.Status
	if _, err := conn.Call(ctx, daemon.MethodStatus, nil, &status); err != nil {
		return fmt.Errorf("status call failed: %w", err)
	}

	if statusJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(status)
	}

	table := ui.NewKeyValueTable(cmd.OutOrStdout(), noColor)
	table.AddRow("Status", status.Status)
	table.AddRow("Uptime", (time.Duration(status.UptimeSeconds) * time.Second).String())
	table.AddRow("Runs", strconv.Itoa(status.Runs))
	table.AddRow("Failed runs", strconv.Itoa(status.FailedRuns))
	table.AddRow("Subscribers", strconv.Itoa(status.Subscribers))
	if last := status.LastRun; last != nil {
		table.AddRow("Last run", last.StartedAt.Local().Format("2006-01-02 15:04:05"))
		table.AddRow("Last result", fmt.Sprintf("%d generated, %d failed, %d skipped in %s",
			last.Generated, last.Failed, last.Skipped,
			(time.Duration(last.DurationMS) * time.Millisecond).String()))
		table.AddRow("Last issues", fmt.Sprintf("%dE %dW", last.Errors, last.Warnings))
	}
	table.Render()
	return nil
}

// dialDaemon opens a JSON-RPC connection to the daemon's control socket.
func dialDaemon(path string) (jsonrpc2.Conn, error) {
	if path == "" {
		return nil, fmt.Errorf("daemon.socket is not configured")
	}
	netConn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("daemon is not running at %s (start it with 'smelter watch'): %w", path, err)
	}
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(netConn))
	conn.Go(context.Background(), jsonrpc2.MethodNotFoundHandler)
	return conn, nil
}
