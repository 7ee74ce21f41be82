package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/smelter-dev/smelter/internal/cli/config"
	"github.com/smelter-dev/smelter/internal/cli/ui"
	"github.com/smelter-dev/smelter/internal/history"
)

var (
	historyLimit int
	historyJSON  bool
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent generation runs",
		Long: `List the most recent generation runs from the configured history
backend, newest first.

Requires history.enabled: true in smelter.yaml.`,
		Example: `  # The last twenty runs
  smelter history

  # The last five, as JSON
  smelter history --limit 5 --json`,
		RunE: runHistory,
	}

	cmd.Flags().IntVarP(&historyLimit, "limit", "n", history.DefaultRecentLimit, "Maximum runs to list")
	cmd.Flags().BoolVar(&historyJSON, "json", false, "Output records in JSON format")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history is disabled (set history.enabled: true in smelter.yaml)")
	}

	store, err := openHistory(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	if historyJSON {
		if records == nil {
			records = []history.Record{}
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
		return nil
	}

	table := ui.NewTable(cmd.OutOrStdout(), noColor,
		"STARTED", "TRIGGER", "MODULES", "GENERATED", "FAILED", "ISSUES", "DURATION")
	for _, rec := range records {
		table.AddRow(
			rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
			rec.Trigger,
			strconv.Itoa(rec.Modules),
			strconv.Itoa(rec.Generated),
			strconv.Itoa(rec.Failed),
			fmt.Sprintf("%dE %dW", rec.Errors, rec.Warnings),
			(time.Duration(rec.DurationMS) * time.Millisecond).String(),
		)
	}
	table.Render()
	return nil
}

func openHistory(ctx context.Context, cfg *config.Config) (history.Store, error) {
	switch cfg.History.Backend {
	case "postgres":
		return history.OpenPostgres(ctx, cfg.History.DSN)
	default:
		return history.OpenSQLite(cfg.History.Path)
	}
}
