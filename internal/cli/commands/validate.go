package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smelter-dev/smelter/internal/cli/config"
	"github.com/smelter-dev/smelter/internal/cli/ui"
	"github.com/smelter-dev/smelter/internal/pipeline"
	"github.com/smelter-dev/smelter/schema/diag"
)

var validateJSON bool

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [sources...]",
		Short: "Check schema sources without writing output",
		Long: `Run the full compilation in memory and report every issue the
generate command would hit: malformed schemas, unknown references,
duplicate definitions, unsupported constructs, dependency cycles.

Nothing is written to disk. Exits nonzero when any error is found.`,
		Example: `  # Validate the configured sources
  smelter validate

  # Validate explicit files
  smelter validate crds/widget.yaml

  # Machine-readable issue list
  smelter validate --json`,
		RunE: runValidate,
	}

	cmd.Flags().BoolVar(&validateJSON, "json", false, "Output issues in JSON format")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	sources := cfg.Sources
	if len(args) > 0 {
		sources = args
	}

	paths, err := pipeline.DiscoverSources(sources)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no schema sources found")
	}

	summary, err := pipeline.New(pipeline.WithProject(cfg.Project)).Run(cmd.Context(), paths...)
	if err != nil {
		return err
	}

	if validateJSON {
		out := struct {
			Valid    bool         `json:"valid"`
			Errors   int          `json:"errors"`
			Warnings int          `json:"warnings"`
			Issues   []diag.Issue `json:"issues"`
		}{
			Valid:    !summary.Issues.HasErrors(),
			Errors:   summary.Issues.ErrorCount(),
			Warnings: summary.Issues.WarningCount(),
			Issues:   summary.Issues.Issues,
		}
		if out.Issues == nil {
			out.Issues = []diag.Issue{}
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(out); err != nil {
			return err
		}
	} else {
		ui.RenderIssues(cmd.OutOrStdout(), summary.Issues, noColor)
		if summary.Issues.HasErrors() {
			ui.WriteError(cmd.OutOrStdout(), fmt.Sprintf("%d error(s), %d warning(s) in %d module(s)",
				summary.Issues.ErrorCount(), summary.Issues.WarningCount(), summary.Modules), noColor)
		} else {
			ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("%d module(s) valid, %d warning(s)",
				summary.Modules, summary.Issues.WarningCount()), noColor)
		}
	}

	if summary.Issues.HasErrors() {
		return fmt.Errorf("validation failed")
	}
	return nil
}
