package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/smelter-dev/smelter/internal/cli/config"
	"github.com/smelter-dev/smelter/internal/cli/ui"
	"github.com/smelter-dev/smelter/internal/pipeline"
)

var (
	generateOutput  string
	generateProject string
	generateEmitIR  string
	generateFormat  string
)

// NewGenerateCommand creates the generate command
func NewGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [sources...]",
		Short: "Compile schema sources into Nickel contracts",
		Long: `Compile CustomResourceDefinitions and OpenAPI documents into a Nickel
package under the output directory.

Sources default to the ones configured in smelter.yaml; positional
arguments override them. Each source may be a file, a directory
(searched recursively for manifests), or a glob pattern.`,
		Example: `  # Generate from the configured sources
  smelter generate

  # Generate from explicit files and directories
  smelter generate crds/ extra/widget.yaml

  # Dump the intermediate representation for debugging
  smelter generate --emit-ir ir.json

  # Print the generated files as JSON instead of writing them
  smelter generate --format json`,
		RunE: runGenerate,
	}

	cmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Output directory (default: from smelter.yaml)")
	cmd.Flags().StringVar(&generateProject, "project", "", "Package name for the generated manifest")
	cmd.Flags().StringVar(&generateEmitIR, "emit-ir", "", "Write the intermediate representation as JSON to this path (\"-\" for stdout)")
	cmd.Flags().StringVar(&generateFormat, "format", "nickel", "Output format: nickel writes files, json prints the run to stdout")

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if generateFormat != "nickel" && generateFormat != "json" {
		return fmt.Errorf("unknown format %q (expected nickel or json)", generateFormat)
	}

	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	project := cfg.Project
	if generateProject != "" {
		project = generateProject
	}
	output := cfg.Output
	if generateOutput != "" {
		output = generateOutput
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

	pipe := pipeline.New(pipeline.WithProject(project))

	if generateEmitIR != "" {
		if err := emitIR(cmd.OutOrStdout(), pipe, paths, generateEmitIR); err != nil {
			return err
		}
	}

	spinner := ui.NewSpinner(cmd.ErrOrStderr(), fmt.Sprintf("compiling %d source file(s)", len(paths)), noColor)
	if generateFormat == "nickel" {
		spinner.Start()
	}
	summary, err := pipe.Run(cmd.Context(), paths...)
	spinner.Stop()
	if err != nil {
		return err
	}

	if generateFormat == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	}

	ui.RenderIssues(cmd.ErrOrStderr(), summary.Issues, noColor)
	if err := pipeline.WriteFiles(output, summary.Files); err != nil {
		return err
	}
	ui.RenderSummary(cmd.OutOrStdout(), summary, noColor)

	if summary.Failed > 0 || summary.Issues.HasErrors() {
		return fmt.Errorf("generation finished with %d error(s)", summary.Issues.ErrorCount())
	}
	return nil
}

func emitIR(w io.Writer, pipe *pipeline.Pipeline, paths []string, dest string) error {
	input, _, err := pipe.Analyze(paths...)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode IR: %w", err)
	}
	data = append(data, '\n')

	if dest == "-" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("failed to write IR: %w", err)
	}
	return nil
}
