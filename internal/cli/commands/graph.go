package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smelter-dev/smelter/internal/cli/config"
	"github.com/smelter-dev/smelter/internal/cli/ui"
	"github.com/smelter-dev/smelter/internal/pipeline"
	"github.com/smelter-dev/smelter/schema/graph"
	"github.com/smelter-dev/smelter/schema/registry"
)

var (
	graphCycles bool
	graphJSON   bool
)

// NewGraphCommand creates the graph command
func NewGraphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph [sources...]",
		Short: "Show the module dependency graph",
		Long: `Analyze the sources and print the modules in topological order, each
with the modules it depends on.

With --cycles, print each dependency cycle's member set instead and
exit nonzero when any cycle exists.`,
		Example: `  # Topological order of the configured sources
  smelter graph

  # List dependency cycles
  smelter graph --cycles

  # Machine-readable order and edge list
  smelter graph --json`,
		RunE: runGraph,
	}

	cmd.Flags().BoolVar(&graphCycles, "cycles", false, "Report dependency cycles instead of the order")
	cmd.Flags().BoolVar(&graphJSON, "json", false, "Output in JSON format")

	return cmd
}

func runGraph(cmd *cobra.Command, args []string) error {
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

	input, _, err := pipeline.New(pipeline.WithProject(cfg.Project)).Analyze(paths...)
	if err != nil {
		return err
	}
	g := registry.FromIR(input).Graph()

	if graphCycles {
		return reportCycles(cmd, g)
	}
	return reportOrder(cmd, g)
}

func reportCycles(cmd *cobra.Command, g *graph.Graph) error {
	cycles := g.DetectCycles()

	if graphJSON {
		out := struct {
			Cycles [][]string `json:"cycles"`
		}{Cycles: cycles}
		if out.Cycles == nil {
			out.Cycles = [][]string{}
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(out); err != nil {
			return err
		}
	} else if len(cycles) == 0 {
		ui.WriteSuccess(cmd.OutOrStdout(), "no dependency cycles", noColor)
	} else {
		for i, members := range cycles {
			fmt.Fprintf(cmd.OutOrStdout(), "cycle %d: %s\n", i+1, strings.Join(members, ", "))
		}
	}

	if len(cycles) > 0 {
		return fmt.Errorf("%d dependency cycle(s) found", len(cycles))
	}
	return nil
}

func reportOrder(cmd *cobra.Command, g *graph.Graph) error {
	order, err := g.TopologicalSort()
	if err != nil {
		return fmt.Errorf("%w (run 'smelter graph --cycles' to see the members)", err)
	}

	if graphJSON {
		out := struct {
			Order []string     `json:"order"`
			Edges []graph.Edge `json:"edges"`
		}{Order: order, Edges: g.Edges()}
		if out.Edges == nil {
			out.Edges = []graph.Edge{}
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}

	for _, name := range order {
		deps := g.Dependencies(name)
		if len(deps) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), name)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (depends on %s)\n", name, strings.Join(deps, ", "))
	}
	return nil
}
