package commands

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/smelter-dev/smelter/internal/cli/config"
)

//go:embed templates/*
var templatesFS embed.FS

var (
	initProject  string
	initSources  []string
	initOutput   string
	initHistory  bool
	initDefaults bool
)

// validateProjectName keeps scaffold input out of path-trickery territory.
func validateProjectName(name string) error {
	name = strings.TrimSpace(name)

	if len(name) == 0 || len(name) > 100 {
		return fmt.Errorf("project name must be 1-100 characters")
	}
	if filepath.IsAbs(name) {
		return fmt.Errorf("project name cannot be an absolute path")
	}
	matched, _ := regexp.MatchString(`^[a-zA-Z0-9_-]+$`, name)
	if !matched {
		return fmt.Errorf("project name can only contain letters, numbers, dashes, and underscores")
	}
	return nil
}

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Scaffold a smelter project",
		Long: `Create smelter.yaml plus the schema source and output directories in
the given directory (default: the current one).

Prompts for the project name, source directories, and output directory.
Use --defaults to accept every default without prompting.`,
		Example: `  # Interactive setup in the current directory
  smelter init

  # Non-interactive setup with defaults
  smelter init --defaults

  # Scripted setup
  smelter init --defaults --project payments --sources manifests --output contracts`,
		RunE: runInit,
	}

	cmd.Flags().StringVar(&initProject, "project", "", "Project name (default: the directory name)")
	cmd.Flags().StringSliceVar(&initSources, "sources", []string{"crds"}, "Schema source directories")
	cmd.Flags().StringVar(&initOutput, "output", "generated", "Output directory for the Nickel package")
	cmd.Flags().BoolVar(&initHistory, "history", false, "Record run history in .smelter/history.db")
	cmd.Flags().BoolVarP(&initDefaults, "defaults", "y", false, "Accept defaults without prompting")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	successColor := color.New(color.FgGreen, color.Bold)
	infoColor := color.New(color.FgCyan)
	promptColor := color.New(color.FgYellow)

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if config.InProject(dir) {
		return fmt.Errorf("smelter.yaml already exists in %s", dir)
	}

	project := initProject
	if project == "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		project = filepath.Base(abs)
	}
	sources := initSources
	output := initOutput
	enableHistory := initHistory

	if !initDefaults {
		questions := []*survey.Question{
			{
				Name: "project",
				Prompt: &survey.Input{
					Message: "Project name:",
					Default: project,
				},
				Validate: survey.Required,
			},
			{
				Name: "sources",
				Prompt: &survey.Input{
					Message: "Schema source directories (comma-separated):",
					Default: strings.Join(sources, ","),
				},
				Validate: survey.Required,
			},
			{
				Name: "output",
				Prompt: &survey.Input{
					Message: "Output directory:",
					Default: output,
				},
				Validate: survey.Required,
			},
		}

		answers := struct {
			Project string
			Sources string
			Output  string
		}{}
		if err := survey.Ask(questions, &answers); err != nil {
			return err
		}
		project = answers.Project
		sources = splitList(answers.Sources)
		output = answers.Output

		historyPrompt := &survey.Confirm{
			Message: "Record run history in .smelter/history.db?",
			Default: enableHistory,
		}
		if err := survey.AskOne(historyPrompt, &enableHistory); err != nil {
			return err
		}
	}

	if err := validateProjectName(project); err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("at least one source directory is required")
	}

	infoColor.Fprintf(cmd.OutOrStdout(), "Initializing project: %s\n\n", project)

	// Source directories, with a starter CRD in the first one we create.
	var seeded string
	for i, src := range sources {
		full := filepath.Join(dir, src)
		if _, err := os.Stat(full); err == nil {
			continue
		}
		if err := os.MkdirAll(full, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", full, err)
		}
		infoColor.Fprintf(cmd.OutOrStdout(), "  ✓ Created %s/\n", src)
		if i == 0 {
			seeded = full
		}
	}
	if seeded != "" {
		sample, err := templatesFS.ReadFile("templates/example-crd.yaml.tmpl")
		if err != nil {
			return fmt.Errorf("failed to read starter template: %w", err)
		}
		samplePath := filepath.Join(seeded, "example-crd.yaml")
		if err := os.WriteFile(samplePath, sample, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", samplePath, err)
		}
		infoColor.Fprintf(cmd.OutOrStdout(), "  ✓ Created %s\n", filepath.Join(sources[0], "example-crd.yaml"))
	}

	if err := os.MkdirAll(filepath.Join(dir, output), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	infoColor.Fprintf(cmd.OutOrStdout(), "  ✓ Created %s/\n", output)

	if err := writeProjectConfig(dir, project, sources, output, enableHistory); err != nil {
		return err
	}
	infoColor.Fprintln(cmd.OutOrStdout(), "  ✓ Created smelter.yaml")

	// The daemon drops its state under .smelter; keep it out of version
	// control when the project has a .gitignore story.
	gitignore := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(gitignore); os.IsNotExist(err) {
		if err := os.WriteFile(gitignore, []byte(".smelter/\n"), 0o644); err != nil {
			return fmt.Errorf("failed to write .gitignore: %w", err)
		}
		infoColor.Fprintln(cmd.OutOrStdout(), "  ✓ Created .gitignore")
	}

	fmt.Fprintln(cmd.OutOrStdout())
	successColor.Fprintf(cmd.OutOrStdout(), "✓ Initialized project: %s\n\n", project)

	promptColor.Fprintln(cmd.OutOrStdout(), "Get started:")
	if dir != "." {
		fmt.Fprintf(cmd.OutOrStdout(), "  cd %s\n", dir)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  smelter generate\n")
	fmt.Fprintf(cmd.OutOrStdout(), "  smelter watch\n")

	return nil
}

func writeProjectConfig(dir, project string, sources []string, output string, enableHistory bool) error {
	raw, err := templatesFS.ReadFile("templates/smelter.yaml.tmpl")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}
	tmpl, err := template.New("smelter.yaml").Parse(string(raw))
	if err != nil {
		return fmt.Errorf("failed to parse config template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, struct {
		Project        string
		Sources        []string
		Output         string
		HistoryEnabled bool
	}{
		Project:        project,
		Sources:        sources,
		Output:         output,
		HistoryEnabled: enableHistory,
	})
	if err != nil {
		return fmt.Errorf("failed to render config template: %w", err)
	}

	path := filepath.Join(dir, "smelter.yaml")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
