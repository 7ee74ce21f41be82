// Package pipeline orchestrates full compilation runs: CRD sources are
// walked into IR, validated, registered, ordered by dependency, then
// resolved and emitted as Nickel files. A run never stops at the first
// problem; modules that cannot generate are reported while the rest of
// the run continues.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smelter-dev/smelter/internal/codegen/nickel"
	"github.com/smelter-dev/smelter/internal/history"
	"github.com/smelter-dev/smelter/internal/source/crd"
	"github.com/smelter-dev/smelter/schema/diag"
	"github.com/smelter-dev/smelter/schema/graph"
	"github.com/smelter-dev/smelter/schema/ir"
	"github.com/smelter-dev/smelter/schema/registry"
	"github.com/smelter-dev/smelter/schema/resolve"
)

// DefaultProject names the generated package when no project name is
// configured.
const DefaultProject = "generated"

// Pipeline runs compilations. Construct with New; a Pipeline is safe to
// reuse across runs.
type Pipeline struct {
	logger  *zap.Logger
	store   history.Store
	project string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithHistory records every run summary to the given store.
func WithHistory(store history.Store) Option {
	return func(p *Pipeline) { p.store = store }
}

// WithProject sets the project name used for the root module header and
// the package manifest.
func WithProject(name string) Option {
	return func(p *Pipeline) {
		if name != "" {
			p.project = name
		}
	}
}

// New builds a pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger:  zap.NewNop(),
		project: DefaultProject,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Summary reports one run: what was generated, what was not, and every
// issue collected along the way.
type Summary struct {
	ExecutionID string        `json:"execution_id"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Modules     int           `json:"modules"`
	Generated   int           `json:"generated"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	Files       []nickel.File `json:"files"`
	Issues      diag.Result   `json:"issues"`
}

// Analyze runs the front half of a compilation: sources to deduplicated,
// validated IR. The validate and graph commands call it directly.
func (p *Pipeline) Analyze(paths ...string) (*ir.IR, diag.Result, error) {
	input, issues, err := crd.New().WalkFiles(paths...)
	if err != nil {
		return nil, issues, fmt.Errorf("failed to walk sources: %w", err)
	}
	input.DeduplicateTypes()
	issues.Merge(ir.ValidateIR(input))
	return input, issues, nil
}

// Run compiles the given manifest paths end to end and records the run as
// CLI-triggered. The returned error covers infrastructure failures only
// (unreadable files, malformed YAML, cancellation); schema problems
// surface as issues in the summary.
func (p *Pipeline) Run(ctx context.Context, paths ...string) (*Summary, error) {
	return p.RunAs(ctx, history.TriggerCLI, paths...)
}

// RunAs is Run with an explicit trigger label for the history record.
func (p *Pipeline) RunAs(ctx context.Context, trigger string, paths ...string) (*Summary, error) {
	started := time.Now()
	summary := &Summary{
		ExecutionID: uuid.NewString(),
		StartedAt:   started.UTC(),
	}
	logger := p.logger.With(zap.String("execution_id", summary.ExecutionID))
	logger.Info("run started",
		zap.Int("sources", len(paths)),
		zap.String("trigger", trigger))

	input, issues, err := p.Analyze(paths...)
	if err != nil {
		return nil, err
	}
	summary.Issues = issues
	summary.Modules = len(input.Modules)
	logger.Info("sources walked",
		zap.Int("modules", summary.Modules),
		zap.Int("issues", summary.Issues.Len()))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reg := registry.FromIR(input)
	resolver := resolve.New(reg)
	emitter := nickel.New(reg, resolver)

	order, failed, skipped := plan(logger, reg, &summary.Issues)

	byName := make(map[string]*ir.Module, len(input.Modules))
	for _, module := range input.Modules {
		byName[module.Name] = module
	}

	for _, name := range order {
		module, ok := byName[name]
		if !ok {
			continue
		}
		if hasModuleErrors(summary.Issues, name) {
			failed[name] = true
			logger.Warn("module failed validation", zap.String("module", name))
			continue
		}
		files, err := emitter.EmitModule(module)
		if err != nil {
			failed[name] = true
			summary.Issues.Add(diag.NewError(diag.CodeWriteFailure,
				"emission failed: "+err.Error()).InModule(name))
			logger.Error("module emission failed",
				zap.String("module", name), zap.Error(err))
			continue
		}
		summary.Files = append(summary.Files, files...)
		summary.Generated++
		logger.Debug("module generated",
			zap.String("module", name), zap.Int("files", len(files)))
	}

	// The root module links every registered module, so it only goes out
	// when every module made it.
	if summary.Generated > 0 && len(failed) == 0 && len(skipped) == 0 {
		if root, ok := emitter.RootModule(p.project); ok {
			summary.Files = append(summary.Files, root)
		}
		summary.Files = append(summary.Files, nickel.DefaultManifest(p.project).File())
	}

	summary.Failed = len(failed)
	summary.Skipped = len(skipped)
	summary.Duration = time.Since(started)

	logger.Info("run finished",
		zap.Int("generated", summary.Generated),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("files", len(summary.Files)),
		zap.Duration("duration", summary.Duration))

	p.record(ctx, summary, trigger)
	return summary, nil
}

// plan decides the module emission order. Modules caught in a dependency
// cycle become terminal failures and their transitive dependents are
// skipped; the acyclic remainder falls back to registration order, which
// is safe because emission never needs a dependency generated first.
func plan(logger *zap.Logger, reg *registry.Registry, issues *diag.Result) (order []string, failed, skipped map[string]bool) {
	failed = make(map[string]bool)
	skipped = make(map[string]bool)

	g := reg.Graph()
	sorted, err := g.TopologicalSort()
	if err == nil {
		return sorted, failed, skipped
	}

	var cycle *graph.CycleError
	if !errors.As(err, &cycle) {
		issues.Add(diag.NewError(diag.CodeCircularDependency, err.Error()))
		return registrationOrder(reg, nil), failed, skipped
	}

	cycles := g.DetectCycles()
	for _, members := range cycles {
		logger.Error("dependency cycle detected", zap.Strings("modules", members))
		detail := strings.Join(members, ", ")
		for _, name := range members {
			if failed[name] {
				continue
			}
			failed[name] = true
			issues.Add(diag.NewError(diag.CodeCircularDependency,
				"module is part of a dependency cycle: "+detail).
				InModule(name).
				WithSuggestion("move the shared types into a module both sides can import"))
		}
	}

	for _, members := range cycles {
		for _, name := range members {
			for _, dependent := range g.TransitiveDependents(name) {
				if failed[dependent] || skipped[dependent] {
					continue
				}
				skipped[dependent] = true
				issues.Add(diag.NewWarning(diag.CodeCircularDependency,
					"skipped: depends on "+name+", which is caught in a dependency cycle").
					InModule(dependent))
			}
		}
	}

	exclude := func(name string) bool { return failed[name] || skipped[name] }
	return registrationOrder(reg, exclude), failed, skipped
}

// registrationOrder lists registered modules, minus exclusions, in the
// order they entered the registry.
func registrationOrder(reg *registry.Registry, exclude func(string) bool) []string {
	var order []string
	for _, info := range reg.Modules() {
		if exclude == nil || !exclude(info.Name) {
			order = append(order, info.Name)
		}
	}
	return order
}

// hasModuleErrors reports whether any Error-severity issue is attributed
// to the module.
func hasModuleErrors(result diag.Result, module string) bool {
	for _, issue := range result.Issues {
		if issue.IsError() && issue.Module == module {
			return true
		}
	}
	return false
}

// record appends the run to the history store when one is configured.
// History failures are logged, never fatal.
func (p *Pipeline) record(ctx context.Context, summary *Summary, trigger string) {
	if p.store == nil {
		return
	}
	rec := history.Record{
		ExecutionID: summary.ExecutionID,
		StartedAt:   summary.StartedAt,
		DurationMS:  summary.Duration.Milliseconds(),
		Modules:     summary.Modules,
		Generated:   summary.Generated,
		Failed:      summary.Failed,
		Errors:      summary.Issues.ErrorCount(),
		Warnings:    summary.Issues.WarningCount(),
		Trigger:     trigger,
	}
	if err := p.store.Append(ctx, rec); err != nil {
		p.logger.Warn("failed to record run history", zap.Error(err))
	}
}
