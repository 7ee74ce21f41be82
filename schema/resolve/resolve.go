// Package resolve rewrites type references into the names generated code
// should emit. Resolution runs a fixed chain of strategies in order: a
// locally declared name stays as it is, a name listed by an import becomes
// alias-qualified, a whole-module import that exports the name claims it,
// and anything left over passes through untouched. Unresolvable references
// are a property of incomplete input, not an error.
package resolve

import (
	"sync"

	"github.com/smelter-dev/smelter/schema/ir"
	"github.com/smelter-dev/smelter/schema/registry"
)

// Resolution is the outcome of resolving one reference: the name to emit
// and the import that provides it. Import is nil when the name needs none,
// either because it is local or because nothing claimed it.
type Resolution struct {
	Name   string
	Import *ir.Import
}

// Strategy is one link in the resolution chain. CanResolve is a cheap
// filter on the reference text; Resolve reports false to hand the
// reference to the next strategy.
type Strategy interface {
	Name() string
	CanResolve(ref string) bool
	Resolve(ref string, module *ir.Module, reg *registry.Registry) (Resolution, bool)
}

type cacheKey struct {
	module string
	ref    string
}

// Resolver runs the strategy chain and memoizes results. The cache is
// keyed by module and reference together, since the same reference text
// can resolve differently in different modules. Safe for concurrent use.
type Resolver struct {
	mu         sync.RWMutex
	strategies []Strategy
	reg        *registry.Registry
	cache      map[cacheKey]Resolution
}

// New builds a resolver with the default chain: local declarations, then
// listed import items, then whole-module imports, then the Kubernetes
// conventions.
func New(reg *registry.Registry) *Resolver {
	return NewWithStrategies(reg,
		localStrategy{},
		importedItemStrategy{},
		wholeModuleStrategy{},
		kubernetesStrategy{},
	)
}

// NewWithStrategies builds a resolver with a custom chain, consulted in
// the given order.
func NewWithStrategies(reg *registry.Registry, strategies ...Strategy) *Resolver {
	return &Resolver{
		strategies: strategies,
		reg:        reg,
		cache:      make(map[cacheKey]Resolution),
	}
}

// Resolve resolves one reference in the context of the module that
// contains it.
func (r *Resolver) Resolve(ref string, module *ir.Module) Resolution {
	key := cacheKey{module: module.Name, ref: ref}

	r.mu.RLock()
	cached, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	res := r.resolve(ref, module)

	r.mu.Lock()
	r.cache[key] = res
	r.mu.Unlock()
	return res
}

func (r *Resolver) resolve(ref string, module *ir.Module) Resolution {
	for _, s := range r.strategies {
		if !s.CanResolve(ref) {
			continue
		}
		if res, ok := s.Resolve(ref, module, r.reg); ok {
			return res
		}
	}
	// Nothing claimed the reference. Pass it through unchanged so the
	// output carries the original name instead of failing the module.
	return Resolution{Name: ref}
}

// simpleName extracts the bare type name from a possibly qualified
// reference. Names with no type component come back whole.
func simpleName(ref string) string {
	if fqn := ir.ParseFQN(ref); fqn.TypeName != "" {
		return fqn.TypeName
	}
	return ref
}

// qualified joins an import alias and a simple name. Imports without an
// alias contribute the bare name.
func qualified(alias, name string) string {
	if alias == "" {
		return name
	}
	return alias + "." + name
}

// localStrategy keeps references to types the module itself declares.
// Qualified spellings of a local type collapse to the bare name.
type localStrategy struct{}

func (localStrategy) Name() string { return "local" }

func (localStrategy) CanResolve(string) bool { return true }

func (localStrategy) Resolve(ref string, module *ir.Module, _ *registry.Registry) (Resolution, bool) {
	if module.HasType(ref) {
		return Resolution{Name: ref}, true
	}

	fqn := ir.ParseFQN(ir.NormalizeK8sName(ref))
	if fqn.TypeName == "" || fqn.Module == "" {
		return Resolution{}, false
	}
	if fqn.Module == ir.NormalizeK8sName(module.Name) && module.HasType(fqn.TypeName) {
		return Resolution{Name: fqn.TypeName}, true
	}
	return Resolution{}, false
}

// importedItemStrategy matches a reference against the item lists of the
// module's imports. Membership decides, not declaration position: an
// import only claims names it actually lists.
type importedItemStrategy struct{}

func (importedItemStrategy) Name() string { return "imported-item" }

func (importedItemStrategy) CanResolve(string) bool { return true }

func (importedItemStrategy) Resolve(ref string, module *ir.Module, _ *registry.Registry) (Resolution, bool) {
	simple := simpleName(ref)
	for i := range module.Imports {
		imp := &module.Imports[i]
		if !imp.Exposes(simple) {
			continue
		}
		return Resolution{Name: qualified(imp.Alias, simple), Import: imp}, true
	}
	return Resolution{}, false
}

// wholeModuleStrategy matches a reference against whole-module imports by
// asking the registry whether the import's target declares the name.
type wholeModuleStrategy struct{}

func (wholeModuleStrategy) Name() string { return "whole-module" }

func (wholeModuleStrategy) CanResolve(string) bool { return true }

func (wholeModuleStrategy) Resolve(ref string, module *ir.Module, reg *registry.Registry) (Resolution, bool) {
	if reg == nil {
		return Resolution{}, false
	}
	simple := simpleName(ref)
	for i := range module.Imports {
		imp := &module.Imports[i]
		if !imp.IsWholeModule() || imp.Module == "" {
			continue
		}
		info, ok := reg.Get(imp.Module)
		if !ok || !info.HasType(simple) {
			continue
		}
		return Resolution{Name: qualified(imp.Alias, simple), Import: imp}, true
	}
	return Resolution{}, false
}
