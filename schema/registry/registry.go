// Package registry tracks every module in a compilation run, classifies
// each one's output layout, and computes relative import paths between
// them. A registry is built once from a complete IR and is immutable for
// the rest of the run; resolvers and emitters share it by reference.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/smelter-dev/smelter/schema/graph"
	"github.com/smelter-dev/smelter/schema/ir"
)

// ErrModuleNotFound reports a lookup for a module name that was never
// registered.
var ErrModuleNotFound = errors.New("module not found in registry")

// ModuleInfo describes one registered module: its parsed name parts, its
// classified layout, and the output paths derived from that layout.
type ModuleInfo struct {
	// Name is the full dotted module name, e.g. "k8s.io.v1".
	Name string `json:"name"`
	// Group is the module name without its version, e.g. "k8s.io".
	Group string `json:"group"`
	// Version is the trailing version component, e.g. "v1alpha3".
	Version string `json:"version"`
	// Domain is the owning domain derived from the group, e.g.
	// "crossplane.io" for group "apiextensions.crossplane.io".
	Domain string `json:"domain"`
	// Namespace is the group remainder above the domain, e.g.
	// "apiextensions".
	Namespace string `json:"namespace"`
	// Layout is the classified directory convention.
	Layout Layout `json:"layout"`
	// PackageRoot is the module's top package directory, e.g. "k8s_io".
	PackageRoot string `json:"package_root"`
	// Path is the directory the module's files are emitted into.
	Path string `json:"path"`
	// Types holds the exact-cased names of every type the module declares,
	// sorted.
	Types []string `json:"types"`
}

// HasType reports whether the module declares a type with this exact name.
func (m *ModuleInfo) HasType(name string) bool {
	i := sort.SearchStrings(m.Types, name)
	return i < len(m.Types) && m.Types[i] == name
}

// Depth returns how many directories deep the module's files sit below the
// output root. Derived from naming convention, never from the filesystem.
func (m *ModuleInfo) Depth() int {
	return strategyFor(m.Layout).depthFor(m)
}

// TopLevelPackage returns the first component of the package root, or ""
// for flat layouts.
func (m *ModuleInfo) TopLevelPackage() string {
	if m.PackageRoot == "" {
		return ""
	}
	if i := strings.IndexByte(m.PackageRoot, '/'); i >= 0 {
		return m.PackageRoot[:i]
	}
	return m.PackageRoot
}

// Registry is the immutable module index for one compilation run. Build it
// with FromIR or FromDebugData; there are no mutators.
type Registry struct {
	modules map[string]*ModuleInfo
	order   []string
	graph   *graph.Graph
}

// FromIR builds a registry from a complete IR: every module is registered,
// then dependency edges are discovered by walking each module's imports and
// the reference nodes inside its type trees.
func FromIR(input *ir.IR) *Registry {
	r := &Registry{modules: make(map[string]*ModuleInfo)}

	for _, module := range input.Modules {
		r.register(module)
	}
	r.buildGraph(input)
	return r
}

func (r *Registry) register(module *ir.Module) {
	if _, exists := r.modules[module.Name]; exists {
		return
	}

	info := describeModule(module.Name)
	for _, def := range module.Types {
		info.Types = append(info.Types, def.Name)
	}
	sort.Strings(info.Types)

	r.modules[module.Name] = info
	r.order = append(r.order, module.Name)
}

// describeModule derives every structural property of a module from its
// name alone: parsed name parts, classified layout, computed paths.
func describeModule(name string) *ModuleInfo {
	group, version := parseModuleName(name)
	domain, namespace := deriveDomainNamespace(group)
	layout := classifyLayout(domain, namespace)
	packageRoot, modulePath := strategyFor(layout).paths(group, namespace, version)

	return &ModuleInfo{
		Name:        name,
		Group:       group,
		Version:     version,
		Domain:      domain,
		Namespace:   namespace,
		Layout:      layout,
		PackageRoot: packageRoot,
		Path:        modulePath,
	}
}

// buildGraph discovers dependency edges by walking the actual Reference
// nodes inside each module's types and constants, plus declared imports.
func (r *Registry) buildGraph(input *ir.IR) {
	g := graph.New()
	for _, name := range r.order {
		g.AddModule(name)
	}

	for _, module := range input.Modules {
		for _, imp := range module.Imports {
			if imp.Module == "" || imp.Module == module.Name {
				continue
			}
			g.AddDependency(module.Name, imp.Module, graph.EdgeImport)
		}
		for _, ref := range ir.ModuleReferences(module) {
			if ref.Module == "" || ref.Module == module.Name {
				continue
			}
			g.AddDependency(module.Name, ref.Module, graph.EdgeTypeReference)
		}
	}
	r.graph = g
}

// Get returns the info for a registered module.
func (r *Registry) Get(name string) (*ModuleInfo, bool) {
	info, ok := r.modules[name]
	return info, ok
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	return len(r.modules)
}

// Modules returns every registered module in registration order.
func (r *Registry) Modules() []*ModuleInfo {
	out := make([]*ModuleInfo, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.modules[name])
	}
	return out
}

// Graph returns the dependency graph built during registration.
func (r *Registry) Graph() *graph.Graph {
	return r.graph
}

// FindModuleForType returns the first registered module declaring a type
// with this exact name, in registration order.
func (r *Registry) FindModuleForType(typeName string) (*ModuleInfo, bool) {
	for _, name := range r.order {
		if info := r.modules[name]; info.HasType(typeName) {
			return info, true
		}
	}
	return nil, false
}

// RequiresImport reports whether a reference between the two modules needs
// an import declaration.
func (r *Registry) RequiresImport(from, to string) bool {
	return from != to
}

// CalculateImportPath computes the relative path an import declaration in
// fromModule uses to reach typeName in toModule. It returns false when
// either module is unknown or when the target module does not declare the
// type with that exact name; the existence check is mandatory, since
// silently emitting an import for a nonexistent symbol is worse than
// failing the path.
func (r *Registry) CalculateImportPath(fromModule, toModule, typeName string) (string, bool) {
	fromInfo, ok := r.modules[fromModule]
	if !ok {
		return "", false
	}
	toInfo, ok := r.modules[toModule]
	if !ok {
		return "", false
	}
	if !toInfo.HasType(typeName) {
		return "", false
	}

	fileName := strings.ToLower(typeName) + ".ncl"

	// Same module: a sibling file, no directory change.
	if fromModule == toModule {
		return "./" + fileName, true
	}

	// Well-known shared types route through their consolidated file.
	if target, ok := strategyFor(toInfo.Layout).consolidatedTargetFor(toInfo, typeName); ok {
		return consolidatedPath(fromInfo, toInfo, target), true
	}

	// Same group, different version.
	if fromInfo.Group == toInfo.Group {
		return strategyFor(toInfo.Layout).crossVersionPath(toInfo, fileName), true
	}

	// Different packages: ascend to the output root, then descend into the
	// target module's directory.
	return ascend(fromInfo.Depth()) + joinPath(toInfo.Path, fileName), true
}

// ExternalImportPath computes the conventional import path for a type in a
// module that is not part of the run. CRD modules reference the Kubernetes
// meta and runtime types constantly without carrying them; those locations
// are fixed by convention, so a path is computable from the target's name
// alone. Unlike CalculateImportPath there is no existence guard: the
// target's type set is unknowable here, and the result is only as good as
// the convention.
func (r *Registry) ExternalImportPath(fromModule, toModule, typeName string) (string, bool) {
	fromInfo, ok := r.modules[fromModule]
	if !ok {
		return "", false
	}
	if toModule == "" || typeName == "" {
		return "", false
	}

	toInfo := describeModule(ir.NormalizeK8sName(toModule))
	if target, ok := strategyFor(toInfo.Layout).consolidatedTargetFor(toInfo, typeName); ok {
		return consolidatedPath(fromInfo, toInfo, target), true
	}

	fileName := strings.ToLower(typeName) + ".ncl"
	return ascend(fromInfo.Depth()) + joinPath(toInfo.Path, fileName), true
}

// consolidatedPath prefixes a consolidated target with the climb out of the
// source module's directory, plus the target's package segment when the
// source lives in a different top-level package.
func consolidatedPath(from, to *ModuleInfo, target consolidatedTarget) string {
	switch target.anchor {
	case anchorPackage:
		if from.TopLevelPackage() == to.TopLevelPackage() {
			inPackage := from.Depth() - pathComponents(from.TopLevelPackage())
			return ascend(inPackage) + target.rel
		}
		return ascend(from.Depth()) + joinPath(to.TopLevelPackage(), target.rel)
	default:
		return ascend(from.Depth()) + target.rel
	}
}

// ProcessInDependencyOrder applies fn to every module in topological order,
// dependencies before dependents. Without a built graph it degrades
// explicitly to registration order.
func (r *Registry) ProcessInDependencyOrder(fn func(*ModuleInfo) error) error {
	if r.graph == nil {
		for _, name := range r.order {
			if err := fn(r.modules[name]); err != nil {
				return err
			}
		}
		return nil
	}

	sorted, err := r.graph.TopologicalSort()
	if err != nil {
		return err
	}
	for _, name := range sorted {
		info, ok := r.modules[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrModuleNotFound, name)
		}
		if err := fn(info); err != nil {
			return err
		}
	}
	return nil
}

// DetectCycles returns the dependency cycles among registered modules.
func (r *Registry) DetectCycles() [][]string {
	if r.graph == nil {
		return nil
	}
	return r.graph.DetectCycles()
}

// ascend builds a "../" prefix climbing the given number of directories.
func ascend(levels int) string {
	if levels <= 0 {
		return ""
	}
	return strings.Repeat("../", levels)
}

// joinPath joins two path fragments, tolerating an empty prefix.
func joinPath(dir, rest string) string {
	if dir == "" {
		return rest
	}
	return dir + "/" + rest
}

// parseModuleName splits a dotted module name into group and version by
// scanning from the right for a version-shaped component. Names without one
// keep the whole string as the group with a default v1.
func parseModuleName(name string) (group, version string) {
	parts := strings.Split(name, ".")
	for i := len(parts) - 1; i >= 0; i-- {
		if ir.IsVersionComponent(parts[i]) {
			return strings.Join(parts[:i], "."), parts[i]
		}
	}
	return name, "v1"
}

// deriveDomainNamespace splits a group into its owning domain and the
// namespace above it, following the known multi-part domain conventions.
func deriveDomainNamespace(group string) (domain, namespace string) {
	switch {
	case group == "":
		return "", ""
	case strings.HasPrefix(group, "local://"):
		return group, ""
	case group == "k8s.io":
		return "k8s.io", ""
	case strings.HasPrefix(group, "k8s.io."):
		return "k8s.io", strings.TrimPrefix(group, "k8s.io.")
	case strings.HasPrefix(group, "io.k8s."):
		return "k8s.io", strings.TrimPrefix(group, "io.k8s.")
	case group == "crossplane.io":
		return "crossplane.io", ""
	case strings.HasSuffix(group, ".crossplane.io"):
		return "crossplane.io", strings.TrimSuffix(group, ".crossplane.io")
	}

	parts := strings.Split(group, ".")
	if len(parts) >= 2 {
		domain = strings.Join(parts[len(parts)-2:], ".")
		namespace = strings.Join(parts[:len(parts)-2], ".")
		return domain, namespace
	}
	return group, ""
}
