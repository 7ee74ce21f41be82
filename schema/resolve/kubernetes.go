package resolve

import (
	"strings"

	"github.com/smelter-dev/smelter/schema/ir"
	"github.com/smelter-dev/smelter/schema/registry"
)

// Well-known Kubernetes metadata types and their canonical schema names.
// CRDs reference these constantly without declaring them, so a bare
// mention resolves to the canonical name even when no import carries it.
var knownMetaTypes = map[string]string{
	"ObjectMeta":    "io.k8s.apimachinery.pkg.apis.meta.v1.ObjectMeta",
	"ListMeta":      "io.k8s.apimachinery.pkg.apis.meta.v1.ListMeta",
	"TypeMeta":      "io.k8s.apimachinery.pkg.apis.meta.v1.TypeMeta",
	"LabelSelector": "io.k8s.apimachinery.pkg.apis.meta.v1.LabelSelector",
}

// kubernetesStrategy resolves Kubernetes-shaped references through
// whole-module imports that predate registry metadata, by reading group,
// version and kind back out of the import's file path. It also
// canonicalizes bare mentions of the well-known metadata types.
type kubernetesStrategy struct{}

func (kubernetesStrategy) Name() string { return "kubernetes" }

func (kubernetesStrategy) CanResolve(ref string) bool {
	if _, known := knownMetaTypes[ref]; known {
		return true
	}
	return strings.HasPrefix(ref, "io.k8s.") || strings.HasPrefix(ref, "k8s.io.")
}

func (kubernetesStrategy) Resolve(ref string, module *ir.Module, _ *registry.Registry) (Resolution, bool) {
	canonical := ref
	if full, known := knownMetaTypes[ref]; known {
		canonical = full
	}
	simple := simpleName(canonical)

	for i := range module.Imports {
		imp := &module.Imports[i]
		if !imp.IsWholeModule() {
			continue
		}
		meta, ok := parseImportPath(imp.Path)
		if !ok || !meta.provides(canonical, simple) {
			continue
		}
		return Resolution{Name: qualified(imp.Alias, simple), Import: imp}, true
	}

	if canonical != ref {
		return Resolution{Name: canonical}, true
	}
	return Resolution{}, false
}

// importMetadata is what a generated import path encodes about its target:
// the group directories, the version directory, and the file stem.
type importMetadata struct {
	group    string
	version  string
	kind     string
	isModule bool
}

// provides reports whether an import with this metadata exports the
// referenced type. Single-type files match on the file stem; consolidated
// module files match when the reference names the same version.
func (m importMetadata) provides(reference, simple string) bool {
	if !m.isModule {
		return strings.EqualFold(m.kind, simple)
	}
	return m.version != "" && strings.Contains(reference, "."+m.version+".")
}

// parseImportPath reads group, version and kind back out of a generated
// import path such as "../../k8s_io/v1/objectmeta.ncl" or
// "../../apimachinery.pkg.apis/meta/v1/mod.ncl".
func parseImportPath(path string) (importMetadata, bool) {
	trimmed := strings.TrimSuffix(path, ".ncl")
	if trimmed == path {
		return importMetadata{}, false
	}

	parts := strings.Split(trimmed, "/")
	for len(parts) > 0 && (parts[0] == ".." || parts[0] == ".") {
		parts = parts[1:]
	}
	if len(parts) < 2 {
		return importMetadata{}, false
	}

	stem := parts[len(parts)-1]
	meta := importMetadata{kind: stem, isModule: stem == "mod"}

	rest := parts[:len(parts)-1]
	if last := rest[len(rest)-1]; ir.IsVersionComponent(last) {
		meta.version = last
		rest = rest[:len(rest)-1]
	}
	meta.group = strings.Join(rest, "/")
	return meta, true
}
