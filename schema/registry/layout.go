package registry

import (
	"strings"
)

// Layout identifies the directory convention a module's generated files
// follow. Paths are computed from these conventions before any file exists,
// so every rule here is structural: nothing consults the filesystem.
type Layout string

const (
	// LayoutMixedRoot places a module under a package root named after its
	// group, with one directory per version. The Kubernetes core convention
	// (fixed k8s_io root, consolidated shared modules) and the default for
	// unrecognized domains.
	LayoutMixedRoot Layout = "mixed_root"
	// LayoutGroupVersioned is the Kubernetes convention for named API
	// groups: an extra directory level for the group between the package
	// root and the version.
	LayoutGroupVersioned Layout = "group_versioned"
	// LayoutNamespacedVersioned nests a namespace directory above a
	// versioned tree.
	LayoutNamespacedVersioned Layout = "namespaced_versioned"
	// LayoutNamespacedFlat is the Crossplane convention: modules nest under
	// crossplane/<group> with no version subdirectory.
	LayoutNamespacedFlat Layout = "namespaced_flat"
	// LayoutFlat emits all files directly into the output root. Used for
	// synthetic local:// domains.
	LayoutFlat Layout = "flat"
)

// classifyLayout picks a layout for a module from its domain, via a fixed
// lookup. Unknown domains default to LayoutMixedRoot.
func classifyLayout(domain, namespace string) Layout {
	switch {
	case strings.HasPrefix(domain, "local://"):
		return LayoutFlat
	case domain == "crossplane.io" || strings.HasSuffix(domain, ".crossplane.io"):
		return LayoutNamespacedFlat
	case domain == "k8s.io" && namespace != "":
		return LayoutGroupVersioned
	default:
		return LayoutMixedRoot
	}
}

// DetectLayout classifies a set of module names by their naming structure:
// whether they carry version components and whether they carry namespace
// segments beyond the domain. This mirrors the structural classification
// used for single modules but works across a whole package.
func DetectLayout(moduleNames []string) Layout {
	hasVersions := false
	hasNamespaces := false
	for _, name := range moduleNames {
		group, _ := parseModuleName(name)
		if name != group {
			hasVersions = true
		}
		if _, namespace := deriveDomainNamespace(group); namespace != "" {
			hasNamespaces = true
		}
	}

	switch {
	case hasNamespaces && hasVersions:
		return LayoutNamespacedVersioned
	case hasNamespaces:
		return LayoutNamespacedFlat
	case hasVersions:
		return LayoutMixedRoot
	default:
		return LayoutFlat
	}
}

// consolidatedAnchor says where a consolidated target path is rooted.
type consolidatedAnchor int

const (
	// anchorOutputRoot: the path descends from the shared output root.
	anchorOutputRoot consolidatedAnchor = iota
	// anchorPackage: the path descends from the target's top-level package
	// directory.
	anchorPackage
)

// consolidatedTarget is a well-known file that physically co-locates
// several logical types.
type consolidatedTarget struct {
	rel    string
	anchor consolidatedAnchor
}

// layoutStrategy localizes the convention-specific path knowledge for one
// Layout. depthFor must agree with the directory layout paths() produces.
type layoutStrategy interface {
	// paths computes the package root and the module's directory.
	paths(group, namespace, version string) (packageRoot, modulePath string)
	// depthFor returns how many directories deep the module's files sit
	// below the output root.
	depthFor(info *ModuleInfo) int
	// crossVersionPath builds the path for a sibling version of the same
	// group, relative to the source module's directory.
	crossVersionPath(to *ModuleInfo, fileName string) string
	// consolidatedTargetFor returns the consolidated file declaring the
	// type, when this layout co-locates well-known shared types.
	consolidatedTargetFor(to *ModuleInfo, typeName string) (consolidatedTarget, bool)
}

func strategyFor(layout Layout) layoutStrategy {
	switch layout {
	case LayoutGroupVersioned:
		return groupVersionedStrategy{}
	case LayoutNamespacedVersioned:
		return namespacedVersionedStrategy{}
	case LayoutNamespacedFlat:
		return namespacedFlatStrategy{}
	case LayoutFlat:
		return flatStrategy{}
	default:
		return mixedRootStrategy{}
	}
}

// Shared type names physically located in the apimachinery meta module.
var metaConsolidatedTypes = map[string]struct{}{
	"objectmeta":         {},
	"labelselector":      {},
	"listmeta":           {},
	"time":               {},
	"condition":          {},
	"managedfieldsentry": {},
}

// Unversioned runtime types located in the v0 module at the output root.
var unversionedConsolidatedTypes = map[string]struct{}{
	"intorstring":  {},
	"rawextension": {},
}

// Core API types exported from the consolidated core module of their
// version.
var coreConsolidatedTypes = map[string]struct{}{
	"pod":                       {},
	"service":                   {},
	"deployment":                {},
	"configmap":                 {},
	"secret":                    {},
	"namespace":                 {},
	"node":                      {},
	"persistentvolume":          {},
	"persistentvolumeclaim":     {},
	"serviceaccount":            {},
	"celdeviceselector":         {},
	"typedlocalobjectreference": {},
	"podtemplatespec":           {},
	"objectreference":           {},
	"eventsource":               {},
	"topologyselectorterm":      {},
	"persistentvolumespec":      {},
	"toleration":                {},
	"nodeselector":              {},
}

// k8sConsolidatedTargetFor routes a type through the fixed consolidated-file
// tables of the Kubernetes domain. The lookup is by lower-cased type name.
func k8sConsolidatedTargetFor(to *ModuleInfo, typeName string) (consolidatedTarget, bool) {
	lower := strings.ToLower(typeName)
	if _, ok := metaConsolidatedTypes[lower]; ok {
		return consolidatedTarget{
			rel:    "apimachinery.pkg.apis/meta/" + to.Version + "/mod.ncl",
			anchor: anchorOutputRoot,
		}, true
	}
	if _, ok := unversionedConsolidatedTypes[lower]; ok {
		return consolidatedTarget{rel: "v0/mod.ncl", anchor: anchorOutputRoot}, true
	}
	if _, ok := coreConsolidatedTypes[lower]; ok {
		return consolidatedTarget{
			rel:    "core/" + to.Version + "/mod.ncl",
			anchor: anchorPackage,
		}, true
	}
	return consolidatedTarget{}, false
}

type mixedRootStrategy struct{}

func (mixedRootStrategy) paths(group, _, version string) (string, string) {
	var root string
	switch {
	case group == "k8s.io":
		root = "k8s_io"
	case group == "":
		root = "core"
	case strings.HasPrefix(group, "local://"):
		root = sanitizePathSegment(strings.TrimPrefix(group, "local://"))
	default:
		root = sanitizePathSegment(group)
	}
	return root, root + "/" + version
}

func (mixedRootStrategy) depthFor(info *ModuleInfo) int {
	return pathComponents(info.PackageRoot) + 1
}

func (mixedRootStrategy) crossVersionPath(to *ModuleInfo, fileName string) string {
	return "../" + to.Version + "/" + fileName
}

func (mixedRootStrategy) consolidatedTargetFor(to *ModuleInfo, typeName string) (consolidatedTarget, bool) {
	if to.Domain != "k8s.io" {
		return consolidatedTarget{}, false
	}
	return k8sConsolidatedTargetFor(to, typeName)
}

type groupVersionedStrategy struct{}

func (groupVersionedStrategy) paths(_, namespace, version string) (string, string) {
	root := "k8s_io/" + namespace
	return root, root + "/" + version
}

func (groupVersionedStrategy) depthFor(info *ModuleInfo) int {
	return pathComponents(info.PackageRoot) + 1
}

func (groupVersionedStrategy) crossVersionPath(to *ModuleInfo, fileName string) string {
	return "../" + to.Version + "/" + fileName
}

func (groupVersionedStrategy) consolidatedTargetFor(to *ModuleInfo, typeName string) (consolidatedTarget, bool) {
	return k8sConsolidatedTargetFor(to, typeName)
}

type namespacedVersionedStrategy struct{}

func (namespacedVersionedStrategy) paths(_, namespace, version string) (string, string) {
	root := namespace
	if root == "" {
		root = "default"
	}
	return root, root + "/" + version
}

func (namespacedVersionedStrategy) depthFor(info *ModuleInfo) int {
	return pathComponents(info.PackageRoot) + 1
}

func (namespacedVersionedStrategy) crossVersionPath(to *ModuleInfo, fileName string) string {
	return "../" + to.Version + "/" + fileName
}

func (namespacedVersionedStrategy) consolidatedTargetFor(*ModuleInfo, string) (consolidatedTarget, bool) {
	return consolidatedTarget{}, false
}

type namespacedFlatStrategy struct{}

func (namespacedFlatStrategy) paths(group, _, _ string) (string, string) {
	root := "crossplane/" + group + "/crossplane"
	return root, root
}

func (namespacedFlatStrategy) depthFor(info *ModuleInfo) int {
	return pathComponents(info.PackageRoot)
}

// Flat namespaces keep every version's files side by side, so a sibling
// version resolves to the same directory.
func (namespacedFlatStrategy) crossVersionPath(_ *ModuleInfo, fileName string) string {
	return "./" + fileName
}

func (namespacedFlatStrategy) consolidatedTargetFor(*ModuleInfo, string) (consolidatedTarget, bool) {
	return consolidatedTarget{}, false
}

type flatStrategy struct{}

func (flatStrategy) paths(_, _, _ string) (string, string) {
	return "", ""
}

func (flatStrategy) depthFor(*ModuleInfo) int {
	return 0
}

func (flatStrategy) crossVersionPath(_ *ModuleInfo, fileName string) string {
	return "./" + fileName
}

func (flatStrategy) consolidatedTargetFor(*ModuleInfo, string) (consolidatedTarget, bool) {
	return consolidatedTarget{}, false
}

// sanitizePathSegment converts a dotted group into a filesystem-friendly
// directory name.
func sanitizePathSegment(s string) string {
	return strings.ReplaceAll(s, ".", "_")
}

// pathComponents counts slash-separated components, with the empty path
// counting as zero.
func pathComponents(path string) int {
	if path == "" {
		return 0
	}
	return len(strings.Split(path, "/"))
}
