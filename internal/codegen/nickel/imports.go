package nickel

import (
	"sort"
	"strconv"
	"strings"

	"github.com/smelter-dev/smelter/schema/ir"
	"github.com/smelter-dev/smelter/schema/registry"
)

// importTracker accumulates the let-bound imports one output file needs.
// Each distinct path gets a single binding; references through it render as
// the alias itself for single-type files and alias.Member for aggregators.
type importTracker struct {
	group  string // the emitting module's normalized group
	byPath map[string]*importEntry
	taken  map[string]string // alias -> path
}

type importEntry struct {
	path      string
	alias     string
	wholeFile bool
	cross     bool
}

func newImportTracker(info *registry.ModuleInfo) *importTracker {
	return &importTracker{
		group:  ir.NormalizeK8sName(info.Group),
		byPath: make(map[string]*importEntry),
		taken:  make(map[string]string),
	}
}

func (t *importTracker) isCross(targetModule string) bool {
	norm := ir.NormalizeK8sName(targetModule)
	return ir.ParseFQN(norm).Group != t.group
}

// add records that the file reads typeName through path and returns the
// emission text for the reference.
func (t *importTracker) add(typeName, targetModule, path string) string {
	entry, ok := t.byPath[path]
	if !ok {
		cross := t.isCross(targetModule)
		entry = &importEntry{
			path:      path,
			alias:     t.unique(aliasFor(typeName, targetModule, path, cross)),
			wholeFile: strings.HasSuffix(path, "mod.ncl"),
			cross:     cross,
		}
		t.byPath[path] = entry
		t.taken[entry.alias] = path
	}
	if entry.wholeFile {
		return entry.alias + "." + typeName
	}
	return entry.alias
}

// declared registers an import the module itself carries. The declared alias
// is kept when free; the reference text is recomputed from the final alias
// so a collision rename cannot strand a stale name.
func (t *importTracker) declared(imp *ir.Import, resolved string) string {
	simple := resolved
	if i := strings.LastIndexByte(simple, '.'); i >= 0 {
		simple = simple[i+1:]
	}

	entry, ok := t.byPath[imp.Path]
	if !ok {
		cross := true
		if imp.Module != "" {
			cross = t.isCross(imp.Module)
		}
		alias := imp.Alias
		if alias == "" {
			alias = aliasFor(simple, imp.Module, imp.Path, cross)
		}
		entry = &importEntry{
			path:      imp.Path,
			alias:     t.unique(alias),
			wholeFile: strings.HasSuffix(imp.Path, "mod.ncl"),
			cross:     cross,
		}
		t.byPath[imp.Path] = entry
		t.taken[entry.alias] = imp.Path
	}
	if entry.wholeFile {
		return entry.alias + "." + simple
	}
	return entry.alias
}

func (t *importTracker) unique(alias string) string {
	if _, used := t.taken[alias]; !used {
		return alias
	}
	for i := 2; ; i++ {
		candidate := alias + strconv.Itoa(i)
		if _, used := t.taken[candidate]; !used {
			return candidate
		}
	}
}

// statements renders the file's let-bindings: imports from other packages
// first, then same-package ones, each block sorted by alias.
func (t *importTracker) statements() []string {
	if len(t.byPath) == 0 {
		return nil
	}
	var cross, same []*importEntry
	for _, e := range t.byPath {
		if e.cross {
			cross = append(cross, e)
		} else {
			same = append(same, e)
		}
	}
	byAlias := func(list []*importEntry) {
		sort.Slice(list, func(i, j int) bool { return list[i].alias < list[j].alias })
	}
	byAlias(cross)
	byAlias(same)

	out := make([]string, 0, len(cross)+len(same))
	for _, e := range append(cross, same...) {
		out = append(out, "let "+e.alias+" = import "+quote(e.path)+" in")
	}
	return out
}

// aliasFor picks the binding name for an import. The consolidated files get
// their conventional short names, other aggregators are named for their
// group and version, and single-type files are named after the type with a
// group prefix when they come from another package.
func aliasFor(typeName, targetModule, path string, cross bool) string {
	segs := pathSegments(path)
	n := len(segs)

	if n >= 1 && segs[n-1] == "mod.ncl" {
		ver := ""
		if n >= 2 {
			ver = segs[n-2]
		}
		switch {
		case ver == "v0":
			return "v0Module"
		case n >= 3 && segs[n-3] == "meta":
			return "meta" + versionSuffix(ver)
		case n >= 3 && segs[n-3] == "core":
			return "core" + versionSuffix(ver)
		case n >= 3 && ir.IsVersionComponent(ver):
			return ir.SnakeToCamelCase(ir.SanitizeIdentifier(segs[n-3])) + versionSuffix(ver)
		case ir.IsVersionComponent(ver):
			return ver + "Module"
		default:
			return ir.SnakeToCamelCase(ir.SanitizeIdentifier(ver)) + "Module"
		}
	}

	if !cross {
		return ir.ToCamelCase(typeName)
	}
	return groupShort(targetModule) + "_" + ir.ToCamelCase(typeName)
}

func groupShort(targetModule string) string {
	group := ir.ParseFQN(ir.NormalizeK8sName(targetModule)).Group
	group = strings.TrimPrefix(group, "k8s.io.")
	if i := strings.IndexByte(group, '.'); i >= 0 {
		group = group[:i]
	}
	if group == "" {
		return "pkg"
	}
	return ir.SanitizeIdentifier(group)
}

func versionSuffix(version string) string {
	if version == "" {
		return ""
	}
	return strings.ToUpper(version[:1]) + version[1:]
}

func pathSegments(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			continue
		}
		out = append(out, p)
	}
	return out
}
