package nickel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/smelter-dev/smelter/schema/ir"
	"github.com/smelter-dev/smelter/schema/registry"
)

// EmitModule renders one module: a file per declared type plus the mod.ncl
// aggregator binding them under their exported names. Files come out in
// name order so regeneration is stable.
func (e *Emitter) EmitModule(module *ir.Module) ([]File, error) {
	info, ok := e.reg.Get(module.Name)
	if !ok {
		return nil, fmt.Errorf("module %q is not registered", module.Name)
	}

	files := make([]File, 0, len(module.Types)+1)
	for _, name := range module.TypeNames() {
		files = append(files, e.typeFile(module, info, module.FindType(name)))
	}
	files = append(files, e.moduleIndex(module, info))
	return files, nil
}

func (e *Emitter) typeFile(module *ir.Module, info *registry.ModuleInfo, def *ir.TypeDefinition) File {
	ctx := &renderContext{e: e, module: module, info: info, typeName: def.Name, tracker: newImportTracker(info)}
	expr := ctx.render(def.Type, 0)

	var b strings.Builder
	if stmts := ctx.tracker.statements(); len(stmts) > 0 {
		for _, s := range stmts {
			b.WriteString(s)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	for _, line := range docLines(def.Documentation) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString(expr)
	b.WriteByte('\n')

	return File{
		Path:    joinPath(info.Path, strings.ToLower(def.Name)+".ncl"),
		Content: b.String(),
	}
}

// moduleIndex renders mod.ncl: every exported type bound to its own file,
// then the module's constants.
func (e *Emitter) moduleIndex(module *ir.Module, info *registry.ModuleInfo) File {
	display := module.Name
	if info.Group != "" && info.Version != "" {
		display = info.Group + "." + info.Version
	}

	var b strings.Builder
	b.WriteString("# Module: " + display + "\n\n{\n")
	for _, name := range module.TypeNames() {
		def := module.FindType(name)
		if doc := firstDocLine(def.Documentation); doc != "" {
			b.WriteString("  # " + doc + "\n")
		}
		b.WriteString("  " + escapeFieldName(name) + " = import \"./" + strings.ToLower(name) + ".ncl\",\n")
	}
	for _, constant := range module.Constants {
		if doc := firstDocLine(constant.Documentation); doc != "" {
			b.WriteString("  # " + doc + "\n")
		}
		b.WriteString("  " + escapeFieldName(constant.Name) + " = " + formatValue(constant.Value, 1) + ",\n")
	}
	b.WriteString("}\n")

	return File{Path: joinPath(info.Path, "mod.ncl"), Content: b.String()}
}

// RootModule renders the package entry point exporting every generated
// group and version. A flat-layout module owns the output root itself, so
// no entry point is produced alongside one.
func (e *Emitter) RootModule(project string) (File, bool) {
	infos := e.reg.Modules()
	if len(infos) == 0 {
		return File{}, false
	}

	type rootGroup struct {
		direct   string
		versions map[string]string
	}
	byGroup := make(map[string]*rootGroup)
	for _, info := range infos {
		if info.Path == "" {
			return File{}, false
		}
		key := ir.SanitizeIdentifier(info.Group)
		if key == "" {
			key = ir.SanitizeIdentifier(info.Name)
		}
		g := byGroup[key]
		if g == nil {
			g = &rootGroup{versions: make(map[string]string)}
			byGroup[key] = g
		}
		if info.Version == "" {
			g.direct = info.Path
		} else {
			g.versions[info.Version] = info.Path
		}
	}

	var b strings.Builder
	b.WriteString("# Main module for " + project + "\n")
	b.WriteString("# This file exports all generated types\n\n{\n")
	for _, key := range sortedKeys(byGroup) {
		g := byGroup[key]
		if g.direct != "" && len(g.versions) == 0 {
			b.WriteString("  " + escapeFieldName(key) + " = import \"./" + g.direct + "/mod.ncl\",\n")
			continue
		}
		b.WriteString("  " + escapeFieldName(key) + " = {\n")
		for _, ver := range sortedKeys(g.versions) {
			b.WriteString("    " + escapeFieldName(ver) + " = import \"./" + g.versions[ver] + "/mod.ncl\",\n")
		}
		b.WriteString("  },\n")
	}
	b.WriteString("}\n")

	return File{Path: "mod.ncl", Content: b.String()}, true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// docLines renders documentation as a comment block above a bare type
// expression.
func docLines(doc string) []string {
	if doc == "" {
		return nil
	}
	lines := strings.Split(strings.TrimRight(doc, "\n"), "\n")
	out := make([]string, len(lines))
	for i, line := range lines {
		if line == "" {
			out[i] = "#"
		} else {
			out[i] = "# " + line
		}
	}
	return out
}

// firstDocLine compresses documentation to a single comment line for
// aggregator entries, truncating anything past 80 characters.
func firstDocLine(doc string) string {
	if doc == "" {
		return ""
	}
	line := doc
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if runes := []rune(line); len(runes) > 80 {
		line = string(runes[:77]) + "..."
	}
	return line
}

func joinPath(dir, rest string) string {
	if dir == "" {
		return rest
	}
	return dir + "/" + rest
}
