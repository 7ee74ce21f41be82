// Package nickel renders IR modules as Nickel source. Every module becomes
// one file per exported type plus a mod.ncl aggregator; cross-module
// references become let-bound imports whose relative paths come from the
// registry. Rendering never fails on unresolvable references: unknown names
// pass through as written, matching the resolver's best-effort policy.
package nickel

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/smelter-dev/smelter/schema/ir"
	"github.com/smelter-dev/smelter/schema/registry"
	"github.com/smelter-dev/smelter/schema/resolve"
)

// File is one rendered output file. Path is relative to the output root.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Emitter renders modules against a sealed registry. Safe to reuse across
// modules within one run.
type Emitter struct {
	reg      *registry.Registry
	resolver *resolve.Resolver
	indent   int
}

// New builds an emitter over the run's registry and resolver.
func New(reg *registry.Registry, resolver *resolve.Resolver) *Emitter {
	return &Emitter{reg: reg, resolver: resolver, indent: 2}
}

func (e *Emitter) pad(level int) string {
	return strings.Repeat(" ", level*e.indent)
}

// renderContext carries the per-file state: the module being rendered, the
// name of the type this file declares, and the import tracker collecting
// the file's let-bindings.
type renderContext struct {
	e        *Emitter
	module   *ir.Module
	info     *registry.ModuleInfo
	typeName string
	tracker  *importTracker
}

// render converts one type into its Nickel contract expression. level is
// the indentation depth of the surrounding context, in record nesting
// steps.
func (c *renderContext) render(t ir.Type, level int) string {
	switch n := t.(type) {
	case ir.StringType:
		return "String"
	case ir.NumberType:
		return "Number"
	case ir.IntegerType:
		// Nickel has a single numeric type.
		return "Number"
	case ir.BoolType:
		return "Bool"
	case ir.NullType:
		return "Null"
	case ir.AnyType:
		return "Dyn"
	case *ir.Array:
		return "Array " + atom(c.render(n.Element, level))
	case *ir.Map:
		return "{ _ : " + c.render(n.Value, level) + " }"
	case *ir.Optional:
		return c.render(n.Element, level) + " | Null"
	case *ir.Record:
		return c.renderRecord(n, level)
	case *ir.Union:
		return c.renderUnion(n, level)
	case *ir.TaggedUnion:
		return c.renderTaggedUnion(n, level)
	case *ir.Reference:
		return c.reference(n)
	case *ir.Constrained:
		return c.renderConstrained(n, level)
	case *ir.Contract:
		return c.renderContract(n, level)
	default:
		return "Dyn"
	}
}

// atom parenthesizes a rendered type when using it as an argument would
// otherwise change parse structure. Braced and already-parenthesized forms
// bind tightly on their own.
func atom(s string) string {
	if !strings.Contains(s, " ") || strings.HasPrefix(s, "{") || strings.HasPrefix(s, "(") {
		return s
	}
	return "(" + s + ")"
}

func (c *renderContext) renderRecord(r *ir.Record, level int) string {
	if len(r.Fields) == 0 {
		if r.Open {
			return "{ .. }"
		}
		return "{}"
	}

	var b strings.Builder
	b.WriteString("{\n")

	names := r.FieldNames()
	for i, name := range names {
		b.WriteString(c.renderField(name, r.Fields[name], level+1))
		if i < len(names)-1 || r.Open {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	if r.Open {
		b.WriteString(c.e.pad(level+1) + ".. | Dyn,\n")
	}

	b.WriteString(c.e.pad(level) + "}")
	return b.String()
}

// renderField writes one record field: the name on its own line, then each
// annotation indented two spaces further. Contract annotations come right
// after the type, the default always last. A field with a default is
// implicitly optional in Nickel, so the optional marker only appears on
// defaultless ones.
func (c *renderContext) renderField(name string, field *ir.Field, level int) string {
	ind := c.e.pad(level)
	ann := ind + "  "

	fieldType := field.Type
	if field.Validation != nil && field.Validation.EmbeddedResource {
		fieldType = embeddedBase(fieldType)
	}

	var b strings.Builder
	b.WriteString(ind + escapeFieldName(name))
	b.WriteString("\n" + ann + "| " + c.render(fieldType, level+1))
	for _, expr := range c.fieldContracts(field, fieldType) {
		b.WriteString("\n" + ann + "| " + expr)
	}
	if field.Description != "" {
		b.WriteString("\n" + ann + "| doc " + formatDoc(field.Description))
	}
	if !field.Required && field.Default == nil {
		b.WriteString("\n" + ann + "| optional")
	}
	if field.Default != nil {
		b.WriteString("\n" + ann + "= " + formatValue(field.Default, level))
	}
	return b.String()
}

// fieldContracts collects the contract annotations a field carries beyond
// its type: one predicate contract for its validation rules, then any named
// contract expressions verbatim.
func (c *renderContext) fieldContracts(field *ir.Field, fieldType ir.Type) []string {
	var out []string
	if field.Validation != nil {
		rules := *field.Validation
		if isIntOrStringUnion(fieldType) {
			// The type already renders as the int-or-string contract.
			rules.IntOrString = false
		}
		if preds := predicates(&rules, fieldType); len(preds) > 0 {
			out = append(out, fromPredicate(preds))
		}
	}
	for _, rule := range field.Contracts {
		if rule.Expression != "" {
			out = append(out, rule.Expression)
		}
	}
	return out
}

func (c *renderContext) renderUnion(u *ir.Union, level int) string {
	switch u.Hint.Kind {
	case ir.PreferString:
		if isIntStringPair(u.Members) {
			return intOrStringContract
		}
		return "String"
	case ir.PreferNumber:
		return "Number"
	case ir.CustomCoercion:
		if u.Hint.Expr != "" {
			return u.Hint.Expr
		}
	}

	parts := make([]string, len(u.Members))
	for i, m := range u.Members {
		parts[i] = c.render(m, level)
	}
	return strings.Join(parts, " | ")
}

func (c *renderContext) renderTaggedUnion(tu *ir.TaggedUnion, level int) string {
	parts := make([]string, 0, len(tu.Variants))
	for _, tag := range tu.VariantTags() {
		variant := c.render(tu.Variants[tag], level)
		parts = append(parts, fmt.Sprintf("(%s == %q && %s)", tu.TagField, tag, variant))
	}
	return strings.Join(parts, " | ")
}

func (c *renderContext) renderConstrained(n *ir.Constrained, level int) string {
	base := n.Base
	rules := n.Rules
	if rules.EmbeddedResource {
		base = embeddedBase(base)
	}
	if isIntOrStringUnion(base) {
		rules.IntOrString = false
	}

	rendered := c.render(base, level)
	preds := predicates(&rules, base)
	if len(preds) == 0 {
		return rendered
	}
	return rendered + " | " + fromPredicate(preds)
}

func (c *renderContext) renderContract(n *ir.Contract, level int) string {
	out := c.render(n.Base, level)
	for _, rule := range n.Rules {
		if rule.Expression != "" {
			out += " | " + rule.Expression
		}
	}
	return out
}

// reference resolves a reference to its emission text. Order: the module's
// declared imports via the resolver, local declarations, registered target
// modules through the registry's path calculation, well-known Kubernetes
// locations by convention. Anything left passes through as written.
func (c *renderContext) reference(ref *ir.Reference) string {
	lookup := ref.Name
	if ref.Module != "" && !strings.Contains(ref.Name, ".") {
		lookup = ref.Module + "." + ref.Name
	}

	res := c.e.resolver.Resolve(lookup, c.module)
	if res.Import != nil {
		return c.tracker.declared(res.Import, res.Name)
	}
	if c.module.HasType(res.Name) {
		return c.siblingRef(res.Name)
	}

	fqn := ir.ParseFQN(res.Name)
	simple := fqn.SimpleName()
	target := ref.Module
	if target == "" {
		target = fqn.Module
	}

	if target == "" {
		// A bare name declared by another module in the run imports from
		// wherever it lives; one declared nowhere passes through.
		if info, ok := c.e.reg.FindModuleForType(simple); ok && info.Name != c.module.Name {
			if path, ok := c.e.reg.CalculateImportPath(c.module.Name, info.Name, simple); ok {
				return c.tracker.add(simple, info.Name, path)
			}
		}
		return res.Name
	}
	if target == c.module.Name {
		return c.siblingRef(simple)
	}

	if path, ok := c.e.reg.CalculateImportPath(c.module.Name, target, simple); ok {
		return c.tracker.add(simple, target, path)
	}
	if normalized := ir.NormalizeK8sName(target); normalized != target {
		if path, ok := c.e.reg.CalculateImportPath(c.module.Name, normalized, simple); ok {
			return c.tracker.add(simple, normalized, path)
		}
	}
	if fqn.IsK8s() {
		if path, ok := c.e.reg.ExternalImportPath(c.module.Name, target, simple); ok {
			return c.tracker.add(simple, target, path)
		}
	}
	return res.Name
}

// siblingRef binds a type declared by the same module. Each type lives in
// its own file, so even a local reference goes through an import. A type
// mentioning itself degrades to Dyn: structural schemas cannot be
// recursive, and importing the file into itself would make the evaluator
// chase the cycle.
func (c *renderContext) siblingRef(name string) string {
	if name == c.typeName {
		return "Dyn"
	}
	if path, ok := c.e.reg.CalculateImportPath(c.module.Name, c.module.Name, name); ok {
		return c.tracker.add(name, c.module.Name, path)
	}
	return name
}

// isIntStringPair reports whether the members are exactly the integer and
// string scalars, in either order.
func isIntStringPair(members []ir.Type) bool {
	if len(members) != 2 {
		return false
	}
	var hasInt, hasString bool
	for _, m := range members {
		switch m.(type) {
		case ir.IntegerType:
			hasInt = true
		case ir.StringType:
			hasString = true
		}
	}
	return hasInt && hasString
}

// isIntOrStringUnion reports whether the type renders as the int-or-string
// contract already, so rule translation must not add it a second time.
func isIntOrStringUnion(t ir.Type) bool {
	u, ok := t.(*ir.Union)
	return ok && u.Hint.Kind == ir.PreferString && isIntStringPair(u.Members)
}

// formatDoc renders a doc annotation value: multiline strings for text
// with newlines or over 80 characters, plain quotes otherwise.
func formatDoc(doc string) string {
	if strings.ContainsRune(doc, '\n') || len(doc) > 80 {
		return "m%\"\n" + strings.TrimSpace(doc) + "\n\"%"
	}
	return quote(doc)
}

var bareFieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_'-]*$`)

// Nickel keywords that need quoting when used as field names.
var reservedFieldNames = map[string]bool{
	"and": true, "or": true, "not": true, "if": true, "then": true,
	"else": true, "let": true, "in": true, "fun": true, "import": true,
	"match": true, "rec": true, "null": true, "true": true, "false": true,
	"switch": true, "default": true, "forall": true, "doc": true,
	"optional": true, "priority": true, "force": true, "merge": true,
}

// escapeFieldName quotes field names that would not parse bare: reserved
// keywords, names with special characters, and the $-prefixed schema keys.
func escapeFieldName(name string) string {
	if reservedFieldNames[name] || !bareFieldName.MatchString(name) {
		return quote(name)
	}
	return name
}

var stringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(s string) string {
	return `"` + stringEscaper.Replace(s) + `"`
}

// formatValue renders a default or constant value as a Nickel expression.
// Map keys are sorted so output is deterministic.
func formatValue(v any, level int) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(val)
	case string:
		return quote(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = formatValue(item, level)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		return formatObject(val, level)
	default:
		return quote(fmt.Sprint(val))
	}
}

func formatObject(obj map[string]any, level int) string {
	if len(obj) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	inner := strings.Repeat(" ", (level+1)*2)
	entries := make([]string, len(keys))
	for i, k := range keys {
		entries[i] = inner + escapeFieldName(k) + " = " + formatValue(obj[k], level+1)
	}
	return "{\n" + strings.Join(entries, ",\n") + "\n" + strings.Repeat(" ", level*2) + "}"
}

// formatNumber renders a numeric bound without trailing zeros.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
