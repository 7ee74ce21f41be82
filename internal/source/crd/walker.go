package crd

import (
	"sort"
	"strings"
	"time"

	"github.com/smelter-dev/smelter/schema/diag"
	"github.com/smelter-dev/smelter/schema/ir"
	"gopkg.in/yaml.v3"
)

// Walker converts parsed CRDs into IR. One walker can process many
// manifests; modules accumulate per group and version.
type Walker struct{}

func New() *Walker {
	return &Walker{}
}

// WalkFiles parses each manifest file and walks everything found. File
// and YAML errors abort; schema problems become issues in the result.
func (w *Walker) WalkFiles(paths ...string) (*ir.IR, diag.Result, error) {
	run := newWalk()
	for _, path := range paths {
		crds, err := ParseFile(path)
		if err != nil {
			return nil, run.issues, err
		}
		for i := range crds {
			run.crd(&crds[i], path)
		}
	}
	return run.finish(), run.issues, nil
}

// Walk converts already-parsed definitions into IR.
func (w *Walker) Walk(crds []CustomResourceDefinition) (*ir.IR, diag.Result) {
	run := newWalk()
	for i := range crds {
		run.crd(&crds[i], "")
	}
	return run.finish(), run.issues
}

// walk is the per-run state: module accumulation plus issue attribution
// for the node currently being converted.
type walk struct {
	modules  map[string]*ir.Module
	order    []string
	issues   diag.Result
	module   string
	typeName string
}

func newWalk() *walk {
	return &walk{modules: make(map[string]*ir.Module)}
}

func (wk *walk) finish() *ir.IR {
	out := ir.NewIR()
	for _, name := range wk.order {
		out.AddModule(wk.modules[name])
	}
	return out
}

func (wk *walk) moduleFor(name, sourceFile, version string) *ir.Module {
	if m, ok := wk.modules[name]; ok {
		return m
	}
	m := ir.NewModule(name)
	m.Metadata = ir.Metadata{
		SourceLanguage: "crd",
		SourceFile:     sourceFile,
		Version:        version,
		GeneratedAt:    time.Now().UTC(),
	}
	wk.modules[name] = m
	wk.order = append(wk.order, name)
	return m
}

func (wk *walk) warn(code, message string) {
	wk.issues.Add(diag.NewWarning(code, message).InModule(wk.module).InType(wk.typeName))
}

func (wk *walk) info(code, message string) {
	wk.issues.Add(diag.NewInfo(code, message).InModule(wk.module).InType(wk.typeName))
}

func (wk *walk) crd(crd *CustomResourceDefinition, sourceFile string) {
	kind := crd.Spec.Names.Kind
	if kind == "" {
		kind = crd.Metadata.Name
	}

	for i := range crd.Spec.Versions {
		version := &crd.Spec.Versions[i]
		moduleName := crd.Spec.Group + "." + version.Name
		wk.module = moduleName
		wk.typeName = kind

		if version.Schema == nil || version.Schema.OpenAPIV3Schema == nil {
			wk.info(diag.CodeMissingSchema, "version "+version.Name+" declares no openAPIV3Schema; skipped")
			continue
		}

		module := wk.moduleFor(moduleName, sourceFile, version.Name)
		wk.kind(module, kind, version.Schema.OpenAPIV3Schema)
	}
}

// kind builds the resource envelope type plus hoisted Spec/Status types.
// CRD schemas rarely declare apiVersion, kind or metadata; the envelope
// carries them anyway so generated manifests typecheck.
func (wk *walk) kind(module *ir.Module, kind string, root *Schema) {
	envelope := ir.NewRecord()
	envelope.Fields["apiVersion"] = ir.NewField(ir.StringType{})
	envelope.Fields["kind"] = ir.NewField(ir.StringType{})
	envelope.Fields["metadata"] = &ir.Field{
		Type: &ir.Reference{Name: "ObjectMeta", Module: "io.k8s.apimachinery.pkg.apis.meta.v1"},
	}

	required := stringSet(root.Required)
	for _, name := range sortedKeys(root.Properties) {
		prop := root.Properties[name]

		switch name {
		case "spec", "status":
			field := wk.hoisted(module, kind, name, prop)
			field.Required = required[name]
			envelope.Fields[name] = field
		default:
			field := wk.field(prop)
			field.Required = required[name]
			envelope.Fields[name] = field
		}
	}
	envelope.Open = isOpen(root)

	def := ir.NewTypeDefinition(kind, envelope)
	def.Documentation = root.Description
	module.AddType(def)
}

// hoisted lifts a record-shaped spec or status subtree into its own named
// type and returns a field referencing it. Non-record subtrees stay
// inline.
func (wk *walk) hoisted(module *ir.Module, kind, name string, prop *Schema) *ir.Field {
	field := wk.field(prop)

	record, ok := field.Type.(*ir.Record)
	if !ok || len(record.Fields) == 0 {
		return field
	}

	hoistedName := kind + ir.ToPascalCase(name)
	prev := wk.typeName
	wk.typeName = hoistedName

	def := ir.NewTypeDefinition(hoistedName, record)
	def.Documentation = prop.Description
	module.AddType(def)

	wk.typeName = prev
	field.Type = &ir.Reference{Name: hoistedName}
	return field
}

// field converts one property schema into a field: its type, extracted
// validation rules, description and default. Required is the caller's.
func (wk *walk) field(schema *Schema) *ir.Field {
	field := &ir.Field{
		Type:        wk.typeOf(schema),
		Description: schema.Description,
		Default:     schema.Default,
	}
	if rules := wk.rules(schema); !rules.IsEmpty() {
		field.Validation = &rules
	}
	return field
}

// typeOf converts a schema node into a bare type. Constraint keywords are
// extracted separately; in non-field positions the caller wraps them via
// constrained.
func (wk *walk) typeOf(schema *Schema) ir.Type {
	if schema == nil {
		return ir.AnyType{}
	}

	if schema.Ref != "" {
		return wk.reference(schema.Ref)
	}

	// IntOrString is a union however the schema spells its type.
	if schema.XIntOrString {
		return &ir.Union{
			Members: []ir.Type{ir.IntegerType{}, ir.StringType{}},
			Hint:    ir.CoercionHint{Kind: ir.PreferString},
		}
	}

	if schema.Not != nil {
		wk.info(diag.CodeUnsupportedSchema, "not constraints are not translated")
	}

	switch schema.Type {
	case "string":
		return ir.StringType{}
	case "number":
		return ir.NumberType{}
	case "integer":
		return ir.IntegerType{}
	case "boolean":
		return ir.BoolType{}
	case "null":
		return ir.NullType{}
	case "array":
		return &ir.Array{Element: wk.element(schema.Items)}
	case "object":
		return wk.object(schema)
	case "":
		switch {
		case len(schema.OneOf) > 0:
			return wk.union(schema.OneOf)
		case len(schema.AnyOf) > 0:
			return wk.union(schema.AnyOf)
		case len(schema.AllOf) > 0:
			return wk.allOf(schema.AllOf)
		default:
			return ir.AnyType{}
		}
	default:
		wk.warn(diag.CodeUnsupportedSchema, "unsupported schema type "+schema.Type)
		return ir.AnyType{}
	}
}

// element converts an items schema, wrapping extracted constraints so they
// survive outside a field position.
func (wk *walk) element(schema *Schema) ir.Type {
	if schema == nil {
		return ir.AnyType{}
	}
	return wk.constrained(wk.typeOf(schema), schema)
}

func (wk *walk) object(schema *Schema) ir.Type {
	if len(schema.Properties) == 0 {
		// A bare object with a value schema is a map; anything else is an
		// open empty record.
		if schema.AdditionalProperties != nil && schema.AdditionalProperties.Schema != nil {
			value := wk.constrained(wk.typeOf(schema.AdditionalProperties.Schema), schema.AdditionalProperties.Schema)
			return &ir.Map{Key: ir.StringType{}, Value: value}
		}
		return &ir.Record{Fields: map[string]*ir.Field{}, Open: true}
	}

	record := ir.NewRecord()
	required := stringSet(schema.Required)
	for _, name := range sortedKeys(schema.Properties) {
		field := wk.field(schema.Properties[name])
		field.Required = required[name]
		record.Fields[name] = field
	}
	record.Open = isOpen(schema)
	return record
}

func (wk *walk) union(branches []*Schema) ir.Type {
	members := make([]ir.Type, 0, len(branches))
	for _, branch := range branches {
		members = append(members, wk.element(branch))
	}

	return &ir.Union{Members: members, Hint: unionHint(members)}
}

// unionHint recognizes the int-or-string shape and asks the emitter to
// keep the string side usable.
func unionHint(members []ir.Type) ir.CoercionHint {
	if len(members) != 2 {
		return ir.CoercionHint{}
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
	if hasInt && hasString {
		return ir.CoercionHint{Kind: ir.PreferString}
	}
	return ir.CoercionHint{}
}

func (wk *walk) allOf(branches []*Schema) ir.Type {
	walked := make([]ir.Type, 0, len(branches))
	for _, branch := range branches {
		walked = append(walked, wk.element(branch))
	}
	return ir.MergeAllOf(walked)
}

// constrained wraps a type with the schema's validation rules when the
// position has no field to carry them.
func (wk *walk) constrained(t ir.Type, schema *Schema) ir.Type {
	rules := wk.rules(schema)
	if rules.IsEmpty() {
		return t
	}
	return &ir.Constrained{Base: t, Rules: rules}
}

// reference converts a $ref into a Reference node. Dotted names keep
// their module part; bare names stay local.
func (wk *walk) reference(ref string) ir.Type {
	name := strings.TrimPrefix(ref, "#/definitions/")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}

	if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
		return &ir.Reference{Name: name[dot+1:], Module: name[:dot]}
	}
	return &ir.Reference{Name: name}
}

// rules extracts every validation keyword and platform extension the
// schema carries.
func (wk *walk) rules(schema *Schema) ir.ValidationRules {
	rules := ir.ValidationRules{
		MinLength:     clonedInt(schema.MinLength),
		MaxLength:     clonedInt(schema.MaxLength),
		Pattern:       schema.Pattern,
		Minimum:       clonedFloat(schema.Minimum),
		Maximum:       clonedFloat(schema.Maximum),
		MinItems:      clonedInt(schema.MinItems),
		MaxItems:      clonedInt(schema.MaxItems),
		UniqueItems:   schema.UniqueItems,
		MinProperties: clonedInt(schema.MinProperties),
		MaxProperties: clonedInt(schema.MaxProperties),

		IntOrString:           schema.XIntOrString,
		PreserveUnknownFields: schema.XPreserveUnknownFields,
		EmbeddedResource:      schema.XEmbeddedResource,
	}

	if schema.Format != "" {
		format := ir.StringFormat(schema.Format)
		rules.Format = &format
	}
	if len(schema.Enum) > 0 {
		rules.AllowedValues = append([]any(nil), schema.Enum...)
	}
	for _, v := range schema.XValidations {
		if v.Rule != "" {
			rules.Expressions = append(rules.Expressions, v.Rule)
		}
	}

	wk.exclusiveBounds(&rules, schema)
	return rules
}

// exclusiveBounds handles both spellings of exclusive limits: the boolean
// modifier promotes the plain bound, the numeric form stands alone.
func (wk *walk) exclusiveBounds(rules *ir.ValidationRules, schema *Schema) {
	rules.ExclusiveMinimum = wk.exclusiveBound(schema.ExclusiveMinimum, &rules.Minimum)
	rules.ExclusiveMaximum = wk.exclusiveBound(schema.ExclusiveMaximum, &rules.Maximum)
}

func (wk *walk) exclusiveBound(node *yaml.Node, plain **float64) *float64 {
	if node == nil {
		return nil
	}

	var flag bool
	if err := node.Decode(&flag); err == nil {
		if flag && *plain != nil {
			bound := **plain
			*plain = nil
			return &bound
		}
		return nil
	}

	var value float64
	if err := node.Decode(&value); err == nil {
		return &value
	}

	wk.warn(diag.CodeUnsupportedSchema, "exclusive bound is neither bool nor number")
	return nil
}

func isOpen(schema *Schema) bool {
	if schema.XPreserveUnknownFields {
		return true
	}
	return schema.AdditionalProperties != nil && schema.AdditionalProperties.Allowed && schema.AdditionalProperties.Schema == nil
}

func stringSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func sortedKeys(m map[string]*Schema) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clonedInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func clonedFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
