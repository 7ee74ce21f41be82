package nickel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smelter-dev/smelter/schema/ir"
	"github.com/smelter-dev/smelter/schema/registry"
	"github.com/smelter-dev/smelter/schema/resolve"
)

func testEmitter(t *testing.T, modules ...*ir.Module) *Emitter {
	t.Helper()
	input := ir.NewIR()
	for _, m := range modules {
		input.AddModule(m)
	}
	reg := registry.FromIR(input)
	return New(reg, resolve.New(reg))
}

func testContext(t *testing.T, e *Emitter, module *ir.Module) *renderContext {
	t.Helper()
	info, ok := e.reg.Get(module.Name)
	require.True(t, ok, "module %q not registered", module.Name)
	return &renderContext{e: e, module: module, info: info, tracker: newImportTracker(info)}
}

func widgetModule(defs ...*ir.TypeDefinition) *ir.Module {
	m := ir.NewModule("widgets.example.com.v1")
	for _, def := range defs {
		m.AddType(def)
	}
	return m
}

func TestRenderScalars(t *testing.T) {
	module := widgetModule(ir.NewTypeDefinition("Widget", ir.String))
	ctx := testContext(t, testEmitter(t, module), module)

	tests := []struct {
		typ  ir.Type
		want string
	}{
		{ir.String, "String"},
		{ir.Number, "Number"},
		{ir.Integer, "Number"},
		{ir.Bool, "Bool"},
		{ir.Null, "Null"},
		{ir.Any, "Dyn"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ctx.render(tt.typ, 0))
	}
}

func TestRenderComposites(t *testing.T) {
	module := widgetModule(ir.NewTypeDefinition("Widget", ir.String))
	ctx := testContext(t, testEmitter(t, module), module)

	tests := []struct {
		name string
		typ  ir.Type
		want string
	}{
		{"array of scalar", &ir.Array{Element: ir.String}, "Array String"},
		{"array of compound", &ir.Array{Element: &ir.Optional{Element: ir.String}}, "Array (String | Null)"},
		{"array of map", &ir.Array{Element: &ir.Map{Value: ir.String}}, "Array { _ : String }"},
		{"map", &ir.Map{Value: ir.Integer}, "{ _ : Number }"},
		{"optional", &ir.Optional{Element: ir.Bool}, "Bool | Null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ctx.render(tt.typ, 0))
		})
	}
}

func TestRenderRecordClosed(t *testing.T) {
	module := widgetModule(ir.NewTypeDefinition("Widget", ir.String))
	ctx := testContext(t, testEmitter(t, module), module)

	record := &ir.Record{
		Fields: map[string]*ir.Field{
			"name":  {Type: ir.String, Required: true},
			"count": {Type: ir.Integer},
		},
	}

	want := "{\n" +
		"  count\n" +
		"    | Number\n" +
		"    | optional,\n" +
		"  name\n" +
		"    | String\n" +
		"}"
	assert.Equal(t, want, ctx.render(record, 0))
}

func TestRenderRecordOpen(t *testing.T) {
	module := widgetModule(ir.NewTypeDefinition("Widget", ir.String))
	ctx := testContext(t, testEmitter(t, module), module)

	record := &ir.Record{
		Open: true,
		Fields: map[string]*ir.Field{
			"extra": {Type: ir.String},
		},
	}

	// The last field still gets a comma when the open marker follows it.
	want := "{\n" +
		"  extra\n" +
		"    | String\n" +
		"    | optional,\n" +
		"  .. | Dyn,\n" +
		"}"
	assert.Equal(t, want, ctx.render(record, 0))
}

func TestRenderRecordEmpty(t *testing.T) {
	module := widgetModule(ir.NewTypeDefinition("Widget", ir.String))
	ctx := testContext(t, testEmitter(t, module), module)

	assert.Equal(t, "{ .. }", ctx.render(&ir.Record{Open: true}, 0))
	assert.Equal(t, "{}", ctx.render(&ir.Record{}, 0))
}

func TestRenderFieldDocAndDefault(t *testing.T) {
	module := widgetModule(ir.NewTypeDefinition("Widget", ir.String))
	ctx := testContext(t, testEmitter(t, module), module)

	record := &ir.Record{
		Fields: map[string]*ir.Field{
			"replicas": {Type: ir.Integer, Description: "Replica count.", Default: 1},
		},
	}

	// A defaulted field is implicitly optional; no marker, default last.
	want := "{\n" +
		"  replicas\n" +
		"    | Number\n" +
		"    | doc \"Replica count.\"\n" +
		"    = 1\n" +
		"}"
	assert.Equal(t, want, ctx.render(record, 0))
}

func TestRenderNestedRecordIndentation(t *testing.T) {
	module := widgetModule(ir.NewTypeDefinition("Widget", ir.String))
	ctx := testContext(t, testEmitter(t, module), module)

	record := &ir.Record{
		Fields: map[string]*ir.Field{
			"spec": {
				Type: &ir.Record{
					Fields: map[string]*ir.Field{
						"size": {Type: ir.Integer, Required: true},
					},
				},
				Required: true,
			},
		},
	}

	want := "{\n" +
		"  spec\n" +
		"    | {\n" +
		"      size\n" +
		"        | Number\n" +
		"    }\n" +
		"}"
	assert.Equal(t, want, ctx.render(record, 0))
}

func TestRenderUnionHints(t *testing.T) {
	module := widgetModule(ir.NewTypeDefinition("Widget", ir.String))
	ctx := testContext(t, testEmitter(t, module), module)

	tests := []struct {
		name string
		typ  *ir.Union
		want string
	}{
		{
			"int or string",
			&ir.Union{Members: []ir.Type{ir.Integer, ir.String}, Hint: ir.CoercionHint{Kind: ir.PreferString}},
			intOrStringContract,
		},
		{
			"prefer string elsewhere",
			&ir.Union{Members: []ir.Type{ir.String, ir.Bool}, Hint: ir.CoercionHint{Kind: ir.PreferString}},
			"String",
		},
		{
			"prefer number",
			&ir.Union{Members: []ir.Type{ir.Integer, ir.Number}, Hint: ir.CoercionHint{Kind: ir.PreferNumber}},
			"Number",
		},
		{
			"custom expression",
			&ir.Union{Members: []ir.Type{ir.String}, Hint: ir.CoercionHint{Kind: ir.CustomCoercion, Expr: "MyContract"}},
			"MyContract",
		},
		{
			"no hint",
			&ir.Union{Members: []ir.Type{ir.String, ir.Bool}},
			"String | Bool",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ctx.render(tt.typ, 0))
		})
	}
}

func TestRenderTaggedUnion(t *testing.T) {
	module := widgetModule(ir.NewTypeDefinition("Widget", ir.String))
	ctx := testContext(t, testEmitter(t, module), module)

	tu := &ir.TaggedUnion{
		TagField: "type",
		Variants: map[string]ir.Type{
			"file": ir.String,
			"dir":  ir.Bool,
		},
	}

	assert.Equal(t, `(type == "dir" && Bool) | (type == "file" && String)`, ctx.render(tu, 0))
}

func TestReferenceSiblingType(t *testing.T) {
	module := widgetModule(
		ir.NewTypeDefinition("Widget", ir.String),
		ir.NewTypeDefinition("WidgetSpec", ir.String),
	)
	ctx := testContext(t, testEmitter(t, module), module)
	ctx.typeName = "Widget"

	// Same module, different file: the reference binds a sibling import.
	assert.Equal(t, "widgetSpec", ctx.render(&ir.Reference{Name: "WidgetSpec"}, 0))

	stmts := ctx.tracker.statements()
	require.Len(t, stmts, 1)
	assert.Equal(t, `let widgetSpec = import "./widgetspec.ncl" in`, stmts[0])
}

func TestReferenceSelfDegradesToDyn(t *testing.T) {
	module := widgetModule(ir.NewTypeDefinition("Widget", ir.String))
	ctx := testContext(t, testEmitter(t, module), module)
	ctx.typeName = "Widget"

	assert.Equal(t, "Dyn", ctx.render(&ir.Reference{Name: "Widget"}, 0))
	assert.Empty(t, ctx.tracker.statements())
}

func TestReferenceKubernetesMeta(t *testing.T) {
	module := widgetModule(ir.NewTypeDefinition("Widget", ir.String))
	ctx := testContext(t, testEmitter(t, module), module)

	got := ctx.render(&ir.Reference{Name: "ObjectMeta"}, 0)
	assert.Equal(t, "metaV1.ObjectMeta", got)

	stmts := ctx.tracker.statements()
	require.Len(t, stmts, 1)
	assert.Equal(t, `let metaV1 = import "../../apimachinery.pkg.apis/meta/v1/mod.ncl" in`, stmts[0])
}

func TestReferenceAcrossModules(t *testing.T) {
	widgets := widgetModule(ir.NewTypeDefinition("Widget", ir.String))
	gadgets := ir.NewModule("gadgets.example.com.v1")
	gadgets.AddType(ir.NewTypeDefinition("Gadget", ir.String))

	ctx := testContext(t, testEmitter(t, widgets, gadgets), widgets)

	got := ctx.render(&ir.Reference{Name: "Gadget"}, 0)
	assert.Equal(t, "gadgets_gadget", got)

	stmts := ctx.tracker.statements()
	require.Len(t, stmts, 1)
	assert.Equal(t, `let gadgets_gadget = import "../../gadgets_example_com/v1/gadget.ncl" in`, stmts[0])
}

func TestReferenceUnknownPassesThrough(t *testing.T) {
	module := widgetModule(ir.NewTypeDefinition("Widget", ir.String))
	ctx := testContext(t, testEmitter(t, module), module)

	// Neither declared in the run nor covered by a location convention:
	// the reference survives as written and adds no import.
	got := ctx.render(&ir.Reference{Name: "acme.example.org.v2.Part"}, 0)
	assert.Equal(t, "acme.example.org.v2.Part", got)
	assert.Empty(t, ctx.tracker.statements())
}

func TestEscapeFieldName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"replicas", "replicas"},
		{"x-kubernetes-preserve", "x-kubernetes-preserve"},
		{"if", `"if"`},
		{"default", `"default"`},
		{"$schema", `"$schema"`},
		{"my.field", `"my.field"`},
		{"123abc", `"123abc"`},
		{"", `""`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeFieldName(tt.name), "field %q", tt.name)
	}
}

func TestFormatDoc(t *testing.T) {
	assert.Equal(t, `"Short text."`, formatDoc("Short text."))
	assert.Equal(t, `"Says \"hi\"."`, formatDoc(`Says "hi".`))

	long := "This description goes well past the eighty character cutoff for a single quoted line."
	assert.Equal(t, "m%\"\n"+long+"\n\"%", formatDoc(long))

	assert.Equal(t, "m%\"\nfirst\nsecond\n\"%", formatDoc("first\nsecond\n"))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"null", nil, "null"},
		{"bool", true, "true"},
		{"string", "on", `"on"`},
		{"int", 3, "3"},
		{"float", 1.5, "1.5"},
		{"whole float", float64(2), "2"},
		{"array", []any{1, "two"}, `[1, "two"]`},
		{"empty object", map[string]any{}, "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.value, 0))
		})
	}
}

func TestFormatValueObject(t *testing.T) {
	value := map[string]any{
		"port": 8080,
		"tls":  map[string]any{"enabled": false},
	}
	want := "{\n" +
		"  port = 8080,\n" +
		"  tls = {\n" +
		"    enabled = false\n" +
		"  }\n" +
		"}"
	assert.Equal(t, want, formatValue(value, 0))
}
