package ir

import (
	"testing"
)

// TestTypeEqual tests the Equal method across variants
func TestTypeEqual(t *testing.T) {
	tests := []struct {
		name  string
		type1 Type
		type2 Type
		equal bool
	}{
		{
			name:  "identical scalars",
			type1: String,
			type2: String,
			equal: true,
		},
		{
			name:  "different scalars",
			type1: Integer,
			type2: Number,
			equal: false,
		},
		{
			name:  "identical arrays",
			type1: &Array{Element: String},
			type2: &Array{Element: String},
			equal: true,
		},
		{
			name:  "different array elements",
			type1: &Array{Element: String},
			type2: &Array{Element: Integer},
			equal: false,
		},
		{
			name:  "identical maps",
			type1: &Map{Key: String, Value: Any},
			type2: &Map{Key: String, Value: Any},
			equal: true,
		},
		{
			name:  "optional versus bare",
			type1: &Optional{Element: String},
			type2: String,
			equal: false,
		},
		{
			name: "identical records",
			type1: &Record{Fields: map[string]*Field{
				"name": {Type: String, Required: true},
			}},
			type2: &Record{Fields: map[string]*Field{
				"name": {Type: String, Required: true},
			}},
			equal: true,
		},
		{
			name: "records differing in required flag",
			type1: &Record{Fields: map[string]*Field{
				"name": {Type: String, Required: true},
			}},
			type2: &Record{Fields: map[string]*Field{
				"name": {Type: String, Required: false},
			}},
			equal: false,
		},
		{
			name: "records differing in openness",
			type1: &Record{Fields: map[string]*Field{}, Open: true},
			type2: &Record{Fields: map[string]*Field{}, Open: false},
			equal: false,
		},
		{
			name:  "identical references",
			type1: &Reference{Name: "ObjectMeta", Module: "io.k8s.apimachinery.pkg.apis.meta.v1"},
			type2: &Reference{Name: "ObjectMeta", Module: "io.k8s.apimachinery.pkg.apis.meta.v1"},
			equal: true,
		},
		{
			name:  "references differing in module",
			type1: &Reference{Name: "ObjectMeta", Module: "a.v1"},
			type2: &Reference{Name: "ObjectMeta", Module: "b.v1"},
			equal: false,
		},
		{
			name:  "identical unions",
			type1: &Union{Members: []Type{Integer, String}},
			type2: &Union{Members: []Type{Integer, String}},
			equal: true,
		},
		{
			name:  "unions differing in hint",
			type1: &Union{Members: []Type{Integer, String}, Hint: CoercionHint{Kind: PreferString}},
			type2: &Union{Members: []Type{Integer, String}},
			equal: false,
		},
		{
			name: "identical tagged unions",
			type1: &TaggedUnion{TagField: "kind", Variants: map[string]Type{
				"a": String, "b": Integer,
			}},
			type2: &TaggedUnion{TagField: "kind", Variants: map[string]Type{
				"a": String, "b": Integer,
			}},
			equal: true,
		},
		{
			name:  "identical constrained",
			type1: &Constrained{Base: String, Rules: ValidationRules{MinLength: IntPtr(1)}},
			type2: &Constrained{Base: String, Rules: ValidationRules{MinLength: IntPtr(1)}},
			equal: true,
		},
		{
			name:  "constrained differing in rules",
			type1: &Constrained{Base: String, Rules: ValidationRules{MinLength: IntPtr(1)}},
			type2: &Constrained{Base: String, Rules: ValidationRules{MinLength: IntPtr(2)}},
			equal: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.type1.Equal(tt.type2); got != tt.equal {
				t.Errorf("Equal() = %v, want %v", got, tt.equal)
			}
			// Equality is symmetric
			if got := tt.type2.Equal(tt.type1); got != tt.equal {
				t.Errorf("Equal() reversed = %v, want %v", got, tt.equal)
			}
		})
	}
}

// TestTypeString tests debug renderings
func TestTypeString(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{String, "string"},
		{&Array{Element: Integer}, "array<integer>"},
		{&Map{Key: String, Value: Any}, "map<string, any>"},
		{&Optional{Element: Bool}, "bool?"},
		{&Union{Members: []Type{Integer, String}}, "integer | string"},
		{&Reference{Name: "Pod", Module: "io.k8s.api.core.v1"}, "io.k8s.api.core.v1.Pod"},
		{&Reference{Name: "Volume"}, "Volume"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

// TestRecordFieldNames tests deterministic field ordering
func TestRecordFieldNames(t *testing.T) {
	record := &Record{Fields: map[string]*Field{
		"zebra":  {Type: String},
		"alpha":  {Type: String},
		"middle": {Type: String},
	}}
	names := record.FieldNames()
	want := []string{"alpha", "middle", "zebra"}
	if len(names) != len(want) {
		t.Fatalf("FieldNames() returned %d names, want %d", len(names), len(want))
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("FieldNames()[%d] = %q, want %q", i, names[i], name)
		}
	}
}

// TestCollectReferences tests the reference walk used for dependency
// discovery
func TestCollectReferences(t *testing.T) {
	tree := &Record{Fields: map[string]*Field{
		"metadata": {Type: &Reference{Name: "ObjectMeta", Module: "io.k8s.apimachinery.pkg.apis.meta.v1"}},
		"spec": {Type: &Record{Fields: map[string]*Field{
			"template": {Type: &Optional{Element: &Reference{Name: "PodTemplateSpec", Module: "io.k8s.api.core.v1"}}},
			"replicas": {Type: Integer},
		}}},
		"conditions": {Type: &Array{Element: &Reference{Name: "Condition"}}},
	}}

	refs := CollectReferences(tree)
	if len(refs) != 3 {
		t.Fatalf("CollectReferences() returned %d refs, want 3", len(refs))
	}

	byName := make(map[string]string)
	for _, ref := range refs {
		byName[ref.Name] = ref.Module
	}
	if byName["ObjectMeta"] != "io.k8s.apimachinery.pkg.apis.meta.v1" {
		t.Errorf("ObjectMeta module = %q", byName["ObjectMeta"])
	}
	if byName["PodTemplateSpec"] != "io.k8s.api.core.v1" {
		t.Errorf("PodTemplateSpec module = %q", byName["PodTemplateSpec"])
	}
	if module, ok := byName["Condition"]; !ok || module != "" {
		t.Errorf("Condition should be a local reference, got %q", module)
	}
}
