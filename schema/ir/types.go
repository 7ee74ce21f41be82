// Package ir defines the parser-independent intermediate representation
// shared by every schema source and every emitter: modules, type
// definitions, the closed set of type variants, and the merge algebra used
// when multiple schema branches describe the same entity.
package ir

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Kind identifies a Type variant
type Kind string

const (
	KindString      Kind = "string"
	KindNumber      Kind = "number"
	KindInteger     Kind = "integer"
	KindBool        Kind = "bool"
	KindNull        Kind = "null"
	KindAny         Kind = "any"
	KindArray       Kind = "array"
	KindMap         Kind = "map"
	KindOptional    Kind = "optional"
	KindRecord      Kind = "record"
	KindUnion       Kind = "union"
	KindTaggedUnion Kind = "tagged_union"
	KindReference   Kind = "reference"
	KindConstrained Kind = "constrained"
	KindContract    Kind = "contract"
)

// Type is the closed set of IR type variants. Implementations are the only
// types in this package; exhaustive switches over them are safe.
type Type interface {
	isType()
	Kind() Kind
	String() string
	Equal(Type) bool
}

// Scalar variants. The zero values are the canonical instances.
type (
	// StringType is the string scalar
	StringType struct{}
	// NumberType is the floating-point scalar
	NumberType struct{}
	// IntegerType is the integral scalar
	IntegerType struct{}
	// BoolType is the boolean scalar
	BoolType struct{}
	// NullType is the null scalar
	NullType struct{}
	// AnyType matches any value
	AnyType struct{}
)

// Canonical scalar instances
var (
	String  = StringType{}
	Number  = NumberType{}
	Integer = IntegerType{}
	Bool    = BoolType{}
	Null    = NullType{}
	Any     = AnyType{}
)

func (StringType) isType()  {}
func (NumberType) isType()  {}
func (IntegerType) isType() {}
func (BoolType) isType()    {}
func (NullType) isType()    {}
func (AnyType) isType()     {}

func (StringType) Kind() Kind  { return KindString }
func (NumberType) Kind() Kind  { return KindNumber }
func (IntegerType) Kind() Kind { return KindInteger }
func (BoolType) Kind() Kind    { return KindBool }
func (NullType) Kind() Kind    { return KindNull }
func (AnyType) Kind() Kind     { return KindAny }

func (StringType) String() string  { return "string" }
func (NumberType) String() string  { return "number" }
func (IntegerType) String() string { return "integer" }
func (BoolType) String() string    { return "bool" }
func (NullType) String() string    { return "null" }
func (AnyType) String() string     { return "any" }

func (StringType) Equal(other Type) bool  { _, ok := other.(StringType); return ok }
func (NumberType) Equal(other Type) bool  { _, ok := other.(NumberType); return ok }
func (IntegerType) Equal(other Type) bool { _, ok := other.(IntegerType); return ok }
func (BoolType) Equal(other Type) bool    { _, ok := other.(BoolType); return ok }
func (NullType) Equal(other Type) bool    { _, ok := other.(NullType); return ok }
func (AnyType) Equal(other Type) bool     { _, ok := other.(AnyType); return ok }

// Array is a homogeneous sequence
type Array struct {
	Element Type
}

func (*Array) isType()    {}
func (*Array) Kind() Kind { return KindArray }

func (a *Array) String() string {
	return fmt.Sprintf("array<%s>", a.Element)
}

func (a *Array) Equal(other Type) bool {
	o, ok := other.(*Array)
	return ok && a.Element.Equal(o.Element)
}

// Map is a homogeneous key/value mapping
type Map struct {
	Key   Type
	Value Type
}

func (*Map) isType()    {}
func (*Map) Kind() Kind { return KindMap }

func (m *Map) String() string {
	return fmt.Sprintf("map<%s, %s>", m.Key, m.Value)
}

func (m *Map) Equal(other Type) bool {
	o, ok := other.(*Map)
	return ok && m.Key.Equal(o.Key) && m.Value.Equal(o.Value)
}

// Optional wraps a type whose value may be absent
type Optional struct {
	Element Type
}

func (*Optional) isType()    {}
func (*Optional) Kind() Kind { return KindOptional }

func (o *Optional) String() string {
	return o.Element.String() + "?"
}

func (o *Optional) Equal(other Type) bool {
	t, ok := other.(*Optional)
	return ok && o.Element.Equal(t.Element)
}

// Record is a named-field structure. Open records permit additional
// undeclared fields.
type Record struct {
	Fields map[string]*Field
	Open   bool
}

// NewRecord creates an empty closed record
func NewRecord() *Record {
	return &Record{Fields: make(map[string]*Field)}
}

func (*Record) isType()    {}
func (*Record) Kind() Kind { return KindRecord }

// FieldNames returns the field names in sorted order. All iteration over
// record fields goes through this so output is deterministic.
func (r *Record) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Record) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, name := range r.FieldNames() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(r.Fields[name].Type.String())
	}
	if r.Open {
		if len(r.Fields) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("..")
	}
	sb.WriteString("}")
	return sb.String()
}

func (r *Record) Equal(other Type) bool {
	o, ok := other.(*Record)
	if !ok || r.Open != o.Open || len(r.Fields) != len(o.Fields) {
		return false
	}
	for name, field := range r.Fields {
		otherField, exists := o.Fields[name]
		if !exists || !field.Equal(otherField) {
			return false
		}
	}
	return true
}

// CoercionKind steers how a target language should collapse a Union
type CoercionKind int

const (
	NoPreference CoercionKind = iota
	PreferString
	PreferNumber
	CustomCoercion
)

// CoercionHint is an optional instruction attached to a Union. Custom hints
// carry target-language text in Expr.
type CoercionHint struct {
	Kind CoercionKind
	Expr string
}

// Union is an untagged alternation of member types
type Union struct {
	Members []Type
	Hint    CoercionHint
}

func (*Union) isType()    {}
func (*Union) Kind() Kind { return KindUnion }

func (u *Union) String() string {
	parts := make([]string, len(u.Members))
	for i, m := range u.Members {
		parts[i] = m.String()
	}
	return strings.Join(parts, " | ")
}

func (u *Union) Equal(other Type) bool {
	o, ok := other.(*Union)
	if !ok || len(u.Members) != len(o.Members) || u.Hint != o.Hint {
		return false
	}
	for i, m := range u.Members {
		if !m.Equal(o.Members[i]) {
			return false
		}
	}
	return true
}

// TaggedUnion is a discriminated alternation keyed by a tag field
type TaggedUnion struct {
	TagField string
	Variants map[string]Type
}

func (*TaggedUnion) isType()    {}
func (*TaggedUnion) Kind() Kind { return KindTaggedUnion }

// VariantTags returns the tags in sorted order
func (tu *TaggedUnion) VariantTags() []string {
	tags := make([]string, 0, len(tu.Variants))
	for tag := range tu.Variants {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func (tu *TaggedUnion) String() string {
	return fmt.Sprintf("tagged<%s>{%s}", tu.TagField, strings.Join(tu.VariantTags(), ", "))
}

func (tu *TaggedUnion) Equal(other Type) bool {
	o, ok := other.(*TaggedUnion)
	if !ok || tu.TagField != o.TagField || len(tu.Variants) != len(o.Variants) {
		return false
	}
	for tag, variant := range tu.Variants {
		otherVariant, exists := o.Variants[tag]
		if !exists || !variant.Equal(otherVariant) {
			return false
		}
	}
	return true
}

// Reference is an unresolved link to a type declared elsewhere. Module is
// empty for same-module references.
type Reference struct {
	Name   string
	Module string
}

func (*Reference) isType()    {}
func (*Reference) Kind() Kind { return KindReference }

func (r *Reference) String() string {
	if r.Module == "" {
		return r.Name
	}
	return r.Module + "." + r.Name
}

func (r *Reference) Equal(other Type) bool {
	o, ok := other.(*Reference)
	return ok && r.Name == o.Name && r.Module == o.Module
}

// Constrained wraps a base type with validation constraints
type Constrained struct {
	Base  Type
	Rules ValidationRules
}

func (*Constrained) isType()    {}
func (*Constrained) Kind() Kind { return KindConstrained }

func (c *Constrained) String() string {
	return fmt.Sprintf("constrained<%s>", c.Base)
}

func (c *Constrained) Equal(other Type) bool {
	o, ok := other.(*Constrained)
	return ok && c.Base.Equal(o.Base) && c.Rules.Equal(&o.Rules)
}

// Contract wraps a base type with named predicate expressions
type Contract struct {
	Base  Type
	Rules []ContractRule
}

func (*Contract) isType()    {}
func (*Contract) Kind() Kind { return KindContract }

func (c *Contract) String() string {
	return fmt.Sprintf("contract<%s>", c.Base)
}

func (c *Contract) Equal(other Type) bool {
	o, ok := other.(*Contract)
	if !ok || !c.Base.Equal(o.Base) || len(c.Rules) != len(o.Rules) {
		return false
	}
	for i, rule := range c.Rules {
		if rule != o.Rules[i] {
			return false
		}
	}
	return true
}

// Field describes one record member
type Field struct {
	Type        Type
	Required    bool
	Description string
	Default     any
	Validation  *ValidationRules
	Contracts   []ContractRule
}

// NewField creates a required field of the given type
func NewField(t Type) *Field {
	return &Field{Type: t, Required: true}
}

// Equal reports full structural equality, including documentation and
// constraints
func (f *Field) Equal(other *Field) bool {
	if f.Required != other.Required || f.Description != other.Description {
		return false
	}
	if !f.Type.Equal(other.Type) {
		return false
	}
	if !reflect.DeepEqual(f.Default, other.Default) {
		return false
	}
	if (f.Validation == nil) != (other.Validation == nil) {
		return false
	}
	if f.Validation != nil && !f.Validation.Equal(other.Validation) {
		return false
	}
	if len(f.Contracts) != len(other.Contracts) {
		return false
	}
	for i, c := range f.Contracts {
		if c != other.Contracts[i] {
			return false
		}
	}
	return true
}
