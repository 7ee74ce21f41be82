package ir

import (
	"encoding/json"
	"fmt"
)

// The interchange encoding tags every type node with its kind so trees
// survive a marshal/unmarshal round trip. The pipeline persists IR between
// stages in this form.

type typeEnvelope struct {
	Kind Kind `json:"kind"`
}

// MarshalType encodes any type variant
func MarshalType(t Type) ([]byte, error) {
	return json.Marshal(t)
}

// UnmarshalType decodes a type envelope back into the concrete variant
func UnmarshalType(data []byte) (Type, error) {
	var envelope typeEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("type envelope: %w", err)
	}

	switch envelope.Kind {
	case KindString:
		return String, nil
	case KindNumber:
		return Number, nil
	case KindInteger:
		return Integer, nil
	case KindBool:
		return Bool, nil
	case KindNull:
		return Null, nil
	case KindAny:
		return Any, nil
	case KindArray:
		var payload struct {
			Element json.RawMessage `json:"element"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		element, err := UnmarshalType(payload.Element)
		if err != nil {
			return nil, err
		}
		return &Array{Element: element}, nil
	case KindMap:
		var payload struct {
			Key   json.RawMessage `json:"key"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		key, err := UnmarshalType(payload.Key)
		if err != nil {
			return nil, err
		}
		value, err := UnmarshalType(payload.Value)
		if err != nil {
			return nil, err
		}
		return &Map{Key: key, Value: value}, nil
	case KindOptional:
		var payload struct {
			Element json.RawMessage `json:"element"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		element, err := UnmarshalType(payload.Element)
		if err != nil {
			return nil, err
		}
		return &Optional{Element: element}, nil
	case KindRecord:
		var payload struct {
			Fields map[string]json.RawMessage `json:"fields"`
			Open   bool                       `json:"open"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		record := &Record{Fields: make(map[string]*Field, len(payload.Fields)), Open: payload.Open}
		for name, raw := range payload.Fields {
			var field Field
			if err := json.Unmarshal(raw, &field); err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			record.Fields[name] = &field
		}
		return record, nil
	case KindUnion:
		var payload struct {
			Members []json.RawMessage `json:"members"`
			Hint    *coercionHintJSON `json:"hint,omitempty"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		union := &Union{Members: make([]Type, len(payload.Members))}
		for i, raw := range payload.Members {
			member, err := UnmarshalType(raw)
			if err != nil {
				return nil, err
			}
			union.Members[i] = member
		}
		if payload.Hint != nil {
			union.Hint = payload.Hint.toHint()
		}
		return union, nil
	case KindTaggedUnion:
		var payload struct {
			TagField string                     `json:"tag_field"`
			Variants map[string]json.RawMessage `json:"variants"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		tagged := &TaggedUnion{TagField: payload.TagField, Variants: make(map[string]Type, len(payload.Variants))}
		for tag, raw := range payload.Variants {
			variant, err := UnmarshalType(raw)
			if err != nil {
				return nil, err
			}
			tagged.Variants[tag] = variant
		}
		return tagged, nil
	case KindReference:
		var payload struct {
			Name   string `json:"name"`
			Module string `json:"module,omitempty"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return &Reference{Name: payload.Name, Module: payload.Module}, nil
	case KindConstrained:
		var payload struct {
			Base  json.RawMessage `json:"base"`
			Rules ValidationRules `json:"rules"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		base, err := UnmarshalType(payload.Base)
		if err != nil {
			return nil, err
		}
		return &Constrained{Base: base, Rules: payload.Rules}, nil
	case KindContract:
		var payload struct {
			Base  json.RawMessage `json:"base"`
			Rules []ContractRule  `json:"rules"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		base, err := UnmarshalType(payload.Base)
		if err != nil {
			return nil, err
		}
		return &Contract{Base: base, Rules: payload.Rules}, nil
	default:
		return nil, fmt.Errorf("unknown type kind %q", envelope.Kind)
	}
}

// MarshalJSON implementations for each variant

func (t StringType) MarshalJSON() ([]byte, error)  { return kindOnly(KindString) }
func (t NumberType) MarshalJSON() ([]byte, error)  { return kindOnly(KindNumber) }
func (t IntegerType) MarshalJSON() ([]byte, error) { return kindOnly(KindInteger) }
func (t BoolType) MarshalJSON() ([]byte, error)    { return kindOnly(KindBool) }
func (t NullType) MarshalJSON() ([]byte, error)    { return kindOnly(KindNull) }
func (t AnyType) MarshalJSON() ([]byte, error)     { return kindOnly(KindAny) }

func kindOnly(k Kind) ([]byte, error) {
	return json.Marshal(typeEnvelope{Kind: k})
}

func (a *Array) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind    Kind `json:"kind"`
		Element Type `json:"element"`
	}{KindArray, a.Element})
}

func (m *Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind  Kind `json:"kind"`
		Key   Type `json:"key"`
		Value Type `json:"value"`
	}{KindMap, m.Key, m.Value})
}

func (o *Optional) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind    Kind `json:"kind"`
		Element Type `json:"element"`
	}{KindOptional, o.Element})
}

func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind   Kind              `json:"kind"`
		Fields map[string]*Field `json:"fields"`
		Open   bool              `json:"open,omitempty"`
	}{KindRecord, r.Fields, r.Open})
}

type coercionHintJSON struct {
	Kind string `json:"kind"`
	Expr string `json:"expr,omitempty"`
}

func (h coercionHintJSON) toHint() CoercionHint {
	switch h.Kind {
	case "prefer_string":
		return CoercionHint{Kind: PreferString}
	case "prefer_number":
		return CoercionHint{Kind: PreferNumber}
	case "custom":
		return CoercionHint{Kind: CustomCoercion, Expr: h.Expr}
	default:
		return CoercionHint{}
	}
}

func hintJSON(h CoercionHint) *coercionHintJSON {
	switch h.Kind {
	case PreferString:
		return &coercionHintJSON{Kind: "prefer_string"}
	case PreferNumber:
		return &coercionHintJSON{Kind: "prefer_number"}
	case CustomCoercion:
		return &coercionHintJSON{Kind: "custom", Expr: h.Expr}
	default:
		return nil
	}
}

func (u *Union) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind    Kind              `json:"kind"`
		Members []Type            `json:"members"`
		Hint    *coercionHintJSON `json:"hint,omitempty"`
	}{KindUnion, u.Members, hintJSON(u.Hint)})
}

func (tu *TaggedUnion) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind     Kind            `json:"kind"`
		TagField string          `json:"tag_field"`
		Variants map[string]Type `json:"variants"`
	}{KindTaggedUnion, tu.TagField, tu.Variants})
}

func (r *Reference) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind   Kind   `json:"kind"`
		Name   string `json:"name"`
		Module string `json:"module,omitempty"`
	}{KindReference, r.Name, r.Module})
}

func (c *Constrained) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind  Kind            `json:"kind"`
		Base  Type            `json:"base"`
		Rules ValidationRules `json:"rules"`
	}{KindConstrained, c.Base, c.Rules})
}

func (c *Contract) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind  Kind           `json:"kind"`
		Base  Type           `json:"base"`
		Rules []ContractRule `json:"rules"`
	}{KindContract, c.Base, c.Rules})
}

// Field carries an interface-typed member, so decoding needs the envelope
// dispatch in UnmarshalType.

type fieldJSON struct {
	Type        json.RawMessage  `json:"type"`
	Required    bool             `json:"required,omitempty"`
	Description string           `json:"description,omitempty"`
	Default     any              `json:"default,omitempty"`
	Validation  *ValidationRules `json:"validation,omitempty"`
	Contracts   []ContractRule   `json:"contracts,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (f *Field) MarshalJSON() ([]byte, error) {
	raw, err := MarshalType(f.Type)
	if err != nil {
		return nil, err
	}
	return json.Marshal(fieldJSON{
		Type:        raw,
		Required:    f.Required,
		Description: f.Description,
		Default:     f.Default,
		Validation:  f.Validation,
		Contracts:   f.Contracts,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (f *Field) UnmarshalJSON(data []byte) error {
	var payload fieldJSON
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	t, err := UnmarshalType(payload.Type)
	if err != nil {
		return err
	}
	f.Type = t
	f.Required = payload.Required
	f.Description = payload.Description
	f.Default = payload.Default
	f.Validation = payload.Validation
	f.Contracts = payload.Contracts
	return nil
}

type typeDefinitionJSON struct {
	Name          string            `json:"name"`
	Type          json.RawMessage   `json:"type"`
	Documentation string            `json:"documentation,omitempty"`
	Annotations   map[string]string `json:"annotations,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (d *TypeDefinition) MarshalJSON() ([]byte, error) {
	raw, err := MarshalType(d.Type)
	if err != nil {
		return nil, err
	}
	return json.Marshal(typeDefinitionJSON{
		Name:          d.Name,
		Type:          raw,
		Documentation: d.Documentation,
		Annotations:   d.Annotations,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (d *TypeDefinition) UnmarshalJSON(data []byte) error {
	var payload typeDefinitionJSON
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	t, err := UnmarshalType(payload.Type)
	if err != nil {
		return err
	}
	d.Name = payload.Name
	d.Type = t
	d.Documentation = payload.Documentation
	d.Annotations = payload.Annotations
	return nil
}

type constantJSON struct {
	Name          string          `json:"name"`
	Type          json.RawMessage `json:"type,omitempty"`
	Value         any             `json:"value"`
	Documentation string          `json:"documentation,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (c Constant) MarshalJSON() ([]byte, error) {
	payload := constantJSON{Name: c.Name, Value: c.Value, Documentation: c.Documentation}
	if c.Type != nil {
		raw, err := MarshalType(c.Type)
		if err != nil {
			return nil, err
		}
		payload.Type = raw
	}
	return json.Marshal(payload)
}

// UnmarshalJSON implements json.Unmarshaler
func (c *Constant) UnmarshalJSON(data []byte) error {
	var payload constantJSON
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	c.Name = payload.Name
	c.Value = payload.Value
	c.Documentation = payload.Documentation
	if len(payload.Type) > 0 {
		t, err := UnmarshalType(payload.Type)
		if err != nil {
			return err
		}
		c.Type = t
	}
	return nil
}

// EncodeIR renders the IR as indented interchange JSON
func EncodeIR(ir *IR) ([]byte, error) {
	return json.MarshalIndent(ir, "", "  ")
}

// DecodeIR parses interchange JSON back into an IR
func DecodeIR(data []byte) (*IR, error) {
	var ir IR
	if err := json.Unmarshal(data, &ir); err != nil {
		return nil, fmt.Errorf("decode ir: %w", err)
	}
	return &ir, nil
}
