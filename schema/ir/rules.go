package ir

import (
	"fmt"
	"reflect"
)

// StringFormat names a well-known string format constraint. Values outside
// the listed constants are treated as custom formats and passed through.
type StringFormat string

const (
	FormatDateTime         StringFormat = "date-time"
	FormatDate             StringFormat = "date"
	FormatTime             StringFormat = "time"
	FormatEmail            StringFormat = "email"
	FormatHostname         StringFormat = "hostname"
	FormatIPv4             StringFormat = "ipv4"
	FormatIPv6             StringFormat = "ipv6"
	FormatURI              StringFormat = "uri"
	FormatURIReference     StringFormat = "uri-reference"
	FormatUUID             StringFormat = "uuid"
	FormatDNS1123Subdomain StringFormat = "dns1123-subdomain"
	FormatDNS1123Label     StringFormat = "dns1123-label"
)

// ContractRule is a named, free-form predicate attached to a field or type.
// Name is the identity key for deduplication.
type ContractRule struct {
	Name         string `json:"name"`
	Expression   string `json:"expression"`
	Description  string `json:"description,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// MergeContracts combines two contract lists, deduplicating by name.
// The first occurrence of a name wins.
func MergeContracts(existing, incoming []ContractRule) []ContractRule {
	seen := make(map[string]bool, len(existing))
	merged := make([]ContractRule, 0, len(existing)+len(incoming))
	for _, rule := range existing {
		if !seen[rule.Name] {
			seen[rule.Name] = true
			merged = append(merged, rule)
		}
	}
	for _, rule := range incoming {
		if !seen[rule.Name] {
			seen[rule.Name] = true
			merged = append(merged, rule)
		}
	}
	return merged
}

// ValidationRules is the set of independent optional constraints a schema
// can attach to a value. The zero value carries no constraints.
type ValidationRules struct {
	// String constraints
	MinLength *int          `json:"min_length,omitempty"`
	MaxLength *int          `json:"max_length,omitempty"`
	Pattern   string        `json:"pattern,omitempty"`
	Format    *StringFormat `json:"format,omitempty"`

	// Numeric constraints
	Minimum          *float64 `json:"minimum,omitempty"`
	Maximum          *float64 `json:"maximum,omitempty"`
	ExclusiveMinimum *float64 `json:"exclusive_minimum,omitempty"`
	ExclusiveMaximum *float64 `json:"exclusive_maximum,omitempty"`

	// Array constraints
	MinItems    *int `json:"min_items,omitempty"`
	MaxItems    *int `json:"max_items,omitempty"`
	UniqueItems bool `json:"unique_items,omitempty"`

	// Object constraints
	MinProperties *int `json:"min_properties,omitempty"`
	MaxProperties *int `json:"max_properties,omitempty"`

	// AllowedValues restricts the value to an enumerated set. nil means
	// unconstrained; an empty non-nil set is unsatisfiable.
	AllowedValues []any `json:"allowed_values,omitempty"`

	// Platform extensions
	IntOrString           bool `json:"int_or_string,omitempty"`
	PreserveUnknownFields bool `json:"preserve_unknown_fields,omitempty"`
	EmbeddedResource      bool `json:"embedded_resource,omitempty"`

	// Expressions holds free-form expression-language validation rules
	// (CEL on Kubernetes platforms), order-preserving.
	Expressions []string `json:"expressions,omitempty"`
}

// IsEmpty reports whether no constraint is set
func (v *ValidationRules) IsEmpty() bool {
	return v.MinLength == nil && v.MaxLength == nil && v.Pattern == "" && v.Format == nil &&
		v.Minimum == nil && v.Maximum == nil &&
		v.ExclusiveMinimum == nil && v.ExclusiveMaximum == nil &&
		v.MinItems == nil && v.MaxItems == nil && !v.UniqueItems &&
		v.MinProperties == nil && v.MaxProperties == nil &&
		v.AllowedValues == nil &&
		!v.IntOrString && !v.PreserveUnknownFields && !v.EmbeddedResource &&
		len(v.Expressions) == 0
}

// Equal reports whether two rule sets carry identical constraints
func (v *ValidationRules) Equal(other *ValidationRules) bool {
	return reflect.DeepEqual(v, other)
}

// Merge combines two rule sets so the result is at least as restrictive as
// each input: lower bounds take the max, upper bounds the min, flags OR,
// patterns conjoin, allowed-value sets intersect. Neither receiver nor
// argument is modified.
func (v *ValidationRules) Merge(other *ValidationRules) ValidationRules {
	merged := ValidationRules{
		MinLength:        maxIntPtr(v.MinLength, other.MinLength),
		MaxLength:        minIntPtr(v.MaxLength, other.MaxLength),
		Minimum:          maxFloatPtr(v.Minimum, other.Minimum),
		Maximum:          minFloatPtr(v.Maximum, other.Maximum),
		ExclusiveMinimum: maxFloatPtr(v.ExclusiveMinimum, other.ExclusiveMinimum),
		ExclusiveMaximum: minFloatPtr(v.ExclusiveMaximum, other.ExclusiveMaximum),
		MinItems:         maxIntPtr(v.MinItems, other.MinItems),
		MaxItems:         minIntPtr(v.MaxItems, other.MaxItems),
		MinProperties:    maxIntPtr(v.MinProperties, other.MinProperties),
		MaxProperties:    minIntPtr(v.MaxProperties, other.MaxProperties),

		UniqueItems:           v.UniqueItems || other.UniqueItems,
		IntOrString:           v.IntOrString || other.IntOrString,
		PreserveUnknownFields: v.PreserveUnknownFields || other.PreserveUnknownFields,
		EmbeddedResource:      v.EmbeddedResource || other.EmbeddedResource,

		Pattern:       mergePatterns(v.Pattern, other.Pattern),
		Format:        firstFormat(v.Format, other.Format),
		AllowedValues: intersectValues(v.AllowedValues, other.AllowedValues),
		Expressions:   unionExpressions(v.Expressions, other.Expressions),
	}
	return merged
}

// mergePatterns conjoins two regular expressions. A string satisfies the
// combined pattern only if it satisfies both originals. The result is
// target-language text; it is never compiled here.
func mergePatterns(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	case a == b:
		return a
	default:
		return fmt.Sprintf("(?=%s)(?=%s)", a, b)
	}
}

func firstFormat(a, b *StringFormat) *StringFormat {
	if a != nil {
		return a
	}
	return b
}

// intersectValues intersects two allowed-value sets, preserving the first
// set's order. An empty intersection of two non-empty sets is represented
// as an empty non-nil slice so validation can flag the unsatisfiable
// constraint.
func intersectValues(a, b []any) []any {
	if a == nil {
		return cloneValues(b)
	}
	if b == nil {
		return cloneValues(a)
	}
	intersection := make([]any, 0, len(a))
	for _, value := range a {
		for _, otherValue := range b {
			if reflect.DeepEqual(value, otherValue) {
				intersection = append(intersection, value)
				break
			}
		}
	}
	return intersection
}

func cloneValues(values []any) []any {
	if values == nil {
		return nil
	}
	out := make([]any, len(values))
	copy(out, values)
	return out
}

// unionExpressions merges two expression lists preserving order and
// dropping duplicates
func unionExpressions(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(a)+len(b))
	merged := make([]string, 0, len(a)+len(b))
	for _, expr := range a {
		if !seen[expr] {
			seen[expr] = true
			merged = append(merged, expr)
		}
	}
	for _, expr := range b {
		if !seen[expr] {
			seen[expr] = true
			merged = append(merged, expr)
		}
	}
	return merged
}

func maxIntPtr(a, b *int) *int {
	if a == nil {
		return clonedInt(b)
	}
	if b == nil {
		return clonedInt(a)
	}
	if *a >= *b {
		return clonedInt(a)
	}
	return clonedInt(b)
}

func minIntPtr(a, b *int) *int {
	if a == nil {
		return clonedInt(b)
	}
	if b == nil {
		return clonedInt(a)
	}
	if *a <= *b {
		return clonedInt(a)
	}
	return clonedInt(b)
}

func maxFloatPtr(a, b *float64) *float64 {
	if a == nil {
		return clonedFloat(b)
	}
	if b == nil {
		return clonedFloat(a)
	}
	if *a >= *b {
		return clonedFloat(a)
	}
	return clonedFloat(b)
}

func minFloatPtr(a, b *float64) *float64 {
	if a == nil {
		return clonedFloat(b)
	}
	if b == nil {
		return clonedFloat(a)
	}
	if *a <= *b {
		return clonedFloat(a)
	}
	return clonedFloat(b)
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

// IntPtr is a convenience constructor for optional integer bounds
func IntPtr(v int) *int { return &v }

// FloatPtr is a convenience constructor for optional numeric bounds
func FloatPtr(v float64) *float64 { return &v }
