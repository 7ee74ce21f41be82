package nickel

import (
	"strconv"
	"strings"

	"github.com/smelter-dev/smelter/schema/ir"
)

// intOrStringContract admits both wire forms Kubernetes uses for ports,
// quantities and rollout targets.
const intOrStringContract = "std.contract.from_predicate (fun value => std.is_number value || std.is_string value)"

// fromPredicate joins predicate clauses into one contract expression over a
// bound value.
func fromPredicate(preds []string) string {
	return "std.contract.from_predicate (fun value => " + strings.Join(preds, " && ") + ")"
}

func matchPredicate(pattern string) string {
	return "std.string.is_match " + quote(pattern) + " value"
}

// predicates translates a rule set into predicate clauses. Clause order is
// fixed so regenerated files do not churn. A pattern wins over a format when
// both are present; the pattern is the more specific claim. UniqueItems is
// not translated, Nickel has no element-equality test to build it from.
func predicates(rules *ir.ValidationRules, base ir.Type) []string {
	var out []string

	if rules.AllowedValues != nil {
		vals := make([]string, len(rules.AllowedValues))
		for i, v := range rules.AllowedValues {
			vals[i] = formatValue(v, 0)
		}
		out = append(out, "std.array.elem value ["+strings.Join(vals, ", ")+"]")
	}
	if rules.Minimum != nil {
		out = append(out, "value >= "+formatNumber(*rules.Minimum))
	}
	if rules.Maximum != nil {
		out = append(out, "value <= "+formatNumber(*rules.Maximum))
	}
	if rules.ExclusiveMinimum != nil {
		out = append(out, "value > "+formatNumber(*rules.ExclusiveMinimum))
	}
	if rules.ExclusiveMaximum != nil {
		out = append(out, "value < "+formatNumber(*rules.ExclusiveMaximum))
	}
	if rules.MinLength != nil {
		out = append(out, "std.string.length value >= "+strconv.Itoa(*rules.MinLength))
	}
	if rules.MaxLength != nil {
		out = append(out, "std.string.length value <= "+strconv.Itoa(*rules.MaxLength))
	}
	switch {
	case rules.Pattern != "":
		out = append(out, matchPredicate(rules.Pattern))
	case rules.Format != nil:
		out = append(out, formatPredicates(*rules.Format)...)
	}
	if rules.MinItems != nil {
		out = append(out, "std.array.length value >= "+strconv.Itoa(*rules.MinItems))
	}
	if rules.MaxItems != nil {
		out = append(out, "std.array.length value <= "+strconv.Itoa(*rules.MaxItems))
	}
	if rules.MinProperties != nil {
		out = append(out, "std.array.length (std.record.fields value) >= "+strconv.Itoa(*rules.MinProperties))
	}
	if rules.MaxProperties != nil {
		out = append(out, "std.array.length (std.record.fields value) <= "+strconv.Itoa(*rules.MaxProperties))
	}
	if rules.IntOrString {
		out = append(out, "(std.is_number value || std.is_string value)")
	}
	for _, expr := range rules.Expressions {
		if pred, ok := translateExpression(expr, base); ok {
			out = append(out, pred)
		}
	}
	return out
}

// Shape patterns for the well-known string formats. The DNS1123 patterns
// track the apimachinery validation rules, including the length caps that
// ride alongside the character-class check.
const (
	dns1123SubdomainPattern = `^[a-z0-9]([-a-z0-9]*[a-z0-9])?(\.[a-z0-9]([-a-z0-9]*[a-z0-9])?)*$`
	dns1123LabelPattern     = `^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`
	uuidPattern             = `^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`
	ipv4Pattern             = `^(\d{1,3}\.){3}\d{1,3}$`
	ipv6Pattern             = `^[0-9a-fA-F:]+$`
	datePattern             = `^\d{4}-\d{2}-\d{2}$`
	dateTimePattern         = `^\d{4}-\d{2}-\d{2}[Tt]\d{2}:\d{2}:\d{2}(\.\d+)?([Zz]|[+-]\d{2}:\d{2})$`
	emailPattern            = `^[^\s@]+@[^\s@]+\.[^\s@]+$`
)

// formatPredicates maps a named format to its predicate clauses. Formats
// with no checkable shape (uri, time) translate to nothing.
func formatPredicates(format ir.StringFormat) []string {
	switch format {
	case ir.FormatDNS1123Subdomain:
		return []string{matchPredicate(dns1123SubdomainPattern), "std.string.length value <= 253"}
	case ir.FormatDNS1123Label:
		return []string{matchPredicate(dns1123LabelPattern), "std.string.length value <= 63"}
	case ir.FormatHostname:
		return []string{matchPredicate(dns1123SubdomainPattern), "std.string.length value <= 253"}
	case ir.FormatUUID:
		return []string{matchPredicate(uuidPattern)}
	case ir.FormatIPv4:
		return []string{matchPredicate(ipv4Pattern)}
	case ir.FormatIPv6:
		return []string{matchPredicate(ipv6Pattern)}
	case ir.FormatDate:
		return []string{matchPredicate(datePattern)}
	case ir.FormatDateTime:
		return []string{matchPredicate(dateTimePattern)}
	case ir.FormatEmail:
		return []string{matchPredicate(emailPattern)}
	default:
		return nil
	}
}

// embeddedBase pins the envelope an embedded object carries. Sources tend to
// describe embedded resources as free-form objects; emitting Dyn there would
// lose the one structural fact every embedded manifest shares.
func embeddedBase(t ir.Type) ir.Type {
	switch n := t.(type) {
	case ir.AnyType:
		return embeddedEnvelope()
	case *ir.Record:
		if len(n.Fields) == 0 {
			return embeddedEnvelope()
		}
	}
	return t
}

func embeddedEnvelope() *ir.Record {
	return &ir.Record{
		Open: true,
		Fields: map[string]*ir.Field{
			"apiVersion": {Type: ir.String, Required: true},
			"kind":       {Type: ir.String, Required: true},
			"metadata":   {Type: &ir.Record{Open: true}},
		},
	}
}
