package nickel

import (
	"regexp"
	"strings"

	"github.com/smelter-dev/smelter/schema/ir"
)

// CRDs attach x-kubernetes-validations rules written in CEL. A handful of
// shapes covers most rules seen in the wild; those are rewritten as Nickel
// predicates over value. Anything outside the recognized shapes is left out
// of the emitted contract rather than emitted wrong.
var (
	celSizeCompare  = regexp.MustCompile(`^self\.size\(\)\s*(==|!=|<=|>=|<|>)\s*(\d+)$`)
	celSelfCompare  = regexp.MustCompile(`^self\s*(==|!=|<=|>=|<|>)\s*(-?\d+(?:\.\d+)?)$`)
	celStringEquals = regexp.MustCompile(`^self\s*(==|!=)\s*(?:'([^']*)'|"([^"]*)")$`)
	celStartsWith   = regexp.MustCompile(`^self\.startsWith\((?:'([^']*)'|"([^"]*)")\)$`)
	celEndsWith     = regexp.MustCompile(`^self\.endsWith\((?:'([^']*)'|"([^"]*)")\)$`)
	celMatches      = regexp.MustCompile(`^self\.matches\((?:'([^']*)'|"([^"]*)")\)$`)
)

// translateExpression rewrites one CEL rule as a Nickel predicate. The
// second return is false when the rule has no translation.
func translateExpression(expr string, base ir.Type) (string, bool) {
	expr = strings.TrimSpace(expr)

	if m := celSizeCompare.FindStringSubmatch(expr); m != nil {
		length, ok := lengthExpr(base)
		if !ok {
			return "", false
		}
		return length + " " + m[1] + " " + m[2], true
	}
	if m := celStartsWith.FindStringSubmatch(expr); m != nil {
		return matchPredicate("^" + regexp.QuoteMeta(m[1]+m[2])), true
	}
	if m := celEndsWith.FindStringSubmatch(expr); m != nil {
		return matchPredicate(regexp.QuoteMeta(m[1]+m[2]) + "$"), true
	}
	if m := celMatches.FindStringSubmatch(expr); m != nil {
		return matchPredicate(m[1] + m[2]), true
	}
	if m := celSelfCompare.FindStringSubmatch(expr); m != nil {
		return "value " + m[1] + " " + m[2], true
	}
	if m := celStringEquals.FindStringSubmatch(expr); m != nil {
		return "value " + m[1] + " " + quote(m[2]+m[3]), true
	}
	return "", false
}

// lengthExpr picks the size measure CEL's size() maps to for the value's
// base shape. Shapes where the measure is ambiguous translate to nothing.
func lengthExpr(t ir.Type) (string, bool) {
	switch n := t.(type) {
	case ir.StringType:
		return "std.string.length value", true
	case *ir.Array:
		return "std.array.length value", true
	case *ir.Map, *ir.Record:
		return "std.array.length (std.record.fields value)", true
	case *ir.Constrained:
		return lengthExpr(n.Base)
	case *ir.Optional:
		return lengthExpr(n.Element)
	}
	return "", false
}
