package ir

import (
	"strings"
	"unicode"
)

// ToPascalCase upper-cases the first letter, preserving the rest of the
// word's existing mixed case
func ToPascalCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ToCamelCase lower-cases the leading letters of a name, keeping acronym
// boundaries readable: APIGroup becomes apiGroup, HTTPProxy becomes
// httpProxy, CELDeviceSelector becomes celDeviceSelector, and an
// all-uppercase word is lowered entirely.
func ToCamelCase(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	upperRun := 0
	for upperRun < len(runes) && unicode.IsUpper(runes[upperRun]) {
		upperRun++
	}

	switch {
	case upperRun == 0:
		return s
	case upperRun == 1:
		return string(unicode.ToLower(runes[0])) + string(runes[1:])
	case upperRun == len(runes):
		return strings.ToLower(s)
	default:
		// The last uppercase letter of the run starts the next word:
		// lower everything before it.
		lowered := strings.ToLower(string(runes[:upperRun-1]))
		return lowered + string(runes[upperRun-1:])
	}
}

// SnakeToPascalCase converts snake_case to PascalCase
func SnakeToPascalCase(s string) string {
	parts := strings.Split(s, "_")
	var sb strings.Builder
	for _, part := range parts {
		sb.WriteString(ToPascalCase(part))
	}
	return sb.String()
}

// SnakeToCamelCase converts snake_case to camelCase
func SnakeToCamelCase(s string) string {
	pascal := SnakeToPascalCase(s)
	if pascal == "" {
		return pascal
	}
	return strings.ToLower(pascal[:1]) + pascal[1:]
}

// SanitizeIdentifier replaces characters that cannot appear in generated
// identifiers or directory names with underscores
func SanitizeIdentifier(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
