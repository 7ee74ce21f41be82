// Package diag provides the severity-classified issue channel used by IR
// validation, the registry, and the emitters. Issues are not Go errors:
// only Error-severity issues block generation, Warning and Info issues are
// surfaced without stopping a run.
package diag

import (
	"encoding/json"
	"fmt"
)

// Severity represents the severity level of an issue
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for Severity
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Severity
func (s *Severity) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}

	switch str {
	case "info":
		*s = Info
	case "warning":
		*s = Warning
	case "error":
		*s = Error
	default:
		*s = Error
	}
	return nil
}

// Issue is a single diagnostic finding, attributed to the module and type
// it concerns when known.
type Issue struct {
	Severity   Severity `json:"severity"`
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Module     string   `json:"module,omitempty"`
	TypeName   string   `json:"type_name,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// NewError creates an Error-severity issue
func NewError(code, message string) Issue {
	return Issue{Severity: Error, Code: code, Message: message}
}

// NewWarning creates a Warning-severity issue
func NewWarning(code, message string) Issue {
	return Issue{Severity: Warning, Code: code, Message: message}
}

// NewInfo creates an Info-severity issue
func NewInfo(code, message string) Issue {
	return Issue{Severity: Info, Code: code, Message: message}
}

// InModule attributes the issue to a module
func (i Issue) InModule(name string) Issue {
	i.Module = name
	return i
}

// InType attributes the issue to a type within the module
func (i Issue) InType(name string) Issue {
	i.TypeName = name
	return i
}

// WithSuggestion attaches a remediation hint
func (i Issue) WithSuggestion(s string) Issue {
	i.Suggestion = s
	return i
}

// IsError reports whether the issue blocks generation
func (i Issue) IsError() bool {
	return i.Severity == Error
}

// IsWarning reports whether the issue is warning-severity
func (i Issue) IsWarning() bool {
	return i.Severity == Warning
}

// String renders the issue in file:position style attribution
func (i Issue) String() string {
	where := i.Module
	if i.TypeName != "" {
		if where != "" {
			where += "." + i.TypeName
		} else {
			where = i.TypeName
		}
	}
	if where == "" {
		return fmt.Sprintf("%s: %s: %s", i.Severity, i.Code, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s: %s", where, i.Severity, i.Code, i.Message)
}

// MarshalIndent renders the issue as pretty JSON
func (i Issue) MarshalIndent() (string, error) {
	data, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
