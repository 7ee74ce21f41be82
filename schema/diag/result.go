package diag

// Result accumulates issues across a validation or generation pass.
// The zero value is ready to use.
type Result struct {
	Issues []Issue `json:"issues"`
}

// Add appends an issue to the result
func (r *Result) Add(issue Issue) {
	r.Issues = append(r.Issues, issue)
}

// Merge appends every issue from another result
func (r *Result) Merge(other Result) {
	r.Issues = append(r.Issues, other.Issues...)
}

// HasErrors reports whether any Error-severity issue was recorded.
// Warnings and infos never block generation.
func (r *Result) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.IsError() {
			return true
		}
	}
	return false
}

// Errors returns only the Error-severity issues
func (r *Result) Errors() []Issue {
	return r.filter(Error)
}

// Warnings returns only the Warning-severity issues
func (r *Result) Warnings() []Issue {
	return r.filter(Warning)
}

// Infos returns only the Info-severity issues
func (r *Result) Infos() []Issue {
	return r.filter(Info)
}

// ErrorCount returns the number of Error-severity issues
func (r *Result) ErrorCount() int {
	return len(r.Errors())
}

// WarningCount returns the number of Warning-severity issues
func (r *Result) WarningCount() int {
	return len(r.Warnings())
}

// Len returns the total number of issues
func (r *Result) Len() int {
	return len(r.Issues)
}

func (r *Result) filter(severity Severity) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			out = append(out, issue)
		}
	}
	return out
}
