package diag

import (
	"encoding/json"
)

// JSONOutput is the machine-readable report structure
type JSONOutput struct {
	Status   string  `json:"status"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
	Infos    []Issue `json:"infos,omitempty"`
	Summary  Summary `json:"summary"`
}

// Summary contains issue counts
type Summary struct {
	ErrorCount   int `json:"error_count"`
	WarningCount int `json:"warning_count"`
	TotalCount   int `json:"total_count"`
}

// FormatAsJSON renders the result as indented JSON
func (r *Result) FormatAsJSON() (string, error) {
	data, err := json.MarshalIndent(r.jsonOutput(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatAsJSONCompact renders the result as compact JSON
func (r *Result) FormatAsJSONCompact() (string, error) {
	data, err := json.Marshal(r.jsonOutput())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (r *Result) jsonOutput() JSONOutput {
	errs := r.Errors()
	warns := r.Warnings()

	status := "success"
	if len(errs) > 0 {
		status = "error"
	} else if len(warns) > 0 {
		status = "warning"
	}

	return JSONOutput{
		Status:   status,
		Errors:   errs,
		Warnings: warns,
		Infos:    r.Infos(),
		Summary: Summary{
			ErrorCount:   len(errs),
			WarningCount: len(warns),
			TotalCount:   r.Len(),
		},
	}
}
