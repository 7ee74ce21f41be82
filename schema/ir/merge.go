package ir

// MergeForAllOf combines two declarations of the same field from different
// schema branches. Both branches constrain the same value, so the result
// keeps every constraint: identical types collapse, differing types become
// a two-member union, and a field stays required only when every branch
// required it.
func (f *Field) MergeForAllOf(incoming *Field) *Field {
	merged := &Field{
		Required: f.Required && incoming.Required,
	}

	if f.Type.Equal(incoming.Type) {
		merged.Type = f.Type
	} else {
		merged.Type = &Union{Members: []Type{f.Type, incoming.Type}}
	}

	merged.Description = incoming.Description
	if merged.Description == "" {
		merged.Description = f.Description
	}

	merged.Default = incoming.Default
	if merged.Default == nil {
		merged.Default = f.Default
	}

	switch {
	case f.Validation != nil && incoming.Validation != nil:
		rules := f.Validation.Merge(incoming.Validation)
		merged.Validation = &rules
	case f.Validation != nil:
		rules := *f.Validation
		merged.Validation = &rules
	case incoming.Validation != nil:
		rules := *incoming.Validation
		merged.Validation = &rules
	}

	merged.Contracts = MergeContracts(f.Contracts, incoming.Contracts)
	return merged
}

// MergeAllOf reduces an allOf branch list to a single type. Record branches
// are merged field-by-field; non-record branches survive unchanged. When
// more than one type remains they form a union, otherwise the single
// remaining type is returned directly.
func MergeAllOf(branches []Type) Type {
	if len(branches) == 0 {
		return Any
	}
	if len(branches) == 1 {
		return branches[0]
	}

	var mergedRecord *Record
	var others []Type

	for _, branch := range branches {
		record, ok := branch.(*Record)
		if !ok {
			others = append(others, branch)
			continue
		}
		if mergedRecord == nil {
			mergedRecord = copyRecord(record)
			continue
		}
		mergedRecord.Open = mergedRecord.Open || record.Open
		for name, field := range record.Fields {
			existing, present := mergedRecord.Fields[name]
			if present {
				mergedRecord.Fields[name] = existing.MergeForAllOf(field)
			} else {
				mergedRecord.Fields[name] = field
			}
		}
	}

	var results []Type
	if mergedRecord != nil {
		results = append(results, mergedRecord)
	}
	results = append(results, others...)

	if len(results) == 1 {
		return results[0]
	}
	return &Union{Members: results}
}

func copyRecord(r *Record) *Record {
	out := &Record{Fields: make(map[string]*Field, len(r.Fields)), Open: r.Open}
	for name, field := range r.Fields {
		out.Fields[name] = field
	}
	return out
}
