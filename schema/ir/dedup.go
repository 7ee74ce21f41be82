package ir

// DeduplicateTypes resolves duplicate type names in every module. Some
// schema sources declare a resource and its collection wrapper under the
// same name; the collection form (a record with apiVersion, kind, metadata
// and an items array) is renamed with a List suffix. Remaining exact
// duplicates are removed, keeping the first declaration.
func (ir *IR) DeduplicateTypes() {
	for _, module := range ir.Modules {
		module.DeduplicateTypes()
	}
}

// DeduplicateTypes resolves duplicate type names within the module
func (m *Module) DeduplicateTypes() {
	type occurrence struct {
		index  int
		isList bool
	}
	seen := make(map[string][]occurrence)
	for idx, def := range m.Types {
		seen[def.Name] = append(seen[def.Name], occurrence{index: idx, isList: isListType(def.Type)})
	}

	removed := make(map[int]bool)
	for name, occurrences := range seen {
		if len(occurrences) < 2 {
			continue
		}
		keptNonList := false
		for _, occ := range occurrences {
			switch {
			case occ.isList:
				m.Types[occ.index].Name = name + "List"
			case !keptNonList:
				keptNonList = true
			default:
				removed[occ.index] = true
			}
		}
	}

	if len(removed) == 0 {
		return
	}
	kept := m.Types[:0]
	for idx, def := range m.Types {
		if !removed[idx] {
			kept = append(kept, def)
		}
	}
	m.Types = kept
}

// isListType recognizes the Kubernetes collection-wrapper shape: a record
// with an items array plus apiVersion, kind and metadata fields.
func isListType(t Type) bool {
	record, ok := t.(*Record)
	if !ok {
		return false
	}
	items, hasItems := record.Fields["items"]
	if !hasItems {
		return false
	}
	if _, isArray := items.Type.(*Array); !isArray {
		return false
	}
	_, hasAPIVersion := record.Fields["apiVersion"]
	_, hasKind := record.Fields["kind"]
	_, hasMetadata := record.Fields["metadata"]
	return hasAPIVersion && hasKind && hasMetadata
}
