package ir

// Walk applies fn to t and every type nested inside it, depth-first.
// Record fields and tagged-union variants are visited in sorted order so
// walks are deterministic.
func Walk(t Type, fn func(Type)) {
	if t == nil {
		return
	}
	fn(t)
	switch node := t.(type) {
	case *Array:
		Walk(node.Element, fn)
	case *Map:
		Walk(node.Key, fn)
		Walk(node.Value, fn)
	case *Optional:
		Walk(node.Element, fn)
	case *Record:
		for _, name := range node.FieldNames() {
			Walk(node.Fields[name].Type, fn)
		}
	case *Union:
		for _, member := range node.Members {
			Walk(member, fn)
		}
	case *TaggedUnion:
		for _, tag := range node.VariantTags() {
			Walk(node.Variants[tag], fn)
		}
	case *Constrained:
		Walk(node.Base, fn)
	case *Contract:
		Walk(node.Base, fn)
	}
}

// CollectReferences returns every Reference node inside t, in walk order
func CollectReferences(t Type) []*Reference {
	var refs []*Reference
	Walk(t, func(node Type) {
		if ref, ok := node.(*Reference); ok {
			refs = append(refs, ref)
		}
	})
	return refs
}

// ModuleReferences returns every Reference inside any of the module's type
// definitions and constants, in declaration order
func ModuleReferences(m *Module) []*Reference {
	var refs []*Reference
	for _, def := range m.Types {
		refs = append(refs, CollectReferences(def.Type)...)
	}
	for _, constant := range m.Constants {
		if constant.Type != nil {
			refs = append(refs, CollectReferences(constant.Type)...)
		}
	}
	return refs
}
