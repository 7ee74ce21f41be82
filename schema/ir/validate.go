package ir

import (
	"fmt"
	"unicode"

	"github.com/smelter-dev/smelter/schema/diag"
)

// ValidateIR checks a complete IR for structural problems before
// generation. Only Error-severity findings block a run; style findings
// (casing, empty modules) are warnings.
func ValidateIR(input *IR) diag.Result {
	var result diag.Result

	// Index every declared type so references can be checked globally.
	declaredByModule := make(map[string]map[string]bool, len(input.Modules))
	declaredAnywhere := make(map[string]bool)
	moduleSeen := make(map[string]bool, len(input.Modules))

	for _, module := range input.Modules {
		if moduleSeen[module.Name] {
			result.Add(diag.NewError(diag.CodeDuplicateModule,
				fmt.Sprintf("module %q is declared more than once", module.Name)).
				InModule(module.Name))
		}
		moduleSeen[module.Name] = true

		names := make(map[string]bool, len(module.Types))
		for _, def := range module.Types {
			names[def.Name] = true
			declaredAnywhere[def.Name] = true
		}
		declaredByModule[module.Name] = names
	}

	for _, module := range input.Modules {
		validateModule(module, declaredByModule, declaredAnywhere, &result)
	}
	return result
}

func validateModule(module *Module, declaredByModule map[string]map[string]bool, declaredAnywhere map[string]bool, result *diag.Result) {
	if module.Name == "" {
		result.Add(diag.NewError(diag.CodeEmptyModuleName, "module has no name"))
		return
	}
	if len(module.Types) == 0 && len(module.Constants) == 0 {
		result.Add(diag.NewWarning(diag.CodeEmptyModule,
			"module declares no types or constants").InModule(module.Name))
	}

	scope := &refScope{
		module:           module.Name,
		local:            declaredByModule[module.Name],
		declaredByModule: declaredByModule,
		declaredAnywhere: declaredAnywhere,
		externalSeen:     make(map[string]bool),
	}
	typeSeen := make(map[string]bool, len(module.Types))

	for _, def := range module.Types {
		if def.Name == "" {
			result.Add(diag.NewError(diag.CodeEmptyTypeName,
				"type definition has no name").InModule(module.Name))
			continue
		}
		if typeSeen[def.Name] {
			result.Add(diag.NewWarning(diag.CodeDuplicateType,
				fmt.Sprintf("type %q is declared more than once", def.Name)).
				InModule(module.Name).InType(def.Name))
		}
		typeSeen[def.Name] = true

		if !unicode.IsUpper(rune(def.Name[0])) {
			result.Add(diag.NewWarning(diag.CodeTypeNameCasing,
				fmt.Sprintf("type name %q should start with an uppercase letter", def.Name)).
				InModule(module.Name).InType(def.Name).
				WithSuggestion("exported type names are conventionally PascalCase"))
		}

		scope.checkType(def.Type, def.Name, result)
	}
}

// refScope carries the lookup tables needed to check references declared
// inside one module.
type refScope struct {
	module           string
	local            map[string]bool
	declaredByModule map[string]map[string]bool
	declaredAnywhere map[string]bool
	externalSeen     map[string]bool
}

func (s *refScope) checkType(t Type, typeName string, result *diag.Result) {
	Walk(t, func(node Type) {
		switch n := node.(type) {
		case *Reference:
			s.checkReference(n, typeName, result)
		case *Constrained:
			checkSatisfiable(&n.Rules, s.module, typeName, result)
		case *Record:
			for _, name := range n.FieldNames() {
				if v := n.Fields[name].Validation; v != nil {
					checkSatisfiable(v, s.module, typeName, result)
				}
			}
		}
	})
}

func (s *refScope) checkReference(ref *Reference, typeName string, result *diag.Result) {
	simple := ParseFQN(ref.Name).SimpleName()

	if ref.Module != "" {
		target, known := s.declaredByModule[ref.Module]
		if !known {
			// References into modules outside the run are routine: CRD
			// sources lean on the Kubernetes meta types without carrying
			// them. These resolve by path convention at emission or pass
			// through unchanged, so they never block a run.
			if !s.externalSeen[ref.Module] {
				s.externalSeen[ref.Module] = true
				result.Add(diag.NewInfo(diag.CodeUnknownModule,
					fmt.Sprintf("reference %q targets module %q, which is not part of this run", ref.Name, ref.Module)).
					InModule(s.module).InType(typeName))
			}
			return
		}
		if !target[simple] {
			result.Add(diag.NewError(diag.CodeUnknownTypeInTarget,
				fmt.Sprintf("module %q declares no type %q", ref.Module, simple)).
				InModule(s.module).InType(typeName))
		}
		return
	}

	if !s.local[simple] && !s.declaredAnywhere[simple] {
		result.Add(diag.NewError(diag.CodeUnknownReference,
			fmt.Sprintf("reference to undeclared type %q", ref.Name)).
			InModule(s.module).InType(typeName).
			WithSuggestion("check that the module declaring this type is part of the run"))
	}
}

func checkSatisfiable(rules *ValidationRules, moduleName, typeName string, result *diag.Result) {
	if rules.AllowedValues != nil && len(rules.AllowedValues) == 0 {
		result.Add(diag.NewError(diag.CodeUnsatisfiableEnum,
			"merged allowed-value sets have an empty intersection; no value can satisfy this schema").
			InModule(moduleName).InType(typeName))
	}
	if rules.Minimum != nil && rules.Maximum != nil && *rules.Minimum > *rules.Maximum {
		result.Add(diag.NewError(diag.CodeUnsatisfiableEnum,
			fmt.Sprintf("minimum %v exceeds maximum %v", *rules.Minimum, *rules.Maximum)).
			InModule(moduleName).InType(typeName))
	}
}
