package ir

import (
	"sort"
	"time"
)

// IR is the complete intermediate representation of one compilation run
type IR struct {
	Modules []*Module `json:"modules"`
}

// NewIR creates an empty IR
func NewIR() *IR {
	return &IR{}
}

// AddModule appends a module
func (ir *IR) AddModule(m *Module) {
	ir.Modules = append(ir.Modules, m)
}

// Merge appends every module from another IR
func (ir *IR) Merge(other *IR) {
	ir.Modules = append(ir.Modules, other.Modules...)
}

// FindModule returns the module with the given logical name, or nil
func (ir *IR) FindModule(name string) *Module {
	for _, m := range ir.Modules {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Module is one logical unit of generated output: a dotted name, the types
// it declares, and the imports its references require.
type Module struct {
	Name      string            `json:"name"`
	Imports   []Import          `json:"imports,omitempty"`
	Types     []*TypeDefinition `json:"types"`
	Constants []Constant        `json:"constants,omitempty"`
	Metadata  Metadata          `json:"metadata"`
}

// NewModule creates an empty module with the given logical name
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// AddType appends a type definition
func (m *Module) AddType(def *TypeDefinition) {
	m.Types = append(m.Types, def)
}

// AddImport appends an import declaration
func (m *Module) AddImport(imp Import) {
	m.Imports = append(m.Imports, imp)
}

// HasType reports whether the module declares a type with the exact name
func (m *Module) HasType(name string) bool {
	return m.FindType(name) != nil
}

// FindType returns the declaration of the exact-cased name, or nil
func (m *Module) FindType(name string) *TypeDefinition {
	for _, def := range m.Types {
		if def.Name == name {
			return def
		}
	}
	return nil
}

// TypeNames returns the exact-cased names of every declared type, sorted
func (m *Module) TypeNames() []string {
	names := make([]string, len(m.Types))
	for i, def := range m.Types {
		names[i] = def.Name
	}
	sort.Strings(names)
	return names
}

// Import declares that a module reads symbols from another file.
// Items lists the exported names the import exposes; an empty Items means a
// whole-module import. Alias is the binding name chosen by the emitter.
// Module, when set, records the logical dotted name of the target module.
type Import struct {
	Path   string   `json:"path"`
	Alias  string   `json:"alias,omitempty"`
	Module string   `json:"module,omitempty"`
	Items  []string `json:"items,omitempty"`
}

// Exposes reports whether the import declares the given simple name
func (i Import) Exposes(simpleName string) bool {
	for _, item := range i.Items {
		if item == simpleName {
			return true
		}
	}
	return false
}

// IsWholeModule reports whether the import binds the entire target module
func (i Import) IsWholeModule() bool {
	return len(i.Items) == 0
}

// TypeDefinition is one named type declared by a module
type TypeDefinition struct {
	Name          string            `json:"name"`
	Type          Type              `json:"type"`
	Documentation string            `json:"documentation,omitempty"`
	Annotations   map[string]string `json:"annotations,omitempty"`
}

// NewTypeDefinition creates a definition binding a name to a type
func NewTypeDefinition(name string, t Type) *TypeDefinition {
	return &TypeDefinition{Name: name, Type: t}
}

// Constant is a named value exported by a module
type Constant struct {
	Name          string `json:"name"`
	Type          Type   `json:"type,omitempty"`
	Value         any    `json:"value"`
	Documentation string `json:"documentation,omitempty"`
}

// Metadata records the provenance of a module
type Metadata struct {
	SourceLanguage string            `json:"source_language,omitempty"`
	SourceFile     string            `json:"source_file,omitempty"`
	Version        string            `json:"version,omitempty"`
	GeneratedAt    time.Time         `json:"generated_at,omitempty"`
	Custom         map[string]string `json:"custom,omitempty"`
}
