// Package crd reads Kubernetes CustomResourceDefinition manifests and
// converts their openAPIV3Schema trees into IR modules, one module per
// group and version. Parsing is strict about YAML syntax and tolerant
// about content: documents that are not CRDs are skipped, and schema
// constructs the type algebra cannot express surface as issues rather
// than failures.
package crd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CustomResourceDefinition is the subset of the CRD manifest the walker
// reads.
type CustomResourceDefinition struct {
	APIVersion string   `yaml:"apiVersion"`
	Kind       string   `yaml:"kind"`
	Metadata   Metadata `yaml:"metadata"`
	Spec       Spec     `yaml:"spec"`
}

type Metadata struct {
	Name string `yaml:"name"`
}

type Spec struct {
	Group    string    `yaml:"group"`
	Names    Names     `yaml:"names"`
	Scope    string    `yaml:"scope"`
	Versions []Version `yaml:"versions"`
}

type Names struct {
	Kind     string `yaml:"kind"`
	ListKind string `yaml:"listKind"`
	Plural   string `yaml:"plural"`
	Singular string `yaml:"singular"`
}

type Version struct {
	Name    string         `yaml:"name"`
	Served  bool           `yaml:"served"`
	Storage bool           `yaml:"storage"`
	Schema  *VersionSchema `yaml:"schema"`
}

type VersionSchema struct {
	OpenAPIV3Schema *Schema `yaml:"openAPIV3Schema"`
}

// Schema is one node of an openAPIV3Schema tree. Only the keywords the
// walker understands are modeled; everything else is ignored by the YAML
// decoder.
type Schema struct {
	Ref         string             `yaml:"$ref"`
	Type        string             `yaml:"type"`
	Description string             `yaml:"description"`
	Properties  map[string]*Schema `yaml:"properties"`
	Required    []string           `yaml:"required"`
	Items       *Schema            `yaml:"items"`
	Default     any                `yaml:"default"`

	AdditionalProperties *AdditionalProperties `yaml:"additionalProperties"`

	OneOf []*Schema `yaml:"oneOf"`
	AnyOf []*Schema `yaml:"anyOf"`
	AllOf []*Schema `yaml:"allOf"`
	Not   *Schema   `yaml:"not"`

	MinLength *int   `yaml:"minLength"`
	MaxLength *int   `yaml:"maxLength"`
	Pattern   string `yaml:"pattern"`
	Format    string `yaml:"format"`
	Enum      []any  `yaml:"enum"`

	Minimum          *float64   `yaml:"minimum"`
	Maximum          *float64   `yaml:"maximum"`
	ExclusiveMinimum *yaml.Node `yaml:"exclusiveMinimum"`
	ExclusiveMaximum *yaml.Node `yaml:"exclusiveMaximum"`

	MinItems    *int `yaml:"minItems"`
	MaxItems    *int `yaml:"maxItems"`
	UniqueItems bool `yaml:"uniqueItems"`

	MinProperties *int `yaml:"minProperties"`
	MaxProperties *int `yaml:"maxProperties"`

	XIntOrString           bool          `yaml:"x-kubernetes-int-or-string"`
	XPreserveUnknownFields bool          `yaml:"x-kubernetes-preserve-unknown-fields"`
	XEmbeddedResource      bool          `yaml:"x-kubernetes-embedded-resource"`
	XValidations           []XValidation `yaml:"x-kubernetes-validations"`
}

// XValidation is one CEL rule from x-kubernetes-validations.
type XValidation struct {
	Rule    string `yaml:"rule"`
	Message string `yaml:"message"`
}

// AdditionalProperties models the two spellings the keyword allows: a
// boolean switch or a value schema.
type AdditionalProperties struct {
	Allowed bool
	Schema  *Schema
}

func (a *AdditionalProperties) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&a.Allowed)
	case yaml.MappingNode:
		a.Allowed = true
		a.Schema = &Schema{}
		return node.Decode(a.Schema)
	default:
		return fmt.Errorf("additionalProperties: expected bool or schema, got yaml kind %d", node.Kind)
	}
}

// Parse reads a YAML stream and returns every CustomResourceDefinition it
// contains. Multi-document streams and v1 List envelopes are unwrapped;
// documents of other kinds are skipped.
func Parse(r io.Reader) ([]CustomResourceDefinition, error) {
	dec := yaml.NewDecoder(r)

	var crds []CustomResourceDefinition
	for {
		var doc yaml.Node
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode yaml document: %w", err)
		}
		found, err := collect(&doc)
		if err != nil {
			return nil, err
		}
		crds = append(crds, found...)
	}
	return crds, nil
}

// ParseFile reads one manifest file.
func ParseFile(path string) ([]CustomResourceDefinition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	crds, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return crds, nil
}

func collect(doc *yaml.Node) ([]CustomResourceDefinition, error) {
	var probe struct {
		Kind  string      `yaml:"kind"`
		Items []yaml.Node `yaml:"items"`
	}
	if err := doc.Decode(&probe); err != nil {
		// Not a mapping document; nothing to collect.
		return nil, nil
	}

	switch {
	case strings.EqualFold(probe.Kind, "CustomResourceDefinition"):
		var crd CustomResourceDefinition
		if err := doc.Decode(&crd); err != nil {
			return nil, fmt.Errorf("decode CustomResourceDefinition: %w", err)
		}
		return []CustomResourceDefinition{crd}, nil
	case strings.EqualFold(probe.Kind, "List"):
		var crds []CustomResourceDefinition
		for i := range probe.Items {
			found, err := collect(&probe.Items[i])
			if err != nil {
				return nil, err
			}
			crds = append(crds, found...)
		}
		return crds, nil
	default:
		return nil, nil
	}
}
