package annot

import (
	"fmt"
	"sort"
	"strings"
)

// FieldDescriptor describes one attribute of a metadata type.
type FieldDescriptor struct {
	Path      string   `json:"path"`
	Type      string   `json:"type"`
	Default   any      `json:"default,omitempty"`
	Relations []string `json:"relations,omitempty"`
}

// DefaultSchemaGenerator returns the built-in descriptor-based schema generator.
func DefaultSchemaGenerator() SchemaGenerator {
	return descriptorGenerator{}
}

type descriptorGenerator struct{}

func (descriptorGenerator) Generate(types ...*Type) (SchemaDocument, error) {
	descriptors := []FieldDescriptor{}
	ids := make([]TypeID, 0, len(types))
	for _, t := range types {
		if t == nil {
			continue
		}
		ids = append(ids, t.ID)
		descriptors = append(descriptors, deriveFieldDescriptors(t)...)
	}
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: descriptors,
		Types:    ids,
	}, nil
}

// DescribeType returns the flattened descriptors of t.
func DescribeType(t *Type) SchemaDocument {
	doc, _ := descriptorGenerator{}.Generate(t)
	return doc
}

func deriveFieldDescriptors(t *Type) []FieldDescriptor {
	relations := make(map[string][]string)
	for _, rel := range t.Relations {
		relations[rel.From] = append(relations[rel.From],
			fmt.Sprintf("%s %s", rel.Kind, joinPath(string(rel.targetOf(t.ID)), rel.Attribute)))
	}
	fields := make([]FieldDescriptor, 0, len(t.Attributes))
	for _, attr := range t.Attributes {
		declared := attr.Type
		if declared == "" {
			declared = typeName(attr.Default)
		}
		field := FieldDescriptor{
			Path:    joinPath(string(t.ID), attr.Name),
			Type:    declared,
			Default: attr.Default,
		}
		if rels := relations[attr.Name]; len(rels) > 0 {
			sort.Strings(rels)
			field.Relations = rels
		}
		fields = append(fields, field)
	}
	return fields
}

// Schema renders every registered type, sorted by ID, with generator. A nil
// generator selects DefaultSchemaGenerator.
func (r *Registry) Schema(generator SchemaGenerator) (SchemaDocument, error) {
	if generator == nil {
		generator = DefaultSchemaGenerator()
	}
	return generator.Generate(r.Types()...)
}

func typeName(value any) string {
	if value == nil {
		return "any"
	}
	return fmt.Sprintf("%T", value)
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
