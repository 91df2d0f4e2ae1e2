package openapi

import (
	"fmt"
	"sort"
	"strings"

	annot "github.com/goliatone/go-annotations"
)

type schemaNode struct {
	Type          string
	Format        string
	Properties    map[string]*schemaNode
	Required      []string
	Items         *schemaNode
	Default       any
	relationships map[string]string
	meta          []string
}

func newObjectNode() *schemaNode {
	return &schemaNode{
		Type:       "object",
		Properties: map[string]*schemaNode{},
	}
}

func (n *schemaNode) baseMap() map[string]any {
	result := map[string]any{}
	if n.Type != "" {
		result["type"] = n.Type
	}
	if n.Format != "" {
		result["format"] = n.Format
	}
	if n.Default != nil {
		result["default"] = n.Default
	}
	return result
}

func (n *schemaNode) inlineOpenAPI() map[string]any {
	result := n.baseMap()

	if len(n.Properties) > 0 || n.Type == "object" {
		props := make(map[string]any, len(n.Properties))
		for _, name := range sortedKeys(n.Properties) {
			props[name] = n.Properties[name].inlineOpenAPI()
		}
		result["properties"] = props
	}

	if len(n.Required) > 0 {
		names := append([]string{}, n.Required...)
		sort.Strings(names)
		result["required"] = names
	}

	if n.Items != nil {
		result["items"] = n.Items.inlineOpenAPI()
	}

	if len(n.relationships) > 0 {
		result["x-relations"] = orderedStringMap(n.relationships)
	}

	if len(n.meta) > 0 {
		result["x-meta-annotations"] = append([]string{}, n.meta...)
	}

	return result
}

func (n *schemaNode) ensureRelationships() map[string]string {
	if n.relationships == nil {
		n.relationships = map[string]string{}
	}
	return n.relationships
}

// buildTypeNode renders one metadata type as an object schema. Attributes
// without a default are required.
func buildTypeNode(t *annot.Type) (*schemaNode, error) {
	if t == nil {
		return nil, fmt.Errorf("openapi: type cannot be nil")
	}
	node := newObjectNode()
	for _, attr := range t.Attributes {
		child, err := attributeNode(attr)
		if err != nil {
			return nil, fmt.Errorf("openapi: %s.%s: %w", t.ID, attr.Name, err)
		}
		node.Properties[attr.Name] = child
		if attr.Default == nil {
			node.Required = append(node.Required, attr.Name)
		}
	}
	for _, rel := range t.Relations {
		target := rel.Target
		if target == "" {
			target = t.ID
		}
		node.ensureRelationships()[rel.From] = fmt.Sprintf("%s %s.%s", rel.Kind, target, rel.Attribute)
	}
	for _, meta := range t.Meta {
		if meta == nil {
			continue
		}
		node.meta = append(node.meta, string(meta.AnnotationType()))
	}
	return node, nil
}

func attributeNode(attr annot.Attribute) (*schemaNode, error) {
	node, err := declaredTypeNode(attr.Type)
	if err != nil {
		return nil, err
	}
	node.Default = attr.Default
	return node, nil
}

// declaredTypeNode maps a declared attribute type name onto a schema. Slice
// types are written "[]elem"; unknown names render as strings with a go:
// format hint.
func declaredTypeNode(declared string) (*schemaNode, error) {
	declared = strings.TrimSpace(declared)
	if elem, ok := strings.CutPrefix(declared, "[]"); ok {
		items, err := declaredTypeNode(elem)
		if err != nil {
			return nil, err
		}
		return &schemaNode{Type: "array", Items: items}, nil
	}
	switch declared {
	case "":
		return nil, fmt.Errorf("declared type is empty")
	case "bool", "boolean":
		return &schemaNode{Type: "boolean"}, nil
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64", "integer":
		return &schemaNode{Type: "integer"}, nil
	case "float32", "float64", "number":
		return &schemaNode{Type: "number"}, nil
	case "string":
		return &schemaNode{Type: "string"}, nil
	case "time", "time.Time":
		return &schemaNode{Type: "string", Format: "date-time"}, nil
	case "duration", "time.Duration":
		return &schemaNode{Type: "string", Format: "duration"}, nil
	case "map", "object", "map[string]any":
		return newObjectNode(), nil
	default:
		return &schemaNode{Type: "string", Format: "go:" + declared}, nil
	}
}

func sortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func orderedStringMap(values map[string]string) map[string]any {
	out := make(map[string]any, len(values))
	for _, key := range sortedKeys(values) {
		out[key] = values[key]
	}
	return out
}
