package openapi

import (
	"fmt"
	"sort"
	"strings"

	annot "github.com/goliatone/go-annotations"
)

type openAPIDocumentBuilder struct {
	config   generatorConfig
	registry *componentRegistry
	refs     []string
}

func newOpenAPIDocumentBuilder(config generatorConfig, registry *componentRegistry) *openAPIDocumentBuilder {
	return &openAPIDocumentBuilder{
		config:   config,
		registry: registry,
	}
}

// add registers the schema of one type as a component.
func (b *openAPIDocumentBuilder) add(t *annot.Type) error {
	node, err := buildTypeNode(t)
	if err != nil {
		return err
	}
	if _, exists := b.registry.reference(string(t.ID)); exists {
		return nil
	}
	b.refs = append(b.refs, b.registry.register(string(t.ID), node))
	return nil
}

func (b *openAPIDocumentBuilder) build() (map[string]any, error) {
	document := map[string]any{
		"openapi": b.config.openAPIVersion,
		"info":    b.buildInfo(),
		"paths":   b.buildPaths(),
	}

	if components := b.registry.componentsMap(); components != nil {
		document["components"] = map[string]any{
			"schemas": components,
		}
	}

	if err := validateDocument(document); err != nil {
		return nil, err
	}

	return document, nil
}

func (b *openAPIDocumentBuilder) buildInfo() map[string]any {
	info := map[string]any{
		"title":   b.config.info.Title,
		"version": b.config.info.Version,
	}
	if b.config.info.Description != "" {
		info["description"] = b.config.info.Description
	}
	return info
}

// buildPaths is empty unless WithOperation configured an operation.
func (b *openAPIDocumentBuilder) buildPaths() map[string]any {
	op := b.config.operation
	if op == nil {
		return map[string]any{}
	}

	content := map[string]any{
		b.config.contentType: map[string]any{
			"schema": b.bodySchema(),
		},
	}

	configured := b.config.operationResponses()
	responses := make(map[string]any, len(configured))
	statuses := make([]string, 0, len(configured))
	for status := range configured {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		resp := configured[status]
		responses[status] = map[string]any{
			"description": resp.Description,
		}
	}

	operation := map[string]any{
		"operationId": operationID(op),
		"requestBody": map[string]any{
			"required": true,
			"content":  content,
		},
		"responses": responses,
	}
	if summary := strings.TrimSpace(op.Summary); summary != "" {
		operation["summary"] = summary
	}

	return map[string]any{
		op.Path: map[string]any{
			op.Method: operation,
		},
	}
}

func operationID(op *operationConfig) string {
	if op.OperationID != "" {
		return op.OperationID
	}
	return fmt.Sprintf("%s:%s", op.Method, op.Path)
}

// bodySchema references the registered type components: one $ref for a
// single type, a oneOf for several and an empty object for none.
func (b *openAPIDocumentBuilder) bodySchema() map[string]any {
	switch len(b.refs) {
	case 0:
		return map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}
	case 1:
		return map[string]any{"$ref": b.refs[0]}
	default:
		oneOf := make([]any, 0, len(b.refs))
		for _, ref := range b.refs {
			oneOf = append(oneOf, map[string]any{"$ref": ref})
		}
		return map[string]any{"oneOf": oneOf}
	}
}

func validateDocument(document map[string]any) error {
	if document == nil {
		return fmt.Errorf("openapi: document cannot be nil")
	}
	openapi, _ := document["openapi"].(string)
	if openapi == "" {
		return fmt.Errorf("openapi: document missing version string")
	}
	info, _ := document["info"].(map[string]any)
	if info == nil {
		return fmt.Errorf("openapi: document missing info section")
	}
	if title, _ := info["title"].(string); title == "" {
		return fmt.Errorf("openapi: info.title must be set")
	}
	if version, _ := info["version"].(string); version == "" {
		return fmt.Errorf("openapi: info.version must be set")
	}
	paths, ok := document["paths"].(map[string]any)
	if !ok {
		return fmt.Errorf("openapi: document missing paths")
	}
	for pathKey, pathValue := range paths {
		pathItem, _ := pathValue.(map[string]any)
		if pathItem == nil {
			return fmt.Errorf("openapi: path %q invalid payload", pathKey)
		}
		if len(pathItem) == 0 {
			return fmt.Errorf("openapi: path %q missing operations", pathKey)
		}
		for method, operationValue := range pathItem {
			operation, _ := operationValue.(map[string]any)
			if operation == nil {
				return fmt.Errorf("openapi: operation %s %s invalid payload", method, pathKey)
			}
			if _, ok := operation["operationId"].(string); !ok {
				return fmt.Errorf("openapi: operation %s %s missing operationId", method, pathKey)
			}
			requestBody, _ := operation["requestBody"].(map[string]any)
			if requestBody == nil {
				return fmt.Errorf("openapi: operation %s %s missing requestBody", method, pathKey)
			}
			content, _ := requestBody["content"].(map[string]any)
			if len(content) == 0 {
				return fmt.Errorf("openapi: operation %s %s requestBody missing content", method, pathKey)
			}
			if _, ok := operation["responses"].(map[string]any); !ok {
				return fmt.Errorf("openapi: operation %s %s missing responses", method, pathKey)
			}
		}
	}
	return nil
}
