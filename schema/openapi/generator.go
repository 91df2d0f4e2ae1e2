// Package openapi renders registered metadata types as OpenAPI 3 component
// schemas. Each type becomes one component; attributes become properties
// carrying their defaults, and relations and meta-annotations are published as
// x-relations and x-meta-annotations extensions.
package openapi

import (
	annot "github.com/goliatone/go-annotations"
)

type generator struct {
	config generatorConfig
}

// NewGenerator constructs an OpenAPI-compatible schema generator.
func NewGenerator(opts ...GeneratorOption) annot.SchemaGenerator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return generator{config: cfg}
}

// Generate renders types in the given order. Nil entries are skipped and
// duplicate IDs keep their first occurrence.
func (g generator) Generate(types ...*annot.Type) (annot.SchemaDocument, error) {
	builder := newOpenAPIDocumentBuilder(g.config, newComponentRegistry())
	ids := make([]annot.TypeID, 0, len(types))
	seen := make(map[annot.TypeID]struct{}, len(types))
	for _, t := range types {
		if t == nil {
			continue
		}
		if err := builder.add(t); err != nil {
			return annot.SchemaDocument{}, err
		}
		if _, dup := seen[t.ID]; !dup {
			seen[t.ID] = struct{}{}
			ids = append(ids, t.ID)
		}
	}
	document, err := builder.build()
	if err != nil {
		return annot.SchemaDocument{}, err
	}
	return annot.SchemaDocument{
		Format:   annot.SchemaFormatOpenAPI,
		Document: document,
		Types:    ids,
	}, nil
}
