// Package catalog loads metadata types and annotated declarations from YAML.
// A catalog stream may hold several documents; each contributes types and
// declarations:
//
//	types:
//	  - id: RequestMapping
//	    attributes:
//	      - {name: value, type: string, default: ""}
//	      - {name: path, type: string, default: ""}
//	    relations:
//	      - {from: value, attribute: path, kind: alias_for}
//	    meta:
//	      - type: Component
//	declarations:
//	  - key: UserController#list
//	    annotations:
//	      - type: RequestMapping
//	        values: {value: /users}
//	    extends: [BaseController#list]
//	    implements: [Listing#list]
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	annot "github.com/goliatone/go-annotations"
	"github.com/goliatone/go-annotations/pkg/source"
	"gopkg.in/yaml.v3"
)

// Catalog is the result of parsing a YAML catalog.
type Catalog struct {
	Registry     *annot.Registry
	Source       *source.Memory
	Declarations []annot.Element
}

// Engine builds an engine over the catalog with the catalog's lineage.
func (c *Catalog) Engine(opts ...annot.Option) (*annot.Engine, error) {
	opts = append([]annot.Option{annot.WithLineage(c.Source)}, opts...)
	return annot.NewEngine(c.Source, c.Registry, opts...)
}

type document struct {
	Types        []typeSpec        `yaml:"types"`
	Declarations []declarationSpec `yaml:"declarations"`
}

type typeSpec struct {
	ID         string           `yaml:"id"`
	Attributes []attributeSpec  `yaml:"attributes"`
	Relations  []relationSpec   `yaml:"relations"`
	Meta       []annotationSpec `yaml:"meta"`
}

type attributeSpec struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Default any    `yaml:"default"`
}

type relationSpec struct {
	From      string `yaml:"from"`
	Target    string `yaml:"target"`
	Attribute string `yaml:"attribute"`
	Kind      string `yaml:"kind"`
}

type annotationSpec struct {
	Type   string         `yaml:"type"`
	Values map[string]any `yaml:"values"`
}

type declarationSpec struct {
	Key         string           `yaml:"key"`
	Annotations []annotationSpec `yaml:"annotations"`
	Extends     []string         `yaml:"extends"`
	Implements  []string         `yaml:"implements"`
}

// ParseFile reads and parses the catalog at path.
func ParseFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes every YAML document in data. Unknown keys are rejected.
func Parse(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var (
		types []typeSpec
		decls []declarationSpec
	)
	for {
		var doc document
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("catalog: decode: %w", err)
		}
		types = append(types, doc.Types...)
		decls = append(decls, doc.Declarations...)
	}

	built, err := buildTypes(types)
	if err != nil {
		return nil, err
	}
	registry, err := annot.NewRegistry(built...)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	cat := &Catalog{Registry: registry, Source: source.NewMemory(registry)}
	for _, spec := range decls {
		if spec.Key == "" {
			return nil, fmt.Errorf("catalog: declaration without key")
		}
		decl := annot.Element(spec.Key)
		for _, a := range spec.Annotations {
			inst, err := newInstance(registry.LookupType, a, decl)
			if err != nil {
				return nil, fmt.Errorf("catalog: %s: %w", spec.Key, err)
			}
			cat.Source.Attach(decl, inst)
		}
		for _, parent := range spec.Extends {
			cat.Source.Extend(decl, annot.Element(parent))
		}
		for _, iface := range spec.Implements {
			cat.Source.Implement(decl, annot.Element(iface))
		}
		cat.Declarations = append(cat.Declarations, decl)
	}
	return cat, nil
}

// buildTypes creates descriptors first and attaches meta-annotations second so
// a type may be meta-annotated by a type declared after it.
func buildTypes(specs []typeSpec) ([]*annot.Type, error) {
	byID := make(map[annot.TypeID]*annot.Type, len(specs))
	out := make([]*annot.Type, 0, len(specs))
	for _, spec := range specs {
		t := &annot.Type{ID: annot.TypeID(spec.ID)}
		for _, attr := range spec.Attributes {
			t.Attributes = append(t.Attributes, annot.Attribute{
				Name:    attr.Name,
				Type:    attr.Type,
				Default: normalizeValue(attr.Default),
			})
		}
		for _, rel := range spec.Relations {
			kind := annot.ParseRelationKind(rel.Kind)
			if kind == annot.RelationUnknown {
				return nil, fmt.Errorf("catalog: %s.%s: unknown relation kind %q", spec.ID, rel.From, rel.Kind)
			}
			t.Relations = append(t.Relations, annot.Relation{
				From:      rel.From,
				Target:    annot.TypeID(rel.Target),
				Attribute: rel.Attribute,
				Kind:      kind,
			})
		}
		byID[t.ID] = t
		out = append(out, t)
	}
	lookup := func(id annot.TypeID) (*annot.Type, bool) {
		t, ok := byID[id]
		return t, ok
	}
	for i, spec := range specs {
		for _, meta := range spec.Meta {
			inst, err := newInstance(lookup, meta, nil)
			if err != nil {
				return nil, fmt.Errorf("catalog: meta of %s: %w", spec.ID, err)
			}
			out[i].Meta = append(out[i].Meta, inst)
		}
	}
	return out, nil
}

func newInstance(lookup func(annot.TypeID) (*annot.Type, bool), spec annotationSpec, decl annot.Declaration) (*annot.Annotation, error) {
	t, ok := lookup(annot.TypeID(spec.Type))
	if !ok {
		return nil, fmt.Errorf("%w: %s", annot.ErrUnknownType, spec.Type)
	}
	values, _ := normalizeValue(spec.Values).(map[string]any)
	var opts []annot.AnnotationOption
	if decl != nil {
		opts = append(opts, annot.WithDeclaration(decl))
	}
	return annot.NewAnnotation(t, values, opts...)
}

// normalizeValue converts YAML-decoded values into JSON-like values.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = normalizeValue(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			ks, ok := k.(string)
			if !ok {
				ks = fmt.Sprint(k)
			}
			out[ks] = normalizeValue(vv)
		}
		return out
	case []any:
		arr := make([]any, len(t))
		for i := range t {
			arr[i] = normalizeValue(t[i])
		}
		return arr
	default:
		return v
	}
}
