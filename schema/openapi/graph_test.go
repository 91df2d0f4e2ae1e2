package openapi

import (
	"reflect"
	"testing"

	annot "github.com/goliatone/go-annotations"
)

func TestBuildTypeNodeMetadata(t *testing.T) {
	component := &annot.Type{ID: "Component"}
	marker, err := annot.NewAnnotation(component, nil)
	if err != nil {
		t.Fatalf("NewAnnotation: %v", err)
	}
	service := &annot.Type{
		ID: "Service",
		Attributes: []annot.Attribute{
			{Name: "value", Type: "string", Default: ""},
			{Name: "name", Type: "string", Default: ""},
			{Name: "ports", Type: "[]int"},
			{Name: "target", Type: "class", Default: "Void"},
		},
		Relations: []annot.Relation{
			{From: "value", Attribute: "name", Kind: annot.MirrorFor},
			{From: "name", Attribute: "value", Kind: annot.MirrorFor},
		},
		Meta: []annot.Instance{marker},
	}

	node, err := buildTypeNode(service)
	if err != nil {
		t.Fatalf("buildTypeNode returned error: %v", err)
	}

	schema := node.inlineOpenAPI()
	if schema["type"] != "object" {
		t.Fatalf("expected object type, got %v", schema["type"])
	}
	required, ok := schema["required"].([]string)
	if !ok {
		t.Fatalf("expected required slice, got %T", schema["required"])
	}
	if want := []string{"ports"}; !reflect.DeepEqual(want, required) {
		t.Fatalf("unexpected required fields\nwant: %v\ngot:  %v", want, required)
	}

	props := schema["properties"].(map[string]any)
	ports := props["ports"].(map[string]any)
	if ports["type"] != "array" {
		t.Fatalf("expected ports array, got %v", ports["type"])
	}
	if items := ports["items"].(map[string]any); items["type"] != "integer" {
		t.Fatalf("expected integer items, got %v", items["type"])
	}
	target := props["target"].(map[string]any)
	if target["format"] != "go:class" || target["default"] != "Void" {
		t.Fatalf("expected class attribute rendered as go:class with default, got %v", target)
	}

	relations := schema["x-relations"].(map[string]any)
	if relations["value"] != "mirror_for Service.name" {
		t.Fatalf("expected value relation, got %v", relations["value"])
	}
	meta := schema["x-meta-annotations"].([]string)
	if !reflect.DeepEqual([]string{"Component"}, meta) {
		t.Fatalf("expected Component meta-annotation, got %v", meta)
	}
}

func TestDeclaredTypeNodeRejectsEmpty(t *testing.T) {
	if _, err := declaredTypeNode(" "); err == nil {
		t.Fatalf("expected error for empty declared type")
	}
}

func TestBuildTypeNodeNil(t *testing.T) {
	if _, err := buildTypeNode(nil); err == nil {
		t.Fatalf("expected error for nil type")
	}
}

func TestSanitizeComponentName(t *testing.T) {
	cases := map[string]string{
		"RequestMapping":      "RequestMapping",
		"org.example.Service": "org_example_Service",
		"9lives":              "_9lives",
		"__weird--name__":     "weird_name",
	}
	for input, want := range cases {
		if got := sanitizeComponentName(input); got != want {
			t.Fatalf("sanitizeComponentName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestComponentRegistryUniqueNames(t *testing.T) {
	registry := newComponentRegistry()
	node := newObjectNode()
	first := registry.register("a.b", node)
	second := registry.register("a-b", node)
	if first == second {
		t.Fatalf("expected distinct references, got %q twice", first)
	}
	if again := registry.register("a.b", node); again != first {
		t.Fatalf("expected stable reference %q, got %q", first, again)
	}
	if second != "#/components/schemas/a_b1" {
		t.Fatalf("expected suffixed component name, got %q", second)
	}
}
