package catalog

import (
	"errors"
	"strings"
	"testing"

	annot "github.com/goliatone/go-annotations"
	"github.com/google/go-cmp/cmp"
)

func loadWeb(t *testing.T) *Catalog {
	t.Helper()
	cat, err := ParseFile("testdata/web.yaml")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	return cat
}

func TestParseRegistersTypesAndDeclarations(t *testing.T) {
	cat := loadWeb(t)

	if got := cat.Registry.Len(); got != 3 {
		t.Fatalf("expected 3 types, got %d", got)
	}
	want := []annot.Element{"UserController#list", "BaseController#list"}
	if diff := cmp.Diff(want, cat.Declarations); diff != "" {
		t.Fatalf("declarations mismatch (-want +got):\n%s", diff)
	}

	mapping, ok := cat.Registry.LookupType("RequestMapping")
	if !ok {
		t.Fatalf("expected RequestMapping registered")
	}
	timeout, _ := mapping.Attribute("timeout")
	if timeout.Default != 30 || timeout.Owner != "RequestMapping" {
		t.Fatalf("unexpected timeout descriptor %+v", timeout)
	}
	if len(mapping.Meta) != 1 || mapping.Meta[0].AnnotationType() != "Component" {
		t.Fatalf("expected Component meta-annotation, got %v", mapping.Meta)
	}
}

func TestCatalogEngineResolvesMetaAnnotatedAlias(t *testing.T) {
	cat := loadWeb(t)
	engine, err := cat.Engine()
	if err != nil {
		t.Fatalf("Engine: %v", err)
	}

	decl := annot.Element("UserController#list")
	if !engine.IsPresent(decl, "Component") {
		t.Fatalf("expected Component reachable through meta-annotations")
	}
	view, err := engine.View(decl, "RequestMapping")
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	got, err := view.Values()
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	want := map[string]any{"value": "/users", "path": "/users", "method": "GET", "timeout": 30}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("resolved values mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalogCompositeMergesAncestors(t *testing.T) {
	cat := loadWeb(t)
	engine, err := cat.Engine()
	if err != nil {
		t.Fatalf("Engine: %v", err)
	}

	composite, err := engine.Composite(annot.Element("UserController#list"), true)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	if diff := cmp.Diff([]string{"UserController#list", "BaseController#list"}, composite.Declarations()); diff != "" {
		t.Fatalf("composite order mismatch (-want +got):\n%s", diff)
	}
	merged, ok, err := composite.Merged("RequestMapping")
	if err != nil || !ok {
		t.Fatalf("Merged: ok=%v err=%v", ok, err)
	}
	want := map[string]any{"value": "/users", "path": "/users", "method": "POST", "timeout": 5}
	if diff := cmp.Diff(want, merged); diff != "" {
		t.Fatalf("merged values mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("types:\n  - id: A\n    colour: red\n"))
	if err == nil || !strings.Contains(err.Error(), "colour") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestParseRejectsUnknownAnnotationType(t *testing.T) {
	_, err := Parse([]byte("declarations:\n  - key: A\n    annotations:\n      - type: Missing\n"))
	if !errors.Is(err, annot.ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestParseReportsMalformedRelations(t *testing.T) {
	src := `
types:
  - id: A
    attributes:
      - {name: x, type: string, default: ""}
      - {name: y, type: int, default: 0}
    relations:
      - {from: x, attribute: y, kind: alias_for}
      - {from: x, attribute: missing, kind: mirror_for}
`
	_, err := Parse([]byte(src))
	if !errors.Is(err, annot.ErrConstruction) {
		t.Fatalf("expected ErrConstruction, got %v", err)
	}
	for _, reason := range []string{"declared types differ", "target attribute is not declared"} {
		if !strings.Contains(err.Error(), reason) {
			t.Fatalf("expected %q in %v", reason, err)
		}
	}
}

func TestParseRejectsUnknownRelationKind(t *testing.T) {
	src := "types:\n  - id: A\n    attributes:\n      - {name: x, type: string}\n    relations:\n      - {from: x, attribute: x, kind: sibling}\n"
	if _, err := Parse([]byte(src)); err == nil || !strings.Contains(err.Error(), "unknown relation kind") {
		t.Fatalf("expected unknown relation kind error, got %v", err)
	}
}

func TestParseEmpty(t *testing.T) {
	cat, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil): %v", err)
	}
	if cat.Registry.Len() != 0 || len(cat.Declarations) != 0 {
		t.Fatalf("expected empty catalog, got %d types %d declarations", cat.Registry.Len(), len(cat.Declarations))
	}
}
