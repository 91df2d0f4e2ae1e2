package annot_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	annot "github.com/goliatone/go-annotations"
	"github.com/goliatone/go-annotations/pkg/catalog"
	"github.com/goliatone/go-annotations/schema/openapi"
)

func TestOpenAPIGeneratorIntegration(t *testing.T) {
	cat, err := catalog.ParseFile("pkg/catalog/testdata/web.yaml")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}

	doc, err := cat.Registry.Schema(openapi.NewGenerator(openapi.WithOperation("/annotations", "post")))
	if err != nil {
		t.Fatalf("Schema returned error: %v", err)
	}
	if doc.Format != annot.SchemaFormatOpenAPI {
		t.Fatalf("expected format %q, got %q", annot.SchemaFormatOpenAPI, doc.Format)
	}
	if diff := cmp.Diff([]annot.TypeID{"Component", "GetMapping", "RequestMapping"}, doc.Types); diff != "" {
		t.Fatalf("types mismatch (-want +got):\n%s", diff)
	}

	schema, ok := doc.Document.(map[string]any)
	if !ok {
		t.Fatalf("expected schema map, got %T", doc.Document)
	}
	paths, ok := schema["paths"].(map[string]any)
	if !ok {
		t.Fatalf("expected paths map, got %T", schema["paths"])
	}
	pathItem, ok := paths["/annotations"].(map[string]any)
	if !ok {
		t.Fatalf("expected /annotations path map, got %T", paths["/annotations"])
	}
	operation, ok := pathItem["post"].(map[string]any)
	if !ok {
		t.Fatalf("expected post operation map, got %T", pathItem["post"])
	}
	requestBody, ok := operation["requestBody"].(map[string]any)
	if !ok {
		t.Fatalf("expected requestBody map, got %T", operation["requestBody"])
	}
	content, ok := requestBody["content"].(map[string]any)
	if !ok {
		t.Fatalf("expected content map, got %T", requestBody["content"])
	}
	media, ok := content["application/json"].(map[string]any)
	if !ok {
		t.Fatalf("expected application/json content, got %T", content["application/json"])
	}
	bodySchema, ok := media["schema"].(map[string]any)
	if !ok {
		t.Fatalf("expected schema map, got %T", media["schema"])
	}
	oneOf, ok := bodySchema["oneOf"].([]any)
	if !ok || len(oneOf) != 3 {
		t.Fatalf("expected oneOf over three types, got %v", bodySchema)
	}

	components := schema["components"].(map[string]any)["schemas"].(map[string]any)
	getMapping, ok := components["GetMapping"].(map[string]any)
	if !ok {
		t.Fatalf("expected GetMapping component, got %v", components)
	}
	wantRelations := map[string]any{"value": "alias_for RequestMapping.path"}
	if diff := cmp.Diff(wantRelations, getMapping["x-relations"]); diff != "" {
		t.Fatalf("relations mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"RequestMapping"}, getMapping["x-meta-annotations"]); diff != "" {
		t.Fatalf("meta annotations mismatch (-want +got):\n%s", diff)
	}

	if responses := operation["responses"].(map[string]any); responses["204"] == nil {
		t.Fatalf("expected default 204 response, got %v", responses)
	}

	requestMapping := components["RequestMapping"].(map[string]any)
	timeout := requestMapping["properties"].(map[string]any)["timeout"].(map[string]any)
	if timeout["type"] != "integer" || timeout["default"] != 30 {
		t.Fatalf("unexpected timeout property %v", timeout)
	}
}

func TestOpenAPIGeneratorDefaultsToComponents(t *testing.T) {
	cat, err := catalog.ParseFile("pkg/catalog/testdata/web.yaml")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	doc, err := cat.Registry.Schema(openapi.NewGenerator())
	if err != nil {
		t.Fatalf("Schema returned error: %v", err)
	}
	schema := doc.Document.(map[string]any)
	if diff := cmp.Diff(map[string]any{}, schema["paths"]); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
	components := schema["components"].(map[string]any)["schemas"].(map[string]any)
	if len(components) != 3 {
		t.Fatalf("expected three components, got %v", components)
	}
}
