package layering

import (
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

func TestMergeAttributesFromFixture(t *testing.T) {
	fx := loadMergeFixture(t, "merge_attributes.json")

	for _, tc := range fx.Cases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			layers := make([]map[string]any, len(tc.Layers))
			for i := range tc.Layers {
				layers[i] = tc.Layers[i].Attributes
			}

			got := MergeAttributes(layers, zeroIsDefault)
			if diff := cmp.Diff(tc.Expect, got); diff != "" {
				t.Errorf("merged attributes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeAttributesZeroInput(t *testing.T) {
	got := MergeAttributes(nil, zeroIsDefault)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty map, got %#v", got)
	}
}

func TestMergeAttributesCopiesValues(t *testing.T) {
	tags := []string{"a", "b"}
	got := MergeAttributes([]map[string]any{{"tags": tags}}, nil)

	tags[0] = "mutated"
	if got["tags"].([]string)[0] != "a" {
		t.Fatalf("expected merged value to be detached from input, got %v", got["tags"])
	}
}

func TestCloneDeepCopies(t *testing.T) {
	type nested struct {
		Labels map[string]string
		Ptr    *int
	}
	n := 5
	original := nested{Labels: map[string]string{"env": "prod"}, Ptr: &n}

	clone := Clone(original)
	original.Labels["env"] = "qa"
	*original.Ptr = 9

	if clone.Labels["env"] != "prod" {
		t.Fatalf("expected cloned map to be detached, got %q", clone.Labels["env"])
	}
	if *clone.Ptr != 5 {
		t.Fatalf("expected cloned pointer to be detached, got %d", *clone.Ptr)
	}
}

func TestCloneNilInterface(t *testing.T) {
	var value any
	if got := Clone(value); got != nil {
		t.Fatalf("expected nil, got %#v", got)
	}
}

func zeroIsDefault(_ string, value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return typed == ""
	case float64:
		return typed == 0
	default:
		return false
	}
}

type mergeFixture struct {
	Description string             `json:"description"`
	Cases       []mergeFixtureCase `json:"cases"`
}

type mergeFixtureCase struct {
	Name   string              `json:"name"`
	Layers []mergeFixtureLayer `json:"layers"`
	Expect map[string]any      `json:"expect"`
}

type mergeFixtureLayer struct {
	Key        string         `json:"key"`
	Attributes map[string]any `json:"attributes"`
}

func loadMergeFixture(t *testing.T, name string) mergeFixture {
	t.Helper()
	path := filepath.Join("testdata", name)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read layering fixture %q: %v", name, err)
	}
	var fx mergeFixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("failed to unmarshal layering fixture %q: %v", name, err)
	}
	return fx
}
