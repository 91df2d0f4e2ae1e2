package source

import (
	"testing"

	annot "github.com/goliatone/go-annotations"
	"github.com/google/go-cmp/cmp"
)

var (
	markerType  = &annot.Type{ID: "Marker"}
	serviceType = &annot.Type{ID: "Service", Attributes: []annot.Attribute{{Name: "value", Type: "string", Default: ""}}}
)

func mustAnnotation(t *testing.T, typ *annot.Type, values map[string]any) *annot.Annotation {
	t.Helper()
	a, err := annot.NewAnnotation(typ, values)
	if err != nil {
		t.Fatalf("NewAnnotation(%s): %v", typ.ID, err)
	}
	return a
}

func keys(decls []annot.Declaration) []string {
	out := make([]string, 0, len(decls))
	for _, d := range decls {
		out = append(out, d.DeclarationKey())
	}
	return out
}

func TestMemoryAnnotationsAreCopied(t *testing.T) {
	mem := NewMemory(nil)
	decl := annot.Element("Svc")
	service := mustAnnotation(t, serviceType, map[string]any{"value": "svc"})
	mem.Attach(decl, service, nil)

	got := mem.Annotations(decl)
	if len(got) != 1 || got[0] != service {
		t.Fatalf("expected the attached instance, got %v", got)
	}
	got[0] = nil
	if again := mem.Annotations(decl); again[0] != service {
		t.Fatalf("expected stored slice untouched by caller mutation")
	}
	if other := mem.Annotations(annot.Element("Other")); len(other) != 0 {
		t.Fatalf("expected no annotations for unknown declaration, got %v", other)
	}
}

func TestMemoryMetaAnnotationsIncludeTypeMeta(t *testing.T) {
	marker := mustAnnotation(t, markerType, nil)
	withMeta := &annot.Type{ID: "Service", Attributes: serviceType.Attributes, Meta: []annot.Instance{marker}}
	registry, err := annot.NewRegistry(markerType, withMeta)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	extra := mustAnnotation(t, markerType, nil)
	mem := NewMemory(registry).AttachMeta("Service", extra)

	got := mem.MetaAnnotations(mustAnnotation(t, withMeta, nil))
	if len(got) != 2 || got[0] != marker || got[1] != extra {
		t.Fatalf("expected registry meta then attached meta, got %v", got)
	}
}

func TestMemorySuperclassesNearestFirst(t *testing.T) {
	mem := NewMemory(nil)
	child, parent, grand := annot.Element("Child#run"), annot.Element("Parent#run"), annot.Element("Grand#run")
	mem.Extend(child, parent).Extend(parent, grand).Extend(grand, child)

	want := []string{"Parent#run", "Grand#run"}
	if diff := cmp.Diff(want, keys(mem.Superclasses(child))); diff != "" {
		t.Fatalf("superclasses mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryInterfacesIncludeInherited(t *testing.T) {
	mem := NewMemory(nil)
	child, parent := annot.Element("Child#run"), annot.Element("Parent#run")
	runner, task := annot.Element("Runner#run"), annot.Element("Task#run")
	mem.Extend(child, parent)
	mem.Implement(parent, runner)
	mem.Extend(runner, task)
	mem.Implement(child, runner)

	want := []string{"Runner#run", "Task#run"}
	if diff := cmp.Diff(want, keys(mem.Interfaces(child))); diff != "" {
		t.Fatalf("interfaces mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryIgnoresSelfLinks(t *testing.T) {
	mem := NewMemory(nil)
	decl := annot.Element("Loop")
	mem.Extend(decl, decl)
	if got := mem.Superclasses(decl); len(got) != 0 {
		t.Fatalf("expected no superclasses, got %v", keys(got))
	}
}
