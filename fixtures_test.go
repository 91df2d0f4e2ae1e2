package annot

import (
	"sync"
	"testing"
)

// memorySource is an in-memory DeclarationSource and Lineage for tests.
type memorySource struct {
	types    *Registry
	attached map[string][]Instance
	extends  map[string][]Declaration
	ifaces   map[string][]Declaration

	mu    sync.Mutex
	calls map[string]int
}

func newMemorySource(types *Registry) *memorySource {
	return &memorySource{
		types:    types,
		attached: map[string][]Instance{},
		extends:  map[string][]Declaration{},
		ifaces:   map[string][]Declaration{},
		calls:    map[string]int{},
	}
}

func (s *memorySource) attach(decl string, instances ...Instance) *memorySource {
	s.attached[decl] = append(s.attached[decl], instances...)
	return s
}

func (s *memorySource) Annotations(decl Declaration) []Instance {
	s.mu.Lock()
	s.calls[decl.DeclarationKey()]++
	s.mu.Unlock()
	return s.attached[decl.DeclarationKey()]
}

func (s *memorySource) MetaAnnotations(inst Instance) []Instance {
	t, ok := s.types.LookupType(inst.AnnotationType())
	if !ok {
		return nil
	}
	return t.Meta
}

func (s *memorySource) Superclasses(decl Declaration) []Declaration {
	return s.extends[decl.DeclarationKey()]
}

func (s *memorySource) Interfaces(decl Declaration) []Declaration {
	return s.ifaces[decl.DeclarationKey()]
}

func (s *memorySource) callCount(decl string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[decl]
}

func mustAnnotation(t testing.TB, typ *Type, values map[string]any) *Annotation {
	t.Helper()
	a, err := NewAnnotation(typ, values)
	if err != nil {
		t.Fatalf("NewAnnotation(%s): %v", typ.ID, err)
	}
	return a
}

func mustRegistry(t testing.TB, types ...*Type) *Registry {
	t.Helper()
	r, err := NewRegistry(types...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func mustEngine(t testing.TB, source *memorySource, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(source, source.types, opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func stringAttr(name string) Attribute {
	return Attribute{Name: name, Type: "string", Default: ""}
}

// familyFixture builds the three-level hierarchy
//
//	Child -> Parent -> GrandParent("Parent's GrandParent!")
//	Child -> GrandParent("Child's GrandParent!")
//
// where Child.childValue aliases Child.childValueAlias. The declaration
// "UserService" carries Child(childValueAlias="Child!", grandParentType="Integer").
func familyFixture(t testing.TB) *memorySource {
	t.Helper()
	grandParent := &Type{
		ID: "GrandParent",
		Attributes: []Attribute{
			stringAttr("grandParentValue"),
			{Name: "grandParentType", Type: "string", Default: "Object"},
		},
	}
	parent := &Type{
		ID:         "Parent",
		Attributes: []Attribute{stringAttr("parentValue")},
		Meta: []Instance{
			mustAnnotation(t, grandParent, map[string]any{"grandParentValue": "Parent's GrandParent!"}),
		},
	}
	child := &Type{
		ID: "Child",
		Attributes: []Attribute{
			stringAttr("childValue"),
			stringAttr("childValueAlias"),
			{Name: "grandParentType", Type: "string", Default: "Object"},
		},
		Relations: []Relation{
			{From: "childValueAlias", Attribute: "childValue", Kind: AliasFor},
		},
		Meta: []Instance{
			mustAnnotation(t, parent, map[string]any{"parentValue": "Child's Parent!"}),
			mustAnnotation(t, grandParent, map[string]any{"grandParentValue": "Child's GrandParent!"}),
		},
	}
	source := newMemorySource(mustRegistry(t, grandParent, parent, child))
	source.attach("UserService", mustAnnotation(t, child, map[string]any{
		"childValueAlias": "Child!",
		"grandParentType": "Integer",
	}))
	return source
}
