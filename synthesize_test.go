package annot

import (
	"errors"
	"strings"
	"testing"
)

type grandParentMeta struct {
	Value string `annot:"grandParentValue" json:"value"`
	Type  string `annot:"grandParentType"`
}

func TestSynthesize(t *testing.T) {
	engine := mustEngine(t, familyFixture(t))

	got, ok, err := Synthesize[grandParentMeta](engine, Element("UserService"), "GrandParent")
	if err != nil || !ok {
		t.Fatalf("Synthesize: ok=%v err=%v", ok, err)
	}
	if got.Value != "Child's GrandParent!" || got.Type != "Integer" {
		t.Fatalf("unexpected synthesized value %+v", got)
	}

	_, ok, err = Synthesize[grandParentMeta](engine, Element("UserService"), "Unrelated")
	if err != nil || ok {
		t.Fatalf("expected absent type to report ok=false, got ok=%v err=%v", ok, err)
	}
}

func TestSynthesizeReportsDecodeErrors(t *testing.T) {
	engine := mustEngine(t, familyFixture(t))
	type wrongShape struct {
		Value int `annot:"parentValue"`
	}
	_, _, err := Synthesize[wrongShape](engine, Element("UserService"), "Parent")
	if err == nil || !strings.Contains(err.Error(), "hydrate") {
		t.Fatalf("expected hydrate decode error, got %v", err)
	}
}

func TestSynthesizeFrom(t *testing.T) {
	source := familyFixture(t)
	engine := mustEngine(t, source)
	child, _ := source.types.LookupType("Child")

	got, ok, err := SynthesizeFrom[familyChild](engine, "Child",
		mustAnnotation(t, child, map[string]any{"childValueAlias": "bare"}))
	if err != nil || !ok {
		t.Fatalf("SynthesizeFrom: ok=%v err=%v", ok, err)
	}
	if got.ChildValue != "bare" || got.GrandParentType != "Object" {
		t.Fatalf("unexpected synthesized value %+v", got)
	}

	view, _ := engine.View(Element("UserService"), "Child")
	_, _, err = SynthesizeFrom[familyChild](engine, "Child", view)
	if !errors.Is(err, ErrReentrantSynthesis) {
		t.Fatalf("expected ErrReentrantSynthesis, got %v", err)
	}
}

func TestSynthesizedInstancesCompareStructurally(t *testing.T) {
	first := mustEngine(t, familyFixture(t))
	second := mustEngine(t, familyFixture(t))
	a, _ := first.View(Element("UserService"), "Parent")
	b, _ := second.View(Element("UserService"), "Parent")
	c, _ := first.View(Element("UserService"), "GrandParent")

	ia, _ := a.Instance()
	ib, _ := b.Instance()
	ic, _ := c.Instance()
	if !ia.Equal(ib) || ia.Equal(ic) {
		t.Fatalf("unexpected equality results")
	}
	if ia.Declaration() != "UserService" || ia.Raw() != a.Raw() || ia.Type().ID != "Parent" {
		t.Fatalf("unexpected synthesized metadata")
	}
	if got := ia.String(); got != "@Parent(parentValue=Child's Parent!)" {
		t.Fatalf("unexpected String %q", got)
	}

	values := ia.Values()
	values["parentValue"] = "mutated"
	if again, _ := ia.AttributeValue("parentValue"); again != "Child's Parent!" {
		t.Fatalf("expected Values to return a copy")
	}
	if _, err := ia.AttributeValue("missing"); !errors.Is(err, ErrUnknownAttribute) {
		t.Fatalf("expected ErrUnknownAttribute, got %v", err)
	}
}

func TestViewAccessors(t *testing.T) {
	engine := mustEngine(t, familyFixture(t))
	view, _ := engine.View(Element("UserService"), "Child")

	if value, ok, err := view.ValueOf("grandParentType", "string"); err != nil || !ok || value != "Integer" {
		t.Fatalf("ValueOf: %v %v %v", value, ok, err)
	}
	if _, ok, _ := view.ValueOf("grandParentType", "class"); ok {
		t.Fatalf("expected ValueOf to reject a differing declared type")
	}
	if _, ok, _ := view.Value("missing"); ok {
		t.Fatalf("expected missing attribute to report ok=false")
	}
	if _, err := view.AttributeValue("missing"); !errors.Is(err, ErrUnknownAttribute) {
		t.Fatalf("expected ErrUnknownAttribute, got %v", err)
	}

	absent, _ := engine.View(Element("UserService"), "Unrelated")
	if absent.Present() || absent.Raw() != nil || absent.Node() != nil {
		t.Fatalf("expected absent view")
	}
	if values, err := absent.Values(); values != nil || err != nil {
		t.Fatalf("expected nil values for absent view, got %v %v", values, err)
	}
	if absent.String() != "@Unrelated<absent>" {
		t.Fatalf("unexpected String %q", absent.String())
	}
}
