package annot

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTraceAliasedAttribute(t *testing.T) {
	engine := mustEngine(t, familyFixture(t))
	view, err := engine.View(Element("UserService"), "Child")
	if err != nil {
		t.Fatalf("View: %v", err)
	}

	trace, err := view.Trace("childValue")
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if trace.Value != "Child!" || trace.Err != "" || trace.Hierarchy != view.Hierarchy().ID() {
		t.Fatalf("unexpected trace %+v", trace)
	}
	if diff := cmp.Diff([]RelationKind{AliasFor}, trace.Relations); diff != "" {
		t.Fatalf("relations mismatch (-want +got):\n%s", diff)
	}
	wantOrigins := []Provenance{
		{Type: "Child", Attribute: "childValue", Value: "", Default: true, Canonical: true},
		{Type: "Child", Attribute: "childValueAlias", Value: "Child!", Default: false, Canonical: true},
	}
	if diff := cmp.Diff(wantOrigins, trace.Origins); diff != "" {
		t.Fatalf("origins mismatch (-want +got):\n%s", diff)
	}
	if trace.Source == nil || trace.Source.Type != "Child" {
		t.Fatalf("expected the aliased slot to supply its own value, got %+v", trace.Source)
	}
}

func TestTraceOverriddenAttribute(t *testing.T) {
	engine := mustEngine(t, familyFixture(t))
	view, err := engine.View(Element("UserService"), "GrandParent")
	if err != nil {
		t.Fatalf("View: %v", err)
	}

	trace, err := view.Trace("grandParentType")
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if trace.Value != "Integer" || len(trace.Relations) != 0 {
		t.Fatalf("unexpected trace %+v", trace)
	}
	wantSource := &Provenance{Type: "Child", Attribute: "grandParentType", Vertical: 0, Value: "Integer", Canonical: true}
	if diff := cmp.Diff(wantSource, trace.Source); diff != "" {
		t.Fatalf("source mismatch (-want +got):\n%s", diff)
	}
	if len(trace.Origins) != 1 || trace.Origins[0].Value != "Object" || !trace.Origins[0].Default {
		t.Fatalf("expected the raw GrandParent value as origin, got %+v", trace.Origins)
	}
}

func TestTraceRecordsConflicts(t *testing.T) {
	engine := mustEngine(t, mirrorFixture(t))
	view, err := engine.View(Element("Conflict"), "M")
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	trace, err := view.Trace("name")
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if !strings.Contains(trace.Err, "mirror conflict") || trace.Value != nil {
		t.Fatalf("expected conflict recorded in trace, got %+v", trace)
	}
	if diff := cmp.Diff([]RelationKind{MirrorFor}, trace.Relations); diff != "" {
		t.Fatalf("relations mismatch (-want +got):\n%s", diff)
	}
}

func TestTraceUnknownAttributeAndAbsentType(t *testing.T) {
	engine := mustEngine(t, familyFixture(t))
	view, _ := engine.View(Element("UserService"), "Child")
	if _, err := view.Trace("missing"); !errors.Is(err, ErrUnknownAttribute) {
		t.Fatalf("expected ErrUnknownAttribute, got %v", err)
	}

	absent, _ := engine.View(Element("UserService"), "Unrelated")
	trace, err := absent.Trace("anything")
	if err != nil || trace.Source != nil || len(trace.Origins) != 0 {
		t.Fatalf("expected an empty trace for an absent type, got %+v (err %v)", trace, err)
	}
}

func TestTraceJSONRoundTrip(t *testing.T) {
	engine := mustEngine(t, familyFixture(t))
	view, _ := engine.View(Element("UserService"), "Child")

	aliased, err := view.Trace("childValue")
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	payload, err := aliased.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if !strings.Contains(string(payload), `"relations":["alias_for"]`) {
		t.Fatalf("expected relation kinds encoded by name, got %s", payload)
	}

	trace, err := view.Trace("childValueAlias")
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	payload, err = trace.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	decoded, err := TraceFromJSON(payload)
	if err != nil {
		t.Fatalf("TraceFromJSON: %v", err)
	}
	if diff := cmp.Diff(trace, decoded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
