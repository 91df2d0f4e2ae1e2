package annot

import (
	"context"
	"testing"

	"github.com/goliatone/go-annotations/pkg/activity"
	"github.com/google/go-cmp/cmp"
)

func TestWithActivityHooksClonesAndFiltersNil(t *testing.T) {
	hook := activity.HookFunc(func(context.Context, activity.Event) error { return nil })

	engine := mustEngine(t, familyFixture(t), WithActivityHooks(activity.Hooks{nil, hook}))
	hooks := engine.ActivityHooks()
	if len(hooks) != 1 {
		t.Fatalf("expected 1 hook, got %d", len(hooks))
	}

	hooks[0] = nil
	again := engine.ActivityHooks()
	if len(again) != 1 || again[0] == nil {
		t.Fatalf("expected cloned hooks unaffected by mutation, got %+v", again)
	}
}

func TestActivityHooksDefaultNil(t *testing.T) {
	engine := mustEngine(t, familyFixture(t))
	if hooks := engine.ActivityHooks(); hooks != nil {
		t.Fatalf("expected nil hooks by default, got %+v", hooks)
	}
}

func TestEngineEmitsHierarchyAndCacheEvents(t *testing.T) {
	recorder := &activity.Recorder{}
	engine := mustEngine(t, familyFixture(t),
		WithActivityHooks(activity.Hooks{recorder}),
		WithActivityChannel("metadata"),
		WithActivityActor("annotctl", "acme"),
	)

	h, err := engine.Hierarchy(Element("UserService"), true)
	if err != nil {
		t.Fatalf("Hierarchy: %v", err)
	}
	if _, err := engine.Hierarchy(Element("UserService"), true); err != nil {
		t.Fatalf("Hierarchy (cached): %v", err)
	}
	engine.ClearCaches()

	events := recorder.Events()
	if len(events) != 2 {
		t.Fatalf("expected one build and one clear event, got %d", len(events))
	}
	built := events[0]
	if built.Verb != activity.VerbHierarchyBuilt || built.Channel != "metadata" || built.ActorID != "annotctl" || built.TenantID != "acme" {
		t.Fatalf("unexpected build event %+v", built)
	}
	if built.ObjectID() != h.ID() || built.Declaration != "UserService" || built.Nodes != 4 || !built.Resolved {
		t.Fatalf("unexpected build identity %+v", built)
	}
	if diff := cmp.Diff([]string{"Child", "GrandParent", "Parent"}, built.Types); diff != "" {
		t.Fatalf("types mismatch (-want +got):\n%s", diff)
	}
	cleared := events[1]
	if cleared.Verb != activity.VerbCachesCleared || cleared.Generation != 1 || cleared.ObjectID() != "generation-1" {
		t.Fatalf("unexpected clear event %+v", cleared)
	}
}

func TestEngineEmitsFailedBuilds(t *testing.T) {
	recorder := &activity.Recorder{}
	orphan := &Type{ID: "Orphan"}
	source := newMemorySource(mustRegistry(t))
	source.attach("Broken", mustAnnotation(t, orphan, nil))

	engine := mustEngine(t, source, WithActivityHooks(activity.Hooks{recorder}))
	if _, err := engine.Hierarchy(Element("Broken"), false); err == nil {
		t.Fatalf("expected unknown type error")
	}
	events := recorder.Events()
	if len(events) != 1 || events[0].Verb != activity.VerbHierarchyFailed || events[0].ObjectID() != "Broken" || events[0].Err == "" {
		t.Fatalf("expected a hierarchy.failed event keyed by declaration, got %+v", events)
	}
}
