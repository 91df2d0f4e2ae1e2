package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var (
	errBoom1 = errors.New("boom1")
	errBoom2 = errors.New("boom2")
)

func TestNormalizeTrimsSortsAndClones(t *testing.T) {
	meta := map[string]any{"k": "v"}
	types := []string{" Parent ", "Child", "Parent", ""}
	evt := Event{
		Verb:        " hierarchy.built ",
		ActorID:     " actor ",
		TenantID:    " tenant ",
		Channel:     " annotations ",
		HierarchyID: " 42 ",
		Declaration: " UserService ",
		Types:       types,
		Duration:    -time.Second,
		Metadata:    meta,
	}

	got := Normalize(evt)

	if got.Verb != VerbHierarchyBuilt || got.HierarchyID != "42" || got.Declaration != "UserService" {
		t.Fatalf("unexpected normalized identity: %+v", got)
	}
	if got.ActorID != "actor" || got.TenantID != "tenant" || got.Channel != "annotations" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if diff := cmp.Diff([]string{"Child", "Parent"}, got.Types); diff != "" {
		t.Fatalf("types mismatch (-want +got):\n%s", diff)
	}
	if got.Duration != 0 || got.OccurredAt.IsZero() {
		t.Fatalf("expected clamped duration and a timestamp, got %v %v", got.Duration, got.OccurredAt)
	}
	got.Metadata["k"] = "changed"
	if meta["k"] != "v" {
		t.Fatalf("expected original metadata untouched: %+v", meta)
	}
	if types[0] != " Parent " {
		t.Fatalf("expected original types untouched: %+v", types)
	}
}

func TestEventObjectIdentity(t *testing.T) {
	cases := []struct {
		name     string
		event    Event
		wantType string
		wantID   string
	}{
		{"built", Event{Verb: VerbHierarchyBuilt, HierarchyID: "h1", Declaration: "Svc"}, ObjectHierarchy, "h1"},
		{"failed", Event{Verb: VerbHierarchyFailed, Declaration: "Svc"}, ObjectHierarchy, "Svc"},
		{"cleared", Event{Verb: VerbCachesCleared, Generation: 3}, ObjectCaches, "generation-3"},
		{"empty", Event{}, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.event.ObjectType(); got != tc.wantType {
				t.Fatalf("want object type %q, got %q", tc.wantType, got)
			}
			if got := tc.event.ObjectID(); got != tc.wantID {
				t.Fatalf("want object id %q, got %q", tc.wantID, got)
			}
		})
	}
}

func TestHooksNotifyDropsInvalidEvents(t *testing.T) {
	recorder := &Recorder{}
	hooks := Hooks{recorder}
	if err := hooks.Notify(context.Background(), Event{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if err := hooks.Notify(context.Background(), Event{Verb: VerbHierarchyBuilt}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if n := len(recorder.Events()); n != 0 {
		t.Fatalf("expected no events recorded, got %d", n)
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	recorder := &Recorder{}
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, event Event) error {
			if ctx != nil {
				ctxSeen = true
			}
			return nil
		}),
		recorder,
		HookFunc(func(context.Context, Event) error { return errBoom1 }),
		nil,
		HookFunc(func(context.Context, Event) error { return errBoom2 }),
	}

	err := hooks.Notify(nil, Event{Verb: VerbHierarchyBuilt, HierarchyID: "1"})
	if !errors.Is(err, errBoom1) || !errors.Is(err, errBoom2) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !ctxSeen {
		t.Fatalf("expected context fallback to be non-nil")
	}
	if n := len(recorder.Events()); n != 1 {
		t.Fatalf("expected event to be recorded once, got %d", n)
	}
}

func TestHooksCompactAndEnabled(t *testing.T) {
	if (Hooks{nil, nil}).Enabled() {
		t.Fatalf("expected nil-only hooks disabled")
	}
	if got := (Hooks{nil, nil}).Compact(); got != nil {
		t.Fatalf("expected nil compact result, got %+v", got)
	}
	hooks := Hooks{nil, &Recorder{}}
	if !hooks.Enabled() || len(hooks.Compact()) != 1 {
		t.Fatalf("expected one usable hook")
	}
}

func TestOnlyVerbs(t *testing.T) {
	recorder := &Recorder{}
	hooks := Hooks{OnlyVerbs(recorder, VerbCachesCleared)}

	_ = hooks.Notify(context.Background(), Event{Verb: VerbHierarchyBuilt, HierarchyID: "1"})
	_ = hooks.Notify(context.Background(), BuildCachesClearedEvent(1))

	if diff := cmp.Diff([]string{VerbCachesCleared}, recorder.Verbs()); diff != "" {
		t.Fatalf("verbs mismatch (-want +got):\n%s", diff)
	}
	recorder.Reset()
	if n := len(recorder.Events()); n != 0 {
		t.Fatalf("expected reset recorder, got %d events", n)
	}
}

func TestEmitterDisabledAndEnabled(t *testing.T) {
	recorder := &Recorder{}
	event := Event{Verb: VerbHierarchyBuilt, HierarchyID: "1"}

	disabled := NewEmitter(Hooks{recorder}, Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatalf("expected emitter to be disabled")
	}
	if err := disabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if n := len(recorder.Events()); n != 0 {
		t.Fatalf("expected no events recorded when disabled, got %d", n)
	}
	if NewEmitter(Hooks{nil}, Config{Enabled: true}).Enabled() {
		t.Fatalf("expected emitter without hooks to be disabled")
	}

	enabled := NewEmitter(Hooks{recorder}, Config{Enabled: true})
	if err := enabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("emit: %v", err)
	}
	events := recorder.Events()
	if len(events) != 1 || events[0].Channel != DefaultChannel {
		t.Fatalf("expected default channel applied, got %+v", events)
	}
}

func TestEmitterStampsDefaults(t *testing.T) {
	recorder := &Recorder{}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	emitter := NewEmitter(Hooks{recorder}, Config{
		Enabled:  true,
		Channel:  "metadata",
		ActorID:  "annotctl",
		TenantID: "acme",
		Clock:    func() time.Time { return at },
	})

	_ = emitter.Emit(context.Background(), BuildCachesClearedEvent(1))
	_ = emitter.Emit(context.Background(), Event{
		Verb:        VerbHierarchyBuilt,
		HierarchyID: "1",
		Channel:     "custom",
		ActorID:     "someone",
	})

	events := recorder.Events()
	first, second := events[0], events[1]
	if first.Channel != "metadata" || first.ActorID != "annotctl" || first.TenantID != "acme" || !first.OccurredAt.Equal(at) {
		t.Fatalf("expected config defaults, got %+v", first)
	}
	if second.Channel != "custom" || second.ActorID != "someone" || second.TenantID != "acme" {
		t.Fatalf("expected explicit values preserved, got %+v", second)
	}
}
