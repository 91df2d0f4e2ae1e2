package activity

import (
	"context"
	"errors"
	"slices"
)

// Hook receives normalized engine events.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, event Event) error

// Notify implements Hook.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans events out to several hooks.
type Hooks []Hook

// Enabled reports whether there is a hook to notify.
func (h Hooks) Enabled() bool {
	return len(h.Compact()) > 0
}

// Compact returns a copy of h without nil hooks, or nil when none remain.
func (h Hooks) Compact() Hooks {
	var out Hooks
	for _, hook := range h {
		if hook != nil {
			out = append(out, hook)
		}
	}
	return out
}

// Notify normalizes event once and delivers it to every hook. Events without
// a verb or object are dropped. Hook failures are joined.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}
	normalized := Normalize(event)
	if !normalized.Valid() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OnlyVerbs forwards to hook the events whose verb is one of verbs.
func OnlyVerbs(hook Hook, verbs ...string) Hook {
	allowed := slices.Clone(verbs)
	return HookFunc(func(ctx context.Context, event Event) error {
		if hook == nil || !slices.Contains(allowed, event.Verb) {
			return nil
		}
		return hook.Notify(ctx, event)
	})
}
