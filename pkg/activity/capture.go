package activity

import (
	"context"
	"slices"
	"sync"
)

// Recorder keeps the events it is notified of. It is safe for concurrent use
// and returns Err from every Notify.
type Recorder struct {
	Err error

	mu     sync.Mutex
	events []Event
}

// Notify implements Hook.
func (r *Recorder) Notify(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Normalize(event))
	return r.Err
}

// Events returns the recorded events in arrival order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Verbs returns the recorded verbs in arrival order.
func (r *Recorder) Verbs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	verbs := make([]string, 0, len(r.events))
	for _, event := range r.events {
		verbs = append(verbs, event.Verb)
	}
	return verbs
}

// Reset drops every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
