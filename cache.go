package annot

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// CacheStats reports the number of entries per tier and how often the caches
// were cleared.
type CacheStats struct {
	Hierarchies int    `json:"hierarchies"`
	Relations   int    `json:"relations"`
	Views       int    `json:"views"`
	Composites  int    `json:"composites"`
	Generation  uint64 `json:"generation"`
}

// Caches holds the four cache tiers of an engine. One Caches value may be
// shared by several engines that use the same source and registry.
type Caches struct {
	hierarchies tier[*Hierarchy]
	relations   tier[[]Relation]
	views       tier[*View]
	composites  tier[*Composite]
	generation  atomic.Uint64
}

// NewCaches returns empty caches.
func NewCaches() *Caches {
	return &Caches{}
}

// Clear drops every cached entry. Builds in flight when Clear is called never
// publish into the cleared tiers.
func (c *Caches) Clear() {
	if c == nil {
		return
	}
	c.hierarchies.clear()
	c.relations.clear()
	c.views.clear()
	c.composites.clear()
	c.generation.Add(1)
}

// Stats returns a point in time snapshot of the tier sizes.
func (c *Caches) Stats() CacheStats {
	if c == nil {
		return CacheStats{}
	}
	return CacheStats{
		Hierarchies: c.hierarchies.len(),
		Relations:   c.relations.len(),
		Views:       c.views.len(),
		Composites:  c.composites.len(),
		Generation:  c.generation.Load(),
	}
}

// tier is a compute-if-absent map. Concurrent callers for one key share a
// single build; failed builds are not stored.
type tier[V any] struct {
	mu    sync.RWMutex
	state *tierState
}

type tierState struct {
	entries sync.Map
	group   singleflight.Group
}

func (t *tier[V]) current() *tierState {
	t.mu.RLock()
	state := t.state
	t.mu.RUnlock()
	if state != nil {
		return state
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == nil {
		t.state = &tierState{}
	}
	return t.state
}

func (t *tier[V]) get(key string) (V, bool) {
	if value, ok := t.current().entries.Load(key); ok {
		return value.(V), true
	}
	var zero V
	return zero, false
}

func (t *tier[V]) getOrCompute(key string, build func() (V, error)) (V, error) {
	state := t.current()
	if value, ok := state.entries.Load(key); ok {
		return value.(V), nil
	}
	value, err, _ := state.group.Do(key, func() (any, error) {
		if value, ok := state.entries.Load(key); ok {
			return value, nil
		}
		built, err := build()
		if err != nil {
			return nil, err
		}
		actual, _ := state.entries.LoadOrStore(key, built)
		return actual, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return value.(V), nil
}

func (t *tier[V]) clear() {
	t.mu.Lock()
	t.state = &tierState{}
	t.mu.Unlock()
}

func (t *tier[V]) len() int {
	count := 0
	t.current().entries.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}
