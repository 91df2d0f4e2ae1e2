package annot

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/goliatone/go-annotations/pkg/activity"
	"github.com/google/uuid"
)

// Engine answers metadata queries about declarations. It is safe for
// concurrent use; hierarchies, relations, views and composites are cached
// until ClearCaches.
type Engine struct {
	id        string
	namespace string
	source    DeclarationSource
	types     TypeRegistry
	cfg       engineConfig
	caches    *Caches
	emitter   *activity.Emitter

	evalOnce  sync.Once
	evaluator Evaluator
	evalErr   error
}

// NewEngine builds an engine reading metadata from source and type
// descriptors from types.
func NewEngine(source DeclarationSource, types TypeRegistry, opts ...Option) (*Engine, error) {
	if source == nil {
		return nil, fmt.Errorf("annot: engine requires a declaration source")
	}
	if types == nil {
		return nil, fmt.Errorf("annot: engine requires a type registry")
	}
	cfg := applyOptions(opts)
	id := uuid.NewString()
	return &Engine{
		id:        id,
		namespace: cacheNamespace(cfg, id),
		source:    source,
		types:     types,
		cfg:       cfg,
		caches:    cfg.caches,
		emitter: activity.NewEmitter(cfg.activityHooks, activity.Config{
			Enabled:  cfg.activityHooks.Enabled(),
			Channel:  cfg.activityChannel,
			ActorID:  cfg.activityActor,
			TenantID: cfg.activityTenant,
		}),
	}, nil
}

// cacheNamespace keys the entries an engine stores in shared Caches. Engines
// land in one namespace only when they pick canonical nodes the same way:
// a built-in selector and no type filter, or an explicit WithCacheNamespace.
func cacheNamespace(cfg engineConfig, engineID string) string {
	if cfg.namespace != "" {
		return "ns:" + cfg.namespace
	}
	selector, builtin := cfg.selector.(distanceSelector)
	if !builtin || cfg.filter != nil {
		return "engine:" + engineID
	}
	return "selector:" + selector.String()
}

func (e *Engine) cacheKey(decl Declaration, resolve bool) string {
	return e.namespace + "|" + decl.DeclarationKey() + "|" + strconv.FormatBool(resolve)
}

// Caches returns the caches used by the engine.
func (e *Engine) Caches() *Caches {
	return e.caches
}

// Types returns the type registry the engine was built with.
func (e *Engine) Types() TypeRegistry {
	return e.types
}

// ClearCaches drops every cached hierarchy, relation set, view and composite.
func (e *Engine) ClearCaches() {
	e.caches.Clear()
	e.emit(activity.BuildCachesClearedEvent(e.caches.Stats().Generation))
}

// Hierarchy returns the cached hierarchy of decl, building it on first use.
// When resolve is true the resolution pass has run on the result.
func (e *Engine) Hierarchy(decl Declaration, resolve bool) (*Hierarchy, error) {
	if decl == nil {
		return nil, ErrNoDeclaration
	}
	return e.caches.hierarchies.getOrCompute(e.cacheKey(decl, resolve), func() (*Hierarchy, error) {
		return e.build(decl.DeclarationKey(), e.source.Annotations(decl), resolve)
	})
}

// Aggregate builds a resolved hierarchy from bare roots. The result is not
// cached. Roots produced by synthesis are rejected.
func (e *Engine) Aggregate(roots ...Instance) (*Hierarchy, error) {
	declaration := ""
	for _, root := range roots {
		if rooted, ok := root.(interface{ Declaration() Declaration }); ok && rooted.Declaration() != nil {
			declaration = rooted.Declaration().DeclarationKey()
			break
		}
	}
	return e.build(declaration, roots, true)
}

func (e *Engine) build(declaration string, roots []Instance, resolve bool) (*Hierarchy, error) {
	start := time.Now()
	h, err := buildHierarchy(buildInput{
		declaration: declaration,
		roots:       roots,
		source:      e.source,
		types:       e.types,
		selector:    e.cfg.selector,
		filter:      e.cfg.filter,
		relations:   e.relations,
		resolve:     resolve,
		maxNodes:    e.cfg.maxNodes,
	})
	duration := time.Since(start)

	event := BuildEvent{Declaration: declaration, Resolved: resolve, Duration: duration, Err: err}
	input := activity.HierarchyEventInput{Declaration: declaration, Resolved: resolve, Duration: duration, Err: err}
	if h != nil {
		event.HierarchyID = h.ID()
		event.Nodes = h.Len()
		input.HierarchyID = h.ID()
		input.Nodes = h.Len()
		for _, id := range h.Types() {
			input.Types = append(input.Types, string(id))
		}
	}
	e.cfg.buildLogger.LogBuild(event)
	e.emit(activity.BuildHierarchyEvent(input))
	return h, err
}

// relations returns the validated relations of t, cached per type.
func (e *Engine) relations(t *Type) ([]Relation, error) {
	return e.caches.relations.getOrCompute(string(t.ID), func() ([]Relation, error) {
		return validateRelations(e.types, t)
	})
}

// Relations returns the validated relations declared by type id.
func (e *Engine) Relations(id TypeID) ([]Relation, error) {
	t, ok := e.types.LookupType(id)
	if !ok || t == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, id)
	}
	return e.relations(t)
}

// IsPresent reports whether decl carries metadata of type t, directly or
// through meta-annotations. Build failures report false.
func (e *Engine) IsPresent(decl Declaration, t TypeID) bool {
	h, err := e.Hierarchy(decl, false)
	if err != nil {
		return false
	}
	_, ok := h.Node(t)
	return ok
}

// Find returns the raw canonical instance of type t.
func (e *Engine) Find(decl Declaration, t TypeID) (Instance, bool, error) {
	h, err := e.Hierarchy(decl, false)
	if err != nil {
		return nil, false, err
	}
	n, ok := h.Node(t)
	if !ok {
		return nil, false, nil
	}
	return n.Instance, true, nil
}

// FindAll returns every raw instance of type t in discovery order.
func (e *Engine) FindAll(decl Declaration, t TypeID) ([]Instance, error) {
	h, err := e.Hierarchy(decl, false)
	if err != nil {
		return nil, err
	}
	nodes := h.NodesOf(t)
	out := make([]Instance, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Instance)
	}
	return out, nil
}

// View returns the cached resolved view of type t. The view reports
// Present() == false when decl carries no metadata of type t.
func (e *Engine) View(decl Declaration, t TypeID) (*View, error) {
	h, err := e.Hierarchy(decl, true)
	if err != nil {
		return nil, err
	}
	return e.viewOf(h, t)
}

func (e *Engine) viewOf(h *Hierarchy, t TypeID) (*View, error) {
	return e.caches.views.getOrCompute(e.id+"|"+h.ID()+"|"+string(t), func() (*View, error) {
		return newView(e, h, t), nil
	})
}

// Resolve returns the resolved instance of type t. Attribute reads on the
// result apply every relation; mirror conflicts surface on read.
func (e *Engine) Resolve(decl Declaration, t TypeID) (Instance, bool, error) {
	view, err := e.View(decl, t)
	if err != nil {
		return nil, false, err
	}
	if !view.Present() {
		return nil, false, nil
	}
	return view, true, nil
}

// ResolveAll returns a resolved instance for every type present on decl,
// nearest first.
func (e *Engine) ResolveAll(decl Declaration) ([]Instance, error) {
	h, err := e.Hierarchy(decl, true)
	if err != nil {
		return nil, err
	}
	return e.resolveAll(h)
}

func (e *Engine) resolveAll(h *Hierarchy) ([]Instance, error) {
	types := h.Types()
	out := make([]Instance, 0, len(types))
	for _, id := range types {
		view, err := e.viewOf(h, id)
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

func (e *Engine) emit(event activity.Event) {
	if !e.emitter.Enabled() {
		return
	}
	_ = e.emitter.Emit(context.Background(), event)
}
