package annot

import "github.com/goliatone/go-annotations/layering"

// Composite combines the hierarchies of a declaration and the declarations it
// overrides or implements. Queries walk them in precedence order: the
// declaring declaration, then its ancestors nearest first, then its
// interfaces.
type Composite struct {
	engine      *Engine
	declaration string
	resolved    bool
	chain       layering.Chain[*Hierarchy]
}

// Composite returns the cached composite of decl. Without a Lineage the
// composite holds decl alone.
func (e *Engine) Composite(decl Declaration, resolve bool) (*Composite, error) {
	if decl == nil {
		return nil, ErrNoDeclaration
	}
	return e.caches.composites.getOrCompute(e.cacheKey(decl, resolve), func() (*Composite, error) {
		return e.compose(decl, resolve)
	})
}

func (e *Engine) compose(decl Declaration, resolve bool) (*Composite, error) {
	type layer struct {
		decl  Declaration
		level layering.Level
	}
	layers := []layer{{decl: decl, level: layering.LevelDeclaring}}
	if lineage := e.cfg.lineage; lineage != nil {
		for _, ancestor := range lineage.Superclasses(decl) {
			layers = append(layers, layer{decl: ancestor, level: layering.LevelAncestor})
		}
		for _, iface := range lineage.Interfaces(decl) {
			layers = append(layers, layer{decl: iface, level: layering.LevelInterface})
		}
	}

	entries := make([]layering.Entry[*Hierarchy], 0, len(layers))
	seen := make(map[string]struct{}, len(layers))
	for _, l := range layers {
		if l.decl == nil {
			continue
		}
		key := l.decl.DeclarationKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		h, err := e.Hierarchy(l.decl, resolve)
		if err != nil {
			return nil, err
		}
		entries = append(entries, layering.Entry[*Hierarchy]{Key: key, Level: l.level, Value: h})
	}

	return &Composite{
		engine:      e,
		declaration: decl.DeclarationKey(),
		resolved:    resolve,
		chain:       layering.NewChain(entries...),
	}, nil
}

// Declaration returns the key of the declaring declaration.
func (c *Composite) Declaration() string {
	return c.declaration
}

// Declarations returns the keys of the composed declarations in precedence
// order.
func (c *Composite) Declarations() []string {
	entries := c.chain.Ordered()
	out := make([]string, len(entries))
	for i, entry := range entries {
		out[i] = entry.Key
	}
	return out
}

// Hierarchies returns the composed hierarchies in precedence order.
func (c *Composite) Hierarchies() []*Hierarchy {
	return c.chain.Values()
}

// IsPresent reports whether any composed declaration carries type t.
func (c *Composite) IsPresent(t TypeID) bool {
	_, ok := c.first(t)
	return ok
}

// Find returns the raw canonical instance of t from the first declaration in
// precedence order that carries it.
func (c *Composite) Find(t TypeID) (Instance, bool) {
	h, ok := c.first(t)
	if !ok {
		return nil, false
	}
	n, _ := h.Node(t)
	return n.Instance, true
}

// FindAll concatenates the raw instances of t of every composed declaration
// in precedence order.
func (c *Composite) FindAll(t TypeID) []Instance {
	var out []Instance
	for _, h := range c.chain.Values() {
		for _, n := range h.NodesOf(t) {
			out = append(out, n.Instance)
		}
	}
	return out
}

// Resolve returns the view of t from the first declaration carrying it.
func (c *Composite) Resolve(t TypeID) (Instance, bool, error) {
	h, ok := c.first(t)
	if !ok {
		return nil, false, nil
	}
	view, err := c.engine.viewOf(h, t)
	if err != nil {
		return nil, false, err
	}
	return view, true, nil
}

// ResolveAll concatenates the views of every composed declaration in
// precedence order.
func (c *Composite) ResolveAll() ([]Instance, error) {
	var out []Instance
	for _, h := range c.chain.Values() {
		views, err := c.engine.resolveAll(h)
		if err != nil {
			return nil, err
		}
		out = append(out, views...)
	}
	return out, nil
}

// Merged merges the resolved attributes of t across every composed
// declaration carrying it. Non-default values of stronger declarations win.
func (c *Composite) Merged(t TypeID) (map[string]any, bool, error) {
	var (
		layers []map[string]any
		typ    *Type
	)
	for _, h := range c.chain.Values() {
		n, ok := h.Node(t)
		if !ok {
			continue
		}
		typ = n.Type
		view, err := c.engine.viewOf(h, t)
		if err != nil {
			return nil, false, err
		}
		values, err := view.Values()
		if err != nil {
			return nil, false, err
		}
		layers = append(layers, values)
	}
	if len(layers) == 0 {
		return nil, false, nil
	}
	merged := layering.MergeAttributes(layers, func(name string, value any) bool {
		attr, ok := typ.Attribute(name)
		return ok && isDefaultValue(attr, value)
	})
	return merged, true, nil
}

func (c *Composite) first(t TypeID) (*Hierarchy, bool) {
	for _, h := range c.chain.Values() {
		if _, ok := h.Node(t); ok {
			return h, true
		}
	}
	return nil, false
}
