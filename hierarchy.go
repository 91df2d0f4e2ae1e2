package annot

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// TypeFilter reports whether meta-annotations of type id take part in a
// hierarchy. Roots are never filtered.
type TypeFilter func(id TypeID) bool

// Node is one metadata instance reached while walking a hierarchy. Nodes are
// shared between goroutines once built and must not be modified.
type Node struct {
	Instance   Instance
	Type       *Type
	Vertical   int
	Horizontal int

	index       int
	declaration string
	hierarchy   *Hierarchy
	slots       []Accessor
	cells       []valueCell
}

type valueCell struct {
	once   sync.Once
	value  any
	source *Node
	err    error
}

func newNode(h *Hierarchy, inst Instance, typ *Type, vertical, horizontal int) *Node {
	n := &Node{
		Instance:    inst,
		Type:        typ,
		Vertical:    vertical,
		Horizontal:  horizontal,
		index:       len(h.nodes),
		declaration: h.declaration,
		hierarchy:   h,
		slots:       make([]Accessor, len(typ.Attributes)),
		cells:       make([]valueCell, len(typ.Attributes)),
	}
	for i, attr := range typ.Attributes {
		n.slots[i] = newBaseAccessor(n, attr)
	}
	return n
}

// Index returns the position of the node in discovery order.
func (n *Node) Index() int { return n.index }

// Canonical reports whether the node was selected for its type.
func (n *Node) Canonical() bool {
	return n.hierarchy != nil && n.hierarchy.canonical[n.Type.ID] == n
}

// Accessor returns the current accessor of attribute name.
func (n *Node) Accessor(name string) (Accessor, bool) {
	i := n.Type.attributeIndex(name)
	if i < 0 {
		return nil, false
	}
	return n.slots[i], true
}

// Value returns the resolved value of attribute name. For nodes of an
// unresolved hierarchy this is the raw own value.
func (n *Node) Value(name string) (any, error) {
	i := n.Type.attributeIndex(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, n.Type.ID, name)
	}
	return n.resolvedValue(i)
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(v=%d,h=%d)", n.Type.ID, n.Vertical, n.Horizontal)
}

// Hierarchy is the set of metadata nodes reachable from one or more roots.
// Nodes are held in discovery order; one canonical node is kept per type.
type Hierarchy struct {
	id          string
	declaration string
	resolved    bool

	nodes     []*Node
	canonical map[TypeID]*Node
	ordered   []*Node
}

// ID uniquely identifies this hierarchy build.
func (h *Hierarchy) ID() string { return h.id }

// Declaration returns the key of the declaration the hierarchy is rooted at.
// It is empty for aggregates built from bare roots.
func (h *Hierarchy) Declaration() string { return h.declaration }

// Resolved reports whether the resolution pass ran.
func (h *Hierarchy) Resolved() bool { return h.resolved }

// Len returns the number of discovered nodes.
func (h *Hierarchy) Len() int { return len(h.nodes) }

// Nodes returns every discovered node in discovery order.
func (h *Hierarchy) Nodes() []*Node {
	return slices.Clone(h.nodes)
}

// Canonical returns the canonical node of every type, nearest first.
func (h *Hierarchy) Canonical() []*Node {
	return slices.Clone(h.ordered)
}

// Node returns the canonical node of type id.
func (h *Hierarchy) Node(id TypeID) (*Node, bool) {
	n, ok := h.canonical[id]
	return n, ok
}

// NodesOf returns every node of type id in discovery order.
func (h *Hierarchy) NodesOf(id TypeID) []*Node {
	var out []*Node
	for _, n := range h.nodes {
		if n.Type.ID == id {
			out = append(out, n)
		}
	}
	return out
}

// Types returns the types present in the hierarchy, nearest first.
func (h *Hierarchy) Types() []TypeID {
	out := make([]TypeID, len(h.ordered))
	for i, n := range h.ordered {
		out[i] = n.Type.ID
	}
	return out
}

// synthesizedProduct is implemented by values produced by synthesis. Such
// values may not seed a new hierarchy.
type synthesizedProduct interface {
	synthesized()
}

type buildInput struct {
	declaration string
	roots       []Instance
	source      DeclarationSource
	types       TypeRegistry
	selector    Selector
	filter      TypeFilter
	relations   func(*Type) ([]Relation, error)
	resolve     bool
	maxNodes    int
}

type pending struct {
	inst     Instance
	vertical int
	path     []TypeID
}

// buildHierarchy walks meta-annotations breadth first. A type never repeats on
// one discovery path; it may be reached again through another path.
//
// Every distinct path yields a node, so densely cross-annotated types grow
// the hierarchy combinatorially: k types that all meta-annotate each other
// produce on the order of k! nodes. Builds stop with ErrHierarchyTooLarge once
// maxNodes nodes exist; zero means no limit.
func buildHierarchy(in buildInput) (*Hierarchy, error) {
	selector := in.selector
	if selector == nil {
		selector = NearestAndOldest
	}
	h := &Hierarchy{
		id:          uuid.NewString(),
		declaration: in.declaration,
		canonical:   make(map[TypeID]*Node),
	}

	queue := make([]pending, 0, len(in.roots))
	for _, root := range in.roots {
		if root == nil {
			continue
		}
		queue = append(queue, pending{inst: root})
	}

	ranks := make(map[int]int)
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		id := item.inst.AnnotationType()
		if _, ok := item.inst.(synthesizedProduct); ok {
			return nil, &ReentrantSynthesisError{Type: id, Declaration: in.declaration}
		}
		typ, ok := in.types.LookupType(id)
		if !ok || typ == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, id)
		}

		if in.maxNodes > 0 && len(h.nodes) >= in.maxNodes {
			return nil, fmt.Errorf("%w: %s exceeds %d nodes", ErrHierarchyTooLarge, in.declaration, in.maxNodes)
		}
		node := newNode(h, item.inst, typ, item.vertical, ranks[item.vertical])
		ranks[item.vertical]++
		h.nodes = append(h.nodes, node)
		if current, exists := h.canonical[id]; exists {
			h.canonical[id] = selector.Choose(current, node)
		} else {
			h.canonical[id] = node
		}

		if in.source == nil {
			continue
		}
		path := append(slices.Clone(item.path), id)
		for _, meta := range in.source.MetaAnnotations(item.inst) {
			if meta == nil {
				continue
			}
			metaID := meta.AnnotationType()
			if slices.Contains(path, metaID) {
				continue
			}
			if in.filter != nil && !in.filter(metaID) {
				continue
			}
			queue = append(queue, pending{inst: meta, vertical: item.vertical + 1, path: path})
		}
	}

	for _, n := range h.nodes {
		if h.canonical[n.Type.ID] == n {
			h.ordered = append(h.ordered, n)
		}
	}
	slices.SortStableFunc(h.ordered, func(a, b *Node) int {
		if a.Vertical != b.Vertical {
			return a.Vertical - b.Vertical
		}
		return a.Horizontal - b.Horizontal
	})

	if in.resolve {
		if err := h.resolve(in.relations); err != nil {
			return nil, withDeclaration(err, in.declaration)
		}
	}
	return h, nil
}
