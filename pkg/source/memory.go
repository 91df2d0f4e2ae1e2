package source

import (
	"slices"
	"sync"

	annot "github.com/goliatone/go-annotations"
)

// Memory is a thread-safe annot.DeclarationSource and annot.Lineage.
type Memory struct {
	mu         sync.RWMutex
	types      annot.TypeRegistry
	attached   map[string][]annot.Instance
	meta       map[annot.TypeID][]annot.Instance
	extends    map[string][]annot.Declaration
	implements map[string][]annot.Declaration
}

// NewMemory returns an empty source. When types is not nil, the Meta declared
// on each registered type is reported ahead of meta-annotations attached with
// AttachMeta.
func NewMemory(types annot.TypeRegistry) *Memory {
	return &Memory{
		types:      types,
		attached:   map[string][]annot.Instance{},
		meta:       map[annot.TypeID][]annot.Instance{},
		extends:    map[string][]annot.Declaration{},
		implements: map[string][]annot.Declaration{},
	}
}

// Attach appends instances to decl in order.
func (m *Memory) Attach(decl annot.Declaration, instances ...annot.Instance) *Memory {
	if decl == nil {
		return m
	}
	key := decl.DeclarationKey()
	m.mu.Lock()
	m.attached[key] = append(m.attached[key], compact(instances)...)
	m.mu.Unlock()
	return m
}

// AttachMeta appends meta-annotations to metadata type id.
func (m *Memory) AttachMeta(id annot.TypeID, instances ...annot.Instance) *Memory {
	m.mu.Lock()
	m.meta[id] = append(m.meta[id], compact(instances)...)
	m.mu.Unlock()
	return m
}

// Extend records that decl overrides parents, nearest first.
func (m *Memory) Extend(decl annot.Declaration, parents ...annot.Declaration) *Memory {
	return m.link(m.extends, decl, parents)
}

// Implement records that decl implements ifaces.
func (m *Memory) Implement(decl annot.Declaration, ifaces ...annot.Declaration) *Memory {
	return m.link(m.implements, decl, ifaces)
}

func (m *Memory) link(index map[string][]annot.Declaration, decl annot.Declaration, targets []annot.Declaration) *Memory {
	if decl == nil {
		return m
	}
	key := decl.DeclarationKey()
	m.mu.Lock()
	for _, target := range targets {
		if target == nil || target.DeclarationKey() == key {
			continue
		}
		index[key] = append(index[key], target)
	}
	m.mu.Unlock()
	return m
}

// Annotations implements annot.DeclarationSource.
func (m *Memory) Annotations(decl annot.Declaration) []annot.Instance {
	if decl == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.attached[decl.DeclarationKey()])
}

// MetaAnnotations implements annot.DeclarationSource.
func (m *Memory) MetaAnnotations(inst annot.Instance) []annot.Instance {
	if inst == nil {
		return nil
	}
	id := inst.AnnotationType()
	var out []annot.Instance
	if m.types != nil {
		if t, ok := m.types.LookupType(id); ok && t != nil {
			out = append(out, compact(t.Meta)...)
		}
	}
	m.mu.RLock()
	out = append(out, m.meta[id]...)
	m.mu.RUnlock()
	return out
}

// Superclasses implements annot.Lineage: the transitive Extend chain, nearest
// first, without repeats.
func (m *Memory) Superclasses(decl annot.Declaration) []annot.Declaration {
	if decl == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.walk(m.extends, []annot.Declaration{decl}, decl.DeclarationKey())
}

// Interfaces implements annot.Lineage: the interfaces of decl and of its
// superclasses, each followed by the interfaces it extends.
func (m *Memory) Interfaces(decl annot.Declaration) []annot.Declaration {
	if decl == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	chain := append([]annot.Declaration{decl}, m.walk(m.extends, []annot.Declaration{decl}, decl.DeclarationKey())...)
	var direct []annot.Declaration
	for _, d := range chain {
		direct = append(direct, m.implements[d.DeclarationKey()]...)
	}
	var out []annot.Declaration
	seen := map[string]struct{}{decl.DeclarationKey(): {}}
	for _, iface := range direct {
		for _, d := range append([]annot.Declaration{iface}, m.walk(m.extends, []annot.Declaration{iface}, iface.DeclarationKey())...) {
			key := d.DeclarationKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}

// walk follows index breadth first from roots, skipping the roots and
// already visited keys. The caller holds the read lock.
func (m *Memory) walk(index map[string][]annot.Declaration, roots []annot.Declaration, skip string) []annot.Declaration {
	seen := map[string]struct{}{skip: {}}
	var out []annot.Declaration
	queue := slices.Clone(roots)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range index[current.DeclarationKey()] {
			key := next.DeclarationKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	return out
}

func compact(instances []annot.Instance) []annot.Instance {
	out := make([]annot.Instance, 0, len(instances))
	for _, inst := range instances {
		if inst != nil {
			out = append(out, inst)
		}
	}
	return out
}
