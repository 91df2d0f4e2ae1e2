package annot

import (
	"errors"
	"fmt"
)

type boundRelation struct {
	node     *Node
	relation Relation
}

// resolve rewires the accessor slots of canonical nodes according to their
// declared relations. Mirror edges are applied first, alias and force-alias
// edges after. Declared edges always take precedence over the name based
// inheritance performed lazily by computeValue.
func (h *Hierarchy) resolve(relationsOf func(*Type) ([]Relation, error)) error {
	var mirrors, aliases []boundRelation
	for _, n := range h.ordered {
		relations := n.Type.Relations
		if relationsOf != nil {
			var err error
			relations, err = relationsOf(n.Type)
			if err != nil {
				return err
			}
		}
		for _, rel := range relations {
			bound := boundRelation{node: n, relation: rel}
			if rel.Kind == MirrorFor {
				mirrors = append(mirrors, bound)
				continue
			}
			aliases = append(aliases, bound)
		}
	}

	for _, b := range mirrors {
		if err := h.applyMirror(b.node, b.relation); err != nil {
			return err
		}
	}
	for _, b := range aliases {
		h.applyAlias(b.node, b.relation)
	}
	h.resolved = true
	return nil
}

func (h *Hierarchy) applyMirror(n *Node, rel Relation) error {
	target, ok := h.canonical[rel.targetOf(n.Type.ID)]
	if !ok {
		return nil
	}
	si := n.Type.attributeIndex(rel.From)
	ti := target.Type.attributeIndex(rel.Attribute)
	if si < 0 || ti < 0 {
		return nil
	}

	source, sourceMirrored := n.slots[si].(*mirrorAccessor)
	linked, linkedMirrored := target.slots[ti].(*mirrorAccessor)
	switch {
	case sourceMirrored && linkedMirrored:
		if source.pairedWith(linked) {
			return nil
		}
		return h.mirrorError(n, rel, "attributes are mirrored with other attributes")
	case sourceMirrored:
		return h.mirrorError(n, rel, fmt.Sprintf("%s is already mirrored", rel.From))
	case linkedMirrored:
		return h.mirrorError(n, rel, fmt.Sprintf("%s is already mirrored", rel.Attribute))
	}

	original, other := n.slots[si], target.slots[ti]
	n.slots[si] = newMirrorAccessor(original, other)
	target.slots[ti] = newMirrorAccessor(other, original)
	return nil
}

func (h *Hierarchy) mirrorError(n *Node, rel Relation, reason string) error {
	return &ConstructionError{
		Type:            n.Type.ID,
		Attribute:       rel.From,
		Target:          rel.targetOf(n.Type.ID),
		TargetAttribute: rel.Attribute,
		Reason:          reason,
		Declaration:     h.declaration,
	}
}

// applyAlias wraps the target slot so that it reads through the source slot.
// When the target is already wrapped, every origin of the existing chain is
// wrapped instead so the whole equivalence class follows the source.
func (h *Hierarchy) applyAlias(n *Node, rel Relation) {
	target, ok := h.canonical[rel.targetOf(n.Type.ID)]
	if !ok {
		return
	}
	si := n.Type.attributeIndex(rel.From)
	ti := target.Type.attributeIndex(rel.Attribute)
	if si < 0 || ti < 0 {
		return
	}
	source := n.slots[si]

	current := target.slots[ti]
	if !isWrapped(current) {
		target.slots[ti] = wrapAccessor(rel.Kind, current, source)
		return
	}
	for _, origin := range Origins(current) {
		owner := origin.Node()
		oi := owner.Type.attributeIndex(origin.Attribute().Name)
		if owner == n && oi == si {
			continue
		}
		owner.slots[oi] = wrapAccessor(rel.Kind, owner.slots[oi], source)
	}
}

func (n *Node) resolvedValue(i int) (any, error) {
	cell := n.resolvedCell(i)
	if cell == nil {
		return n.slots[i].Value()
	}
	return cell.value, cell.err
}

// resolvedCell computes slot i once. It returns nil when n takes no part in
// resolution: the hierarchy is unresolved or n is not canonical.
func (n *Node) resolvedCell(i int) *valueCell {
	h := n.hierarchy
	if h == nil || !h.resolved || h.canonical[n.Type.ID] != n {
		return nil
	}
	cell := &n.cells[i]
	cell.once.Do(func() {
		cell.value, cell.source, cell.err = h.computeValue(n, i)
	})
	return cell
}

// computeValue settles the value of slot i of canonical node n and reports
// the node that supplied it:
//   - a slot bound by a declared relation answers for itself;
//   - a non-default value from a strictly closer node with a same name and
//     same declared type attribute overrides the own value;
//   - a default own value inherits from the nearest other node whose matching
//     slot is bound by a relation.
//
// A candidate whose slot is a conflicting mirror pair is passed over: the
// conflict fails reads of that pair only.
func (h *Hierarchy) computeValue(n *Node, i int) (any, *Node, error) {
	slot := n.slots[i]
	if isWrapped(slot) {
		value, err := slot.Value()
		return value, n, err
	}
	attr := n.Type.Attributes[i]

	for _, m := range h.ordered {
		if m.Vertical >= n.Vertical {
			break
		}
		j := matchingAttribute(m, attr)
		if j < 0 {
			continue
		}
		value, set, err := m.explicitValue(j)
		if errors.Is(err, ErrMirrorConflict) {
			continue
		}
		if err != nil {
			return nil, m, err
		}
		if set {
			return value, m, nil
		}
	}

	own, err := slot.Value()
	if err != nil {
		return nil, n, err
	}
	if !isDefaultValue(attr, own) {
		return own, n, nil
	}

	for _, m := range h.ordered {
		if m == n || m.Vertical < n.Vertical {
			continue
		}
		j := matchingAttribute(m, attr)
		if j < 0 || !isWrapped(m.slots[j]) {
			continue
		}
		value, set, err := m.explicitValue(j)
		if errors.Is(err, ErrMirrorConflict) {
			continue
		}
		if err != nil {
			return nil, m, err
		}
		if set {
			return value, m, nil
		}
	}
	return own, n, nil
}

// explicitValue returns the resolved value of slot j and whether it differs
// from the default.
func (n *Node) explicitValue(j int) (any, bool, error) {
	if slot := n.slots[j]; isWrapped(slot) {
		isDefault, err := slot.IsDefault()
		if err != nil || isDefault {
			return nil, false, err
		}
		value, err := slot.Value()
		return value, err == nil, err
	}
	value, err := n.resolvedValue(j)
	if err != nil {
		return nil, false, err
	}
	return value, !isDefaultValue(n.Type.Attributes[j], value), nil
}

func matchingAttribute(n *Node, attr Attribute) int {
	j := n.Type.attributeIndex(attr.Name)
	if j < 0 || n.Type.Attributes[j].Type != attr.Type {
		return -1
	}
	return j
}
