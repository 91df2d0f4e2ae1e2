package annot

import (
	"reflect"
	"sync"
)

// Accessor reads one attribute of one node. Base accessors read the node's own
// instance; wrappers apply a relation rule on top of another accessor.
type Accessor interface {
	Attribute() Attribute
	Node() *Node
	Value() (any, error)
	IsDefault() (bool, error)
}

// Wrapper is an Accessor that decorates Original with a relation to Linked.
type Wrapper interface {
	Accessor
	Kind() RelationKind
	Original() Accessor
	Linked() Accessor
}

type baseAccessor struct {
	node *Node
	attr Attribute

	once  sync.Once
	value any
	err   error
}

func newBaseAccessor(node *Node, attr Attribute) *baseAccessor {
	return &baseAccessor{node: node, attr: attr}
}

func (a *baseAccessor) Attribute() Attribute { return a.attr }

func (a *baseAccessor) Node() *Node { return a.node }

// Value returns the memoized own value. Failures are reported as *AccessError
// and are memoized too.
func (a *baseAccessor) Value() (any, error) {
	a.once.Do(func() {
		value, err := a.node.Instance.AttributeValue(a.attr.Name)
		if err != nil {
			a.err = &AccessError{
				Type:        a.node.Type.ID,
				Attribute:   a.attr.Name,
				Declaration: a.node.declaration,
				Err:         err,
			}
			return
		}
		a.value = value
	})
	return a.value, a.err
}

func (a *baseAccessor) IsDefault() (bool, error) {
	value, err := a.Value()
	if err != nil {
		return false, err
	}
	return isDefaultValue(a.attr, value), nil
}

func isDefaultValue(attr Attribute, value any) bool {
	return reflect.DeepEqual(value, attr.Default)
}

// relationAccessor holds the common state of the three relation wrappers.
type relationAccessor struct {
	kind     RelationKind
	original Accessor
	linked   Accessor
}

func (r *relationAccessor) Attribute() Attribute { return r.original.Attribute() }

func (r *relationAccessor) Node() *Node { return r.original.Node() }

func (r *relationAccessor) Kind() RelationKind { return r.kind }

func (r *relationAccessor) Original() Accessor { return r.original }

func (r *relationAccessor) Linked() Accessor { return r.linked }

type aliasAccessor struct{ relationAccessor }

// newAliasAccessor returns linked's value when linked is explicitly set, the
// original value otherwise.
func newAliasAccessor(original, linked Accessor) Wrapper {
	return &aliasAccessor{relationAccessor{kind: AliasFor, original: original, linked: linked}}
}

func (a *aliasAccessor) Value() (any, error) {
	linkedDefault, err := a.linked.IsDefault()
	if err != nil {
		return nil, err
	}
	if linkedDefault {
		return a.original.Value()
	}
	return a.linked.Value()
}

func (a *aliasAccessor) IsDefault() (bool, error) {
	return a.linked.IsDefault()
}

type forceAliasAccessor struct{ relationAccessor }

// newForceAliasAccessor always returns linked's value.
func newForceAliasAccessor(original, linked Accessor) Wrapper {
	return &forceAliasAccessor{relationAccessor{kind: ForceAliasFor, original: original, linked: linked}}
}

func (a *forceAliasAccessor) Value() (any, error) {
	return a.linked.Value()
}

func (a *forceAliasAccessor) IsDefault() (bool, error) {
	return a.linked.IsDefault()
}

type mirrorAccessor struct{ relationAccessor }

// newMirrorAccessor never fails; conflicts surface on the first read.
func newMirrorAccessor(original, linked Accessor) Wrapper {
	return &mirrorAccessor{relationAccessor{kind: MirrorFor, original: original, linked: linked}}
}

func (a *mirrorAccessor) Value() (any, error) {
	originalDefault, err := a.original.IsDefault()
	if err != nil {
		return nil, err
	}
	linkedDefault, err := a.linked.IsDefault()
	if err != nil {
		return nil, err
	}
	originalValue, err := a.original.Value()
	if err != nil {
		return nil, err
	}
	if !originalDefault && !linkedDefault {
		linkedValue, err := a.linked.Value()
		if err != nil {
			return nil, err
		}
		if !reflect.DeepEqual(originalValue, linkedValue) {
			return nil, a.conflict(originalValue, linkedValue)
		}
		return originalValue, nil
	}
	if !originalDefault || linkedDefault {
		return originalValue, nil
	}
	return a.linked.Value()
}

func (a *mirrorAccessor) IsDefault() (bool, error) {
	originalDefault, err := a.original.IsDefault()
	if err != nil || !originalDefault {
		return false, err
	}
	return a.linked.IsDefault()
}

func (a *mirrorAccessor) conflict(value, mirrorValue any) error {
	self, other := a.original.Node(), a.linked.Node()
	return &MirrorConflictError{
		Type:            self.Type.ID,
		Attribute:       a.original.Attribute().Name,
		MirrorType:      other.Type.ID,
		MirrorAttribute: a.linked.Attribute().Name,
		Value:           value,
		MirrorValue:     mirrorValue,
		Declaration:     self.declaration,
	}
}

// pairedWith reports whether a and other mirror each other.
func (a *mirrorAccessor) pairedWith(other *mirrorAccessor) bool {
	return a.linked == other.original && other.linked == a.original
}

func wrapAccessor(kind RelationKind, original, linked Accessor) Accessor {
	switch kind {
	case AliasFor:
		return newAliasAccessor(original, linked)
	case ForceAliasFor:
		return newForceAliasAccessor(original, linked)
	case MirrorFor:
		return newMirrorAccessor(original, linked)
	default:
		return original
	}
}

// Origins returns the bottom-most non-wrapped accessors reachable from a,
// original side first, depth first, without duplicates.
func Origins(a Accessor) []Accessor {
	var out []Accessor
	seen := make(map[Accessor]struct{})
	var walk func(Accessor)
	walk = func(current Accessor) {
		if current == nil {
			return
		}
		if w, ok := current.(Wrapper); ok {
			walk(w.Original())
			walk(w.Linked())
			return
		}
		if _, dup := seen[current]; dup {
			return
		}
		seen[current] = struct{}{}
		out = append(out, current)
	}
	walk(a)
	return out
}

func isWrapped(a Accessor) bool {
	_, ok := a.(Wrapper)
	return ok
}
