package annot

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/goliatone/go-annotations/layering"
)

// View is the resolved projection of one metadata type within a hierarchy.
// Values are computed lazily and cached. A View is itself an Instance and may
// not seed a new hierarchy.
type View struct {
	engine *Engine
	h      *Hierarchy
	typeID TypeID
	node   *Node

	once sync.Once
	inst *Synthesized
	err  error
}

func newView(e *Engine, h *Hierarchy, t TypeID) *View {
	v := &View{engine: e, h: h, typeID: t}
	if n, ok := h.Node(t); ok {
		v.node = n
	}
	return v
}

func (*View) synthesized() {}

// Present reports whether the hierarchy contains the type.
func (v *View) Present() bool {
	return v.node != nil
}

// Raw returns the canonical raw instance, or nil when absent.
func (v *View) Raw() Instance {
	if v.node == nil {
		return nil
	}
	return v.node.Instance
}

// Node returns the canonical node, or nil when absent.
func (v *View) Node() *Node {
	return v.node
}

// Hierarchy returns the hierarchy the view projects.
func (v *View) Hierarchy() *Hierarchy {
	return v.h
}

// AnnotationType implements Instance.
func (v *View) AnnotationType() TypeID {
	return v.typeID
}

// AttributeValue implements Instance with resolved values.
func (v *View) AttributeValue(name string) (any, error) {
	value, ok, err := v.Value(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, v.typeID, name)
	}
	return value, nil
}

// Value returns the resolved value of name. ok is false when the type is
// absent or does not declare name.
func (v *View) Value(name string) (any, bool, error) {
	if v.node == nil {
		return nil, false, nil
	}
	i := v.node.Type.attributeIndex(name)
	if i < 0 {
		return nil, false, nil
	}
	value, err := v.node.resolvedValue(i)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// ValueOf returns the resolved value of name only when its declared type is
// typ.
func (v *View) ValueOf(name, typ string) (any, bool, error) {
	if v.node == nil {
		return nil, false, nil
	}
	attr, ok := v.node.Type.Attribute(name)
	if !ok || attr.Type != typ {
		return nil, false, nil
	}
	return v.Value(name)
}

// Values returns every resolved value keyed by attribute name. The first
// failing attribute aborts.
func (v *View) Values() (map[string]any, error) {
	inst, err := v.Instance()
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, nil
	}
	return inst.Values(), nil
}

// Instance materializes the resolved view. It returns nil when the type is
// absent.
func (v *View) Instance() (*Synthesized, error) {
	if v.node == nil {
		return nil, nil
	}
	v.once.Do(func() {
		values := make(map[string]any, len(v.node.Type.Attributes))
		for i, attr := range v.node.Type.Attributes {
			value, err := v.node.resolvedValue(i)
			if err != nil {
				v.err = err
				return
			}
			values[attr.Name] = value
		}
		v.inst = &Synthesized{
			typ:         v.node.Type,
			values:      values,
			raw:         v.node.Instance,
			declaration: v.h.declaration,
			hierarchyID: v.h.id,
		}
	})
	return v.inst, v.err
}

func (v *View) String() string {
	if v.node == nil {
		return fmt.Sprintf("@%s<absent>", v.typeID)
	}
	return fmt.Sprintf("@%s<resolved %s>", v.typeID, v.h.id)
}

// Synthesized is a fully materialized resolved instance. Two synthesized
// instances are equal when their type and resolved values are equal.
type Synthesized struct {
	typ         *Type
	values      map[string]any
	raw         Instance
	declaration string
	hierarchyID string
}

func (*Synthesized) synthesized() {}

// AnnotationType implements Instance.
func (s *Synthesized) AnnotationType() TypeID {
	return s.typ.ID
}

// AttributeValue implements Instance.
func (s *Synthesized) AttributeValue(name string) (any, error) {
	value, ok := s.values[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, s.typ.ID, name)
	}
	return value, nil
}

// Type returns the descriptor of the synthesized type.
func (s *Synthesized) Type() *Type {
	return s.typ
}

// Raw returns the raw instance the values were resolved from.
func (s *Synthesized) Raw() Instance {
	return s.raw
}

// Declaration returns the key of the declaration the hierarchy was rooted at.
func (s *Synthesized) Declaration() string {
	return s.declaration
}

// Values returns a deep copy of the resolved values.
func (s *Synthesized) Values() map[string]any {
	return layering.Clone(s.values)
}

// Equal compares type and resolved values structurally.
func (s *Synthesized) Equal(other *Synthesized) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.typ.ID != other.typ.ID {
		return false
	}
	return reflect.DeepEqual(s.values, other.values)
}

func (s *Synthesized) String() string {
	parts := make([]string, 0, len(s.typ.Attributes))
	for _, attr := range s.typ.Attributes {
		parts = append(parts, fmt.Sprintf("%s=%v", attr.Name, s.values[attr.Name]))
	}
	return fmt.Sprintf("@%s(%s)", s.typ.ID, strings.Join(parts, ", "))
}
