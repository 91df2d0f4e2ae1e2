package annot

import (
	"fmt"

	"github.com/goliatone/go-annotations/layering"
)

// AttributeFunc defers evaluation of an attribute value until it is first
// read. Errors surface as *AccessError from the engine.
type AttributeFunc func() (any, error)

// Annotation is a concrete metadata instance: a type plus the attribute values
// set explicitly on it.
type Annotation struct {
	typ    *Type
	values map[string]any
	source Declaration
}

// AnnotationOption configures an Annotation on creation.
type AnnotationOption func(*Annotation)

// WithDeclaration records the declaration the annotation is attached to.
func WithDeclaration(decl Declaration) AnnotationOption {
	return func(a *Annotation) {
		a.source = decl
	}
}

// NewAnnotation builds an instance of t. Values are copied; names not declared
// by t are rejected.
func NewAnnotation(t *Type, values map[string]any, opts ...AnnotationOption) (*Annotation, error) {
	if t == nil || t.ID == "" {
		return nil, fmt.Errorf("%w: annotation requires a type", ErrUnknownType)
	}
	copied := make(map[string]any, len(values))
	for name, value := range values {
		if t.attributeIndex(name) < 0 {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, t.ID, name)
		}
		if _, lazy := value.(AttributeFunc); lazy {
			copied[name] = value
			continue
		}
		copied[name] = layering.Clone(value)
	}
	a := &Annotation{typ: t, values: copied}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// AnnotationType implements Instance.
func (a *Annotation) AnnotationType() TypeID {
	return a.typ.ID
}

// Type returns the descriptor of the annotation type.
func (a *Annotation) Type() *Type {
	return a.typ
}

// Declaration returns the declaration the annotation is rooted at, if known.
func (a *Annotation) Declaration() Declaration {
	return a.source
}

// IsSet reports whether name carries an explicit value.
func (a *Annotation) IsSet(name string) bool {
	_, ok := a.values[name]
	return ok
}

// AttributeValue implements Instance.
func (a *Annotation) AttributeValue(name string) (any, error) {
	attr, ok := a.typ.Attribute(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, a.typ.ID, name)
	}
	value, ok := a.values[name]
	if !ok {
		return attr.Default, nil
	}
	if fn, lazy := value.(AttributeFunc); lazy {
		if fn == nil {
			return attr.Default, nil
		}
		return fn()
	}
	return value, nil
}

// Values returns a copy of the explicitly set values. Lazy values are left
// unevaluated.
func (a *Annotation) Values() map[string]any {
	out := make(map[string]any, len(a.values))
	for name, value := range a.values {
		if _, lazy := value.(AttributeFunc); lazy {
			out[name] = value
			continue
		}
		out[name] = layering.Clone(value)
	}
	return out
}

func (a *Annotation) String() string {
	return fmt.Sprintf("@%s%v", a.typ.ID, a.values)
}
