package annot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrConstruction marks malformed relation declarations.
	ErrConstruction = errors.New("annot: malformed relation")
	// ErrMirrorConflict marks mirrored attributes explicitly set to unequal values.
	ErrMirrorConflict = errors.New("annot: mirror conflict")
	// ErrReentrantSynthesis marks synthesis rooted at a synthesized instance.
	ErrReentrantSynthesis = errors.New("annot: reentrant synthesis")
	// ErrAccess marks attribute evaluation failures.
	ErrAccess = errors.New("annot: attribute access failed")
	// ErrUnknownType is returned when a type id is not registered.
	ErrUnknownType = errors.New("annot: unknown type")
	// ErrUnknownAttribute is returned when a type does not declare an attribute.
	ErrUnknownAttribute = errors.New("annot: unknown attribute")
	// ErrNoDeclaration is returned when a query is made without a declaration.
	ErrNoDeclaration = errors.New("annot: declaration is nil")
	// ErrNoEvaluator is returned when no predicate evaluator can be built.
	ErrNoEvaluator = errors.New("annot: evaluator not configured")
	// ErrHierarchyTooLarge reports a hierarchy that exceeded its node limit.
	ErrHierarchyTooLarge = errors.New("annot: hierarchy too large")
)

// ConstructionError describes one malformed relation declaration.
// Declaration is set when the relation failed while resolving a hierarchy.
type ConstructionError struct {
	Type            TypeID
	Attribute       string
	Target          TypeID
	TargetAttribute string
	Reason          string
	Declaration     string
}

func (e *ConstructionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("annot: malformed relation %s.%s -> %s.%s: %s",
		e.Type, e.Attribute, e.Target, e.TargetAttribute, e.Reason)
	if e.Declaration != "" {
		msg += " on " + e.Declaration
	}
	return msg
}

// withDeclaration stamps decl on the construction errors in err. Relation
// errors are cached per type and shared, so they are copied, never mutated.
func withDeclaration(err error, decl string) error {
	if decl == "" {
		return err
	}
	switch e := err.(type) {
	case *multierror.Error:
		out := &multierror.Error{ErrorFormat: e.ErrorFormat}
		for _, inner := range e.Errors {
			out.Errors = append(out.Errors, withDeclaration(inner, decl))
		}
		return out
	case *ConstructionError:
		if e.Declaration != "" {
			return err
		}
		copied := *e
		copied.Declaration = decl
		return &copied
	default:
		return err
	}
}

func (e *ConstructionError) Unwrap() error {
	return ErrConstruction
}

// MirrorConflictError is raised on first read of either side of a mirror pair
// whose explicit values differ. It is scoped to that pair.
type MirrorConflictError struct {
	Type            TypeID
	Attribute       string
	MirrorType      TypeID
	MirrorAttribute string
	Value           any
	MirrorValue     any
	Declaration     string
}

func (e *MirrorConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("annot: mirror conflict %s.%s=%v and %s.%s=%v",
		e.Type, e.Attribute, e.Value, e.MirrorType, e.MirrorAttribute, e.MirrorValue)
	if e.Declaration != "" {
		msg += " on " + e.Declaration
	}
	return msg
}

func (e *MirrorConflictError) Unwrap() error {
	return ErrMirrorConflict
}

// ReentrantSynthesisError is returned when a hierarchy is rooted at an
// instance produced by synthesis.
type ReentrantSynthesisError struct {
	Type        TypeID
	Declaration string
}

func (e *ReentrantSynthesisError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Declaration == "" {
		return fmt.Sprintf("annot: reentrant synthesis of %s", e.Type)
	}
	return fmt.Sprintf("annot: reentrant synthesis of %s on %s", e.Type, e.Declaration)
}

func (e *ReentrantSynthesisError) Unwrap() error {
	return ErrReentrantSynthesis
}

// AccessError wraps a failure to read an attribute off its instance.
type AccessError struct {
	Type        TypeID
	Attribute   string
	Declaration string
	Err         error
}

func (e *AccessError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("annot: reading %s.%s", e.Type, e.Attribute)
	if e.Declaration != "" {
		msg += " on " + e.Declaration
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap exposes both ErrAccess and the cause to errors.Is.
func (e *AccessError) Unwrap() []error {
	if e == nil {
		return nil
	}
	return []error{ErrAccess, e.Err}
}

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Scope  string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("annot: %s evaluator %s scope=%s: %v", e.Engine, describeExpression(e.Expr), e.Scope, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "annot:") {
		return err
	}
	return fmt.Errorf("annot: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, scope string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Scope == "" {
			evalErr.Scope = scope
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Scope:  scope,
		Err:    err,
	}
}
