package annot

import (
	"github.com/goliatone/go-annotations/internal/hydrate"
)

// FieldTag is the struct tag naming the attribute a field receives when
// synthesizing into a Go struct. Fields without it fall back to their json
// name.
const FieldTag = "annot"

// Synthesize materializes the resolved instance of type t on decl into T.
// ok is false when decl carries no metadata of type t.
func Synthesize[T any](e *Engine, decl Declaration, t TypeID) (T, bool, error) {
	var zero T
	view, err := e.View(decl, t)
	if err != nil {
		return zero, false, err
	}
	return decodeView[T](view)
}

// SynthesizeFrom materializes type t from a hierarchy aggregated from roots.
// Roots produced by synthesis fail with *ReentrantSynthesisError.
func SynthesizeFrom[T any](e *Engine, t TypeID, roots ...Instance) (T, bool, error) {
	var zero T
	h, err := e.Aggregate(roots...)
	if err != nil {
		return zero, false, err
	}
	return decodeView[T](newView(e, h, t))
}

func decodeView[T any](view *View) (T, bool, error) {
	var zero T
	if !view.Present() {
		return zero, false, nil
	}
	values, err := view.Values()
	if err != nil {
		return zero, false, err
	}
	decoder := hydrate.NewDecoder(hydrate.WithFieldTag[T](FieldTag))
	out, err := decoder.Decode(hydrate.Context{
		Declaration: view.Hierarchy().Declaration(),
		Type:        string(view.AnnotationType()),
	}, values)
	if err != nil {
		return zero, false, err
	}
	return out, true, nil
}
