package annot

import (
	"fmt"
	"time"
)

// Evaluate runs expr against the resolved attributes of type t on decl. The
// attributes are bound as top-level variables typed after their declarations
// and, as a map, under "attributes".
func (e *Engine) Evaluate(decl Declaration, t TypeID, expr string) (any, error) {
	view, err := e.View(decl, t)
	if err != nil {
		return nil, err
	}
	return view.Evaluate(expr)
}

// Compile checks expr against the declared attributes of type t and returns
// a rule that evaluates views of t through View.EvaluateRule.
func (e *Engine) Compile(t TypeID, expr string) (CompiledRule, error) {
	if expr == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	typ, ok := e.types.LookupType(t)
	if !ok || typ == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	evaluator, err := e.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	return evaluator.Compile(expr, CompileFor(typ))
}

// Evaluate runs expr against the resolved attributes of the view.
func (v *View) Evaluate(expr string) (any, error) {
	return v.EvaluateWith(nil, expr)
}

// EvaluateWith runs expr with args bound under "args". Attributes are read
// only when expr references them.
func (v *View) EvaluateWith(args map[string]any, expr string) (any, error) {
	if expr == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	ctx, err := v.evalContext(args)
	if err != nil {
		return nil, err
	}
	evaluator, err := v.engine.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	return v.observe(evaluatorEngineName(evaluator), expr, ctx, func() (any, error) {
		return evaluator.Evaluate(ctx, expr)
	})
}

// EvaluateRule runs a rule compiled by Engine.Compile against the view.
func (v *View) EvaluateRule(rule CompiledRule, args map[string]any) (any, error) {
	if rule == nil {
		return nil, fmt.Errorf("rule must not be nil")
	}
	ctx, err := v.evalContext(args)
	if err != nil {
		return nil, err
	}
	engine := "custom"
	if evaluator, err := v.engine.resolveEvaluator(); err == nil {
		engine = evaluatorEngineName(evaluator)
	}
	return v.observe(engine, "", ctx, func() (any, error) {
		return rule.Evaluate(ctx)
	})
}

func (v *View) evalContext(args map[string]any) (EvalContext, error) {
	if !v.Present() {
		return EvalContext{}, fmt.Errorf("%w: @%s is not present", ErrUnknownType, v.typeID)
	}
	return EvalContext{
		Declaration: v.h.Declaration(),
		Type:        v.node.Type,
		Attributes:  v,
		Args:        args,
	}.withDefaults(), nil
}

func (v *View) observe(engine, expr string, ctx EvalContext, run func() (any, error)) (any, error) {
	start := time.Now()
	value, evalErr := run()
	duration := time.Since(start)
	evalErr = wrapEvaluationError(engine, expr, ctx.label(), evalErr)
	v.engine.cfg.logger.LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Scope:    ctx.label(),
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

// Predicate engine names accepted by WithPredicateEngine.
const (
	PredicateExpr = "expr"
	PredicateCEL  = "cel"
	PredicateJS   = "js"
)

func (e *Engine) resolveEvaluator() (Evaluator, error) {
	e.evalOnce.Do(func() {
		if e.cfg.evaluator != nil {
			e.evaluator = e.cfg.evaluator
			return
		}
		e.evaluator, e.evalErr = newPredicateEvaluator(e.cfg.predicateEngine, e.cfg.programCache, e.cfg.functions)
	})
	return e.evaluator, e.evalErr
}

func newPredicateEvaluator(name string, cache ProgramCache, functions *FunctionRegistry) (Evaluator, error) {
	switch name {
	case "", PredicateExpr:
		return NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(functions)), nil
	case PredicateCEL:
		return NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(functions)), nil
	case PredicateJS:
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("%w: js requires the js_eval build tag", ErrNoEvaluator)
		}
		return NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(functions)), nil
	default:
		return nil, fmt.Errorf("%w: unknown predicate engine %q", ErrNoEvaluator, name)
	}
}

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return PredicateExpr
	case *celEvaluator:
		return PredicateCEL
	default:
		if name := jsEngineName(e); name != "" {
			return name
		}
		return "custom"
	}
}
