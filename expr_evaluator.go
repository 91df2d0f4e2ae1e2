package annot

import (
	"errors"
	"fmt"
	"time"

	exprlang "github.com/expr-lang/expr"
	exprast "github.com/expr-lang/expr/ast"
	exprtypes "github.com/expr-lang/expr/types"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprEvaluatorOption configures an expr evaluator instance.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithProgramCache wires a ProgramCache into the expr evaluator.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry wires a FunctionRegistry into the expr evaluator.
// Registered functions are callable by name and through call(name, ...).
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// exprEvaluator executes predicates using github.com/expr-lang/expr. Programs
// are type checked against the declared attribute types of the context.
type exprEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// exprProgram is a compiled program and the identifiers it references.
type exprProgram struct {
	program    *exprvm.Program
	shape      evalShape
	references map[string]struct{}
}

func (p *exprProgram) uses(name string) bool {
	_, ok := p.references[name]
	return ok
}

// Evaluate compiles expression for the shape of ctx and runs it.
func (e *exprEvaluator) Evaluate(ctx EvalContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("expr", fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	program, err := e.loadOrCompile(expression, shapeOf(ctx.Type, ctx.Attributes, e.isFunction))
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, ctx.label(), err)
	}
	result, err := e.run(program, ctx)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, ctx.label(), err)
	}
	return result, nil
}

// Compile returns a reusable rule. Without CompileFor attributes are resolved
// by name at run time and typed only by their values.
func (e *exprEvaluator) Compile(expression string, opts ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("expr", fmt.Errorf("expression must not be empty"))
	}
	cfg := applyCompileOptions(opts)
	program, err := e.loadOrCompile(expression, shapeOf(cfg.typ, nil, e.isFunction))
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, "", err)
	}
	return &exprCompiledRule{
		evaluator:  e,
		program:    program,
		cfg:        cfg,
		expression: expression,
	}, nil
}

func (e *exprEvaluator) loadOrCompile(expression string, shape evalShape) (*exprProgram, error) {
	key := programKey("expr", shape, expression)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*exprProgram); ok {
				return program, nil
			}
		}
	}

	env := exprtypes.Map{
		varNow:         exprtypes.TypeOf(time.Time{}),
		varArgs:        exprtypes.TypeOf(map[string]any{}),
		varAttributes:  exprtypes.TypeOf(map[string]any{}),
		varAnnotation:  exprtypes.String,
		varDeclaration: exprtypes.String,
	}
	for _, b := range shape.bindings {
		env[b.name] = exprTypeOf(b.kind, b.elem)
	}
	options := []exprlang.Option{}
	if shape.dynamic {
		env[exprtypes.Extra] = exprtypes.Any
		options = append(options, exprlang.AllowUndefinedVariables())
	}
	options = append(options, exprlang.Env(env))
	options = append(options, e.functionOptions()...)

	compiled, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, err
	}
	program := &exprProgram{
		program:    compiled,
		shape:      shape,
		references: collectIdentifiers(compiled),
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

func (e *exprEvaluator) functionOptions() []exprlang.Option {
	if e.registry == nil {
		return nil
	}
	options := []exprlang.Option{
		exprlang.Function(varCall, func(params ...any) (any, error) {
			if len(params) == 0 {
				return nil, fmt.Errorf("call requires a function name")
			}
			name, ok := params[0].(string)
			if !ok {
				return nil, fmt.Errorf("call name must be a string, got %T", params[0])
			}
			return e.registry.Call(name, params[1:]...)
		}),
	}
	for _, name := range e.registry.Names() {
		if !identifierPattern.MatchString(name) || isContextName(name) {
			continue
		}
		fn := name
		options = append(options, exprlang.Function(fn, func(params ...any) (any, error) {
			return e.registry.Call(fn, params...)
		}))
	}
	return options
}

func (e *exprEvaluator) isFunction(name string) bool {
	if e.registry == nil {
		return false
	}
	return e.registry.Has(name)
}

// run binds the context names and the attributes the program references.
func (e *exprEvaluator) run(p *exprProgram, ctx EvalContext) (any, error) {
	env := map[string]any{
		varNow:         ctx.timestamp(),
		varArgs:        ctx.Args,
		varAnnotation:  string(ctx.typeID()),
		varDeclaration: ctx.Declaration,
	}
	if p.uses(varAttributes) {
		values, err := ctx.attributeMap()
		if err != nil {
			return nil, err
		}
		env[varAttributes] = values
	} else {
		env[varAttributes] = map[string]any{}
	}
	for _, b := range p.shape.bindings {
		if !p.uses(b.name) {
			continue
		}
		value, err := ctx.attribute(b)
		if err != nil {
			return nil, err
		}
		env[b.name] = value
	}
	if p.shape.dynamic && ctx.Attributes != nil {
		for name := range p.references {
			if isContextName(name) || e.isFunction(name) {
				continue
			}
			value, err := ctx.Attributes.AttributeValue(name)
			if errors.Is(err, ErrUnknownAttribute) {
				continue
			}
			if err != nil {
				return nil, err
			}
			env[name] = value
		}
	}
	return exprlang.Run(p.program, env)
}

type exprCompiledRule struct {
	evaluator  *exprEvaluator
	program    *exprProgram
	cfg        compileConfig
	expression string
}

func (r *exprCompiledRule) Evaluate(ctx EvalContext) (any, error) {
	ctx, err := r.cfg.bind(ctx.withDefaults())
	if err != nil {
		return nil, wrapEvaluationError("expr", r.expression, ctx.label(), err)
	}
	result, err := r.evaluator.run(r.program, ctx)
	if err != nil {
		return nil, wrapEvaluationError("expr", r.expression, ctx.label(), err)
	}
	return result, nil
}

func exprTypeOf(kind, elem valueKind) exprtypes.Type {
	switch kind {
	case kindBool:
		return exprtypes.Bool
	case kindInt:
		return exprtypes.Int
	case kindFloat:
		return exprtypes.Float64
	case kindString:
		return exprtypes.String
	case kindTime:
		return exprtypes.TypeOf(time.Time{})
	case kindDuration:
		return exprtypes.TypeOf(time.Duration(0))
	case kindMap:
		return exprtypes.TypeOf(map[string]any{})
	case kindList:
		return exprtypes.Array(exprTypeOf(elem, kindAny))
	default:
		return exprtypes.Any
	}
}

type identifierCollector struct {
	names map[string]struct{}
}

func (c *identifierCollector) Visit(node *exprast.Node) {
	if ident, ok := (*node).(*exprast.IdentifierNode); ok {
		c.names[ident.Value] = struct{}{}
	}
}

func collectIdentifiers(program *exprvm.Program) map[string]struct{} {
	collector := &identifierCollector{names: map[string]struct{}{}}
	node := program.Node()
	exprast.Walk(&node, collector)
	return collector.names
}
