package annot

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL evaluator.
// Registered functions take one or two arguments; call(name, ...) takes up
// to two.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celProgram struct {
	program celgo.Program
	shape   evalShape
}

// celEvaluator checks predicates with cel-go against variables typed after
// the declared attributes. Attributes are bound lazily; CEL has no undeclared
// variables, so untyped rules reach attributes through the attributes map.
type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx EvalContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	program, err := e.loadOrCompile(expression, shapeOf(ctx.Type, ctx.Attributes, e.isFunction))
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.label(), err)
	}
	out, err := e.run(program, ctx)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.label(), err)
	}
	return out, nil
}

func (e *celEvaluator) Compile(expression string, opts ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	cfg := applyCompileOptions(opts)
	program, err := e.loadOrCompile(expression, shapeOf(cfg.typ, nil, e.isFunction))
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, "", err)
	}
	return &celCompiledRule{
		evaluator:  e,
		program:    program,
		cfg:        cfg,
		expression: expression,
	}, nil
}

func (e *celEvaluator) loadOrCompile(expression string, shape evalShape) (*celProgram, error) {
	key := programKey("cel", shape, expression)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv(shape)
	if err != nil {
		return nil, err
	}
	checked, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, err
	}

	bundle := &celProgram{program: prg, shape: shape}
	if e.cache != nil {
		e.cache.Set(key, bundle)
	}
	return bundle, nil
}

func (e *celEvaluator) buildEnv(shape evalShape) (*celgo.Env, error) {
	dynMap := celgo.MapType(celgo.StringType, celgo.DynType)
	opts := []celgo.EnvOption{
		celgo.Variable(varNow, celgo.TimestampType),
		celgo.Variable(varArgs, dynMap),
		celgo.Variable(varAttributes, dynMap),
		celgo.Variable(varAnnotation, celgo.StringType),
		celgo.Variable(varDeclaration, celgo.StringType),
	}
	for _, b := range shape.bindings {
		opts = append(opts, celgo.Variable(b.name, celTypeOf(b.kind, b.elem)))
	}
	opts = append(opts, e.functionOptions()...)
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) functionOptions() []celgo.EnvOption {
	if e.registry == nil {
		return nil
	}
	opts := []celgo.EnvOption{
		celgo.Function(varCall,
			celgo.Overload("call_string", []*celgo.Type{celgo.StringType}, celgo.DynType,
				celgo.UnaryBinding(func(name ref.Val) ref.Val {
					return e.callByName(name)
				})),
			celgo.Overload("call_string_dyn", []*celgo.Type{celgo.StringType, celgo.DynType}, celgo.DynType,
				celgo.BinaryBinding(func(name, arg ref.Val) ref.Val {
					return e.callByName(name, arg)
				})),
			celgo.Overload("call_string_dyn_dyn", []*celgo.Type{celgo.StringType, celgo.DynType, celgo.DynType}, celgo.DynType,
				celgo.FunctionBinding(func(values ...ref.Val) ref.Val {
					return e.callByName(values[0], values[1:]...)
				})),
		),
	}
	for _, name := range e.registry.Names() {
		if !identifierPattern.MatchString(name) || isContextName(name) {
			continue
		}
		fn := name
		opts = append(opts, celgo.Function(fn,
			celgo.Overload(fn+"_dyn", []*celgo.Type{celgo.DynType}, celgo.DynType,
				celgo.UnaryBinding(func(arg ref.Val) ref.Val {
					return e.call(fn, arg)
				})),
			celgo.Overload(fn+"_dyn_dyn", []*celgo.Type{celgo.DynType, celgo.DynType}, celgo.DynType,
				celgo.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					return e.call(fn, lhs, rhs)
				})),
		))
	}
	return opts
}

func (e *celEvaluator) isFunction(name string) bool {
	if e.registry == nil {
		return false
	}
	return e.registry.Has(name)
}

func (e *celEvaluator) callByName(name ref.Val, args ...ref.Val) ref.Val {
	fn, ok := name.Value().(string)
	if !ok {
		return types.NewErr("call name must be a string, got %T", name.Value())
	}
	return e.call(fn, args...)
}

func (e *celEvaluator) call(name string, values ...ref.Val) ref.Val {
	args := make([]any, len(values))
	for i, value := range values {
		args[i] = value.Value()
	}
	result, err := e.registry.Call(name, args...)
	if err != nil {
		return types.WrapErr(err)
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

// run evaluates with lazy bindings; a failing attribute surfaces as the
// evaluation error of the expressions that read it.
func (e *celEvaluator) run(p *celProgram, ctx EvalContext) (any, error) {
	activation := map[string]any{
		varNow:         ctx.timestamp(),
		varArgs:        ctx.Args,
		varAnnotation:  string(ctx.typeID()),
		varDeclaration: ctx.Declaration,
		varAttributes: func() any {
			values, err := ctx.attributeMap()
			if err != nil {
				return types.WrapErr(err)
			}
			return values
		},
	}
	for _, b := range p.shape.bindings {
		binding := b
		activation[binding.name] = func() any {
			value, err := ctx.attribute(binding)
			if err != nil {
				return types.WrapErr(err)
			}
			return value
		}
	}
	out, _, err := p.program.Eval(activation)
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	program    *celProgram
	cfg        compileConfig
	expression string
}

func (r *celCompiledRule) Evaluate(ctx EvalContext) (any, error) {
	ctx, err := r.cfg.bind(ctx.withDefaults())
	if err != nil {
		return nil, wrapEvaluationError("cel", r.expression, ctx.label(), err)
	}
	out, err := r.evaluator.run(r.program, ctx)
	if err != nil {
		return nil, wrapEvaluationError("cel", r.expression, ctx.label(), err)
	}
	return out, nil
}

func celTypeOf(kind, elem valueKind) *celgo.Type {
	switch kind {
	case kindBool:
		return celgo.BoolType
	case kindInt:
		return celgo.IntType
	case kindFloat:
		return celgo.DoubleType
	case kindString:
		return celgo.StringType
	case kindTime:
		return celgo.TimestampType
	case kindDuration:
		return celgo.DurationType
	case kindMap:
		return celgo.MapType(celgo.StringType, celgo.DynType)
	case kindList:
		return celgo.ListType(celTypeOf(elem, kindAny))
	default:
		return celgo.DynType
	}
}
