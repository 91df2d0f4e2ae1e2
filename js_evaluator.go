//go:build js_eval

package annot

import (
	"fmt"

	"github.com/dop251/goja"
)

// jsEvaluator runs predicates with goja. Attributes are exposed as global
// getters so only the attributes an expression touches are resolved.
type jsEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJSEvaluator constructs an Evaluator backed by goja.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	cfg := applyJSEvaluatorOptions(opts)
	return &jsEvaluator{
		cache:    cfg.cache,
		registry: cfg.registry,
	}
}

func (e *jsEvaluator) Evaluate(ctx EvalContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("js", fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, wrapEvaluationError("js", expression, ctx.label(), err)
	}
	out, err := e.run(program, ctx)
	if err != nil {
		return nil, wrapEvaluationError("js", expression, ctx.label(), err)
	}
	return out, nil
}

func (e *jsEvaluator) Compile(expression string, opts ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("js", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, wrapEvaluationError("js", expression, "", err)
	}
	return &jsCompiledRule{
		evaluator:  e,
		program:    program,
		cfg:        applyCompileOptions(opts),
		expression: expression,
	}, nil
}

func (e *jsEvaluator) loadOrCompile(expression string) (*goja.Program, error) {
	key := "js|" + expression
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", fmt.Sprintf("(function(){ return (%s); })()", expression), false)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

func (e *jsEvaluator) run(program *goja.Program, ctx EvalContext) (any, error) {
	vm := goja.New()
	if err := e.bind(vm, ctx); err != nil {
		return nil, err
	}
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}

func (e *jsEvaluator) bind(vm *goja.Runtime, ctx EvalContext) error {
	for name, value := range map[string]any{
		varNow:         ctx.timestamp(),
		varArgs:        ctx.Args,
		varAnnotation:  string(ctx.typeID()),
		varDeclaration: ctx.Declaration,
	} {
		if err := vm.Set(name, value); err != nil {
			return err
		}
	}
	if err := defineLazy(vm, varAttributes, func() (any, error) {
		return ctx.attributeMap()
	}); err != nil {
		return err
	}
	for _, b := range shapeOf(ctx.Type, ctx.Attributes, e.isFunction).bindings {
		binding := b
		if err := defineLazy(vm, binding.name, func() (any, error) {
			return ctx.attribute(binding)
		}); err != nil {
			return err
		}
	}
	if e.registry == nil {
		return nil
	}
	if err := vm.Set(varCall, func(name string, arguments ...any) (any, error) {
		return e.registry.Call(name, arguments...)
	}); err != nil {
		return err
	}
	for _, name := range e.registry.Names() {
		fn := name
		if err := vm.Set(fn, func(arguments ...any) (any, error) {
			return e.registry.Call(fn, arguments...)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (e *jsEvaluator) isFunction(name string) bool {
	return e.registry != nil && e.registry.Has(name)
}

// defineLazy installs a global getter that resolves once and throws the read
// error into the script.
func defineLazy(vm *goja.Runtime, name string, read func() (any, error)) error {
	var (
		resolved bool
		cached   goja.Value
	)
	getter := vm.ToValue(func(goja.FunctionCall) goja.Value {
		if !resolved {
			value, err := read()
			if err != nil {
				panic(vm.NewGoError(err))
			}
			cached, resolved = vm.ToValue(value), true
		}
		return cached
	})
	return vm.GlobalObject().DefineAccessorProperty(name, getter, nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
}

type jsCompiledRule struct {
	evaluator  *jsEvaluator
	program    *goja.Program
	cfg        compileConfig
	expression string
}

func (r *jsCompiledRule) Evaluate(ctx EvalContext) (any, error) {
	ctx, err := r.cfg.bind(ctx.withDefaults())
	if err != nil {
		return nil, wrapEvaluationError("js", r.expression, ctx.label(), err)
	}
	out, err := r.evaluator.run(r.program, ctx)
	if err != nil {
		return nil, wrapEvaluationError("js", r.expression, ctx.label(), err)
	}
	return out, nil
}

func jsEvaluatorAvailable() bool {
	return true
}

func jsEngineName(e Evaluator) string {
	if _, ok := e.(*jsEvaluator); ok {
		return PredicateJS
	}
	return ""
}
