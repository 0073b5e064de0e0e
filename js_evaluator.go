//go:build js_eval

package factory

import (
	"fmt"
	"time"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
	timeout  time.Duration
}

// NewJSEvaluator constructs an ExpressionEngine backed by goja.
func NewJSEvaluator(opts ...JSEvaluatorOption) ExpressionEngine {
	cfg := applyJSEvaluatorOptions(opts)
	return &jsEvaluator{
		cache:    cfg.cache,
		registry: cfg.registry,
		timeout:  cfg.timeout,
	}
}

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEngineError("js", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(ctx.withDefaults(), expression, program)
}

func (e *jsEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEngineError("js", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &jsCompiledRule{
		evaluator:  e,
		expression: expression,
		program:    program,
	}, nil
}

func (e *jsEvaluator) loadOrCompile(expression string) (*goja.Program, error) {
	key := cacheKey("js", expression)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", wrapJSExpression(expression), false)
	if err != nil {
		return nil, wrapEvaluationError("js", expression, "", err)
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

func (e *jsEvaluator) run(ctx RuleContext, expression string, program *goja.Program) (any, error) {
	vm := goja.New()
	attrs := &jsAttributes{vm: vm, ctx: ctx}
	vm.Set("__attrs", vm.NewDynamicObject(attrs))
	for name, value := range ctx.builtins() {
		vm.Set(name, value)
	}
	if e.registry != nil {
		vm.Set("call", func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		})
		for _, name := range e.registry.Names() {
			fn := name
			vm.Set(fn, func(arguments ...any) (any, error) {
				return e.registry.Call(fn, arguments...)
			})
		}
	}
	if e.timeout > 0 {
		timer := time.AfterFunc(e.timeout, func() {
			vm.Interrupt(fmt.Sprintf("expression exceeded %s", e.timeout))
		})
		defer timer.Stop()
	}
	value, err := vm.RunProgram(program)
	if attrs.err != nil {
		return nil, attrs.err
	}
	if err != nil {
		return nil, wrapEvaluationError("js", expression, ctx.factoryLabel(), err)
	}
	return value.Export(), nil
}

// wrapJSExpression scopes identifiers to the lazy attribute object. Sloppy
// mode is required for with.
func wrapJSExpression(expression string) string {
	return fmt.Sprintf("(function(){ with (__attrs) { return (%s); } })()", expression)
}

// jsAttributes exposes attributes as a read-only dynamic object.
type jsAttributes struct {
	vm  *goja.Runtime
	ctx RuleContext
	err error
}

func (a *jsAttributes) Get(key string) goja.Value {
	if a.err != nil {
		return goja.Undefined()
	}
	value, found, err := a.ctx.resolve(key)
	if err != nil {
		a.err = err
		return goja.Undefined()
	}
	if !found {
		return goja.Undefined()
	}
	return a.vm.ToValue(value)
}

func (a *jsAttributes) Has(key string) bool {
	return a.ctx.Reader != nil && a.ctx.Reader.Has(key)
}

func (a *jsAttributes) Set(string, goja.Value) bool { return false }

func (a *jsAttributes) Delete(string) bool { return false }

func (a *jsAttributes) Keys() []string { return nil }

type jsCompiledRule struct {
	evaluator  *jsEvaluator
	expression string
	program    *goja.Program
}

func (r *jsCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEngineError("js", fmt.Errorf("compiled rule missing evaluator"))
	}
	return r.evaluator.run(ctx.withDefaults(), r.expression, r.program)
}

func jsEvaluatorAvailable() bool {
	return true
}
