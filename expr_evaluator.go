package factory

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
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
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// exprEvaluator executes expression attributes using github.com/expr-lang/expr.
type exprEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// exprProgram pairs a compiled program with the identifiers it references,
// so only attributes the expression names are computed.
type exprProgram struct {
	program     *exprvm.Program
	identifiers []string
}

// NewExprEvaluator constructs an ExpressionEngine backed by expr-lang/expr.
func NewExprEvaluator(opts ...ExprEvaluatorOption) ExpressionEngine {
	e := &exprEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Evaluate compiles expression and runs it against the attributes it names.
func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEngineError("expr", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(ctx.withDefaults(), expression, program)
}

// Compile returns a compiled rule that evaluates expression per invocation.
func (e *exprEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEngineError("expr", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &exprCompiledRule{
		evaluator:  e,
		program:    program,
		expression: expression,
	}, nil
}

func (e *exprEvaluator) loadOrCompile(expression string) (*exprProgram, error) {
	key := cacheKey("expr", expression)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*exprProgram); ok {
				return program, nil
			}
		}
	}
	tree, err := parser.Parse(expression)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, "", err)
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
		// now is a context value, not expr's builtin function.
		exprlang.DisableBuiltin("now"),
	}
	for _, name := range e.registryNames() {
		options = append(options, exprlang.Function(name, e.registryFunction(name)))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, "", err)
	}
	bundle := &exprProgram{
		program:     program,
		identifiers: collectIdentifiers(tree.Node),
	}
	if e.cache != nil {
		e.cache.Set(key, bundle)
	}
	return bundle, nil
}

func (e *exprEvaluator) run(ctx RuleContext, expression string, program *exprProgram) (any, error) {
	env, err := e.environment(ctx, program.identifiers)
	if err != nil {
		return nil, err
	}
	result, err := exprlang.Run(program.program, env)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, ctx.factoryLabel(), err)
	}
	return result, nil
}

type exprCompiledRule struct {
	evaluator  *exprEvaluator
	program    *exprProgram
	expression string
}

func (r *exprCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEngineError("expr", fmt.Errorf("compiled rule missing evaluator"))
	}
	return r.evaluator.run(ctx.withDefaults(), r.expression, r.program)
}

// environment resolves the referenced identifiers. Attributes shadow the
// builtins; attribute errors are returned as is.
func (e *exprEvaluator) environment(ctx RuleContext, identifiers []string) (map[string]any, error) {
	env := ctx.builtins()
	for _, name := range identifiers {
		value, found, err := ctx.resolve(name)
		if err != nil {
			return nil, err
		}
		if found {
			env[name] = value
		}
	}
	if e.registry != nil {
		env["call"] = func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		}
	}
	return env, nil
}

type identifierCollector struct {
	seen  map[string]struct{}
	names []string
}

func (c *identifierCollector) Visit(node *ast.Node) {
	ident, ok := (*node).(*ast.IdentifierNode)
	if !ok {
		return
	}
	if _, dup := c.seen[ident.Value]; dup {
		return
	}
	c.seen[ident.Value] = struct{}{}
	c.names = append(c.names, ident.Value)
}

func collectIdentifiers(root ast.Node) []string {
	collector := &identifierCollector{seen: map[string]struct{}{}}
	ast.Walk(&root, collector)
	return collector.names
}

func (e *exprEvaluator) registryNames() []string {
	if e == nil || e.registry == nil {
		return nil
	}
	return e.registry.Names()
}

func (e *exprEvaluator) registryFunction(name string) func(...any) (any, error) {
	return func(arguments ...any) (any, error) {
		return e.registry.Call(name, arguments...)
	}
}
