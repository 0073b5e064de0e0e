package factory

import (
	"fmt"
	"time"
)

// AttributeReader gives expression engines lazy access to sibling
// attributes. Reading an attribute computes it on first access.
type AttributeReader interface {
	Has(name string) bool
	Get(name string) (any, error)
}

// RuleContext carries inputs needed when evaluating an expression attribute.
type RuleContext struct {
	Reader    AttributeReader
	Factory   string
	Attribute string
	Strategy  string
	Now       *time.Time
	Args      map[string]any
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	if ctx.Now == nil {
		return time.Now()
	}
	return *ctx.Now
}

func (ctx RuleContext) factoryLabel() string {
	if ctx.Factory != "" {
		return ctx.Factory
	}
	return "unknown"
}

// builtins are the names every engine resolves before attributes.
func (ctx RuleContext) builtins() map[string]any {
	return map[string]any{
		"now":       ctx.timestamp(),
		"args":      ctx.Args,
		"factory":   ctx.Factory,
		"attribute": ctx.Attribute,
		"strategy":  ctx.Strategy,
	}
}

// resolve reads name from the attribute reader, reporting whether it is an
// attribute at all.
func (ctx RuleContext) resolve(name string) (any, bool, error) {
	if ctx.Reader == nil || !ctx.Reader.Has(name) {
		return nil, false, nil
	}
	value, err := ctx.Reader.Get(name)
	if err != nil {
		return nil, true, err
	}
	return value, true, nil
}

// ExpressionEngine evaluates expression attributes.
type ExpressionEngine interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// WithExpressionEngine replaces the default expr-lang engine. A nil engine
// is ignored.
func WithExpressionEngine(engine ExpressionEngine) Option {
	return func(cfg *registryConfig) {
		if engine != nil {
			cfg.engine = engine
		}
	}
}

func engineName(e ExpressionEngine) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*factory.exprEvaluator":
		return "expr"
	case "*factory.celEvaluator":
		return "cel"
	case "*factory.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}
