package factory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type engineCase struct {
	name   string
	engine func(cache ProgramCache, fns *FunctionRegistry) ExpressionEngine
}

func engineCases(t *testing.T) []engineCase {
	t.Helper()
	cases := []engineCase{
		{"expr", func(cache ProgramCache, fns *FunctionRegistry) ExpressionEngine {
			return NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(fns))
		}},
		{"cel", func(cache ProgramCache, fns *FunctionRegistry) ExpressionEngine {
			return NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(fns))
		}},
	}
	if jsEvaluatorAvailable() {
		cases = append(cases, engineCase{"js", func(cache ProgramCache, fns *FunctionRegistry) ExpressionEngine {
			return NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(fns))
		}})
	}
	return cases
}

func shoutFunctions(t *testing.T) *FunctionRegistry {
	t.Helper()
	fns := NewFunctionRegistry()
	err := fns.Register("shout", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errors.New("shout expects one argument")
		}
		s, _ := args[0].(string)
		return strings.ToUpper(s) + "!", nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return fns
}

func TestExpressionAttributes(t *testing.T) {
	for _, tc := range engineCases(t) {
		t.Run(tc.name, func(t *testing.T) {
			cache := NewMemoryProgramCache()
			reg := New(WithExpressionEngine(tc.engine(cache, shoutFunctions(t))))
			mustDefine(t, reg, mustFactory(t, "user",
				Expr("full_name", `first_name + " " + last_name`),
				Value("first_name", "Jane"),
				Dynamic("last_name", func(*Evaluation) (any, error) { return "Doe", nil }),
				Expr("greeting", `shout(first_name)`),
				Expr("label", `factory + ":" + strategy`),
				DefineTrait("loop", Expr("first_name", "full_name")),
			))
			ctx := context.Background()

			attrs, err := reg.AttributesFor(ctx, "user")
			if err != nil {
				t.Fatalf("attributes for: %v", err)
			}
			if attrs["full_name"] != "Jane Doe" {
				t.Fatalf("expected lazy sibling reads, got %v", attrs["full_name"])
			}
			if attrs["greeting"] != "JANE!" {
				t.Fatalf("expected custom function, got %v", attrs["greeting"])
			}
			if attrs["label"] != "user:attributes_for" {
				t.Fatalf("expected builtins, got %v", attrs["label"])
			}

			overridden, err := reg.AttributesFor(ctx, "user", Overrides{"first_name": "Jill"})
			if err != nil {
				t.Fatalf("attributes for: %v", err)
			}
			if overridden["full_name"] != "Jill Doe" {
				t.Fatalf("expected expression to see the override, got %v", overridden["full_name"])
			}
			if cache.Len() != 3 {
				t.Fatalf("expected 3 cached programs, got %d", cache.Len())
			}

			_, err = reg.AttributesFor(ctx, "user", "loop")
			var cycle *CycleError
			if !errors.As(err, &cycle) {
				t.Fatalf("expected cycle through expressions, got %v", err)
			}
		})
	}
}

func TestExpressionErrorsCarryEngineMetadata(t *testing.T) {
	reg := New()
	mustDefine(t, reg, mustFactory(t, "user", Expr("broken", "1 +")))

	_, err := reg.AttributesFor(context.Background(), "user")
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %v", err)
	}
	if evalErr.Engine != "expr" || evalErr.Expr != "1 +" || evalErr.Factory != "user" {
		t.Fatalf("unexpected metadata %+v", evalErr)
	}
	var attrErr *AttributeError
	if !errors.As(err, &attrErr) || attrErr.Attribute != "broken" {
		t.Fatalf("expected attribute context, got %v", err)
	}
}

func TestExpressionClock(t *testing.T) {
	fixed := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	reg := New(WithClock(func() time.Time { return fixed }))
	mustDefine(t, reg, mustFactory(t, "event", Expr("year", "now.Year()")))

	attrs, err := reg.AttributesFor(context.Background(), "event")
	if err != nil {
		t.Fatalf("attributes for: %v", err)
	}
	if attrs["year"] != 2024 {
		t.Fatalf("expected clock year, got %v (%T)", attrs["year"], attrs["year"])
	}
}

func TestWithCustomFunctionOnDefaultEngine(t *testing.T) {
	reg := New(WithCustomFunction("double", func(args ...any) (any, error) {
		n, _ := args[0].(int)
		return n * 2, nil
	}))
	mustDefine(t, reg, mustFactory(t, "item", Value("qty", 4), Expr("total", "double(qty)")))

	attrs, err := reg.AttributesFor(context.Background(), "item")
	if err != nil {
		t.Fatalf("attributes for: %v", err)
	}
	if attrs["total"] != 8 {
		t.Fatalf("expected 8, got %v", attrs["total"])
	}
}

func TestCompiledRulesReuseTheCache(t *testing.T) {
	cache := NewMemoryProgramCache()
	engine := NewExprEvaluator(ExprWithProgramCache(cache))

	rule, err := engine.Compile("a * 2")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	reader := mapReader{"a": 21}
	got, err := rule.Evaluate(RuleContext{Reader: reader})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected 42, got %v", got)
	}
	if _, err := engine.Evaluate(RuleContext{Reader: reader}, "a * 2"); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected program compiled once, got %d entries", cache.Len())
	}
	if _, err := engine.Compile(""); err == nil {
		t.Fatalf("expected empty expression to fail")
	}
}

func TestFunctionRegistry(t *testing.T) {
	fns := NewFunctionRegistry()
	noop := func(...any) (any, error) { return nil, nil }
	if err := fns.Register("Slug", noop); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := fns.Register("slug", noop); err == nil {
		t.Fatalf("expected case-insensitive duplicate to fail")
	}
	if err := fns.Register("bad name", noop); err == nil {
		t.Fatalf("expected invalid identifier to fail")
	}
	if _, err := fns.Call("missing"); err == nil {
		t.Fatalf("expected unknown function to fail")
	}
	clone := fns.Clone()
	if err := clone.Register("other", noop); err != nil {
		t.Fatalf("register on clone: %v", err)
	}
	if len(fns.Names()) != 1 || len(clone.Names()) != 2 {
		t.Fatalf("expected clone to be detached, got %v and %v", fns.Names(), clone.Names())
	}
}

type mapReader map[string]any

func (m mapReader) Has(name string) bool {
	_, ok := m[name]
	return ok
}

func (m mapReader) Get(name string) (any, error) {
	return m[name], nil
}
