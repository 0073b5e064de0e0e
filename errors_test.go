package factory

import (
	"errors"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", "name + missing", "user", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" {
		t.Fatalf("expected engine expr, got %q", evalErr.Engine)
	}
	if evalErr.Expr != "name + missing" {
		t.Fatalf("expected expression metadata, got %q", evalErr.Expr)
	}
	if evalErr.Factory != "user" {
		t.Fatalf("expected factory metadata, got %q", evalErr.Factory)
	}
	if !errors.Is(evalErr, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{
		Engine: "expr",
		Err:    base,
	}

	err := wrapEvaluationError("cel", "rule", "post", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" || existing.Factory != "post" {
		t.Fatalf("expected missing metadata filled, got %+v", existing)
	}
}

func TestWrapAttributeErrorDoesNotDoubleWrap(t *testing.T) {
	base := errors.New("boom")
	inner := wrapAttributeError("user", "email", "trait \"admin\"", base)
	outer := wrapAttributeError("user", "name", "factory \"user\"", inner)

	if outer != inner {
		t.Fatalf("expected inner attribute error to pass through, got %v", outer)
	}
	var attrErr *AttributeError
	if !errors.As(outer, &attrErr) || attrErr.Attribute != "email" {
		t.Fatalf("expected innermost attribute preserved, got %v", outer)
	}
	if !errors.Is(outer, base) {
		t.Fatalf("expected base error reachable")
	}

	cycle := &CycleError{Attribute: "a", Path: []string{"a", "b", "a"}}
	if got := wrapAttributeError("user", "b", "", cycle); got != error(cycle) {
		t.Fatalf("expected cycle error untouched, got %v", got)
	}
}

func TestNotFoundErrorMessage(t *testing.T) {
	err := &NotFoundError{Kind: "trait", Name: "admin_trait"}
	if got := err.Error(); got != `factory: Trait not registered: "admin_trait"` {
		t.Fatalf("unexpected message %q", got)
	}
	scoped := &NotFoundError{Kind: "trait", Name: "admin_trait", Scope: "post"}
	if got := scoped.Error(); got != `factory: Trait not registered: "admin_trait" (factory "post")` {
		t.Fatalf("unexpected scoped message %q", got)
	}
	if !errors.Is(scoped, ErrNotFound) {
		t.Fatalf("expected ErrNotFound match")
	}
}
