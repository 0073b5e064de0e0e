package factory

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound matches every NotFoundError.
	ErrNotFound = errors.New("factory: not found")
	// ErrCycleDetected matches attribute evaluation cycles.
	ErrCycleDetected = errors.New("factory: cycle detected")
	// ErrTraitCycle matches trait inclusion and parent cycles.
	ErrTraitCycle = errors.New("factory: trait cycle")
	// ErrDuplicateDefinition is returned when a name is registered twice.
	ErrDuplicateDefinition = errors.New("factory: duplicate definition")
	// ErrUnknownAttribute is returned when reading an undeclared attribute.
	ErrUnknownAttribute = errors.New("factory: unknown attribute")
	// ErrInvalidDefinition is returned for malformed definitions.
	ErrInvalidDefinition = errors.New("factory: invalid definition")
	// ErrNoEngine is returned when an expression attribute has no engine to run on.
	ErrNoEngine = errors.New("factory: expression engine not configured")
)

// NotFoundError reports an unresolved factory or trait reference.
type NotFoundError struct {
	Kind  string
	Name  string
	Scope string
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return "<nil>"
	}
	kind := e.Kind
	if kind == "" {
		kind = "trait"
	}
	msg := fmt.Sprintf("factory: %s%s not registered: %q", strings.ToUpper(kind[:1]), kind[1:], e.Name)
	if e.Scope != "" {
		msg += fmt.Sprintf(" (factory %q)", e.Scope)
	}
	return msg
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// CycleError reports an attribute that was read while still being computed.
type CycleError struct {
	Attribute string
	Path      []string
}

func (e *CycleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("factory: cycle detected evaluating %q: %s", e.Attribute, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCycleDetected
}

// TraitCycleError reports a trait that includes itself, or a factory that
// is its own ancestor.
type TraitCycleError struct {
	Kind string
	Path []string
}

func (e *TraitCycleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	kind := e.Kind
	if kind == "" {
		kind = "trait"
	}
	return fmt.Sprintf("factory: %s cycle: %s", kind, strings.Join(e.Path, " -> "))
}

func (e *TraitCycleError) Is(target error) bool {
	return target == ErrTraitCycle
}

// AttributeError keeps the attribute and layer a failure originated from.
type AttributeError struct {
	Factory   string
	Attribute string
	Layer     string
	Err       error
}

func (e *AttributeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Layer == "" {
		return fmt.Sprintf("factory: %s.%s: %v", e.Factory, e.Attribute, e.Err)
	}
	return fmt.Sprintf("factory: %s.%s (%s): %v", e.Factory, e.Attribute, e.Layer, e.Err)
}

func (e *AttributeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CallbackError keeps the event and owning definition of a failed callback.
type CallbackError struct {
	Factory string
	Event   LifecycleEvent
	Owner   string
	Err     error
}

func (e *CallbackError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("factory: %s %s callback from %q: %v", e.Factory, e.Event, e.Owner, e.Err)
}

func (e *CallbackError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// EvaluationError captures expression engine metadata alongside the
// originating error.
type EvaluationError struct {
	Engine  string
	Expr    string
	Factory string
	Err     error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("factory: %s engine %s factory=%s: %v", e.Engine, describeExpression(e.Expr), e.Factory, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEngineError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "factory:") {
		return err
	}
	return fmt.Errorf("factory: %s engine: %w", engine, err)
}

func wrapEvaluationError(engine, expr, factory string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Factory == "" {
			evalErr.Factory = factory
		}
		return evalErr
	}

	return &EvaluationError{
		Engine:  engine,
		Expr:    expr,
		Factory: factory,
		Err:     err,
	}
}

// wrapAttributeError tags err with the attribute it came from. Errors that
// already carry an attribute or a cycle path pass through unchanged.
func wrapAttributeError(factory, attribute, layer string, err error) error {
	if err == nil {
		return nil
	}
	var attrErr *AttributeError
	if errors.As(err, &attrErr) {
		return err
	}
	var cycleErr *CycleError
	if errors.As(err, &cycleErr) {
		return err
	}
	return &AttributeError{
		Factory:   factory,
		Attribute: attribute,
		Layer:     layer,
		Err:       err,
	}
}
