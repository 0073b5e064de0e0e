package factory

import (
	"context"
	"errors"
)

// Evaluation is the per-call state of one strategy run. Attribute values are
// computed on first read and memoised until the call returns. An Evaluation
// is not safe for concurrent use.
type Evaluation struct {
	ctx      context.Context
	registry *Registry
	plan     *Plan
	strategy Strategy

	values     map[string]any
	inProgress map[string]bool
	stack      []string
}

func newEvaluation(ctx context.Context, registry *Registry, plan *Plan, strategy Strategy) *Evaluation {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Evaluation{
		ctx:        ctx,
		registry:   registry,
		plan:       plan,
		strategy:   strategy,
		values:     map[string]any{},
		inProgress: map[string]bool{},
	}
}

// Context returns the context of the surrounding call.
func (e *Evaluation) Context() context.Context { return e.ctx }

// Strategy returns the strategy being run.
func (e *Evaluation) Strategy() Strategy { return e.strategy }

// Factory returns the name of the factory being evaluated.
func (e *Evaluation) Factory() string { return e.plan.factory }

// Has reports whether name is a declared attribute, transient included.
func (e *Evaluation) Has(name string) bool {
	_, ok := e.plan.attributes.Lookup(name)
	return ok
}

// Get returns the value of name, computing it on first read.
func (e *Evaluation) Get(name string) (any, error) {
	if value, ok := e.values[name]; ok {
		return value, nil
	}
	attr, ok := e.plan.attributes.Lookup(name)
	if !ok {
		return nil, &AttributeError{Factory: e.plan.factory, Attribute: name, Err: ErrUnknownAttribute}
	}
	if e.inProgress[name] {
		path := append(append([]string(nil), e.stack...), name)
		return nil, &CycleError{Attribute: name, Path: path}
	}

	e.inProgress[name] = true
	e.stack = append(e.stack, name)
	value, err := attr.resolve(e)
	e.stack = e.stack[:len(e.stack)-1]
	delete(e.inProgress, name)

	if err != nil {
		return nil, wrapAttributeError(e.plan.factory, name, e.plan.originLabel(name), err)
	}
	e.values[name] = value
	return value, nil
}

// Lookup is Get for callers that treat an undeclared attribute as absent.
func (e *Evaluation) Lookup(name string) (any, bool, error) {
	if !e.Has(name) {
		return nil, false, nil
	}
	value, err := e.Get(name)
	if err != nil {
		return nil, true, err
	}
	return value, true, nil
}

// Associate runs factory with the current strategy and returns the
// instance. Under AttributesFor nothing is built and the result is nil.
func (e *Evaluation) Associate(factory any, args ...any) (any, error) {
	if e.strategy == StrategyAttributesFor {
		return nil, nil
	}
	return e.registry.Run(e.ctx, e.strategy, factory, args...)
}

// resolveAll computes every attribute accepted by keep in plan order.
func (e *Evaluation) resolveAll(keep func(*Attribute) bool) ([]string, map[string]any, error) {
	names := make([]string, 0, e.plan.attributes.Len())
	values := make(map[string]any, e.plan.attributes.Len())
	for _, name := range e.plan.attributes.Names() {
		attr, _ := e.plan.attributes.Lookup(name)
		if keep != nil && !keep(attr) {
			continue
		}
		value, err := e.Get(name)
		if err != nil {
			return nil, nil, err
		}
		names = append(names, name)
		values[name] = value
	}
	return names, values, nil
}

func (e *Evaluation) evaluateExpression(attr *Attribute) (any, error) {
	engine := e.registry.cfg.engine
	if engine == nil {
		return nil, ErrNoEngine
	}
	now := e.registry.cfg.now()
	value, err := engine.Evaluate(RuleContext{
		Reader:    e,
		Factory:   e.plan.factory,
		Attribute: attr.name,
		Strategy:  e.strategy.String(),
		Now:       &now,
	}, attr.expr)
	if err != nil {
		var attrErr *AttributeError
		var cycleErr *CycleError
		if errors.As(err, &attrErr) || errors.As(err, &cycleErr) {
			return nil, err
		}
		return nil, wrapEvaluationError(engineName(engine), attr.expr, e.plan.factory, err)
	}
	return value, nil
}

// Snapshot is the read-only view of resolved attributes handed to a
// constructor. Attributes the constructor reads are not assigned onto the
// instance afterwards.
type Snapshot struct {
	eval *Evaluation
	read map[string]bool
}

func newSnapshot(eval *Evaluation) *Snapshot {
	return &Snapshot{eval: eval, read: map[string]bool{}}
}

// Get returns the value of name, transient attributes included.
func (s *Snapshot) Get(name string) (any, error) {
	value, err := s.eval.Get(name)
	if err != nil {
		return nil, err
	}
	s.read[name] = true
	return value, nil
}

// String returns name as a string, or "" when it is not one.
func (s *Snapshot) String(name string) (string, error) {
	value, err := s.Get(name)
	if err != nil {
		return "", err
	}
	str, _ := value.(string)
	return str, nil
}

// Has reports whether name is declared.
func (s *Snapshot) Has(name string) bool {
	return s.eval.Has(name)
}

// Names lists the attributes that construction receives.
func (s *Snapshot) Names() []string {
	names := make([]string, 0, s.eval.plan.attributes.Len())
	for _, name := range s.eval.plan.attributes.Names() {
		if attr, _ := s.eval.plan.attributes.Lookup(name); !attr.transient {
			names = append(names, name)
		}
	}
	return names
}

// Map resolves every non-transient attribute and marks them all read.
func (s *Snapshot) Map() (map[string]any, error) {
	_, values, err := s.eval.resolveAll(isConstructed)
	if err != nil {
		return nil, err
	}
	for name := range values {
		s.read[name] = true
	}
	return values, nil
}

// Factory returns the factory being constructed.
func (s *Snapshot) Factory() string {
	return s.eval.plan.factory
}

func isConstructed(attr *Attribute) bool {
	return !attr.transient
}

func isPlainAttribute(attr *Attribute) bool {
	return !attr.transient && attr.kind != KindAssociation
}
