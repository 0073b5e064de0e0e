package factory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-factory/internal/hydrate"
	"github.com/goliatone/go-factory/pkg/store"
)

// ErrNilPlan is returned when Evaluate receives no plan.
var ErrNilPlan = errors.New("factory: plan is nil")

// AttributeSetter is implemented by instances that accept attributes by
// name. Instances without it get attributes assigned to matching fields.
type AttributeSetter interface {
	SetAttribute(name string, value any) error
}

// Saver is implemented by instances that persist themselves. The default
// persistor prefers it over the registry store.
type Saver interface {
	Save(ctx context.Context) error
}

// IDSetter is implemented by instances that accept a generated identifier.
type IDSetter interface {
	SetID(id string)
}

type persistedMarker interface {
	MarkPersisted()
}

// Build constructs an instance and runs after_build callbacks.
func (r *Registry) Build(ctx context.Context, factory any, args ...any) (any, error) {
	return r.Run(ctx, StrategyBuild, factory, args...)
}

// Create builds, persists and runs the create callbacks.
func (r *Registry) Create(ctx context.Context, factory any, args ...any) (any, error) {
	return r.Run(ctx, StrategyCreate, factory, args...)
}

// AttributesFor resolves the attributes construction would receive, minus
// associations, without building anything.
func (r *Registry) AttributesFor(ctx context.Context, factory any, args ...any) (map[string]any, error) {
	result, err := r.Run(ctx, StrategyAttributesFor, factory, args...)
	if err != nil {
		return nil, err
	}
	attrs, _ := result.(map[string]any)
	return attrs, nil
}

// BuildStubbed constructs an instance with a generated identifier that is
// never persisted, then runs after_stub callbacks.
func (r *Registry) BuildStubbed(ctx context.Context, factory any, args ...any) (any, error) {
	return r.Run(ctx, StrategyBuildStubbed, factory, args...)
}

// Run executes strategy for factory. args are trait names (string or
// Symbol), Overrides or map[string]any, and optionally a Constructor or
// Persistor that wins over every declared one.
func (r *Registry) Run(ctx context.Context, strategy Strategy, factory any, args ...any) (any, error) {
	parsed, err := parseArgs(args)
	if err != nil {
		return nil, err
	}
	name, ok := canonicalName(factory)
	if !ok {
		return nil, &NotFoundError{Kind: "factory", Name: describeRef(factory)}
	}
	plan, err := r.compile(name, parsed.traits)
	if err != nil {
		return nil, err
	}
	return r.evaluate(ctx, plan.override(parsed.overrides, parsed.constructor, parsed.persistor), strategy)
}

// Evaluate runs strategy against a compiled plan with optional inline
// overrides. The plan itself is never modified.
func (r *Registry) Evaluate(ctx context.Context, plan *Plan, strategy Strategy, overrides Overrides) (any, error) {
	if plan == nil {
		return nil, ErrNilPlan
	}
	return r.evaluate(ctx, plan.Override(overrides), strategy)
}

func (r *Registry) evaluate(ctx context.Context, plan *Plan, strategy Strategy) (any, error) {
	start := time.Now()
	eval := newEvaluation(ctx, r, plan, strategy)
	result, err := r.runStrategy(eval)
	if err == nil {
		err = r.emit(eval, result)
	}
	r.cfg.logger.LogFactoryEvent(LogEvent{
		Operation: "evaluate",
		Factory:   plan.factory,
		Traits:    plan.traits,
		Strategy:  strategy.String(),
		Duration:  time.Since(start),
		Err:       err,
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Registry) runStrategy(eval *Evaluation) (any, error) {
	switch eval.strategy {
	case StrategyAttributesFor:
		_, values, err := eval.resolveAll(isPlainAttribute)
		if err != nil {
			return nil, err
		}
		return values, nil
	case StrategyBuild:
		instance, err := r.construct(eval)
		if err != nil {
			return nil, err
		}
		if err := r.runCallbacks(eval, AfterBuildEvent, instance); err != nil {
			return nil, err
		}
		return instance, nil
	case StrategyCreate:
		instance, err := r.construct(eval)
		if err != nil {
			return nil, err
		}
		if err := r.runCallbacks(eval, AfterBuildEvent, instance); err != nil {
			return nil, err
		}
		if err := r.runCallbacks(eval, BeforeCreateEvent, instance); err != nil {
			return nil, err
		}
		if err := r.persist(eval, instance); err != nil {
			return nil, err
		}
		if err := r.runCallbacks(eval, AfterCreateEvent, instance); err != nil {
			return nil, err
		}
		return instance, nil
	case StrategyBuildStubbed:
		instance, err := r.construct(eval)
		if err != nil {
			return nil, err
		}
		r.stub(instance)
		if err := r.runCallbacks(eval, AfterStubEvent, instance); err != nil {
			return nil, err
		}
		return instance, nil
	default:
		return nil, fmt.Errorf("factory: unknown strategy %s", eval.strategy)
	}
}

func (r *Registry) construct(eval *Evaluation) (any, error) {
	plan := eval.plan
	if plan.constructor != nil {
		snapshot := newSnapshot(eval)
		instance, err := plan.constructor(eval.ctx, snapshot)
		if err != nil {
			return nil, err
		}
		names, values, err := eval.resolveAll(func(attr *Attribute) bool {
			return isConstructed(attr) && !snapshot.read[attr.name]
		})
		if err != nil {
			return nil, err
		}
		if err := assignAttributes(instance, names, values); err != nil {
			return nil, err
		}
		return instance, nil
	}

	names, values, err := eval.resolveAll(isConstructed)
	if err != nil {
		return nil, err
	}
	if plan.model != nil {
		return plan.model.build(hydrate.Context{Factory: plan.factory, Strategy: eval.strategy.String()}, values)
	}
	record := NewRecord(plan.factory)
	for _, name := range names {
		record.Set(name, values[name])
	}
	return record, nil
}

func assignAttributes(instance any, names []string, values map[string]any) error {
	if len(names) == 0 {
		return nil
	}
	if setter, ok := instance.(AttributeSetter); ok {
		for _, name := range names {
			if err := setter.SetAttribute(name, values[name]); err != nil {
				return err
			}
		}
		return nil
	}
	return hydrate.Assign(instance, values)
}

func (r *Registry) runCallbacks(eval *Evaluation, event LifecycleEvent, instance any) error {
	for _, cb := range eval.plan.callbacks[event] {
		if err := cb.fn(eval.ctx, instance, eval); err != nil {
			return &CallbackError{Factory: eval.plan.factory, Event: event, Owner: cb.owner.name, Err: err}
		}
	}
	return nil
}

func (r *Registry) persist(eval *Evaluation, instance any) error {
	if eval.plan.persistor != nil {
		return eval.plan.persistor(eval.ctx, instance)
	}
	if saver, ok := instance.(Saver); ok {
		if err := saver.Save(eval.ctx); err != nil {
			return err
		}
		markPersisted(instance)
		return nil
	}
	record, err := flatten(instance)
	if err != nil {
		return err
	}
	meta, err := r.cfg.store.Save(eval.ctx, store.Ref{Factory: eval.plan.factory, ID: idFromRecord(record)}, record)
	if err != nil {
		return err
	}
	assignID(instance, meta.ID)
	markPersisted(instance)
	return nil
}

func (r *Registry) stub(instance any) {
	assignID(instance, r.cfg.newID())
	if record, ok := instance.(*Record); ok {
		record.markStubbed()
	}
}

func flatten(instance any) (map[string]any, error) {
	if record, ok := instance.(*Record); ok {
		return record.Map(), nil
	}
	return hydrate.ToMap(instance)
}

func idFromRecord(record map[string]any) string {
	for _, key := range []string{"id", "ID"} {
		if id, ok := record[key].(string); ok && id != "" {
			return id
		}
	}
	return ""
}

func instanceID(instance any) string {
	if record, ok := instance.(*Record); ok {
		return record.ID()
	}
	values, err := hydrate.ToMap(instance)
	if err != nil {
		return ""
	}
	if id := idFromRecord(values); id != "" {
		return id
	}
	if id, ok := values["ID"]; ok && id != nil {
		return fmt.Sprint(id)
	}
	return ""
}

func assignID(instance any, id string) {
	if id == "" {
		return
	}
	if setter, ok := instance.(IDSetter); ok {
		setter.SetID(id)
		return
	}
	hydrate.SetField(instance, "ID", id)
}

func markPersisted(instance any) {
	if marker, ok := instance.(persistedMarker); ok {
		marker.MarkPersisted()
	}
}
