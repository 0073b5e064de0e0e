package factory

import "github.com/goliatone/go-factory/pkg/activity"

// WithActivityHooks attaches hooks notified after every successful build,
// create and stub. Hooks are cloned and nil entries dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *registryConfig) {
		cfg.hooks = normalized
	}
}

// WithActivityChannel overrides the channel stamped on emitted events.
func WithActivityChannel(channel string) Option {
	return func(cfg *registryConfig) {
		cfg.channel = channel
	}
}

// WithActivityActor stamps actorID and tenantID on events that carry none.
func WithActivityActor(actorID, tenantID string) Option {
	return func(cfg *registryConfig) {
		cfg.actorID = actorID
		cfg.tenantID = tenantID
	}
}

// ActivityHooks returns a copy of the configured hooks.
func (r *Registry) ActivityHooks() activity.Hooks {
	if r == nil {
		return nil
	}
	return cloneActivityHooks(r.cfg.hooks)
}

// emit notifies hooks about a finished strategy. Hook errors fail the call.
func (r *Registry) emit(eval *Evaluation, instance any) error {
	if r.emitter == nil || !r.emitter.Enabled() {
		return nil
	}
	event, ok := activity.BuildStrategyEvent(eval.strategy.String(), activity.InstanceEventInput{
		Factory:    eval.plan.factory,
		InstanceID: instanceID(instance),
		Traits:     eval.plan.traits,
		OccurredAt: r.cfg.now(),
	})
	if !ok {
		return nil
	}
	return r.emitter.Emit(eval.ctx, event)
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}
