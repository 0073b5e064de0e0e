package activity

import (
	"context"
	"strings"
	"time"
)

// DefaultChannel is stamped on events emitted without a channel.
const DefaultChannel = "factory"

// Config controls how an Emitter stamps events before fanning them out.
type Config struct {
	Enabled bool
	Channel string
	// ActorID and TenantID fill events that carry none, e.g. a seeding job's
	// service account.
	ActorID  string
	TenantID string
	Now      func() time.Time
}

// Emitter fans out events to hooks while applying defaults.
type Emitter struct {
	hooks  Hooks
	cfg    Config
	active bool
}

// NewEmitter constructs an emitter from hooks and configuration.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	cfg.Channel = strings.TrimSpace(cfg.Channel)
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	normalized := cloneHooks(hooks)
	return &Emitter{
		hooks:  normalized,
		cfg:    cfg,
		active: cfg.Enabled && len(normalized) > 0,
	}
}

// Enabled reports whether emissions should be attempted.
func (e *Emitter) Enabled() bool {
	return e != nil && e.active
}

// Channel returns the channel applied to events without one.
func (e *Emitter) Channel() string {
	if e == nil {
		return DefaultChannel
	}
	return e.cfg.Channel
}

// Emit stamps defaults onto event and forwards it to every hook.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.cfg.Channel
	}
	if strings.TrimSpace(event.ActorID) == "" {
		event.ActorID = e.cfg.ActorID
	}
	if strings.TrimSpace(event.TenantID) == "" {
		event.TenantID = e.cfg.TenantID
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = e.cfg.Now()
	}
	return e.hooks.Notify(ctx, event)
}

func cloneHooks(hooks Hooks) Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make(Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook != nil {
			normalized = append(normalized, hook)
		}
	}
	return normalized
}
