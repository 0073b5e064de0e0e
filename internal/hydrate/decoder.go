package hydrate

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// TagName is the struct tag consulted when matching attribute names to
// fields. Untagged fields match case-insensitively with underscores ignored,
// so "published_at" fills PublishedAt.
const TagName = "factory"

// Context carries identifiers tied to the payload being hydrated.
type Context struct {
	Factory  string
	Strategy string
}

// PreHook lets callers mutate or normalise the payload before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the hydrated struct after decoding.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces the default mapstructure decoding when provided.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts resolved attribute sets into strongly typed structs.
type Decoder[T any] struct {
	preHooks  []PreHook
	postHooks []PostHook[T]
	configure []func(*mapstructure.DecoderConfig)
	custom    CustomDecoder[T]
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithWeaklyTypedInput lets mapstructure coerce between scalar kinds.
func WithWeaklyTypedInput[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configure = append(d.configure, func(cfg *mapstructure.DecoderConfig) {
			cfg.WeaklyTypedInput = true
		})
	}
}

// WithErrorUnused fails decoding when an attribute has no matching field.
func WithErrorUnused[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configure = append(d.configure, func(cfg *mapstructure.DecoderConfig) {
			cfg.ErrorUnused = true
		})
	}
}

// WithDecoderConfig allows callers to configure mapstructure directly.
func WithDecoderConfig[T any](configure func(*mapstructure.DecoderConfig)) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if configure != nil {
			d.configure = append(d.configure, configure)
		}
	}
}

// WithCustomDecoder replaces the default decoding path.
func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts payload into the target struct T applying configured hooks.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T

	if payload == nil {
		return zero, fmt.Errorf("hydrate: payload is nil for factory %q", ctx.Factory)
	}

	current := clonePayload(payload)
	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for factory %q failed: %w", ctx.Factory, err)
		}
		if next != nil {
			current = next
		}
	}

	var result T
	if d.custom != nil {
		decoded, err := d.custom(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: custom decoder for factory %q failed: %w", ctx.Factory, err)
		}
		result = decoded
	} else {
		if err := decode(current, &result, d.configure); err != nil {
			return zero, fmt.Errorf("hydrate: decode factory %q: %w", ctx.Factory, err)
		}
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for factory %q failed: %w", ctx.Factory, err)
		}
	}

	return result, nil
}

// Assign writes payload onto an existing instance. target must be a
// non-nil pointer; keys without a matching field are ignored.
func Assign(target any, payload map[string]any) error {
	if len(payload) == 0 {
		return nil
	}
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("hydrate: assign target must be a non-nil pointer, got %T", target)
	}
	if err := decode(payload, target, nil); err != nil {
		return fmt.Errorf("hydrate: assign %T: %w", target, err)
	}
	return nil
}

// ToMap flattens a struct (or pointer to one) into an attribute map keyed by
// the factory tag, falling back to the field name.
func ToMap(source any) (map[string]any, error) {
	out := map[string]any{}
	if source == nil {
		return out, nil
	}
	if m, ok := source.(map[string]any); ok {
		return clonePayload(m), nil
	}
	cfg := &mapstructure.DecoderConfig{
		Result:  &out,
		TagName: TagName,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(source); err != nil {
		return nil, fmt.Errorf("hydrate: flatten %T: %w", source, err)
	}
	return out, nil
}

// SetField assigns value to the exported field name on the struct target
// points to. It reports whether the assignment happened.
func SetField(target any, name string, value any) bool {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return false
	}
	elem := rv.Elem()
	if elem.Kind() != reflect.Struct {
		return false
	}
	field := elem.FieldByName(name)
	if !field.IsValid() || !field.CanSet() {
		return false
	}
	val := reflect.ValueOf(value)
	if !val.IsValid() || !val.Type().AssignableTo(field.Type()) {
		return false
	}
	field.Set(val)
	return true
}

func decode(payload map[string]any, result any, configure []func(*mapstructure.DecoderConfig)) error {
	cfg := &mapstructure.DecoderConfig{
		Result:    result,
		TagName:   TagName,
		MatchName: matchName,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	}
	for _, fn := range configure {
		if fn != nil {
			fn(cfg)
		}
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return decoder.Decode(payload)
}

func matchName(key, field string) bool {
	return strings.EqualFold(strings.ReplaceAll(key, "_", ""), strings.ReplaceAll(field, "_", ""))
}

func clonePayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		out[key] = value
	}
	return out
}
