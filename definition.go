package factory

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/goliatone/go-factory/internal/hydrate"
)

// DefinitionKind separates factories from traits.
type DefinitionKind int

const (
	KindFactory DefinitionKind = iota
	KindTrait
)

func (k DefinitionKind) String() string {
	if k == KindTrait {
		return "trait"
	}
	return "factory"
}

// LifecycleEvent names a point in a strategy where callbacks run.
type LifecycleEvent string

const (
	AfterBuildEvent   LifecycleEvent = "after_build"
	BeforeCreateEvent LifecycleEvent = "before_create"
	AfterCreateEvent  LifecycleEvent = "after_create"
	AfterStubEvent    LifecycleEvent = "after_stub"
)

func validEvent(event LifecycleEvent) bool {
	switch event {
	case AfterBuildEvent, BeforeCreateEvent, AfterCreateEvent, AfterStubEvent:
		return true
	}
	return false
}

// Constructor builds an instance from resolved attributes.
type Constructor func(ctx context.Context, attrs *Snapshot) (any, error)

// Persistor makes a built instance persisted.
type Persistor func(ctx context.Context, instance any) error

// CallbackFunc runs against an instance at a lifecycle event. The evaluation
// exposes every attribute, transient ones included.
type CallbackFunc func(ctx context.Context, instance any, e *Evaluation) error

type callback struct {
	event LifecycleEvent
	fn    CallbackFunc
	owner *Definition
}

type modelSpec struct {
	name  string
	build func(hydrate.Context, map[string]any) (any, error)
}

// Definition is a registered factory or trait.
type Definition struct {
	name        string
	kind        DefinitionKind
	parent      string
	attributes  *AttributeSet
	traits      []string
	localTraits map[string]*Definition
	localOrder  []string
	constructor Constructor
	persistor   Persistor
	callbacks   []*callback
	model       *modelSpec
}

// Name returns the canonical definition name.
func (d *Definition) Name() string { return d.name }

// Kind reports whether d is a factory or a trait.
func (d *Definition) Kind() DefinitionKind { return d.kind }

// Parent returns the parent factory name, empty for roots and traits.
func (d *Definition) Parent() string { return d.parent }

// Traits returns the statically applied trait names in declared order.
func (d *Definition) Traits() []string { return append([]string(nil), d.traits...) }

// Attributes returns a copy of the definition's own attributes.
func (d *Definition) Attributes() *AttributeSet { return d.attributes.Clone() }

// LocalTraits returns the names of traits scoped to this factory.
func (d *Definition) LocalTraits() []string { return append([]string(nil), d.localOrder...) }

func (d *Definition) addLocalTrait(trait *Definition) error {
	if d.localTraits == nil {
		d.localTraits = map[string]*Definition{}
	}
	if _, exists := d.localTraits[trait.name]; exists {
		return fmt.Errorf("%w: trait %q in factory %q", ErrDuplicateDefinition, trait.name, d.name)
	}
	d.localTraits[trait.name] = trait
	d.localOrder = append(d.localOrder, trait.name)
	return nil
}

// DefinitionOption configures a factory or trait under construction.
type DefinitionOption func(*definitionBuilder)

type definitionBuilder struct {
	def       *Definition
	transient bool
	errs      []error
}

func (b *definitionBuilder) fail(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidDefinition}, args...)...))
}

func (b *definitionBuilder) declare(attr *Attribute) {
	if attr.name == "" {
		b.fail("%s %q declares an attribute without a name", b.def.kind, b.def.name)
		return
	}
	b.def.attributes.set(attr.withTransient(b.transient))
}

// NewFactory builds a factory definition.
func NewFactory(name any, opts ...DefinitionOption) (*Definition, error) {
	return newDefinition(KindFactory, name, opts)
}

// NewTrait builds a trait definition.
func NewTrait(name any, opts ...DefinitionOption) (*Definition, error) {
	return newDefinition(KindTrait, name, opts)
}

func newDefinition(kind DefinitionKind, ref any, opts []DefinitionOption) (*Definition, error) {
	name, ok := canonicalName(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %s name %s", ErrInvalidDefinition, kind, describeRef(ref))
	}
	b := &definitionBuilder{def: &Definition{
		name:       name,
		kind:       kind,
		attributes: NewAttributeSet(),
	}}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	return b.def, nil
}

// Parent makes a factory inherit from another factory.
func Parent(name any) DefinitionOption {
	return func(b *definitionBuilder) {
		if b.def.kind != KindFactory {
			b.fail("trait %q cannot declare a parent", b.def.name)
			return
		}
		parent, ok := canonicalName(name)
		if !ok {
			b.fail("factory %q parent %s", b.def.name, describeRef(name))
			return
		}
		b.def.parent = parent
	}
}

// Value declares a literal attribute. Maps and slices reachable from value
// are copied for every evaluation; pointers and structs are handed out as is.
func Value(name string, value any) DefinitionOption {
	return func(b *definitionBuilder) {
		b.declare(valueAttribute(name, value))
	}
}

// Dynamic declares a lazily computed attribute.
func Dynamic(name string, fn Compute) DefinitionOption {
	return func(b *definitionBuilder) {
		if fn == nil {
			b.fail("attribute %q has a nil compute function", name)
			return
		}
		b.declare(computeAttribute(name, fn))
	}
}

// Expr declares an attribute computed by the registry's expression engine.
// Identifiers in the expression read sibling attributes.
func Expr(name, expression string) DefinitionOption {
	return func(b *definitionBuilder) {
		if expression == "" {
			b.fail("attribute %q has an empty expression", name)
			return
		}
		b.declare(&Attribute{name: name, kind: KindExpression, expr: expression})
	}
}

// Sequence declares an attribute fed by a counter starting at 1. The counter
// is shared by every plan that includes the declaration. A nil format yields
// the counter itself.
func Sequence(name string, format func(n int) any) DefinitionOption {
	return func(b *definitionBuilder) {
		b.declare(&Attribute{name: name, kind: KindSequence, sequence: &sequence{format: format}})
	}
}

// Association declares an attribute holding an instance of another factory,
// produced with the strategy of the surrounding call. args accepts the same
// trait names and overrides as Build.
func Association(name string, factory any, args ...any) DefinitionOption {
	return func(b *definitionBuilder) {
		if _, ok := canonicalName(factory); !ok {
			b.fail("association %q references factory %s", name, describeRef(factory))
			return
		}
		b.declare(&Attribute{name: name, kind: KindAssociation, assoc: &association{
			factory: factory,
			args:    append([]any(nil), args...),
		}})
	}
}

// Transient marks every attribute declared by opts as transient: readable
// by siblings and callbacks, never passed to construction.
func Transient(opts ...DefinitionOption) DefinitionOption {
	return func(b *definitionBuilder) {
		previous := b.transient
		b.transient = true
		for _, opt := range opts {
			if opt != nil {
				opt(b)
			}
		}
		b.transient = previous
	}
}

// Traits applies traits by name, in order.
func Traits(refs ...any) DefinitionOption {
	return func(b *definitionBuilder) {
		names, err := canonicalTraits(refs)
		if err != nil {
			b.errs = append(b.errs, err)
			return
		}
		b.def.traits = append(b.def.traits, names...)
	}
}

// DefineTrait declares a trait scoped to the factory and its descendants.
func DefineTrait(name any, opts ...DefinitionOption) DefinitionOption {
	return func(b *definitionBuilder) {
		if b.def.kind != KindFactory {
			b.fail("trait %q cannot define nested trait %s", b.def.name, describeRef(name))
			return
		}
		trait, err := NewTrait(name, opts...)
		if err != nil {
			b.errs = append(b.errs, err)
			return
		}
		if err := b.def.addLocalTrait(trait); err != nil {
			b.errs = append(b.errs, err)
		}
	}
}

// InitializeWith sets the constructor.
func InitializeWith(fn Constructor) DefinitionOption {
	return func(b *definitionBuilder) {
		if fn == nil {
			b.fail("%s %q has a nil constructor", b.def.kind, b.def.name)
			return
		}
		b.def.constructor = fn
	}
}

// ToCreate sets the persistor used by the create strategy.
func ToCreate(fn Persistor) DefinitionOption {
	return func(b *definitionBuilder) {
		if fn == nil {
			b.fail("%s %q has a nil persistor", b.def.kind, b.def.name)
			return
		}
		b.def.persistor = fn
	}
}

// SkipCreate installs a persistor that does nothing.
func SkipCreate() DefinitionOption {
	return ToCreate(func(context.Context, any) error { return nil })
}

// Callback registers fn for event.
func Callback(event LifecycleEvent, fn CallbackFunc) DefinitionOption {
	return func(b *definitionBuilder) {
		if !validEvent(event) {
			b.fail("%s %q registers unknown event %q", b.def.kind, b.def.name, event)
			return
		}
		if fn == nil {
			b.fail("%s %q registers a nil %s callback", b.def.kind, b.def.name, event)
			return
		}
		b.def.callbacks = append(b.def.callbacks, &callback{event: event, fn: fn, owner: b.def})
	}
}

// AfterBuild registers fn to run once an instance is constructed under Build
// and Create.
func AfterBuild(fn CallbackFunc) DefinitionOption { return Callback(AfterBuildEvent, fn) }

// BeforeCreate registers fn to run before the persistor under Create.
func BeforeCreate(fn CallbackFunc) DefinitionOption { return Callback(BeforeCreateEvent, fn) }

// AfterCreate registers fn to run after the persistor under Create.
func AfterCreate(fn CallbackFunc) DefinitionOption { return Callback(AfterCreateEvent, fn) }

// AfterStub registers fn to run after BuildStubbed assigns a stub id.
func AfterStub(fn CallbackFunc) DefinitionOption { return Callback(AfterStubEvent, fn) }

// Model makes default construction decode attributes into a *T.
func Model[T any]() DefinitionOption {
	decoder := hydrate.NewDecoder[T]()
	name := reflect.TypeOf((*T)(nil)).Elem().String()
	return func(b *definitionBuilder) {
		if b.def.kind != KindFactory {
			b.fail("trait %q cannot declare a model", b.def.name)
			return
		}
		b.def.model = &modelSpec{
			name: name,
			build: func(ctx hydrate.Context, attrs map[string]any) (any, error) {
				value, err := decoder.Decode(ctx, attrs)
				if err != nil {
					return nil, err
				}
				return &value, nil
			},
		}
	}
}
