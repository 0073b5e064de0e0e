package factory

import "fmt"

// LayerKind classifies a layer in a plan's precedence stack.
type LayerKind int

const (
	LayerFactory LayerKind = iota
	LayerTrait
	LayerDynamicTrait
	LayerOverride
)

func (k LayerKind) String() string {
	switch k {
	case LayerFactory:
		return "factory"
	case LayerTrait:
		return "trait"
	case LayerDynamicTrait:
		return "dynamic_trait"
	case LayerOverride:
		return "override"
	default:
		return "unknown"
	}
}

// Layer is one source of declarations in a plan, lowest precedence first.
type Layer struct {
	Index int
	Kind  LayerKind
	Name  string

	owner      *Definition
	attributes *AttributeSet
}

// AttributeNames lists the attributes this layer declares.
func (l Layer) AttributeNames() []string {
	return l.attributes.Names()
}

func (l Layer) label() string {
	if l.Kind == LayerOverride {
		return "override"
	}
	return fmt.Sprintf("%s %q", l.Kind, l.Name)
}

// Plan is the flattened result of resolving a factory with a dynamic trait
// list. Plans are immutable and shared between calls.
type Plan struct {
	factory     string
	traits      []string
	layers      []Layer
	attributes  *AttributeSet
	constructor Constructor
	persistor   Persistor
	ctorOrigin  int
	persOrigin  int
	callbacks   map[LifecycleEvent][]*callback
	model       *modelSpec
}

// Factory returns the factory the plan was compiled for.
func (p *Plan) Factory() string { return p.factory }

// Traits returns the dynamic traits the plan was compiled with.
func (p *Plan) Traits() []string { return append([]string(nil), p.traits...) }

// Layers returns the precedence stack, lowest first.
func (p *Plan) Layers() []Layer { return append([]Layer(nil), p.layers...) }

// Attributes returns the effective attribute names in evaluation order.
func (p *Plan) Attributes() []string { return p.attributes.Names() }

// Attribute returns the effective declaration for name.
func (p *Plan) Attribute(name string) (*Attribute, bool) { return p.attributes.Lookup(name) }

// ConstructorOrigin returns the layer whose constructor is used. ok is
// false when the default construction applies.
func (p *Plan) ConstructorOrigin() (Layer, bool) { return p.layerAt(p.ctorOrigin) }

// PersistorOrigin returns the layer whose persistor is used. ok is false
// when the default persistence applies.
func (p *Plan) PersistorOrigin() (Layer, bool) { return p.layerAt(p.persOrigin) }

// Callbacks returns the owners of event's callbacks in run order.
func (p *Plan) Callbacks(event LifecycleEvent) []string {
	callbacks := p.callbacks[event]
	owners := make([]string, 0, len(callbacks))
	for _, cb := range callbacks {
		owners = append(owners, cb.owner.name)
	}
	return owners
}

func (p *Plan) layerAt(idx int) (Layer, bool) {
	if idx < 0 || idx >= len(p.layers) {
		return Layer{}, false
	}
	return p.layers[idx], true
}

// originLabel names the layer that contributed name.
func (p *Plan) originLabel(name string) string {
	layer, ok := p.layerAt(p.attributes.origin(name))
	if !ok {
		return ""
	}
	return layer.label()
}

// Override derives a plan with overrides layered on top. The receiver is
// not modified.
func (p *Plan) Override(overrides Overrides) *Plan {
	return p.override(overrides, nil, nil)
}

func (p *Plan) override(overrides Overrides, constructor Constructor, persistor Persistor) *Plan {
	if len(overrides) == 0 && constructor == nil && persistor == nil {
		return p
	}
	derived := *p
	set := NewAttributeSet()
	for _, name := range sortedKeys(overrides) {
		attr := overrideAttribute(name, overrides[name])
		if base, ok := p.attributes.Lookup(name); ok && base.transient {
			attr.transient = true
		}
		set.set(attr)
	}
	idx := len(p.layers)
	derived.layers = append(append(make([]Layer, 0, idx+1), p.layers...), Layer{
		Index:      idx,
		Kind:       LayerOverride,
		Name:       "override",
		attributes: set,
	})
	derived.attributes = set.withOrigin(idx).MergeOver(p.attributes)
	if constructor != nil {
		derived.constructor = constructor
		derived.ctorOrigin = idx
	}
	if persistor != nil {
		derived.persistor = persistor
		derived.persOrigin = idx
	}
	return &derived
}
