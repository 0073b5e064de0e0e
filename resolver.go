package factory

import (
	"strings"
	"time"
)

// Compile resolves factory with the dynamic traits into a plan. Plans are
// memoised per factory and trait tuple until the next registration.
func (r *Registry) Compile(factory any, traits ...any) (*Plan, error) {
	name, ok := canonicalName(factory)
	if !ok {
		return nil, &NotFoundError{Kind: "factory", Name: describeRef(factory)}
	}
	dynamic, err := canonicalTraits(traits)
	if err != nil {
		return nil, err
	}
	return r.compile(name, dynamic)
}

func (r *Registry) compile(name string, dynamic []string) (*Plan, error) {
	start := time.Now()
	key := planKey{factory: name, traits: strings.Join(dynamic, "\x1f")}

	r.plansMu.Lock()
	cached, ok := r.plans[key]
	r.plansMu.Unlock()
	if ok {
		r.cfg.logger.LogFactoryEvent(LogEvent{
			Operation: "compile",
			Factory:   name,
			Traits:    dynamic,
			Duration:  time.Since(start),
			Cached:    true,
		})
		return cached, nil
	}

	r.mu.RLock()
	plan, err := r.resolve(name, dynamic)
	if err == nil {
		r.plansMu.Lock()
		if existing, ok := r.plans[key]; ok {
			plan = existing
		} else {
			r.plans[key] = plan
		}
		r.plansMu.Unlock()
	}
	r.mu.RUnlock()

	r.cfg.logger.LogFactoryEvent(LogEvent{
		Operation: "compile",
		Factory:   name,
		Traits:    dynamic,
		Duration:  time.Since(start),
		Err:       err,
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// resolver expands one factory into its layer stack. Callers hold r.mu.
type resolver struct {
	registry  *Registry
	chain     []*Definition
	layers    []Layer
	expanding map[*Definition]bool
	path      []string
}

func (r *Registry) resolve(name string, dynamic []string) (*Plan, error) {
	target, ok := r.factories[name]
	if !ok {
		return nil, &NotFoundError{Kind: "factory", Name: name}
	}
	chain, err := r.ancestry(target)
	if err != nil {
		return nil, err
	}
	res := &resolver{
		registry:  r,
		chain:     chain,
		expanding: map[*Definition]bool{},
	}

	// Each chain member's static traits sit under its own declarations.
	for _, def := range chain {
		for _, ref := range def.traits {
			if err := res.expand(ref, LayerTrait); err != nil {
				return nil, err
			}
		}
		res.push(def, LayerFactory)
	}
	for _, ref := range dynamic {
		if err := res.expand(ref, LayerDynamicTrait); err != nil {
			return nil, err
		}
	}
	return res.plan(name, dynamic), nil
}

// expand layers a trait after the traits it applies, depth first.
func (res *resolver) expand(ref string, kind LayerKind) error {
	trait, err := res.registry.lookupTrait(res.chain, ref)
	if err != nil {
		return err
	}
	if res.expanding[trait] {
		path := append(append([]string(nil), res.path...), trait.name)
		return &TraitCycleError{Kind: "trait", Path: path}
	}
	res.expanding[trait] = true
	res.path = append(res.path, trait.name)
	defer func() {
		delete(res.expanding, trait)
		res.path = res.path[:len(res.path)-1]
	}()

	for _, nested := range trait.traits {
		if err := res.expand(nested, kind); err != nil {
			return err
		}
	}
	res.push(trait, kind)
	return nil
}

func (res *resolver) push(def *Definition, kind LayerKind) {
	res.layers = append(res.layers, Layer{
		Index:      len(res.layers),
		Kind:       kind,
		Name:       def.name,
		owner:      def,
		attributes: def.attributes,
	})
}

// plan flattens the layer stack. Later layers win attribute, constructor
// and persistor collisions; callbacks accumulate once per owner.
func (res *resolver) plan(name string, dynamic []string) *Plan {
	plan := &Plan{
		factory:    name,
		traits:     append([]string(nil), dynamic...),
		layers:     res.layers,
		attributes: NewAttributeSet(),
		ctorOrigin: -1,
		persOrigin: -1,
		callbacks:  map[LifecycleEvent][]*callback{},
	}

	type callbackKey struct {
		cb    *callback
		owner *Definition
	}
	seen := map[callbackKey]bool{}

	for i, layer := range res.layers {
		plan.attributes = layer.attributes.withOrigin(i).MergeOver(plan.attributes)
		def := layer.owner
		if def.constructor != nil {
			plan.constructor = def.constructor
			plan.ctorOrigin = i
		}
		if def.persistor != nil {
			plan.persistor = def.persistor
			plan.persOrigin = i
		}
		for _, cb := range def.callbacks {
			key := callbackKey{cb: cb, owner: cb.owner}
			if seen[key] {
				continue
			}
			seen[key] = true
			plan.callbacks[cb.event] = append(plan.callbacks[cb.event], cb)
		}
	}
	for _, def := range res.chain {
		if def.model != nil {
			plan.model = def.model
		}
	}
	return plan
}
