package factory

import (
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-factory/pkg/activity"
	"github.com/goliatone/go-factory/pkg/store"
	"github.com/google/uuid"
)

// Option configures a Registry.
type Option func(*registryConfig)

type registryConfig struct {
	engine       ExpressionEngine
	programCache ProgramCache
	functions    *FunctionRegistry
	logger       Logger
	store        store.Store
	hooks        activity.Hooks
	channel      string
	actorID      string
	tenantID     string
	now          func() time.Time
	newID        func() string
}

func applyOptions(opts []Option) registryConfig {
	cfg := registryConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	if cfg.programCache == nil {
		cfg.programCache = NewMemoryProgramCache()
	}
	if cfg.store == nil {
		cfg.store = store.NewMemoryStore()
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	if cfg.newID == nil {
		cfg.newID = uuid.NewString
	}
	if cfg.engine == nil {
		exprOpts := []ExprEvaluatorOption{ExprWithProgramCache(cfg.programCache)}
		if cfg.functions != nil {
			exprOpts = append(exprOpts, ExprWithFunctionRegistry(cfg.functions))
		}
		cfg.engine = NewExprEvaluator(exprOpts...)
	}
	return cfg
}

// WithStore sets where the default persistor saves created instances.
func WithStore(s store.Store) Option {
	return func(cfg *registryConfig) {
		cfg.store = s
	}
}

// WithClock overrides the time source used for expressions and events.
func WithClock(now func() time.Time) Option {
	return func(cfg *registryConfig) {
		cfg.now = now
	}
}

// WithIDGenerator overrides how stub identifiers are generated.
func WithIDGenerator(fn func() string) Option {
	return func(cfg *registryConfig) {
		cfg.newID = fn
	}
}

// Registry holds factory and trait definitions and the plans compiled from
// them. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]*Definition
	traits    map[string]*Definition

	plansMu sync.Mutex
	plans   map[planKey]*Plan

	cfg     registryConfig
	emitter *activity.Emitter
}

type planKey struct {
	factory string
	traits  string
}

// New constructs an empty registry.
func New(opts ...Option) *Registry {
	cfg := applyOptions(opts)
	return &Registry{
		factories: map[string]*Definition{},
		traits:    map[string]*Definition{},
		plans:     map[planKey]*Plan{},
		cfg:       cfg,
		emitter:   activity.NewEmitter(cfg.hooks, activity.Config{
			Enabled:  true,
			Channel:  cfg.channel,
			ActorID:  cfg.actorID,
			TenantID: cfg.tenantID,
			Now:      cfg.now,
		}),
	}
}

// RegisterFactory adds a factory definition.
func (r *Registry) RegisterFactory(def *Definition) error {
	if def == nil || def.kind != KindFactory {
		return fmt.Errorf("%w: expected a factory definition", ErrInvalidDefinition)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[def.name]; exists {
		return fmt.Errorf("%w: factory %q", ErrDuplicateDefinition, def.name)
	}
	r.factories[def.name] = def
	r.invalidate()
	return nil
}

// RegisterTrait adds a globally visible trait.
func (r *Registry) RegisterTrait(def *Definition) error {
	if def == nil || def.kind != KindTrait {
		return fmt.Errorf("%w: expected a trait definition", ErrInvalidDefinition)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.traits[def.name]; exists {
		return fmt.Errorf("%w: trait %q", ErrDuplicateDefinition, def.name)
	}
	r.traits[def.name] = def
	r.invalidate()
	return nil
}

// RegisterLocalTrait scopes a trait to factory and its descendants.
func (r *Registry) RegisterLocalTrait(factory any, def *Definition) error {
	if def == nil || def.kind != KindTrait {
		return fmt.Errorf("%w: expected a trait definition", ErrInvalidDefinition)
	}
	name, ok := canonicalName(factory)
	if !ok {
		return &NotFoundError{Kind: "factory", Name: describeRef(factory)}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.factories[name]
	if !ok {
		return &NotFoundError{Kind: "factory", Name: name}
	}
	if err := owner.addLocalTrait(def); err != nil {
		return err
	}
	r.invalidate()
	return nil
}

// Define registers each definition by kind.
func (r *Registry) Define(defs ...*Definition) error {
	for _, def := range defs {
		if def == nil {
			continue
		}
		var err error
		if def.kind == KindTrait {
			err = r.RegisterTrait(def)
		} else {
			err = r.RegisterFactory(def)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Factory returns the registered factory named name.
func (r *Registry) Factory(name any) (*Definition, bool) {
	key, ok := canonicalName(name)
	if !ok {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.factories[key]
	return def, ok
}

// ResolveTrait looks name up from scope: the factory's own traits, then its
// ancestors' nearest first, then global traits. A nil or empty scope only
// consults global traits.
func (r *Registry) ResolveTrait(scope any, name any) (*Definition, error) {
	traitName, ok := canonicalName(name)
	if !ok {
		return nil, &NotFoundError{Kind: "trait", Name: describeRef(name)}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var chain []*Definition
	if scopeName, ok := canonicalName(scope); ok {
		factory, found := r.factories[scopeName]
		if !found {
			return nil, &NotFoundError{Kind: "factory", Name: scopeName}
		}
		var err error
		if chain, err = r.ancestry(factory); err != nil {
			return nil, err
		}
	}
	return r.lookupTrait(chain, traitName)
}

// Reset drops every definition and compiled plan.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = map[string]*Definition{}
	r.traits = map[string]*Definition{}
	r.invalidate()
}

// invalidate drops compiled plans. Callers hold r.mu.
func (r *Registry) invalidate() {
	r.plansMu.Lock()
	r.plans = map[planKey]*Plan{}
	r.plansMu.Unlock()
}

// ancestry returns def's factory chain root first. Callers hold r.mu.
func (r *Registry) ancestry(def *Definition) ([]*Definition, error) {
	chain := []*Definition{def}
	seen := map[string]bool{def.name: true}
	path := []string{def.name}
	for current := def; current.parent != ""; {
		parent, ok := r.factories[current.parent]
		if !ok {
			return nil, &NotFoundError{Kind: "factory", Name: current.parent, Scope: current.name}
		}
		path = append(path, parent.name)
		if seen[parent.name] {
			return nil, &TraitCycleError{Kind: "parent", Path: path}
		}
		seen[parent.name] = true
		chain = append(chain, parent)
		current = parent
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// lookupTrait searches the chain's local tables leaf first, then global
// traits. Callers hold r.mu.
func (r *Registry) lookupTrait(chain []*Definition, name string) (*Definition, error) {
	for i := len(chain) - 1; i >= 0; i-- {
		if trait, ok := chain[i].localTraits[name]; ok {
			return trait, nil
		}
	}
	if trait, ok := r.traits[name]; ok {
		return trait, nil
	}
	scope := ""
	if len(chain) > 0 {
		scope = chain[len(chain)-1].name
	}
	return nil, &NotFoundError{Kind: "trait", Name: name, Scope: scope}
}
