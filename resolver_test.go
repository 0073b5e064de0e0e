package factory

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
)

func precedenceRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := New()
	mustDefine(t, reg,
		mustTrait(t, "t1", Value("x", "t1")),
		mustTrait(t, "t2", Value("x", "t2")),
		mustTrait(t, "dyn", Value("x", "dyn")),
		mustFactory(t, "base",
			Value("x", "base"),
			Value("y", "base"),
			DefineTrait("base_trait", Value("x", "base_trait"), Value("z", "base_trait")),
			Traits("base_trait"),
		),
		mustFactory(t, "child", Parent("base"),
			Value("x", "child"),
			DefineTrait("child_trait", Value("x", "child_trait")),
			Traits("child_trait"),
		),
		mustFactory(t, "plain", Value("x", "plain"), Value("y", "plain")),
	)
	return reg
}

func TestLayerPrecedence(t *testing.T) {
	reg := precedenceRegistry(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		factory string
		args    []any
		want    map[string]any
	}{
		{name: "own attributes", factory: "plain", want: map[string]any{"x": "plain", "y": "plain"}},
		{name: "own attribute beats static trait", factory: "base", want: map[string]any{"x": "base", "y": "base", "z": "base_trait"}},
		{name: "child attribute beats every static trait", factory: "child", want: map[string]any{"x": "child", "y": "base", "z": "base_trait"}},
		{name: "last applied wins", factory: "plain", args: []any{"t1", "t2"}, want: map[string]any{"x": "t2"}},
		{name: "reversed order", factory: "plain", args: []any{"t2", "t1"}, want: map[string]any{"x": "t1"}},
		{name: "dynamic beats static at any depth", factory: "child", args: []any{"dyn"}, want: map[string]any{"x": "dyn"}},
		{name: "dynamic ancestor trait", factory: "child", args: []any{"base_trait"}, want: map[string]any{"x": "base_trait"}},
		{name: "override beats dynamic", factory: "child", args: []any{"dyn", Overrides{"x": "inline"}}, want: map[string]any{"x": "inline"}},
		{name: "later override map wins", factory: "plain", args: []any{map[string]any{"x": "a"}, Overrides{"x": "b"}}, want: map[string]any{"x": "b"}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			record := mustRecord(t)(reg.Build(ctx, tc.factory, tc.args...))
			for key, want := range tc.want {
				if got := record.Get(key); got != want {
					t.Fatalf("%s: expected %v, got %v", key, want, got)
				}
			}
		})
	}
}

func TestPlanLayersOrder(t *testing.T) {
	reg := New()
	mustDefine(t, reg,
		mustTrait(t, "leaf"),
		mustTrait(t, "inner", Traits("leaf")),
		mustTrait(t, "outer", Traits("inner")),
		mustTrait(t, "dyn", Traits("leaf")),
		mustFactory(t, "root", Traits("outer")),
		mustFactory(t, "mid", Parent("root")),
		mustFactory(t, "tip", Parent("mid"), Traits("leaf")),
	)

	plan, err := reg.Compile("tip", "dyn")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var got []string
	for _, layer := range plan.Layers() {
		got = append(got, layer.Kind.String()+":"+layer.Name)
	}
	want := []string{
		"trait:leaf", "trait:inner", "trait:outer", "factory:root",
		"factory:mid",
		"trait:leaf", "factory:tip",
		"dynamic_trait:leaf", "dynamic_trait:dyn",
	}
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected layers\n got: %v\nwant: %v", got, want)
	}

	derived := plan.Override(Overrides{"x": 1})
	layers := derived.Layers()
	if last := layers[len(layers)-1]; last.Kind != LayerOverride {
		t.Fatalf("expected override layer last, got %v", last.Kind)
	}
	if len(plan.Layers()) != len(want) {
		t.Fatalf("expected base plan untouched")
	}
}

func TestCompileMemoisation(t *testing.T) {
	reg := precedenceRegistry(t)

	base, err := reg.Compile("child")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	again, err := reg.Compile(Symbol("child"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if base != again {
		t.Fatalf("expected cached plan for identical key")
	}

	dynamic, err := reg.Compile("child", "dyn")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if dynamic == base {
		t.Fatalf("expected distinct plan for dynamic traits")
	}
	symbolic, err := reg.Compile("child", Symbol("dyn"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if symbolic != dynamic {
		t.Fatalf("expected symbol and string traits to share a plan")
	}
	reordered, err := reg.Compile("child", "t1", "t2")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	swapped, err := reg.Compile("child", "t2", "t1")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if reordered == swapped {
		t.Fatalf("expected trait order to be part of the key")
	}
	if len(base.Layers()) != 4 || len(base.Traits()) != 0 {
		t.Fatalf("expected base plan unaffected by dynamic compiles, got %d layers", len(base.Layers()))
	}
}

func TestFirstCallWithDynamicTraits(t *testing.T) {
	reg := New()
	mustDefine(t, reg,
		mustFactory(t, "user", Value("name", "John"), Value("age", 18),
			DefineTrait("admin", Value("admin", true)),
		),
		mustFactory(t, "female_user", Parent("user"), Value("gender", "Female")),
	)
	ctx := context.Background()

	first := mustRecord(t)(reg.Create(ctx, "female_user", Symbol("admin"), Overrides{"age": 30}))
	if first.Get("admin") != true || first.Get("age") != 30 || first.Get("gender") != "Female" {
		t.Fatalf("unexpected first build %v", first.Map())
	}

	plain := mustRecord(t)(reg.Build(ctx, "female_user"))
	if _, ok := plain.Lookup("admin"); ok {
		t.Fatalf("expected dynamic trait to leave the base plan untouched, got %v", plain.Map())
	}
	if plain.Get("age") != 18 {
		t.Fatalf("expected overrides not cached, got %v", plain.Get("age"))
	}
}

func TestUnknownTraitsFailEverywhere(t *testing.T) {
	reg := New()
	mustDefine(t, reg,
		mustTrait(t, "broken", Traits("missing_nested")),
		mustFactory(t, "static", Traits("missing_static")),
		mustFactory(t, "nested", Traits("broken")),
		mustFactory(t, "ok", DefineTrait("admin")),
	)
	ctx := context.Background()

	cases := []struct {
		name    string
		factory any
		args    []any
		missing string
	}{
		{name: "static", factory: "static", missing: "missing_static"},
		{name: "nested", factory: "nested", missing: "missing_nested"},
		{name: "dynamic", factory: "ok", args: []any{"missing_dynamic"}, missing: "missing_dynamic"},
		{name: "dynamic nested", factory: "ok", args: []any{"broken"}, missing: "missing_nested"},
		{name: "case sensitive", factory: "ok", args: []any{"Admin"}, missing: "Admin"},
		{name: "non name", factory: "ok", args: []any{42}, missing: "42"},
		{name: "empty name", factory: "ok", args: []any{Symbol("")}, missing: ""},
		{name: "unknown factory", factory: "ghost", missing: "ghost"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := reg.Build(ctx, tc.factory, tc.args...)
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			var notFound *NotFoundError
			if !errors.As(err, &notFound) {
				t.Fatalf("expected NotFoundError, got %T", err)
			}
			if !strings.HasPrefix(notFound.Name, tc.missing) {
				t.Fatalf("expected %q in error, got %q", tc.missing, notFound.Name)
			}
		})
	}
}

func TestTraitAndParentCycles(t *testing.T) {
	reg := New()
	mustDefine(t, reg,
		mustTrait(t, "a", Traits("b")),
		mustTrait(t, "b", Traits("a")),
		mustTrait(t, "self", Traits(Symbol("self"))),
		mustFactory(t, "user"),
		mustFactory(t, "x", Parent("y")),
		mustFactory(t, "y", Parent("x")),
	)

	_, err := reg.Compile("user", "a")
	var cycle *TraitCycleError
	if !errors.As(err, &cycle) || !errors.Is(err, ErrTraitCycle) {
		t.Fatalf("expected trait cycle, got %v", err)
	}
	if !slices.Equal(cycle.Path, []string{"a", "b", "a"}) {
		t.Fatalf("unexpected cycle path %v", cycle.Path)
	}
	if _, err := reg.Compile("user", "self"); !errors.Is(err, ErrTraitCycle) {
		t.Fatalf("expected self inclusion cycle, got %v", err)
	}
	_, err = reg.Compile("x")
	if !errors.As(err, &cycle) || cycle.Kind != "parent" {
		t.Fatalf("expected parent cycle, got %v", err)
	}
	if _, err := reg.Compile("user", "a"); !errors.Is(err, ErrTraitCycle) {
		t.Fatalf("expected failures not to be cached as plans, got %v", err)
	}
}

func TestDiamondInclusionIsNotACycle(t *testing.T) {
	reg := New()
	mustDefine(t, reg,
		mustTrait(t, "common", Value("common", true)),
		mustTrait(t, "left", Traits("common")),
		mustTrait(t, "right", Traits("common")),
		mustFactory(t, "user", Traits("left", "right")),
	)
	record := mustRecord(t)(reg.Build(context.Background(), "user"))
	if record.Get("common") != true {
		t.Fatalf("expected shared trait applied")
	}
}

func TestCallbacksAccumulateOnceInLayerOrder(t *testing.T) {
	var calls []string
	track := func(label string) CallbackFunc {
		return func(context.Context, any, *Evaluation) error {
			calls = append(calls, label)
			return nil
		}
	}

	reg := New()
	mustDefine(t, reg,
		mustTrait(t, "shared", AfterBuild(track("shared"))),
		mustTrait(t, "bundle", Traits("shared"), AfterBuild(track("bundle"))),
		mustTrait(t, "dyn", AfterBuild(track("dyn"))),
		mustFactory(t, "parent", AfterBuild(track("parent"))),
		mustFactory(t, "child", Parent("parent"), Traits("bundle", "shared"), AfterBuild(track("child"))),
	)

	plan, err := reg.Compile("child", "dyn", "shared")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if owners := plan.Callbacks(AfterBuildEvent); !slices.Equal(owners, []string{"parent", "shared", "bundle", "child", "dyn"}) {
		t.Fatalf("unexpected callback owners %v", owners)
	}

	if _, err := reg.Build(context.Background(), "child", "dyn", "shared"); err != nil {
		t.Fatalf("build: %v", err)
	}
	if !slices.Equal(calls, []string{"parent", "shared", "bundle", "child", "dyn"}) {
		t.Fatalf("unexpected callback order %v", calls)
	}
}

func TestConstructorAndPersistorSelection(t *testing.T) {
	constructor := func(label string) Constructor {
		return func(context.Context, *Snapshot) (any, error) {
			record := NewRecord("user")
			record.Set("built_by", label)
			return record, nil
		}
	}
	var saved []string
	persistor := func(label string) Persistor {
		return func(context.Context, any) error {
			saved = append(saved, label)
			return nil
		}
	}

	reg := New()
	mustDefine(t, reg,
		mustTrait(t, "custom", InitializeWith(constructor("trait")), ToCreate(persistor("trait"))),
		mustTrait(t, "later", Value("later", true)),
		mustFactory(t, "parent", InitializeWith(constructor("parent")), ToCreate(persistor("parent"))),
		mustFactory(t, "user", Parent("parent")),
	)
	ctx := context.Background()

	plan, err := reg.Compile("user")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if origin, ok := plan.ConstructorOrigin(); !ok || origin.Name != "parent" {
		t.Fatalf("expected inherited constructor, got %+v", origin)
	}

	plan, err = reg.Compile("user", "custom", "later")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if origin, ok := plan.PersistorOrigin(); !ok || origin.Name != "custom" {
		t.Fatalf("expected trait persistor to win, got %+v", origin)
	}

	record := mustRecord(t)(reg.Create(ctx, "user", "custom", "later"))
	if record.Get("built_by") != "trait" || record.Get("later") != true {
		t.Fatalf("unexpected record %v", record.Map())
	}

	record = mustRecord(t)(reg.Create(ctx, "user", "custom",
		Constructor(constructor("inline")),
		Persistor(persistor("inline")),
	))
	if record.Get("built_by") != "inline" {
		t.Fatalf("expected inline constructor to win, got %v", record.Get("built_by"))
	}
	if !slices.Equal(saved, []string{"trait", "inline"}) {
		t.Fatalf("unexpected persistors %v", saved)
	}

	plain, err := New().Compile("missing")
	if err == nil || plain != nil {
		t.Fatalf("expected unknown factory to fail")
	}
}

func benchmarkRegistry(b *testing.B) *Registry {
	b.Helper()
	reg := New()
	person, _ := NewFactory("person", Value("name", "Ada"), Traits("named"))
	user, _ := NewFactory("user", Parent("person"),
		Dynamic("email", func(e *Evaluation) (any, error) {
			name, err := e.Get("name")
			if err != nil {
				return nil, err
			}
			return name.(string) + "@example.com", nil
		}),
		DefineTrait("admin", Value("admin", true)),
	)
	named, _ := NewTrait("named", Value("nickname", "ada"))
	if err := reg.Define(person, user, named); err != nil {
		b.Fatalf("define: %v", err)
	}
	return reg
}

func BenchmarkCompileCached(b *testing.B) {
	reg := benchmarkRegistry(b)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := reg.Compile("user", "admin"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBuildWithOverrides(b *testing.B) {
	reg := benchmarkRegistry(b)
	ctx := context.Background()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := reg.Build(ctx, "user", "admin", Overrides{"name": "Grace"}); err != nil {
			b.Fatal(err)
		}
	}
}
