// Package factory resolves test-data factories into instances.
//
// A factory owns attributes, a parent, statically applied traits, and
// optional constructor, persistor and lifecycle callbacks. Traits are
// mixins with the same shape that can apply other traits. Compile flattens a
// factory and a dynamic trait list into a Plan whose layers are, lowest
// precedence first: for each chain member root to leaf, its static traits and
// then its own declarations, followed by the dynamic traits and inline
// overrides. Traits expand depth first, so the traits a trait applies are
// layered before it.
//
// Attributes are evaluated lazily per call and may read siblings through the
// Evaluation; reading an attribute that is still being computed fails with
// ErrCycleDetected. Trait names are case sensitive, and a string and a
// Symbol with the same text are the same name. Unknown traits fail with
// ErrNotFound wherever they are referenced.
//
//	reg := factory.New()
//	post, _ := factory.NewFactory("post",
//		factory.Value("name", "John"),
//		factory.DefineTrait("admin", factory.Value("admin", true)),
//	)
//	_ = reg.Define(post)
//	instance, err := reg.Build(ctx, "post", factory.Symbol("admin"), factory.Overrides{"name": "Jill"})
package factory
