package factory

import "context"

var defaultRegistry = New()

// Default returns the process-wide registry used by the package functions.
func Default() *Registry {
	return defaultRegistry
}

// Define registers definitions on the default registry.
func Define(defs ...*Definition) error {
	return defaultRegistry.Define(defs...)
}

// Build runs the build strategy on the default registry.
func Build(ctx context.Context, factory any, args ...any) (any, error) {
	return defaultRegistry.Build(ctx, factory, args...)
}

// Create runs the create strategy on the default registry.
func Create(ctx context.Context, factory any, args ...any) (any, error) {
	return defaultRegistry.Create(ctx, factory, args...)
}

// AttributesFor resolves attributes on the default registry.
func AttributesFor(ctx context.Context, factory any, args ...any) (map[string]any, error) {
	return defaultRegistry.AttributesFor(ctx, factory, args...)
}

// BuildStubbed runs the stub strategy on the default registry.
func BuildStubbed(ctx context.Context, factory any, args ...any) (any, error) {
	return defaultRegistry.BuildStubbed(ctx, factory, args...)
}

// Reset clears the default registry.
func Reset() {
	defaultRegistry.Reset()
}
