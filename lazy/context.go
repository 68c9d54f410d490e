package lazy

// This file holds the context-based override mechanism for named lazy values.
// Overrides enable dependency injection in tests: a named value can be
// replaced with a static value, a provider function, or an error-returning
// provider, scoped to a context.

import (
	"context"

	"github.com/amp-labs/amp-wait/contexts"
	"github.com/google/uuid"
)

// contextKey is used to store lazy value overrides in context.
type contextKey string

// testKey is used to enable testing mode, which preserves create functions
// so that WithTestLocalCtx and WithTestLocalCtxErr can work correctly.
type testKey string

type preserveLifetimeKey string

// WithTestLocalCtx creates a test-local instance of a lazy value that shares
// the same initialization function but maintains separate state. The global
// value is left untouched; the returned key and getter are meant to be
// installed as a provider override via WithValueOverrideProvider.
//
// Panics if the lazy value's create function is nil.
func WithTestLocalCtx[T any](lazyValue *OfCtx[T]) (string, func(ctx context.Context) T) {
	createFn := lazyValue.create.Load()
	if createFn == nil || *createFn == nil {
		panic("createFn cannot be nil")
	}

	name := lazyValue.name
	if len(name) == 0 {
		name = contextKey(uuid.New().String())

		lazyValue.name = name
	}

	testLocalLazyValue := NewCtx[T](*createFn)

	return string(name), func(ctx context.Context) T {
		return testLocalLazyValue.Get(ctx)
	}
}

// WithTestLocalCtxErr is WithTestLocalCtx for error-returning lazy values.
//
// Panics if the lazy value's create function is nil.
func WithTestLocalCtxErr[T any](lazyValue *OfCtxErr[T]) (string, func(ctx context.Context) (T, error)) {
	createFn := lazyValue.create.Load()
	if createFn == nil || *createFn == nil {
		panic("createFn cannot be nil")
	}

	name := lazyValue.name
	if len(name) == 0 {
		name = contextKey(uuid.New().String())

		lazyValue.name = name
	}

	testLocalLazyValue := NewCtxErr[T](*createFn)

	return string(name), func(ctx context.Context) (T, error) {
		return testLocalLazyValue.Get(ctx)
	}
}

// WithTestingEnabled enables or disables testing mode in the context. In
// testing mode lazy values preserve their create functions after
// initialization, so WithTestLocalCtx can clone them later. Outside testing
// mode create functions are cleared to free memory.
func WithTestingEnabled(ctx context.Context, enabled bool) context.Context {
	return contexts.WithValue[testKey, bool](ctx, "testing-enabled", enabled)
}

// WithLifecyclePreserved controls whether the context lifecycle is preserved
// when passed to lazy initialization functions. By default the context is
// wrapped to ignore cancellation, so a dying request context cannot poison a
// long-lived lazy value. Enable preservation when initialization should be
// cancellable.
func WithLifecyclePreserved(ctx context.Context, preserveLifecycle bool) context.Context {
	return contexts.WithValue[preserveLifetimeKey, bool](ctx, "lifecycle-preserved", preserveLifecycle)
}

// WithValueOverride stores a value in the context that overrides the named
// lazy value. A lazy value whose WithName matches key returns this value from
// Get instead of initializing.
func WithValueOverride[T any](ctx context.Context, key string, value T) context.Context {
	return contexts.WithValue[contextKey, T](ctx, contextKey(key), value)
}

// WithValueOverrideProvider stores a provider function in the context that
// overrides the named lazy value. The provider is invoked on every Get, which
// allows the override to depend on the calling context.
func WithValueOverrideProvider[T any](
	ctx context.Context, key string, provider func(ctx context.Context) T,
) context.Context {
	return contexts.WithValue[contextKey, func(ctx context.Context) T](ctx, contextKey(key), provider)
}

// WithValueOverrideErrorProvider is WithValueOverrideProvider for providers
// that can fail. It pairs with OfCtxErr values.
func WithValueOverrideErrorProvider[T any](
	ctx context.Context, key string, provider func(ctx context.Context) (T, error),
) context.Context {
	return contexts.WithValue[contextKey, func(ctx context.Context) (T, error)](ctx, contextKey(key), provider)
}

// WithMultipleValues stores several overrides at once. Values may be static
// values, provider functions, or error-returning provider functions; each key
// should match a name assigned via WithName.
func WithMultipleValues(ctx context.Context, values map[string]any) context.Context {
	vals := make(map[contextKey]any, len(values))

	for k, v := range values {
		vals[contextKey(k)] = v
	}

	return contexts.WithMultipleValues(ctx, vals)
}

// isTestingEnabled checks if testing mode is enabled in the context.
func isTestingEnabled(ctx context.Context) bool {
	value, found := contexts.GetValue[testKey, bool](ctx, "testing-enabled")

	return found && value
}

// isLifecyclePreserved checks if context lifecycle preservation is enabled.
func isLifecyclePreserved(ctx context.Context) bool {
	value, found := contexts.GetValue[preserveLifetimeKey, bool](ctx, "lifecycle-preserved")

	return found && value
}

// getSafeContext prepares a context for lazy initialization: values carry
// over, cancellation does not, unless WithLifecyclePreserved says otherwise.
func getSafeContext(ctx context.Context) context.Context {
	if isLifecyclePreserved(ctx) {
		return contexts.EnsureContext(ctx)
	}

	return contexts.EnsureContext(contexts.WithIgnoreLifecycle(ctx))
}
