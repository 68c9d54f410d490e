package lazy

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/amp-labs/amp-wait/contexts"
)

// NewCtx creates a lazy value whose create function runs on first access.
// The function receives a context so it can pick up configuration and
// overrides from the call site that triggered initialization.
func NewCtx[T any](f func(ctx context.Context) T) *OfCtx[T] {
	lazy := &OfCtx[T]{}
	lazy.create.Store(&f)

	return lazy
}

// OfCtx is a value initialized at most once, on first Get. Naming the value
// with WithName opens it up to context overrides, which is how tests swap in
// fakes for process-wide singletons like the shared cluster client.
type OfCtx[T any] struct {
	name        contextKey
	create      atomic.Pointer[func(context.Context) T]
	once        atomic.Pointer[sync.Once]
	value       atomic.Pointer[T]
	initialized atomic.Bool
}

// WithName registers the key under which WithValueOverride and
// WithValueOverrideProvider can replace this value. Returns the receiver so
// the call chains off the constructor.
func (t *OfCtx[T]) WithName(name string) *OfCtx[T] {
	t.name = contextKey(name)

	return t
}

// Get returns the value, initializing it on the first call.
//
// For a named value, overrides in ctx win over initialization: a direct value
// set with WithValueOverride first, then a provider function set with
// WithValueOverrideProvider. An override hit leaves the lazy state untouched.
//
// Initialization runs on a lifecycle-stripped context, so the deadline of
// whichever caller happens to arrive first does not poison the shared value.
func (t *OfCtx[T]) Get(ctx context.Context) T { //nolint:ireturn
	if len(t.name) > 0 {
		value, found := contexts.GetValue[contextKey, T](ctx, t.name)
		if found {
			return value
		}

		provider, found := contexts.GetValue[contextKey, func(ctx context.Context) T](ctx, t.name)
		if found && provider != nil {
			return provider(getSafeContext(ctx))
		}
	}

	once := t.once.Load()
	if once == nil {
		fresh := &sync.Once{}
		if !t.once.CompareAndSwap(nil, fresh) {
			fresh = t.once.Load()
		}

		once = fresh
	}

	defer func() {
		if err := recover(); err != nil {
			// A panicking create function must not wedge the value forever.
			t.once.Store(&sync.Once{})

			panic(err)
		}
	}()

	once.Do(func() {
		createFn := t.create.Load()
		if createFn == nil {
			return
		}

		result := (*createFn)(getSafeContext(ctx))
		t.value.Store(&result)
		t.initialized.Store(true)

		// Testing mode keeps the create function around so WithTestLocalCtx
		// can clone it into per-test instances.
		if !isTestingEnabled(ctx) {
			t.create.Store(nil)
		}
	})

	valPtr := t.value.Load()
	if valPtr != nil {
		return *valPtr
	}

	var zero T

	return zero
}

// Set stores the value directly, skipping the create function.
func (t *OfCtx[T]) Set(ctx context.Context, value T) {
	if !isTestingEnabled(ctx) {
		t.create.Store(nil)
	}

	t.value.Store(&value)
	t.initialized.Store(true)
}

// Initialized reports whether the value has been produced. Meant for tests
// and debugging, not for flow control.
func (t *OfCtx[T]) Initialized() bool {
	return t.initialized.Load()
}
