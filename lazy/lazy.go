// Package lazy provides values that are computed at most once, on first use.
// The context-aware variants support per-context overrides so tests can
// substitute shared singletons without touching global state.
package lazy

import (
	"sync"
	"sync/atomic"
)

// New creates a lazy value. The callback runs on first Get.
func New[T any](f func() T) *Of[T] {
	return &Of[T]{create: f}
}

// Of is a value computed at most once. Use NewCtx when the computation needs
// a context.
type Of[T any] struct {
	create      func() T
	once        sync.Once
	value       T
	initialized atomic.Bool
}

// Get returns the value, computing it on the first call.
func (t *Of[T]) Get() T { //nolint:ireturn
	defer func() {
		if err := recover(); err != nil {
			// Let a later Get retry after a panicking create function.
			t.once = sync.Once{}

			panic(err)
		}
	}()

	t.once.Do(func() {
		if t.create != nil {
			t.value = t.create()
			t.initialized.Store(true)
			t.create = nil
		}
	})

	return t.value
}

// Set stores the value directly, skipping the create function.
func (t *Of[T]) Set(value T) {
	t.create = nil
	t.value = value
	t.initialized.Store(true)
}

// Initialized reports whether the value has been produced. Meant for tests
// and debugging, not for flow control.
func (t *Of[T]) Initialized() bool {
	return t.initialized.Load()
}
