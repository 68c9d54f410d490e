package contexts

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// WithMultipleValues attaches multiple key-value pairs to a context at once.
//
// Instead of creating a deep chain of contexts (one per value), it stores all
// values in a single context wrapper, keeping the context tree shallow. Key must
// be comparable so it can be used as a map key.
//
// The function panics if parent is nil or if vals is nil. An empty map is
// allowed and produces a valid (though useless) context.
func WithMultipleValues[Key comparable](parent context.Context, vals map[Key]any) context.Context {
	if parent == nil {
		panic("cannot create context from nil parent")
	}

	if vals == nil {
		panic("nil vals passed to WithMultipleValues")
	}

	return &multiValueCtx[Key]{parent, vals}
}

// multiValueCtx embeds the parent context and adds a map of values. Value()
// checks the local map first, then delegates to the parent.
type multiValueCtx[Key comparable] struct {
	context.Context //nolint:containedctx

	vals map[Key]any
}

// stringify converts a value to a human-readable string for debug output.
func stringify(v any) string {
	switch s := v.(type) {
	case fmt.Stringer:
		return s.String()
	case string:
		return s
	case nil:
		return "<nil>"
	}

	return reflect.TypeOf(v).String()
}

// contextName returns a human-readable name for a context, preferring its own
// String() method when it has one.
func contextName(c context.Context) string {
	if s, ok := c.(fmt.Stringer); ok {
		return s.String()
	}

	return reflect.TypeOf(c).String()
}

// String returns a human-readable representation of the context for debugging,
// in the form parent.WithMultipleValues(key=value, ...). The order of the
// key-value pairs is non-deterministic due to map iteration.
func (c *multiValueCtx[T]) String() string {
	if len(c.vals) == 0 {
		return contextName(c.Context) + ".WithMultipleValues()"
	}

	var builder strings.Builder

	builder.WriteString(contextName(c.Context))
	builder.WriteString(".WithMultipleValues(")

	first := true
	for k, v := range c.vals {
		if !first {
			builder.WriteString(", ")
		}

		first = false

		builder.WriteString(stringify(k))
		builder.WriteString("=")
		builder.WriteString(stringify(v))
	}

	builder.WriteString(")")

	return builder.String()
}

// Value retrieves a value from the context by key. Keys whose dynamic type is
// exactly T are looked up in the local map first; everything else (and local
// misses) is delegated to the parent context. The exact-type check respects the
// context contract and prevents type confusion between packages.
func (c *multiValueCtx[T]) Value(key any) any {
	if c.vals != nil {
		if reflect.TypeOf(key) == reflect.TypeFor[T]() {
			//nolint:forcetypeassert
			typedKey := key.(T) // Safe because we verified the exact type

			v, found := c.vals[typedKey]
			if found {
				return v
			}
		}
	}

	return c.Context.Value(key)
}
