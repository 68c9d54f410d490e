//nolint:ireturn
package envutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

var (
	ErrBadEnvVar     = errors.New("error parsing environment variable")
	ErrEnvVarMissing = errors.New("missing environment variable")
)

// Reader carries the outcome of a single environment variable lookup: the
// parsed value, whether the variable was set at all, and any parse error.
// Accessor methods let the call site decide how strict to be about missing or
// malformed values, and combinators chain lookups without intermediate error
// handling.
type Reader[A any] struct {
	key     string
	present bool
	err     error

	value A
}

// Key returns the name of the environment variable this Reader read.
func (r Reader[A]) Key() string {
	return r.key
}

// Value returns the parsed value. A missing variable yields ErrEnvVarMissing
// and a malformed one yields ErrBadEnvVar, both naming the variable.
func (r Reader[A]) Value() (A, error) { //nolint:ireturn
	if r.err != nil {
		return r.value, fmt.Errorf("%w %s: %w (given value is %v)", ErrBadEnvVar, r.key, r.err, r.value)
	}

	if !r.present {
		return r.value, fmt.Errorf("%w %s", ErrEnvVarMissing, r.key)
	}

	return r.value, nil
}

// ValueOrFatal returns the value or exits the process. Meant for startup
// configuration the program cannot run without.
func (r Reader[A]) ValueOrFatal() A { //nolint:ireturn
	value, err := r.Value()
	if err != nil {
		slog.Error("cannot read environment variable", "key", r.key, "error", err)
		os.Exit(1)
	}

	return value
}

// ValueOrElse returns the value, or v when the variable is unset or could not
// be parsed. A parse failure is logged before the fallback takes over.
func (r Reader[A]) ValueOrElse(v A) A { //nolint:ireturn
	if r.present && r.err == nil {
		return r.value
	}

	if r.err != nil {
		slog.Warn("ignoring malformed environment variable",
			"key", r.key, "value", r.value, "error", r.err, "fallback", v)
	}

	return v
}

// ValueOrElseFunc is ValueOrElse with a lazily computed fallback, for
// fallbacks that are expensive to build.
func (r Reader[A]) ValueOrElseFunc(f func() A) A { //nolint:ireturn
	if r.present && r.err == nil {
		return r.value
	}

	return f()
}

// HasValue reports whether the variable was set and parsed cleanly.
func (r Reader[A]) HasValue() bool {
	return r.present && r.err == nil
}

// HasError reports whether the lookup or a later transform failed.
func (r Reader[A]) HasError() bool {
	return r.err != nil
}

// Error returns the lookup or transform error, nil when everything succeeded.
func (r Reader[A]) Error() error {
	return r.err
}

// String renders the lookup as KEY=value, KEY=<error: ...>, or KEY=<not set>.
func (r Reader[A]) String() string {
	switch {
	case r.err != nil:
		return fmt.Sprintf("%s=<error: %v>", r.key, r.err)
	case r.present:
		return fmt.Sprintf("%s=%v", r.key, r.value)
	default:
		return r.key + "=<not set>"
	}
}

// WithDefault fills in v when the variable was unset. A Reader that already
// holds a value keeps it, and any attached error stays.
func (r Reader[A]) WithDefault(v A) Reader[A] { //nolint:ireturn
	if r.present {
		return r
	}

	return Reader[A]{
		key:     r.key,
		present: true,
		err:     r.err,
		value:   v,
	}
}

// WithFallback replaces an unset Reader with v, typically the lookup of an
// alternate variable name.
func (r Reader[A]) WithFallback(v Reader[A]) Reader[A] { //nolint:ireturn
	if r.present {
		return r
	}

	return v
}

// WithErrorIfMissing turns the unset state into err, so Value reports a
// domain-specific error instead of the generic ErrEnvVarMissing. Readers that
// hold a value or an earlier error pass through unchanged.
func (r Reader[A]) WithErrorIfMissing(err error) Reader[A] { //nolint:ireturn
	if r.present || r.err != nil {
		return r
	}

	return Reader[A]{
		key: r.key,
		err: err,
	}
}

// Map transforms the value with f, keeping the type. The package-level Map
// can also change it.
func (r Reader[A]) Map(f func(A) (A, error)) Reader[A] { //nolint:ireturn
	return Map(r, f)
}

// Map applies f to the value of env, producing a Reader of the transformed
// type. Unset readers and failed lookups pass through with f never called.
func Map[A any, B any](env Reader[A], f func(A) (B, error)) Reader[B] {
	if !env.present || env.err != nil {
		return Reader[B]{
			key:     env.key,
			present: env.present,
			err:     env.err,
		}
	}

	val, err := f(env.value)

	return Reader[B]{
		key:     env.key,
		present: true,
		err:     err,
		value:   val,
	}
}
