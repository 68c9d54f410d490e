// Package envutil reads configuration from environment variables through a
// small Reader abstraction that carries presence, parse errors, defaults, and
// transformations. Values can be overridden per-context, which keeps tests
// hermetic without mutating the process environment.
package envutil

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// get returns a Reader for the given environment variable key. A context
// override (see WithEnvOverride) takes precedence over the process environment.
// Every lookup is reported to the read recorder, tagged with its source.
func get(ctx context.Context, key string) Reader[string] {
	if val, ok := getEnvOverride(ctx, key); ok {
		recordRead(key, val, true, Context)

		return Reader[string]{
			key:     key,
			present: true,
			value:   val,
		}
	}

	val, ok := os.LookupEnv(key)

	source := Environment
	if !ok {
		source = None
	}

	recordRead(key, val, ok, source)

	return Reader[string]{
		key:     key,
		present: ok,
		value:   val,
	}
}

// NewReader returns a Reader for the given raw data. If you feel like
// you want to branch out from using the environment variables directly,
// this will provide the same functionality - except you need to provide
// the initial values yourself.
func NewReader[T any](key string, present bool, err error, value T) Reader[T] {
	return Reader[T]{
		key:     key,
		present: present,
		value:   value,
		err:     err,
	}
}

// NoValue returns a Reader that has no value.
func NoValue[T any]() Reader[T] {
	return Reader[T]{
		key:     "",
		present: false,
	}
}

// String returns a Reader for the given environment variable key.
func String(ctx context.Context, key string, opts ...Option[string]) Reader[string] {
	rdr := get(ctx, key)
	for _, opt := range opts {
		rdr = opt(rdr)
	}

	return rdr
}

// Bool returns a Reader for the given environment variable key, parsed
// with strconv.ParseBool ("1", "t", "true", "0", "f", "false", ...).
func Bool(ctx context.Context, key string, opts ...Option[bool]) Reader[bool] {
	rdr := Map(get(ctx, key), func(s string) (bool, error) {
		return strconv.ParseBool(strings.TrimSpace(s))
	})
	for _, opt := range opts {
		rdr = opt(rdr)
	}

	return rdr
}

// Int returns a Reader for the given environment variable key, parsed as
// a base-10 integer.
func Int(ctx context.Context, key string, opts ...Option[int]) Reader[int] {
	rdr := Map(get(ctx, key), func(s string) (int, error) {
		return strconv.Atoi(strings.TrimSpace(s))
	})
	for _, opt := range opts {
		rdr = opt(rdr)
	}

	return rdr
}

// Duration returns a Reader for the given environment variable key, parsed
// with time.ParseDuration ("15s", "2m30s", ...).
func Duration(ctx context.Context, key string, opts ...Option[time.Duration]) Reader[time.Duration] {
	rdr := Map(get(ctx, key), func(s string) (time.Duration, error) {
		return time.ParseDuration(strings.TrimSpace(s))
	})
	for _, opt := range opts {
		rdr = opt(rdr)
	}

	return rdr
}

// SlogLevel returns a Reader for the given environment variable key, parsed
// as a slog level name ("debug", "info", "warn", "error", case-insensitive,
// offsets like "info+2" included).
func SlogLevel(ctx context.Context, key string, opts ...Option[slog.Level]) Reader[slog.Level] {
	rdr := Map(get(ctx, key), func(s string) (slog.Level, error) {
		var level slog.Level

		err := level.UnmarshalText([]byte(strings.TrimSpace(s)))

		return level, err
	})
	for _, opt := range opts {
		rdr = opt(rdr)
	}

	return rdr
}
