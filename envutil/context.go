package envutil

import (
	"context"

	"github.com/amp-labs/amp-wait/contexts"
)

type envContextKey string

// WithEnvOverride returns a context in which key reads as value, regardless of
// the process environment. Overrides are scoped to the context, so parallel
// tests can each see their own settings.
func WithEnvOverride(ctx context.Context, key string, value string) context.Context {
	return contexts.WithValue[envContextKey, string](ctx, envContextKey(key), value)
}

// WithEnvOverrides applies every entry of env as a context override. It is the
// bulk form of WithEnvOverride, used by Loader.EnhanceContext.
func WithEnvOverrides(ctx context.Context, env map[string]string) context.Context {
	for key, value := range env {
		ctx = WithEnvOverride(ctx, key, value)
	}

	return ctx
}

func getEnvOverride(ctx context.Context, key string) (string, bool) {
	return contexts.GetValue[envContextKey, string](ctx, envContextKey(key))
}
