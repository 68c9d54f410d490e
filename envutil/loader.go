package envutil

import (
	"context"
	"fmt"
	"maps"
	"os"
	"strings"
)

// Loader is an isolated, mutable collection of environment variables. It
// never touches the process environment; values are layered in from files,
// os.Environ snapshots, or Set calls, and handed to readers through a
// context built by EnhanceContext.
//
//	loader := envutil.NewLoader()
//	loader.LoadFile(".env")
//	loader.LoadFile(".env.local")
//	ctx := loader.EnhanceContext(ctx)
//	level := envutil.SlogLevel(ctx, "LOG_LEVEL", envutil.Default(slog.LevelInfo))
//
// Later LoadFile and Set calls override earlier values with the same key.
// Loader is not safe for concurrent use.
type Loader struct {
	environment map[string]string
}

// NewLoader returns an empty Loader. It does not snapshot the process
// environment; call LoadEnv for that.
func NewLoader() *Loader {
	return &Loader{
		environment: make(map[string]string),
	}
}

// LoadEnv merges a snapshot of the current process environment into the
// loader, overriding existing keys. Later changes to the process environment
// are not reflected.
func (l *Loader) LoadEnv() {
	for _, line := range os.Environ() {
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		l.environment[parts[0]] = parts[1]
	}
}

// LoadFile reads variables from a file and merges them into the loader,
// overriding existing keys. The format is picked by extension; see
// LoadEnvFile. It returns the number of variables read. On error the
// loader is left unchanged.
func (l *Loader) LoadFile(filename string) (int64, error) {
	env, err := LoadEnvFile(filename)
	if err != nil {
		return 0, err
	}

	num := len(env)

	maps.Copy(l.environment, env)

	return int64(num), nil
}

// Get returns the value for key in the loader. Only the loader's own
// environment is consulted, never the process environment.
func (l *Loader) Get(key string) (string, bool) {
	val, found := l.environment[key]

	return val, found
}

// Set adds or replaces a variable in the loader.
func (l *Loader) Set(key string, value string) {
	l.environment[key] = value
}

// SetAll merges env into the loader, overriding existing keys.
func (l *Loader) SetAll(env map[string]string) {
	for k, v := range env {
		l.Set(k, v)
	}
}

// Delete removes a variable from the loader. Missing keys are a no-op.
func (l *Loader) Delete(key string) {
	delete(l.environment, key)
}

// Clear removes every variable from the loader.
func (l *Loader) Clear() {
	clear(l.environment)
}

// Filter keeps only the variables for which the predicate returns true.
func (l *Loader) Filter(predicate func(key string, value string) (keep bool)) {
	accum := make(map[string]string)

	for key, value := range l.environment {
		if predicate(key, value) {
			accum[key] = value
		}
	}

	l.environment = accum
}

// Contains reports whether key exists in the loader, regardless of value.
func (l *Loader) Contains(key string) bool {
	_, found := l.environment[key]

	return found
}

// Keys returns the variable names in the loader, in no particular order.
func (l *Loader) Keys() []string {
	keys := make([]string, 0, len(l.environment))

	for k := range l.environment {
		keys = append(keys, k)
	}

	return keys
}

// AsMap returns an independent copy of the loader's environment.
func (l *Loader) AsMap() map[string]string {
	return maps.Clone(l.environment)
}

// AsSlice returns the environment as "KEY=VALUE" strings, the format
// expected by exec.Cmd.Env. Order is not guaranteed.
func (l *Loader) AsSlice() []string {
	out := make([]string, 0, len(l.environment))

	for k := range l.environment {
		out = append(out, fmt.Sprintf("%s=%s", k, l.environment[k]))
	}

	return out
}

// EnhanceContext returns a context carrying every loader variable as an
// override. Readers called with that context see the loader's values ahead
// of the process environment, which gives file-based configuration
// precedence without mutating global state.
func (l *Loader) EnhanceContext(ctx context.Context) context.Context {
	env := l.AsMap()

	return WithEnvOverrides(ctx, env)
}
