package contexts

import (
	"context"
	"time"
)

// WithIgnoreLifecycle returns a context that keeps the values of ctx but sheds
// its lifecycle: the result has no deadline, is never done, and never reports
// an error, regardless of what happens to ctx afterwards.
//
// Lazily initialized shared resources are the main consumer. A cluster client
// constructed during the first wait operation must not die with that wait's
// deadline, so its constructor runs on a lifecycle-stripped context while
// still seeing the values (overrides, logger configuration) attached upstream.
//
// The caller takes over responsibility for bounding the work; nothing
// downstream of the returned context will observe a cancellation.
//
// A nil ctx returns nil.
func WithIgnoreLifecycle(ctx context.Context) context.Context {
	if ctx == nil {
		return nil
	}

	return valuesOnlyContext{inner: ctx}
}

// never is shared by every valuesOnlyContext and is never closed.
var never = make(chan struct{})

// valuesOnlyContext forwards Value lookups to the wrapped context and reports
// an empty lifecycle for everything else.
type valuesOnlyContext struct {
	inner context.Context //nolint:containedctx // the wrapper reinterprets the inner lifecycle
}

func (valuesOnlyContext) Deadline() (time.Time, bool) {
	return time.Time{}, false
}

func (valuesOnlyContext) Done() <-chan struct{} {
	return never
}

func (valuesOnlyContext) Err() error {
	return nil
}

func (c valuesOnlyContext) Value(key any) any {
	return c.inner.Value(key)
}

var _ context.Context = valuesOnlyContext{}
