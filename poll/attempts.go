package poll

import "context"

// ctxKey is the type for context keys used internally to avoid collisions.
type ctxKey string

// attemptKey is the context key used to store and retrieve the current attempt number.
const attemptKey ctxKey = "attempt"

// withAttempt adds the attempt number to the context. This lets the probe know
// which attempt it is serving.
func withAttempt(ctx context.Context, attempt uint) context.Context {
	return context.WithValue(ctx, attemptKey, attempt)
}

// Attempt retrieves the current attempt number from the context.
// Attempts are zero-indexed; 0 is also returned when the context holds no
// attempt number, i.e. outside a wait.
//
// Example:
//
//	value, err := poll.Until(ctx, func(ctx context.Context) (string, error) {
//	    log.Printf("probe %d", poll.Attempt(ctx))
//	    return fetchState(ctx)
//	}, isDone)
func Attempt(ctx context.Context) uint {
	i := ctx.Value(attemptKey)
	if i == nil {
		return 0
	}

	attemptNum, ok := i.(uint)
	if !ok {
		return 0
	}

	return attemptNum
}
