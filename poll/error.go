package poll

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is the sentinel every *TimeoutError unwraps to. Use
// errors.Is(err, poll.ErrTimeout) to recognize a wait whose deadline elapsed
// before the condition became true.
var ErrTimeout = errors.New("timed out waiting for the condition")

// ErrAttemptTimeout marks a single probe invocation that outlived the bound
// configured via WithAttemptTimeout. The attempt is abandoned and counts as
// retryable; the error surfaces only as the LastErr of a *TimeoutError.
var ErrAttemptTimeout = errors.New("probe attempt timed out")

// ErrInvalidConfig reports a wait configuration rejected before any probe ran.
var ErrInvalidConfig = errors.New("invalid wait configuration")

// TimeoutError reports a wait whose deadline elapsed before the predicate
// accepted a probed value. It is the only expected failure of a wait; probe
// errors that are not classified retryable propagate as themselves instead.
type TimeoutError struct {
	// Timeout is the configured bound for the whole wait.
	Timeout time.Duration
	// Elapsed is the observed wall-clock duration of the wait.
	Elapsed time.Duration
	// Attempts is the number of probe invocations made.
	Attempts uint
	// LastValue is the most recent value the probe returned, or nil when no
	// attempt produced one.
	LastValue any
	// LastErr is the most recent retryable probe error, or nil when the last
	// attempt returned a value.
	LastErr error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("%v after %d attempts in %s (timeout %s)",
		ErrTimeout, e.Attempts, e.Elapsed.Round(time.Millisecond), e.Timeout)

	if e.LastErr != nil {
		msg = fmt.Sprintf("%s: last probe error: %v", msg, e.LastErr)
	}

	return msg
}

// Unwrap returns ErrTimeout so errors.Is works across the wrapper.
func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// newTimeoutError snapshots the state of a timed-out wait.
func newTimeoutError(timeout time.Duration, start time.Time, attempts uint, lastValue any, lastErr error) *TimeoutError {
	return &TimeoutError{
		Timeout:   timeout,
		Elapsed:   time.Since(start),
		Attempts:  attempts,
		LastValue: lastValue,
		LastErr:   lastErr,
	}
}

// permanentError wraps an error to mark it as fatal regardless of the
// configured classifier. This is used internally by the Abort function.
type permanentError struct {
	error
}

// Unwrap returns the underlying error for error chain unwrapping.
func (e *permanentError) Unwrap() error {
	return e.error
}

// Abort wraps an error so the wait ends immediately even when the configured
// classifier would have retried it. Use this from inside a probe once the
// observed state can never satisfy the predicate.
//
// Example:
//
//	obj, err := fetch(ctx)
//	if err != nil {
//	    return nil, err
//	}
//	if obj.Phase == "Failed" {
//	    return nil, poll.Abort(errDeployFailed)
//	}
func Abort(err error) error {
	return &permanentError{err}
}
