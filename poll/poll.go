// Package poll implements bounded waiting for an observed value to satisfy a
// condition. A wait repeatedly invokes a caller-supplied probe, applies a
// predicate to the value the probe returns, and sleeps between attempts until
// the predicate passes, the probe fails, or a wall-clock deadline elapses.
//
// The package offers both a one-shot function (Until) and a reusable Sampler
// interface for waits that share a configuration.
//
// Basic usage:
//
//	status, err := poll.Until(ctx, fetchStatus, isReady)
//
// With custom options:
//
//	status, err := poll.Until(ctx, fetchStatus, isReady,
//	    poll.WithTimeout(30*time.Second),
//	    poll.WithInterval(time.Second),
//	)
//
// A wait ends in exactly one of four ways:
//   - the predicate accepts a probed value: the value is returned immediately,
//     with no trailing sleep
//   - the probe returns an error that is not classified retryable: the error
//     is returned unchanged, with no further attempts
//   - the deadline elapses first: a *TimeoutError is returned carrying the
//     last observed value and the elapsed time
//   - the context ends first: ctx.Err() is returned
//
// At least one probe attempt is always made, even when the timeout is smaller
// than the interval, and the total blocking time never exceeds the timeout by
// more than one interval.
package poll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amp-labs/amp-wait/logger"
	"github.com/amp-labs/amp-wait/spans"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

// Probe queries external state and returns the current observation.
// Probes may fail; whether a failure ends the wait or schedules another
// attempt is decided by the classifier configured via WithRetryable.
type Probe[T any] func(ctx context.Context) (T, error)

// Predicate reports whether an observed value is the awaited terminal state.
type Predicate[T any] func(value T) bool

// Sampler is an interface for waiting on a condition with a fixed
// configuration. A single Sampler can serve many independent waits.
type Sampler[T any] interface {
	Wait(ctx context.Context, probe Probe[T], pred Predicate[T]) (T, error)
}

// NewSampler creates a new Sampler with the specified options.
// If no options are provided, it uses sensible defaults:
//   - 15 second deadline for the whole wait
//   - 2 second fixed interval between attempts, without jitter
//   - every probe error is fatal
//
// Example:
//
//	sampler := poll.NewSampler[int](
//	    poll.WithTimeout(time.Minute),
//	    poll.WithInterval(5 * time.Second),
//	)
//	code, err := sampler.Wait(ctx, probe, func(code int) bool { return code == 200 })
func NewSampler[T any](opts ...Option) Sampler[T] {
	return &samplerImpl[T]{
		opts: newOptions(opts...),
	}
}

// samplerImpl is the concrete implementation of the Sampler interface.
type samplerImpl[T any] struct {
	opts *options
}

// Wait executes probe attempts according to the sampler's configuration until
// the predicate accepts a value, the probe fails fatally, the deadline passes,
// or the context ends. When a tracer is present in the context, the whole wait
// runs inside a span.
func (s *samplerImpl[T]) Wait(ctx context.Context, probe Probe[T], pred Predicate[T]) (T, error) {
	return spans.StartValErr[T](ctx, "wait-for-condition",
		spans.WithAttribute("wait_timeout", attribute.StringValue(s.opts.timeout.String())),
	).Enter(func(ctx context.Context, _ trace.Span) (T, error) {
		return wait(ctx, s.opts, probe, pred)
	})
}

// result carries one probe outcome across the attempt goroutine boundary.
type result[T any] struct {
	value T
	err   error
}

// wait is the core loop. It handles:
//   - attempt tracking via context
//   - per-attempt timeouts and hung-probe abandonment
//   - retryable versus fatal probe errors
//   - interval spacing with optional jitter
//   - context cancellation
//   - the wall-clock deadline and TimeoutError construction
//
// The deadline is checked after each attempt and again after each sleep, so at
// least one probe always runs and no probe starts past the deadline.
//
//nolint:funlen,cyclop
func wait[T any](ctx context.Context, opts *options, probe Probe[T], pred Predicate[T]) (T, error) {
	var zero T

	if probe == nil || pred == nil {
		return zero, fmt.Errorf("%w: probe and predicate must not be nil", ErrInvalidConfig)
	}

	if err := opts.validate(); err != nil {
		return zero, err
	}

	if err := ctx.Err(); err != nil {
		waitCounter.WithLabelValues(outcomeCanceled).Inc()

		return zero, err
	}

	log := logger.Get(ctx)

	var mut sync.Mutex

	running := atomic.NewBool(true)
	defer running.Store(false)

	start := time.Now()
	deadline := start.Add(opts.timeout)

	var (
		attempts  uint
		lastValue any
		lastErr   error
	)

	for attemptIndex := uint(0); ; attemptIndex++ {
		attempts++
		attemptCounter.Inc()

		value, err := runProbe(withAttempt(ctx, attemptIndex), opts, probe, &mut, running)

		switch {
		case err == nil:
			if pred(value) {
				waitCounter.WithLabelValues(outcomeSuccess).Inc()

				return value, nil
			}

			// Remember the rejected value for the timeout report
			lastValue, lastErr = value, nil
		case ctx.Err() != nil:
			waitCounter.WithLabelValues(outcomeCanceled).Inc()

			return zero, ctx.Err()
		case errors.Is(err, ErrAttemptTimeout):
			// A probe abandoned at its own bound stays retryable within the deadline
			lastErr = err
		default:
			var perm *permanentError
			if errors.As(err, &perm) {
				waitCounter.WithLabelValues(outcomeFatal).Inc()

				return zero, perm.error
			}

			if opts.retryable == nil || !opts.retryable(err) {
				waitCounter.WithLabelValues(outcomeFatal).Inc()

				return zero, err
			}

			lastErr = err
		}

		// Deadline check after the attempt, so at least one probe always runs
		if !time.Now().Before(deadline) {
			waitCounter.WithLabelValues(outcomeTimeout).Inc()

			return zero, newTimeoutError(opts.timeout, start, attempts, lastValue, lastErr)
		}

		delay := opts.jitter.jitter(opts.strategy.Next(attemptIndex))

		// Shorten the final sleep so the wait ends at the deadline rather than
		// up to a full interval past it
		if remaining := time.Until(deadline); delay > remaining {
			delay = remaining
		}

		log.Debug("condition not satisfied, sleeping before next attempt",
			"attempt", attemptIndex,
			"delay", delay.String(),
			"elapsed", time.Since(start).String(),
		)

		if err := sleepCtx(ctx, delay); err != nil {
			waitCounter.WithLabelValues(outcomeCanceled).Inc()

			return zero, err
		}

		// Recheck after the sleep; the next probe only starts inside the deadline
		if !time.Now().Before(deadline) {
			waitCounter.WithLabelValues(outcomeTimeout).Inc()

			return zero, newTimeoutError(opts.timeout, start, attempts, lastValue, lastErr)
		}
	}
}

// runProbe invokes the probe once, bounded by the per-attempt timeout when one
// is configured. The probe runs in its own goroutine so the wait can react to
// context cancellation even while the probe is blocked.
func runProbe[T any](
	ctx context.Context,
	opts *options,
	probe Probe[T],
	mut *sync.Mutex,
	running *atomic.Bool,
) (T, error) {
	var zero T

	// New channel per attempt so goroutines from abandoned attempts cannot
	// interfere with later ones
	resChan := make(chan result[T], 1)

	go func(ctx context.Context) {
		defer close(resChan)

		if opts.attemptTimeout != 0 {
			value, err := probeWithTimeout(ctx, probe, opts.attemptTimeout, mut, running)
			resChan <- result[T]{value: value, err: err}
		} else {
			mut.Lock()
			defer mut.Unlock()

			if !running.Load() {
				return
			}

			value, err := probe(ctx)
			resChan <- result[T]{value: value, err: err}
		}
	}(ctx)

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-resChan:
		return res.value, res.err
	}
}

// probeWithTimeout wraps a single probe invocation with a timeout. If the
// probe does not complete within the bound, it is abandoned and the attempt
// reports ErrAttemptTimeout. The mutex serializes probe bodies so an abandoned
// probe can never run concurrently with a later one, and the running flag
// keeps abandoned probes from firing after the wait has returned.
func probeWithTimeout[T any](
	ctx context.Context,
	probe Probe[T],
	timeout time.Duration,
	mut *sync.Mutex,
	running *atomic.Bool,
) (T, error) {
	var zero T

	// Brief lock/unlock provides a memory barrier to ensure visibility of running flag
	mut.Lock()
	mut.Unlock() //nolint:staticcheck

	if !running.Load() {
		return zero, context.Canceled
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resChan := make(chan result[T], 1)

	go func(ctx context.Context) {
		defer close(resChan)

		mut.Lock()
		defer mut.Unlock()

		if !running.Load() {
			return
		}

		value, err := probe(ctx)
		resChan <- result[T]{value: value, err: err}
	}(attemptCtx)

	select {
	case <-attemptCtx.Done():
		// Distinguish the parent context ending from the per-attempt bound firing
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		return zero, fmt.Errorf("%w after %s", ErrAttemptTimeout, timeout)
	case res := <-resChan:
		return res.value, res.err
	}
}

// sleepCtx sleeps for the given duration unless the context ends first, in
// which case it returns ctx.Err(). Non-positive durations return immediately.
func sleepCtx(ctx context.Context, dur time.Duration) error {
	if dur <= 0 {
		return nil
	}

	timer := time.NewTimer(dur)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Until is a convenience function that creates a Sampler and waits for the
// condition in a single call. It uses the default configuration unless options
// are provided.
//
// Example:
//
//	svc, err := poll.Until(ctx, fetchService, isReady,
//	    poll.WithTimeout(15*time.Second),
//	    poll.WithInterval(2*time.Second),
//	)
func Until[T any](ctx context.Context, probe Probe[T], pred Predicate[T], opts ...Option) (T, error) {
	return NewSampler[T](opts...).Wait(ctx, probe, pred)
}
