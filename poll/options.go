package poll

import (
	"fmt"
	"time"
)

const (
	// DefaultTimeout bounds a wait when WithTimeout is not given.
	DefaultTimeout = 15 * time.Second

	// DefaultInterval spaces attempts when WithInterval is not given.
	DefaultInterval = 2 * time.Second
)

// Option is a function that configures a Sampler.
// Options follow the functional options pattern for flexible configuration.
type Option func(*options)

// options holds the internal configuration for a wait.
type options struct {
	timeout        time.Duration    // Deadline for the whole wait
	interval       time.Duration    // Base spacing between attempts
	strategy       Interval         // Strategy for computing the delay after each attempt
	jitter         Jitter           // Jitter strategy for randomizing delays
	attemptTimeout time.Duration    // Bound for a single probe invocation, 0 means unbounded
	retryable      func(error) bool // Classifier deciding whether a probe error schedules a retry
}

// newOptions builds the configuration for a wait, applying defaults first and
// the given options on top. A nil strategy falls back to a fixed interval.
func newOptions(opts ...Option) *options {
	intOpts := &options{
		timeout:  DefaultTimeout,
		interval: DefaultInterval,
		jitter:   WithoutJitter,
	}

	for _, option := range opts {
		if option != nil {
			option(intOpts)
		}
	}

	if intOpts.strategy == nil {
		intOpts.strategy = FixedInterval(intOpts.interval)
	}

	return intOpts
}

// validate rejects configurations that cannot bound a wait. It runs before the
// first attempt so a bad configuration never probes.
func (o *options) validate() error {
	if o.timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidConfig, o.timeout)
	}

	if o.interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidConfig, o.interval)
	}

	if o.attemptTimeout < 0 {
		return fmt.Errorf("%w: attempt timeout must not be negative, got %s", ErrInvalidConfig, o.attemptTimeout)
	}

	return nil
}

// WithTimeout configures the deadline for the whole wait. Once the deadline
// passes, the wait reports a *TimeoutError instead of probing further.
//
// Example:
//
//	sampler := poll.NewSampler[string](poll.WithTimeout(time.Minute))
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

// WithInterval configures a fixed delay between attempts. Use WithStrategy for
// non-fixed spacing; when both are given, the strategy wins.
//
// Example:
//
//	sampler := poll.NewSampler[string](poll.WithInterval(5 * time.Second))
func WithInterval(interval time.Duration) Option {
	return func(o *options) {
		o.interval = interval
	}
}

// WithStrategy configures the strategy for computing the delay between
// attempts, replacing the fixed interval.
//
// Example:
//
//	strategy := poll.ExpInterval{
//	    Base:   time.Second,
//	    Max:    30 * time.Second,
//	    Factor: 2.0,
//	}
//	sampler := poll.NewSampler[string](poll.WithStrategy(strategy))
func WithStrategy(strategy Interval) Option {
	return func(o *options) {
		o.strategy = strategy
	}
}

// WithJitter configures the jitter strategy for randomizing delays between
// attempts. Waits use exact delays unless told otherwise.
//
// Example:
//
//	sampler := poll.NewSampler[string](poll.WithJitter(poll.EqualJitter))
func WithJitter(jitter Jitter) Option {
	return func(o *options) {
		o.jitter = jitter
	}
}

// WithAttemptTimeout bounds each individual probe invocation. A probe that
// exceeds the bound is abandoned and the attempt counts as retryable; the
// overall deadline still applies.
//
// Example:
//
//	sampler := poll.NewSampler[string](poll.WithAttemptTimeout(3 * time.Second))
func WithAttemptTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.attemptTimeout = timeout
	}
}

// WithRetryable installs a classifier deciding whether a probe error schedules
// another attempt instead of ending the wait. Without a classifier, every
// probe error is fatal and propagates unchanged.
//
// Example:
//
//	sampler := poll.NewSampler[*corev1.Pod](
//	    poll.WithRetryable(apierrors.IsNotFound),
//	)
func WithRetryable(classify func(error) bool) Option {
	return func(o *options) {
		o.retryable = classify
	}
}
