// Package waitfor implements the common waits over cluster objects: readiness
// conditions, arbitrary field values, and deletion. It ties cluster probes,
// condition predicates and the poll loop together, adding per-wait logging,
// operation ids and declarative wait specs.
package waitfor

import (
	"context"
	"time"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"

	"github.com/amp-labs/amp-wait/cluster"
	"github.com/amp-labs/amp-wait/conditions"
	"github.com/amp-labs/amp-wait/contexts"
	"github.com/amp-labs/amp-wait/fieldpath"
	"github.com/amp-labs/amp-wait/logger"
	"github.com/amp-labs/amp-wait/poll"
)

// Waiter runs bounded waits against one cluster. The zero value is not
// usable; construct with New.
type Waiter struct {
	client   *cluster.Client
	timeout  time.Duration
	interval time.Duration
	absentOK bool
}

// Option configures a Waiter.
type Option func(*Waiter)

// WithTimeout sets the default deadline for each wait.
func WithTimeout(timeout time.Duration) Option {
	return func(w *Waiter) {
		w.timeout = timeout
	}
}

// WithInterval sets the default spacing between attempts.
func WithInterval(interval time.Duration) Option {
	return func(w *Waiter) {
		w.interval = interval
	}
}

// WithAbsentOK treats NotFound during condition and field waits as "not yet
// created": the wait keeps polling instead of failing. Without it a missing
// object fails the wait immediately. Deletion waits are unaffected.
func WithAbsentOK(absentOK bool) Option {
	return func(w *Waiter) {
		w.absentOK = absentOK
	}
}

// New creates a Waiter bound to client. Waits default to poll.DefaultTimeout
// and poll.DefaultInterval, with a missing object failing the wait.
func New(client *cluster.Client, opts ...Option) *Waiter {
	w := &Waiter{
		client:   client,
		timeout:  poll.DefaultTimeout,
		interval: poll.DefaultInterval,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}

	return w
}

// Ready waits until the object reports the Ready condition with status True,
// and returns the final observed object.
func (w *Waiter) Ready(ctx context.Context, obj cluster.Object) (map[string]any, error) {
	return w.Condition(ctx, obj, conditions.TypeReady, conditions.StatusTrue)
}

// Condition waits until the object reports condType with the given status,
// and returns the final observed object. On timeout the last observed object
// is available through the returned *poll.TimeoutError.
func (w *Waiter) Condition(
	ctx context.Context, obj cluster.Object, condType string, status corev1.ConditionStatus,
) (map[string]any, error) {
	ctx = w.waitContext(ctx, obj)
	log := logger.Get(ctx)

	log.Debug("waiting for condition", "type", condType, "status", string(status))

	start := time.Now()

	value, err := poll.Until(ctx, w.client.Probe(obj), conditions.StatusIs(condType, status), w.pollOptions(ctx)...)
	if err != nil {
		return nil, err
	}

	log.Info("condition met",
		"type", condType,
		"status", string(status),
		"elapsed", time.Since(start).String(),
	)

	return value, nil
}

// Field waits until the field at path renders equal to want, and returns the
// final observed object. The path is validated before any probe runs.
func (w *Waiter) Field(ctx context.Context, obj cluster.Object, path string, want any) (map[string]any, error) {
	if _, err := fieldpath.Parse(path); err != nil {
		return nil, err
	}

	ctx = w.waitContext(ctx, obj)
	log := logger.Get(ctx)

	log.Debug("waiting for field", "path", path, "want", want)

	start := time.Now()

	value, err := poll.Until(ctx, w.client.Probe(obj), fieldpath.Equals(path, want), w.pollOptions(ctx)...)
	if err != nil {
		return nil, err
	}

	log.Info("field matched",
		"path", path,
		"want", want,
		"elapsed", time.Since(start).String(),
	)

	return value, nil
}

// Gone waits until the object no longer exists. NotFound on the very first
// attempt already reports success: a deletion wait does not care who removed
// the object, or when.
func (w *Waiter) Gone(ctx context.Context, obj cluster.Object) error {
	ctx = w.waitContext(ctx, obj)
	log := logger.Get(ctx)

	log.Debug("waiting for deletion")

	start := time.Now()

	probe := func(ctx context.Context) (bool, error) {
		_, err := w.client.Get(ctx, obj)

		switch {
		case cluster.IsNotFound(err):
			return true, nil
		case err != nil:
			return false, err
		default:
			return false, nil
		}
	}

	if _, err := poll.Until(ctx, probe, func(gone bool) bool { return gone }, w.pollOptions(ctx)...); err != nil {
		return err
	}

	log.Info("object deleted", "elapsed", time.Since(start).String())

	return nil
}

// waitContext stamps the context with the wait target and, when absent, a
// fresh operation id, so every log line of one wait can be correlated.
func (w *Waiter) waitContext(ctx context.Context, obj cluster.Object) context.Context {
	ctx = logger.WithTarget(ctx, obj.String())

	if _, found := logger.GetOperation(ctx); !found {
		ctx = logger.WithOperation(ctx, uuid.NewString())
	}

	return ctx
}

// pollOptions assembles the poll configuration for one wait. The timeout is
// capped to the context's remaining budget, so a wait never promises more
// time than its context has left.
func (w *Waiter) pollOptions(ctx context.Context) []poll.Option {
	timeout := w.timeout
	if remaining, ok := contexts.Remaining(ctx); ok && remaining > 0 && remaining < timeout {
		timeout = remaining
	}

	opts := []poll.Option{
		poll.WithTimeout(timeout),
		poll.WithInterval(w.interval),
	}

	if w.absentOK {
		opts = append(opts, poll.WithRetryable(cluster.IsNotFound))
	}

	return opts
}
