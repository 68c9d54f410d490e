package spans

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// StartOrchestrator runs a no-result function inside a span. Build with Start.
type StartOrchestrator struct {
	ctx  context.Context //nolint:containedctx
	name string
	opts []Option
}

// Enter runs f inside the span. Panics are recorded with stack traces and
// re-raised. A nil f is a no-op.
func (o *StartOrchestrator) Enter(f func(ctx context.Context, span trace.Span)) {
	if f == nil {
		return
	}

	_, err := invoke[struct{}](o.ctx, o.name, func(ctx context.Context, span trace.Span) (struct{}, error) {
		f(ctx, span)

		return struct{}{}, nil
	}, o.opts...)
	if err != nil {
		panic(err)
	}
}

// StartErrorOrchestrator runs an error-returning function inside a span.
// Build with StartErr.
type StartErrorOrchestrator struct {
	ctx  context.Context //nolint:containedctx
	name string
	opts []Option
}

// Enter runs f inside the span and returns its error. The error, when
// non-nil, is recorded on the span with an Error status. A nil f returns nil.
func (o *StartErrorOrchestrator) Enter(f func(ctx context.Context, span trace.Span) error) error {
	if f == nil {
		return nil
	}

	_, err := invoke[struct{}](o.ctx, o.name, func(ctx context.Context, span trace.Span) (struct{}, error) {
		funcErr := f(ctx, span)

		return struct{}{}, funcErr
	}, o.opts...)

	return err
}

// StartValueOrchestrator runs a value-returning function inside a span.
// Build with StartVal.
type StartValueOrchestrator[T any] struct {
	ctx  context.Context //nolint:containedctx
	name string
	opts []Option
}

// Enter runs f inside the span and returns its value. Panics are recorded and
// re-raised. A nil f returns the zero value.
func (o *StartValueOrchestrator[T]) Enter(f func(ctx context.Context, span trace.Span) T) T {
	if f == nil {
		var zero T

		return zero
	}

	value, err := invoke[T](o.ctx, o.name, func(ctx context.Context, span trace.Span) (T, error) {
		return f(ctx, span), nil
	}, o.opts...)
	if err != nil {
		panic(err)
	}

	return value
}

// StartValueErrorOrchestrator runs a function returning a value and an error
// inside a span. Build with StartValErr.
type StartValueErrorOrchestrator[T any] struct {
	ctx  context.Context //nolint:containedctx
	name string
	opts []Option
}

// Enter runs f inside the span and returns its value and error. Errors are
// recorded on the span with an Error status; panics are recorded and
// re-raised. A nil f returns the zero value and nil.
func (o *StartValueErrorOrchestrator[T]) Enter(
	f func(ctx context.Context, span trace.Span) (T, error),
) (T, error) {
	if f == nil {
		var zero T

		return zero, nil
	}

	return invoke[T](o.ctx, o.name, f, o.opts...)
}
