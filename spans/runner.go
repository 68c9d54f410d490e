package spans

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	ampErrors "github.com/amp-labs/amp-wait/errors"
)

// Option configures the runner behind an orchestrator. Options are passed to
// Start, StartErr, StartVal, or StartValErr.
type Option func(*runner)

// runner holds the span configuration accumulated from options and drives one
// traced execution.
type runner struct {
	spanName string
	spanKind trace.SpanKind
	tracer   trace.Tracer

	// success and failure override the status descriptions written on span end.
	success string
	failure string

	// autoEnd false hands span lifecycle and status to the wrapped function.
	autoEnd bool

	sso []trace.SpanStartOption
	seo []trace.SpanEndOption

	decorate []func(span trace.Span)
}

func newRunner(tracer trace.Tracer, spanName string, opts ...Option) *runner {
	r := &runner{
		spanName: spanName,
		spanKind: trace.SpanKindInternal,
		tracer:   tracer,
		autoEnd:  true,
	}

	for _, option := range opts {
		if option != nil {
			option(r)
		}
	}

	return r
}

// invoke runs call inside a span when the context carries a tracer. Without
// one, call runs untraced and the gap is counted in spanWithoutTracerCounter.
// All orchestrator Enter methods funnel through here.
func invoke[T any](
	ctx context.Context, name string,
	call func(ctx context.Context, span trace.Span) (T, error), opts ...Option,
) (T, error) {
	tracer, found := TracerFromContext(ctx)
	if !found {
		spanWithoutTracerCounter.WithLabelValues(name).Inc()

		return call(ctx, trace.SpanFromContext(ctx))
	}

	return runSpan(newRunner(tracer, name, opts...), ctx, call)
}

// runSpan opens the span, applies decorators, runs the operation, and writes
// the resulting status. A panic in the operation is attached to the span as an
// attribute plus error before being re-raised, so traces capture the failure
// even though the call never returns.
func runSpan[T any](
	r *runner,
	ctx context.Context,
	operation func(ctx context.Context, span trace.Span) (T, error),
) (valOut T, errOut error) {
	if r == nil || r.tracer == nil {
		return operation(ctx, trace.SpanFromContext(ctx))
	}

	opts := make([]trace.SpanStartOption, len(r.sso)+1)

	copy(opts, r.sso)
	opts[len(r.sso)] = trace.WithSpanKind(r.spanKind)

	ctx, span := r.tracer.Start(ctx, r.spanName, opts...) //nolint:spancheck

	defer func() {
		if r.autoEnd {
			defer span.End(r.seo...)
		}

		if panicErr := recover(); panicErr != nil {
			span.SetAttributes(attribute.KeyValue{
				Key:   "panic",
				Value: attribute.Int64Value(1),
			})

			err := panicError(panicErr, debug.Stack())

			if errOut == nil {
				errOut = err
			} else {
				errOut = errors.Join(errOut, err)
			}

			r.setErrorStatus(span, errOut)

			panic(panicErr)
		}
	}()

	if span.IsRecording() && len(r.decorate) > 0 {
		for _, decorate := range r.decorate {
			if decorate != nil {
				decorate(span)
			}
		}
	}

	val, err := operation(ctx, span)
	if err != nil {
		span.RecordError(err)
		r.setErrorStatus(span, err)
	} else {
		r.setSuccessStatus(span)
	}

	return val, err
}

// setErrorStatus writes an Error status, prefixed with the configured failure
// message when there is one. Skipped when the caller owns the span lifecycle.
func (r *runner) setErrorStatus(span trace.Span, err error) {
	if !r.autoEnd {
		return
	}

	if len(r.failure) > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%s: %s", r.failure, err.Error()))
	} else {
		span.SetStatus(codes.Error, err.Error())
	}
}

// setSuccessStatus writes an Ok status with the configured success message,
// or "ok". Skipped when the caller owns the span lifecycle.
func (r *runner) setSuccessStatus(span trace.Span) {
	if !r.autoEnd {
		return
	}

	if len(r.success) > 0 {
		span.SetStatus(codes.Ok, r.success)
	} else {
		span.SetStatus(codes.Ok, "ok")
	}
}

// panicError wraps a recovered panic value and its stack into an error that
// matches errors.ErrPanicRecovery under errors.Is.
func panicError(panicErr any, stack []byte) error {
	if err, ok := panicErr.(error); ok {
		return fmt.Errorf("%w: %w\nstack trace:\n%s", ampErrors.ErrPanicRecovery, err, string(stack))
	}

	return fmt.Errorf("%w: %v\nstack trace:\n%s", ampErrors.ErrPanicRecovery, panicErr, string(stack))
}
