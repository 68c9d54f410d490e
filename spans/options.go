package spans

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// WithName replaces the span name given to Start/StartErr/StartVal/StartValErr,
// for names that have to be computed after the orchestrator is built.
func WithName(name string) Option {
	return func(r *runner) {
		r.spanName = name
	}
}

// WithAttribute attaches one attribute at span start. Repeat the option for
// more, or use WithSpanStartOptions with trace.WithAttributes for a batch.
//
//	spans.StartValErr[T](ctx, "wait-for-condition",
//	    spans.WithAttribute("wait_timeout", attribute.StringValue(timeout.String())),
//	)
func WithAttribute(key attribute.Key, value attribute.Value) Option {
	return func(r *runner) {
		r.sso = append(r.sso, trace.WithAttributes(attribute.KeyValue{
			Key:   key,
			Value: value,
		}))
	}
}

// WithSpanKind sets the span kind. The default is SpanKindInternal; waits that
// call out to the API server typically mark themselves SpanKindClient.
func WithSpanKind(kind trace.SpanKind) Option {
	return func(r *runner) {
		r.spanKind = kind
	}
}

// WithSuccessMessage sets the status description written when the wrapped
// function succeeds. The default is "ok".
func WithSuccessMessage(description string) Option {
	return func(r *runner) {
		r.success = description
	}
}

// WithErrorMessage sets a prefix for the status description written when the
// wrapped function fails. The status reads "{prefix}: {error}".
func WithErrorMessage(description string) Option {
	return func(r *runner) {
		r.failure = description
	}
}

// WithSpanStartOptions passes raw OpenTelemetry start options through, for
// links, timestamps, and anything the other With* helpers do not cover.
func WithSpanStartOptions(options ...trace.SpanStartOption) Option {
	return func(r *runner) {
		r.sso = append(r.sso, options...)
	}
}

// WithSpanEndOptions passes raw OpenTelemetry end options through, such as a
// custom end timestamp.
func WithSpanEndOptions(options ...trace.SpanEndOption) Option {
	return func(r *runner) {
		r.seo = append(r.seo, options...)
	}
}

// WithSpanDecorator registers a function that runs against the span after it
// is created and before the wrapped function starts. Decorators run in
// registration order and only when the span is recording.
//
//	spans.Start(ctx, "wait-for-condition",
//	    spans.WithSpanDecorator(func(span trace.Span) {
//	        span.SetAttributes(attribute.String("condition", conditionType))
//	        span.AddEvent("polling started")
//	    }),
//	)
func WithSpanDecorator(decorator func(span trace.Span)) Option {
	return func(r *runner) {
		r.decorate = append(r.decorate, decorator)
	}
}

// WithAutoEnd(false) hands span lifecycle to the wrapped function: the span
// is not ended, its status is not set, and WithSuccessMessage and
// WithErrorMessage are ignored. The function must call span.End itself.
// The default is true.
func WithAutoEnd(autoEnd bool) Option {
	return func(r *runner) {
		r.autoEnd = autoEnd
	}
}
