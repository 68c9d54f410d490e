package spans

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/amp-labs/amp-wait/contexts"
)

// contextKey is a private type for context values stored by this package.
type contextKey string

// tracerKey stores the OpenTelemetry tracer.
const tracerKey contextKey = "tracer"

// WithTracer attaches the tracer the Start*().Enter() orchestrators use to
// open spans. Without a tracer in the context, orchestrators run the wrapped
// function untraced.
//
//	ctx = spans.WithTracer(ctx, otel.Tracer("waitfor"))
func WithTracer(ctx context.Context, tracer trace.Tracer) context.Context {
	return contexts.WithValue[contextKey, trace.Tracer](ctx, tracerKey, tracer)
}

// TracerFromContext returns the tracer attached by WithTracer, or false when
// the context carries none.
func TracerFromContext(ctx context.Context) (trace.Tracer, bool) {
	return contexts.GetValue[contextKey, trace.Tracer](ctx, tracerKey)
}
