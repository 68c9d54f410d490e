// Package spans provides utilities for creating OpenTelemetry spans with a fluent API.
//
// This package simplifies the creation of traced function calls by providing orchestrators
// that handle span lifecycle, error recording, panic recovery, and status reporting.
// The tracer travels in the context via WithTracer; when no tracer is present, the
// wrapped function executes normally and no span is created.
//
// The package supports four function signatures, all receiving both a context and span:
//   - Start: func(context.Context, trace.Span) - no return value
//   - StartErr: func(context.Context, trace.Span) error - returns error only
//   - StartVal: func(context.Context, trace.Span) T - returns value only
//   - StartValErr: func(context.Context, trace.Span) (T, error) - returns value and error
//
// Usage example:
//
//	ctx = spans.WithTracer(ctx, tracer)
//	obj, err := spans.StartValErr[map[string]any](ctx, "fetch-object",
//	    spans.WithAttribute("name", attribute.StringValue(name)),
//	).Enter(func(ctx context.Context, span trace.Span) (map[string]any, error) {
//	    return fetchObject(ctx, name)
//	})
package spans
