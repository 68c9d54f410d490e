package spans

import "context"

// Start builds an orchestrator for a function with no return value. Enter
// expects func(context.Context, trace.Span).
//
//	spans.Start(ctx, "report-outcome").Enter(func(ctx context.Context, span trace.Span) {
//	    reportOutcome(ctx, name)
//	})
func Start(ctx context.Context, name string, opts ...Option) *StartOrchestrator {
	return &StartOrchestrator{
		ctx:  ctx,
		name: name,
		opts: opts,
	}
}

// StartErr builds an orchestrator for a function returning only an error.
// Enter expects func(context.Context, trace.Span) error; a returned error is
// recorded on the span and moves its status to Error.
//
//	err := spans.StartErr(ctx, "wait-for-deletion",
//	    spans.WithErrorMessage("Deletion wait failed"),
//	).Enter(func(ctx context.Context, span trace.Span) error {
//	    return waitForDeletion(ctx, name)
//	})
func StartErr(ctx context.Context, name string, opts ...Option) *StartErrorOrchestrator {
	return &StartErrorOrchestrator{
		ctx:  ctx,
		name: name,
		opts: opts,
	}
}

// StartVal builds an orchestrator for a function returning a value and no
// error. Enter expects func(context.Context, trace.Span) T. A panic in the
// wrapped function is recorded on the span and re-raised.
func StartVal[Value any](
	ctx context.Context, name string, opts ...Option,
) *StartValueOrchestrator[Value] {
	return &StartValueOrchestrator[Value]{
		ctx:  ctx,
		name: name,
		opts: opts,
	}
}

// StartValErr builds an orchestrator for a function returning a value and an
// error, the usual shape for fallible operations. Enter expects
// func(context.Context, trace.Span) (T, error).
//
//	obj, err := spans.StartValErr[map[string]any](ctx, "fetch-object",
//	    spans.WithAttribute("name", attribute.StringValue(name)),
//	).Enter(func(ctx context.Context, span trace.Span) (map[string]any, error) {
//	    return client.Fetch(ctx, name)
//	})
func StartValErr[Value any](
	ctx context.Context, name string, opts ...Option,
) *StartValueErrorOrchestrator[Value] {
	return &StartValueErrorOrchestrator[Value]{
		ctx:  ctx,
		name: name,
		opts: opts,
	}
}
