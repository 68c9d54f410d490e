package spans_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/amp-labs/amp-wait/spans"
)

// newTraced returns a context carrying a tracer wired to an in-memory
// exporter, so tests can inspect the spans the orchestrators produce.
func newTraced(t *testing.T) (context.Context, *tracetest.InMemoryExporter) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})

	return spans.WithTracer(t.Context(), tp.Tracer("spans-test")), exporter
}

// onlySpan asserts exactly one span was exported and returns it.
func onlySpan(t *testing.T, exporter *tracetest.InMemoryExporter) tracetest.SpanStub {
	t.Helper()

	stubs := exporter.GetSpans()
	require.Len(t, stubs, 1)

	return stubs[0]
}

func attrValue(span tracetest.SpanStub, key string) (attribute.Value, bool) {
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			return attr.Value, true
		}
	}

	return attribute.Value{}, false
}

func TestTracerRoundTrip(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})

	tracer := tp.Tracer("spans-test")
	ctx := spans.WithTracer(t.Context(), tracer)

	got, found := spans.TracerFromContext(ctx)
	require.True(t, found)
	assert.Equal(t, tracer, got)

	_, found = spans.TracerFromContext(t.Context())
	assert.False(t, found)
}

func TestStartRecordsSpan(t *testing.T) {
	t.Parallel()

	ctx, exporter := newTraced(t)

	executed := false

	spans.Start(ctx, "record-outcome").Enter(func(_ context.Context, span trace.Span) {
		executed = true

		assert.NotNil(t, span)
	})

	require.True(t, executed)

	span := onlySpan(t, exporter)
	assert.Equal(t, "record-outcome", span.Name)
	assert.Equal(t, codes.Ok, span.Status.Code)
	assert.Equal(t, trace.SpanKindInternal, span.SpanKind)
}

func TestStartWithoutTracerStillRuns(t *testing.T) {
	t.Parallel()

	executed := false

	spans.Start(t.Context(), "record-outcome").Enter(func(context.Context, trace.Span) {
		executed = true
	})

	assert.True(t, executed)
}

func TestEnterNilFunctions(t *testing.T) {
	t.Parallel()

	ctx := t.Context()

	assert.NotPanics(t, func() {
		spans.Start(ctx, "noop").Enter(nil)
	})

	assert.NoError(t, spans.StartErr(ctx, "noop").Enter(nil))
	assert.Empty(t, spans.StartVal[string](ctx, "noop").Enter(nil))

	val, err := spans.StartValErr[int](ctx, "noop").Enter(nil)
	assert.NoError(t, err)
	assert.Zero(t, val)
}

func TestStartErrRecordsError(t *testing.T) {
	t.Parallel()

	ctx, exporter := newTraced(t)

	errDelete := errors.New("delete failed")

	err := spans.StartErr(ctx, "delete-resource").Enter(func(context.Context, trace.Span) error {
		return errDelete
	})
	require.ErrorIs(t, err, errDelete)

	span := onlySpan(t, exporter)
	assert.Equal(t, "delete-resource", span.Name)
	assert.Equal(t, codes.Error, span.Status.Code)
	assert.Contains(t, span.Status.Description, "delete failed")
	assert.NotEmpty(t, span.Events, "RecordError should have added an exception event")
}

func TestStartErrOkStatus(t *testing.T) {
	t.Parallel()

	ctx, exporter := newTraced(t)

	require.NoError(t, spans.StartErr(ctx, "delete-resource").Enter(func(context.Context, trace.Span) error {
		return nil
	}))

	assert.Equal(t, codes.Ok, onlySpan(t, exporter).Status.Code)
}

func TestStartValReturnsValue(t *testing.T) {
	t.Parallel()

	ctx, exporter := newTraced(t)

	kind := spans.StartVal[string](ctx, "resolve-kind").Enter(func(context.Context, trace.Span) string {
		return "deployments"
	})

	assert.Equal(t, "deployments", kind)
	assert.Equal(t, "resolve-kind", onlySpan(t, exporter).Name)
}

func TestStartValErrSuccess(t *testing.T) {
	t.Parallel()

	ctx, exporter := newTraced(t)

	replicas, err := spans.StartValErr[int](ctx, "count-ready-replicas").Enter(
		func(context.Context, trace.Span) (int, error) {
			return 3, nil
		})
	require.NoError(t, err)
	assert.Equal(t, 3, replicas)
	assert.Equal(t, codes.Ok, onlySpan(t, exporter).Status.Code)
}

func TestStartValErrFailure(t *testing.T) {
	t.Parallel()

	ctx, exporter := newTraced(t)

	errConn := errors.New("connection refused")

	replicas, err := spans.StartValErr[int](ctx, "fetch-object").Enter(
		func(context.Context, trace.Span) (int, error) {
			return 0, errConn
		})
	require.ErrorIs(t, err, errConn)
	assert.Zero(t, replicas)
	assert.Equal(t, codes.Error, onlySpan(t, exporter).Status.Code)
}

func TestWithNameOverridesSpanName(t *testing.T) {
	t.Parallel()

	ctx, exporter := newTraced(t)

	spans.Start(ctx, "placeholder", spans.WithName("wait-for-deployment")).Enter(
		func(context.Context, trace.Span) {})

	assert.Equal(t, "wait-for-deployment", onlySpan(t, exporter).Name)
}

func TestWithAttributeSetsAttributes(t *testing.T) {
	t.Parallel()

	ctx, exporter := newTraced(t)

	spans.Start(ctx, "fetch-object",
		spans.WithAttribute("target.name", attribute.StringValue("sklearn-iris")),
		spans.WithAttribute("wait.attempt", attribute.IntValue(4)),
	).Enter(func(context.Context, trace.Span) {})

	span := onlySpan(t, exporter)

	name, ok := attrValue(span, "target.name")
	require.True(t, ok)
	assert.Equal(t, "sklearn-iris", name.AsString())

	attempt, ok := attrValue(span, "wait.attempt")
	require.True(t, ok)
	assert.Equal(t, int64(4), attempt.AsInt64())
}

func TestWithSpanKindClient(t *testing.T) {
	t.Parallel()

	ctx, exporter := newTraced(t)

	spans.Start(ctx, "fetch-object", spans.WithSpanKind(trace.SpanKindClient)).Enter(
		func(context.Context, trace.Span) {})

	assert.Equal(t, trace.SpanKindClient, onlySpan(t, exporter).SpanKind)
}

func TestWithSuccessMessage(t *testing.T) {
	t.Parallel()

	ctx, exporter := newTraced(t)

	spans.Start(ctx, "wait-for-ready", spans.WithSuccessMessage("resource became ready")).Enter(
		func(context.Context, trace.Span) {})

	// The SDK drops descriptions on Ok statuses, so only the code is visible.
	assert.Equal(t, codes.Ok, onlySpan(t, exporter).Status.Code)
}

func TestWithErrorMessagePrefixesStatus(t *testing.T) {
	t.Parallel()

	ctx, exporter := newTraced(t)

	_ = spans.StartErr(ctx, "fetch-object", spans.WithErrorMessage("Object fetch failed")).Enter(
		func(context.Context, trace.Span) error {
			return errors.New("object not found")
		})

	span := onlySpan(t, exporter)
	assert.Equal(t, codes.Error, span.Status.Code)
	assert.Contains(t, span.Status.Description, "Object fetch failed: ")
	assert.Contains(t, span.Status.Description, "object not found")
}

func TestWithSpanStartOptions(t *testing.T) {
	t.Parallel()

	ctx, exporter := newTraced(t)

	spans.Start(ctx, "wait-for-all",
		spans.WithSpanStartOptions(trace.WithAttributes(attribute.String("operation_id", "op-123"))),
	).Enter(func(context.Context, trace.Span) {})

	val, ok := attrValue(onlySpan(t, exporter), "operation_id")
	require.True(t, ok)
	assert.Equal(t, "op-123", val.AsString())
}

func TestWithSpanEndOptions(t *testing.T) {
	t.Parallel()

	ctx, exporter := newTraced(t)

	endTime := time.Now().Add(time.Hour)

	spans.Start(ctx, "wait-for-ready",
		spans.WithSpanEndOptions(trace.WithTimestamp(endTime)),
	).Enter(func(context.Context, trace.Span) {})

	assert.True(t, onlySpan(t, exporter).EndTime.Equal(endTime))
}

func TestWithSpanDecorator(t *testing.T) {
	t.Parallel()

	ctx, exporter := newTraced(t)

	order := []string{}

	spans.Start(ctx, "wait-for-condition",
		spans.WithSpanDecorator(func(span trace.Span) {
			order = append(order, "first")
			span.SetAttributes(attribute.String("decorated", "true"))
		}),
		spans.WithSpanDecorator(func(trace.Span) {
			order = append(order, "second")
		}),
	).Enter(func(context.Context, trace.Span) {})

	assert.Equal(t, []string{"first", "second"}, order)

	val, ok := attrValue(onlySpan(t, exporter), "decorated")
	require.True(t, ok)
	assert.Equal(t, "true", val.AsString())
}

func TestWithAutoEndDefault(t *testing.T) {
	t.Parallel()

	ctx, exporter := newTraced(t)

	spans.Start(ctx, "wait-for-ready").Enter(func(context.Context, trace.Span) {})

	span := onlySpan(t, exporter)
	assert.True(t, span.EndTime.After(span.StartTime))
}

func TestWithAutoEndFalse(t *testing.T) {
	t.Parallel()

	ctx, exporter := newTraced(t)

	// The wrapped function owns lifecycle and status.
	spans.Start(ctx, "wait-for-ready", spans.WithAutoEnd(false)).Enter(
		func(_ context.Context, span trace.Span) {
			span.SetStatus(codes.Ok, "done")
			span.End()
		})

	span := onlySpan(t, exporter)
	assert.True(t, span.EndTime.After(span.StartTime))
	assert.Equal(t, codes.Ok, span.Status.Code)
}

func TestPanicRecordedOnSpan(t *testing.T) {
	t.Parallel()

	ctx, exporter := newTraced(t)

	require.Panics(t, func() {
		spans.Start(ctx, "probe-endpoint").Enter(func(context.Context, trace.Span) {
			panic("probe exploded")
		})
	})

	span := onlySpan(t, exporter)

	val, ok := attrValue(span, "panic")
	require.True(t, ok)
	assert.Equal(t, int64(1), val.AsInt64())

	assert.Equal(t, codes.Error, span.Status.Code)
	assert.Contains(t, span.Status.Description, "recovered from panic")
	assert.Contains(t, span.Status.Description, "probe exploded")
}

func TestPanicWithErrorValue(t *testing.T) {
	t.Parallel()

	ctx, exporter := newTraced(t)

	errProbe := errors.New("nil pointer in probe")

	require.Panics(t, func() {
		spans.StartVal[int](ctx, "probe-endpoint").Enter(func(context.Context, trace.Span) int {
			panic(errProbe)
		})
	})

	span := onlySpan(t, exporter)
	assert.Equal(t, codes.Error, span.Status.Code)
	assert.Contains(t, span.Status.Description, "recovered from panic")
	assert.Contains(t, span.Status.Description, "nil pointer in probe")
}

func TestNestedSpansShareTrace(t *testing.T) {
	t.Parallel()

	ctx, exporter := newTraced(t)

	spans.Start(ctx, "wait-for-all").Enter(func(ctx context.Context, _ trace.Span) {
		spans.Start(ctx, "wait-for-one").Enter(func(context.Context, trace.Span) {})
	})

	stubs := exporter.GetSpans()
	require.Len(t, stubs, 2)

	// The inner span ends first, so the syncing exporter sees it first.
	assert.Equal(t, "wait-for-one", stubs[0].Name)
	assert.Equal(t, "wait-for-all", stubs[1].Name)
	assert.Equal(t, stubs[1].SpanContext.TraceID(), stubs[0].SpanContext.TraceID())
	assert.Equal(t, stubs[1].SpanContext.SpanID(), stubs[0].Parent.SpanID())
}

func TestOptionsCombine(t *testing.T) {
	t.Parallel()

	ctx, exporter := newTraced(t)

	spans.Start(ctx, "placeholder",
		spans.WithName("wait-for-ready"),
		spans.WithAttribute("target.namespace", attribute.StringValue("default")),
		spans.WithSpanKind(trace.SpanKindClient),
		spans.WithSuccessMessage("resource became ready"),
	).Enter(func(context.Context, trace.Span) {})

	span := onlySpan(t, exporter)
	assert.Equal(t, "wait-for-ready", span.Name)
	assert.Equal(t, trace.SpanKindClient, span.SpanKind)
	assert.Equal(t, codes.Ok, span.Status.Code)

	ns, ok := attrValue(span, "target.namespace")
	require.True(t, ok)
	assert.Equal(t, "default", ns.AsString())
}
