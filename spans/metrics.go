package spans

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// spanWithoutTracerCounter counts Enter calls that found no tracer in the
// context, labeled by span name. A nonzero rate means some code path reaches
// the orchestrators without going through WithTracer.
//
//	sum by (span_name) (rate(amp_spans_without_tracer_total[5m]))
var spanWithoutTracerCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "amp",
		Subsystem: "spans",
		Name:      "without_tracer_total",
		Help:      "The number of spans entered without a tracer in the context",
	},
	[]string{"span_name"},
)
