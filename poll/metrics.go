package poll

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess  = "success"
	outcomeTimeout  = "timeout"
	outcomeFatal    = "fatal"
	outcomeCanceled = "canceled"
)

// waitCounter counts completed waits, partitioned by how they ended.
var waitCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "amp",
	Subsystem: "poll",
	Name:      "waits_total",
	Help:      "The number of completed waits, partitioned by outcome",
}, []string{"outcome"})

// attemptCounter counts probe invocations across all waits.
var attemptCounter = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "amp",
	Subsystem: "poll",
	Name:      "attempts_total",
	Help:      "The number of probe attempts across all waits",
})
