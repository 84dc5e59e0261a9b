// Package metrics exposes Prometheus instrumentation for the execution core.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the execution metrics. Construct one per registry; tests
// pass their own registry to avoid cross-test collisions.
type Collector struct {
	Attempts           *prometheus.CounterVec
	Fallbacks          prometheus.Counter
	ValidationFailures *prometheus.CounterVec
	Latency            *prometheus.HistogramVec
}

// NewCollector registers the execution metrics on the given registerer.
// Registering on the same registerer again reuses the collectors already
// there, so a host process can share one registry across many runs.
func NewCollector(reg prometheus.Registerer) *Collector {
	return &Collector{
		Attempts: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "llmgate",
			Name:      "backend_attempts_total",
			Help:      "Backend call attempts by backend and outcome.",
		}, []string{"backend", "outcome"})),

		Fallbacks: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "llmgate",
			Name:      "backend_fallbacks_total",
			Help:      "Times the orchestrator advanced to the next backend candidate.",
		})),

		ValidationFailures: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "llmgate",
			Name:      "output_validation_failures_total",
			Help:      "Model outputs rejected by the schema contract.",
		}, []string{"backend"})),

		Latency: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "llmgate",
			Name:      "backend_call_duration_seconds",
			Help:      "Latency of individual backend calls.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"backend"})),
	}
}

// Outcome labels for the attempts counter.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// register adds a collector to the registerer, handing back the previously
// registered one when the metric already exists.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return already.ExistingCollector.(C)
		}
		panic(err)
	}
	return c
}
