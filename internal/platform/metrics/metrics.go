// Package metrics holds the Prometheus collectors shared by the gateway and the saga processor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sara_bank"

var (
	// OutboxPublished counts envelopes confirmed by the broker
	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Total outbox messages published.",
		},
		[]string{"event_type"},
	)

	// OutboxPublishAttempts counts individual broker writes, including in-cycle retries
	OutboxPublishAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "publish_attempts_total",
			Help:      "Total publish tries against the broker.",
		},
		[]string{"event_type", "status"}, // status: "success", "error"
	)

	// OutboxCycleFailures counts dispatch cycles that exhausted their in-cycle retries
	OutboxCycleFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "cycle_failures_total",
			Help:      "Total dispatch cycles ending without a successful publish.",
		},
		[]string{"event_type"},
	)

	// OutboxDeadLettered counts messages parked after max attempts
	OutboxDeadLettered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "dead_lettered_total",
			Help:      "Total outbox messages moved to the dead-letter state.",
		},
		[]string{"event_type"},
	)

	// OutboxCycleDuration observes one full dispatch cycle
	OutboxCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of an outbox dispatch cycle.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// SagaSteps counts step handler outcomes
	SagaSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "saga",
			Name:      "steps_total",
			Help:      "Total saga step executions by outcome.",
		},
		[]string{"step", "outcome"}, // outcome: "applied", "skipped", "rejected", "error"
	)

	// SagaStepDuration observes step handler latency
	SagaStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "saga",
			Name:      "step_duration_seconds",
			Help:      "Duration of saga step handlers.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	// SagasStalled counts sagas flagged by the watchdog
	SagasStalled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "saga",
			Name:      "stalled_total",
			Help:      "Total sagas flagged as stalled.",
		},
		[]string{"state"},
	)

	// ConsumerMessages counts consumed messages by result
	ConsumerMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consumer",
			Name:      "messages_total",
			Help:      "Total messages consumed by topic and result.",
		},
		[]string{"topic", "result"}, // result: "ack", "redelivered", "dead_lettered"
	)

	// HTTPRequests counts gateway requests
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status_code"},
	)

	// HTTPRequestDuration observes gateway request latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
