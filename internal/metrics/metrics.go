// Package metrics exposes Prometheus counters for engine activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts committed engine operations by name.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "credit_engine",
		Name:      "operations_total",
		Help:      "Committed engine operations by operation name.",
	}, []string{"operation"})

	// OperationErrorsTotal counts rejected operations by error code.
	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "credit_engine",
		Name:      "operation_errors_total",
		Help:      "Rejected engine operations by error code.",
	}, []string{"code"})

	// EventsPublishedTotal counts events handed to the publisher by type.
	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "credit_engine",
		Name:      "events_published_total",
		Help:      "Events handed to the publisher by event type.",
	}, []string{"type"})

	// HTTPRequestDuration observes REST handler latency.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "credit_engine",
		Name:      "http_request_duration_seconds",
		Help:      "REST handler latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
