// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventtrack",
		Name:      "events_recorded_total",
		Help:      "Events committed, by event name.",
	}, []string{"event"})

	AttributesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eventtrack",
		Name:      "event_attributes_dropped_total",
		Help:      "Event attributes discarded because their value was not a string.",
	})

	IdentifyOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventtrack",
		Name:      "identify_outcomes_total",
		Help:      "Identify calls by resolution outcome.",
	}, []string{"outcome"})

	VisitorsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventtrack",
		Name:      "visitors_created_total",
		Help:      "Visitors created, by visitor type.",
	}, []string{"type"})

	APIKeyRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eventtrack",
		Name:      "api_key_rejections_total",
		Help:      "API keys that failed validation.",
	})

	TxAborted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventtrack",
		Name:      "transactions_aborted_total",
		Help:      "Transactions that did not commit, by stage.",
	}, []string{"stage"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "eventtrack",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
