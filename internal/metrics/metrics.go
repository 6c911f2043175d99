// Package metrics provides Prometheus instrumentation for laughless.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsRecorded counts laugh events accepted into the store.
	EventsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "laughless_events_recorded_total",
			Help: "Total number of laugh events stored",
		},
	)

	// FinalizeRuns counts finalize passes by outcome.
	FinalizeRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laughless_finalize_runs_total",
			Help: "Total number of session finalize passes",
		},
		[]string{"outcome"}, // "ok", "error", "shared"
	)

	// AnalyzerFailures counts per-event analyzer failures that were
	// tolerated during finalize.
	AnalyzerFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "laughless_analyzer_failures_total",
			Help: "Total number of per-event analyzer failures skipped during finalize",
		},
	)

	// SearchFailures counts per-group video-search failures that caused a
	// recommendation group to be omitted.
	SearchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "laughless_search_failures_total",
			Help: "Total number of video search failures during recommendation fan-out",
		},
	)

	// SearchBreakerTransitions counts video-search circuit breaker state
	// changes.
	SearchBreakerTransitions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "laughless_search_breaker_transitions_total",
			Help: "Total number of video search circuit breaker state transitions",
		},
	)

	// ReportsServed counts report aggregations served.
	ReportsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "laughless_reports_served_total",
			Help: "Total number of session reports computed",
		},
	)
)
