package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Duration of database operations",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation", "collection"},
	)

	// Session Metrics
	RunningSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "running_sessions_total",
			Help: "Current number of running work sessions",
		},
	)

	ActivityEventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_events_ingested_total",
			Help: "Total number of activity events accepted",
		},
		[]string{"type"}, // active, idle
	)

	// Aggregation Metrics
	AggregationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregation_attempts_total",
			Help: "Aggregation write attempts by outcome",
		},
		[]string{"outcome"}, // success, conflict, error
	)

	// Relay Metrics
	RelayMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_total",
			Help: "Relay messages fanned out by event",
		},
		[]string{"event"},
	)

	RelayDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_messages_dropped_total",
			Help: "Relay messages dropped because a client buffer was full",
		},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors by component and reason",
		},
		[]string{"component", "reason"},
	)
)

// TrackDBOperation tracks database operation duration
func TrackDBOperation(operation, collection string) *prometheus.Timer {
	return prometheus.NewTimer(DBOperationDuration.WithLabelValues(operation, collection))
}

// TrackError increments the error counter for a component/reason pair
func TrackError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}

// TrackActivityEvent counts an accepted activity event by type
func TrackActivityEvent(activityType string) {
	ActivityEventsIngested.WithLabelValues(activityType).Inc()
}

// TrackAggregationAttempt records an aggregation write attempt outcome
func TrackAggregationAttempt(outcome string) {
	AggregationAttempts.WithLabelValues(outcome).Inc()
}
