// Package observability provides Prometheus metrics instrumentation for the chat engine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// DELIVERY METRICS
// =============================================================================

var (
	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_deliveries_total",
			Help: "Total number of agent response delivery runs",
		},
		[]string{"status"}, // status: success, error, cancelled, rejected
	)

	deliveryDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "messenger_delivery_duration_seconds",
			Help:    "Delivery run duration in seconds, timed waits included",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	segmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_segments_total",
			Help: "Total number of delivered response segments",
		},
		[]string{"kind"}, // kind: text, image_directive
	)
)

// =============================================================================
// BOUNDARY METRICS
// =============================================================================

var (
	boundaryCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_boundary_calls_total",
			Help: "Total number of AI boundary calls",
		},
		[]string{"operation", "status"}, // operation: send, start_session, generate_image
	)

	boundaryDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "messenger_boundary_duration_seconds",
			Help:    "AI boundary call duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)
)

// =============================================================================
// ENGINE METRICS
// =============================================================================

var (
	notificationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messenger_notifications_total",
			Help: "Total number of notifications enqueued",
		},
	)

	idleCheckInsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messenger_idle_checkins_total",
			Help: "Total number of fired idle check-ins",
		},
	)

	snapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_snapshots_total",
			Help: "Total number of state snapshot writes",
		},
		[]string{"status"}, // status: success, error
	)

	trustTransitionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messenger_trust_transitions_total",
			Help: "Total number of trust state transitions",
		},
	)
)

// =============================================================================
// PUBLIC API
// =============================================================================

// RecordDelivery records one delivery run.
// This should be called after the run settles.
func RecordDelivery(status string, durationMS int) {
	deliveriesTotal.WithLabelValues(status).Inc()
	deliveryDurationSeconds.Observe(float64(durationMS) / 1000.0)
}

// RecordSegment records one delivered segment.
func RecordSegment(kind string) {
	segmentsTotal.WithLabelValues(kind).Inc()
}

// RecordBoundaryCall records one AI boundary call.
// This should be called after the call completes.
func RecordBoundaryCall(operation string, status string, durationMS int) {
	boundaryCallsTotal.WithLabelValues(operation, status).Inc()
	boundaryDurationSeconds.WithLabelValues(operation).Observe(float64(durationMS) / 1000.0)
}

// RecordNotification records one enqueued notification.
func RecordNotification() {
	notificationsTotal.Inc()
}

// RecordIdleCheckIn records one fired idle check-in.
func RecordIdleCheckIn() {
	idleCheckInsTotal.Inc()
}

// RecordSnapshot records one snapshot write attempt.
func RecordSnapshot(status string) {
	snapshotsTotal.WithLabelValues(status).Inc()
}

// RecordTrustTransition records one trust state transition.
func RecordTrustTransition() {
	trustTransitionsTotal.Inc()
}
