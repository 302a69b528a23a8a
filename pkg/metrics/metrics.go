// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RealtimeConnectionsActive tracks open websocket sessions, identified or not.
	RealtimeConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_connections_active",
			Help: "Number of open realtime connections",
		},
	)

	// RealtimeUsersOnline tracks users with a bound session on this instance.
	RealtimeUsersOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_users_online",
			Help: "Number of users with a live session on this instance",
		},
	)

	// FanoutEventsTotal tracks events dispatched to rooms.
	FanoutEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_events_total",
			Help: "Realtime events dispatched by event name",
		},
		[]string{"event"},
	)

	// FanoutDroppedTotal tracks deliveries dropped because a session buffer was full.
	FanoutDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanout_dropped_total",
			Help: "Realtime deliveries dropped for slow sessions",
		},
	)

	// FanoutPublishErrors tracks broker publish failures.
	FanoutPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanout_publish_errors_total",
			Help: "Failed publishes to the realtime broker",
		},
	)

	// ConversationsTotal tracks total conversations created.
	ConversationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversations_total",
			Help: "Total conversations created",
		},
	)

	// MessagesTotal tracks message mutations by operation.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total message mutations",
		},
		[]string{"operation"},
	)

	// LoginsTotal tracks login attempts by outcome.
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logins_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordFanout records a dispatched realtime event.
func RecordFanout(event string) {
	FanoutEventsTotal.WithLabelValues(event).Inc()
}

// RecordMessageOp records a message mutation.
func RecordMessageOp(operation string) {
	MessagesTotal.WithLabelValues(operation).Inc()
}

// IncrementConnections increments the active realtime connection count.
func IncrementConnections() {
	RealtimeConnectionsActive.Inc()
}

// DecrementConnections decrements the active realtime connection count.
func DecrementConnections() {
	RealtimeConnectionsActive.Dec()
}
