// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides instrumentation for:
// - Bluetooth link state and reconnect behaviour
// - Tracking session lifecycle
// - Remote time entry submission and the retry buffer
// - Desktop notification delivery
// - API endpoint latency and throughput
// - WebSocket connections

// Gauge values exported by link_state.
const (
	LinkStateIdle               = 0
	LinkStateScanning           = 1
	LinkStateConnecting         = 2
	LinkStateConnected          = 3
	LinkStateAwaitingReconnect  = 4
	LinkStateBackgroundScanning = 5
)

var (
	// Bluetooth Link Metrics
	LinkState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "link_state",
			Help: "Current Bluetooth link state (0=idle, 1=scanning, 2=connecting, 3=connected, 4=awaiting_reconnect, 5=background_scanning)",
		},
	)

	LinkReconnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "link_reconnect_attempts_total",
			Help: "Total number of reconnect attempts",
		},
		[]string{"result"}, // "success", "failure"
	)

	LinkBackoffSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "link_backoff_seconds",
			Help: "Reconnect backoff interval currently scheduled (0 when none)",
		},
	)

	LinkConnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "link_connects_total",
			Help: "Total number of successful die connections",
		},
	)

	LinkDisconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "link_disconnects_total",
			Help: "Total number of die disconnections",
		},
	)

	OrientationEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orientation_events_total",
			Help: "Total number of orientation notifications received from the die",
		},
	)

	DieBatteryLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "die_battery_level",
			Help: "Last reported die battery level (0-100)",
		},
	)

	AdapterPowered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bluetooth_adapter_powered",
			Help: "Bluetooth adapter power state (0=off, 1=on)",
		},
	)

	DiscoveryRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_runs_total",
			Help: "Total number of completed discovery windows",
		},
		[]string{"result"}, // "found", "empty", "failure"
	)

	// Tracking Session Metrics
	SessionsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracking_sessions_opened_total",
			Help: "Total number of tracking sessions opened",
		},
	)

	SessionsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracking_sessions_closed_total",
			Help: "Total number of tracking sessions closed",
		},
		[]string{"outcome"}, // "hidden", "sent", "modified", "stale", "buffered"
	)

	SessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tracking_session_duration_seconds",
			Help:    "Duration of tracking sessions in seconds",
			Buckets: []float64{5, 10, 30, 60, 300, 900, 1800, 3600, 7200, 14400}, // Sessions range from seconds to hours
		},
	)

	SessionOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracking_session_open",
			Help: "Whether a tracking session is currently open (0=no, 1=yes)",
		},
	)

	// Remote Service Metrics
	RemoteSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_submissions_total",
			Help: "Total number of time entry submissions",
		},
		[]string{"result"}, // "success", "rejected", "unreachable"
	)

	RemoteFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_fetches_total",
			Help: "Total number of time entry fetches",
		},
		[]string{"result"},
	)

	RemoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "remote_request_duration_seconds",
			Help:    "Duration of remote service requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "submit", "fetch", "probe"
	)

	RemoteReachable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "remote_reachable",
			Help: "Remote service reachability (0=unreachable, 1=reachable)",
		},
	)

	BufferDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "entry_buffer_depth",
			Help: "Current number of time entries buffered for retry",
		},
	)

	BufferAppended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "entry_buffer_appended_total",
			Help: "Total number of time entries appended to the retry buffer",
		},
	)

	BufferDrained = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "entry_buffer_drained_total",
			Help: "Total number of time entries successfully drained from the retry buffer",
		},
	)

	// Notification Metrics
	NotificationsEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_enqueued_total",
			Help: "Total number of desktop notifications enqueued",
		},
	)

	NotificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_delivered_total",
			Help: "Total number of desktop notification delivery attempts",
		},
		[]string{"result"}, // "success", "failure"
	)

	NotificationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_queue_depth",
			Help: "Current number of desktop notifications waiting to be posted",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}, // Optimized for API latency
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// SetLinkState records the current Bluetooth link state
func SetLinkState(state float64) {
	LinkState.Set(state)
}

// RecordReconnectAttempt records a reconnect attempt and its outcome
func RecordReconnectAttempt(success bool) {
	if success {
		LinkReconnectAttempts.WithLabelValues("success").Inc()
	} else {
		LinkReconnectAttempts.WithLabelValues("failure").Inc()
	}
}

// UpdateLinkBackoff records the backoff interval currently scheduled
func UpdateLinkBackoff(backoff time.Duration) {
	LinkBackoffSeconds.Set(backoff.Seconds())
}

// RecordConnect records a successful die connection
func RecordConnect() {
	LinkConnects.Inc()
}

// RecordDisconnect records a die disconnection
func RecordDisconnect() {
	LinkDisconnects.Inc()
}

// RecordOrientationEvent records an orientation notification from the die
func RecordOrientationEvent() {
	OrientationEvents.Inc()
}

// UpdateBatteryLevel records the last reported die battery level
func UpdateBatteryLevel(percent uint8) {
	DieBatteryLevel.Set(float64(percent))
}

// UpdateAdapterPowered records the Bluetooth adapter power state
func UpdateAdapterPowered(powered bool) {
	if powered {
		AdapterPowered.Set(1)
	} else {
		AdapterPowered.Set(0)
	}
}

// RecordDiscovery records a completed discovery window and its result
func RecordDiscovery(result string) {
	DiscoveryRuns.WithLabelValues(result).Inc()
}

// RecordSessionOpened records a newly opened tracking session
func RecordSessionOpened() {
	SessionsOpened.Inc()
	SessionOpen.Set(1)
}

// RecordSessionClosed records a closed tracking session with its outcome
func RecordSessionClosed(outcome string, duration time.Duration) {
	SessionsClosed.WithLabelValues(outcome).Inc()
	SessionDuration.Observe(duration.Seconds())
	SessionOpen.Set(0)
}

// RecordRemoteSubmission records a time entry submission and its result
func RecordRemoteSubmission(result string, duration time.Duration) {
	RemoteSubmissions.WithLabelValues(result).Inc()
	RemoteRequestDuration.WithLabelValues("submit").Observe(duration.Seconds())
}

// RecordRemoteFetch records a time entry fetch and its result
func RecordRemoteFetch(result string, duration time.Duration) {
	RemoteFetches.WithLabelValues(result).Inc()
	RemoteRequestDuration.WithLabelValues("fetch").Observe(duration.Seconds())
}

// RecordRemoteProbe records a reachability probe round trip
func RecordRemoteProbe(duration time.Duration) {
	RemoteRequestDuration.WithLabelValues("probe").Observe(duration.Seconds())
}

// UpdateRemoteReachable records remote service reachability
func UpdateRemoteReachable(reachable bool) {
	if reachable {
		RemoteReachable.Set(1)
	} else {
		RemoteReachable.Set(0)
	}
}

// RecordBufferAppend records a time entry appended to the retry buffer
func RecordBufferAppend(depth int) {
	BufferAppended.Inc()
	BufferDepth.Set(float64(depth))
}

// RecordBufferDrain records a time entry drained from the retry buffer
func RecordBufferDrain(depth int) {
	BufferDrained.Inc()
	BufferDepth.Set(float64(depth))
}

// UpdateBufferDepth records the current retry buffer depth
func UpdateBufferDepth(depth int) {
	BufferDepth.Set(float64(depth))
}

// RecordNotificationEnqueued records a notification added to the queue
func RecordNotificationEnqueued(queueDepth int) {
	NotificationsEnqueued.Inc()
	NotificationQueueDepth.Set(float64(queueDepth))
}

// RecordNotificationDelivered records a delivery attempt and its outcome
func RecordNotificationDelivered(success bool, queueDepth int) {
	if success {
		NotificationsDelivered.WithLabelValues("success").Inc()
	} else {
		NotificationsDelivered.WithLabelValues("failure").Inc()
	}
	NotificationQueueDepth.Set(float64(queueDepth))
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit records a request rejected by rate limiting
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// TrackWebSocketConnection tracks active WebSocket connections
func TrackWebSocketConnection(inc bool) {
	if inc {
		WSConnections.Inc()
	} else {
		WSConnections.Dec()
	}
}

// RecordWebSocketMessage records a WebSocket message sent to a client
func RecordWebSocketMessage() {
	WSMessagesSent.Inc()
}

// RecordWebSocketError records a WebSocket error by type
func RecordWebSocketError(errorType string) {
	WSErrors.WithLabelValues(errorType).Inc()
}

// UpdateCircuitBreakerState records the current state of a named breaker
func UpdateCircuitBreakerState(name string, state float64) {
	CircuitBreakerState.WithLabelValues(name).Set(state)
}

// RecordCircuitBreakerRequest records a request through a named breaker
func RecordCircuitBreakerRequest(name, result string) {
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// UpdateCircuitBreakerFailures records consecutive failures for a named breaker
func UpdateCircuitBreakerFailures(name string, failures uint32) {
	CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(float64(failures))
}

// RecordCircuitBreakerTransition records a breaker state transition
func RecordCircuitBreakerTransition(name, fromState, toState string) {
	CircuitBreakerTransitions.WithLabelValues(name, fromState, toState).Inc()
}

// SetAppInfo records application version and build information
func SetAppInfo(version string) {
	AppInfo.WithLabelValues(version, runtime.Version()).Set(1)
}

// UpdateUptime records seconds elapsed since the given start time
func UpdateUptime(start time.Time) {
	AppUptime.Set(time.Since(start).Seconds())
}
