// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

// getCounterValue extracts the current value from a counter
func getCounterValue(c prometheus.Counter) float64 {
	var m io_prometheus_client.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// getGaugeValue extracts the current value from a gauge
func getGaugeValue(g prometheus.Gauge) float64 {
	var m io_prometheus_client.Metric
	if err := g.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

// TestSetLinkState tests link state gauge recording
func TestSetLinkState(t *testing.T) {
	tests := []struct {
		name  string
		state float64
	}{
		{"idle", LinkStateIdle},
		{"scanning", LinkStateScanning},
		{"connecting", LinkStateConnecting},
		{"connected", LinkStateConnected},
		{"awaiting reconnect", LinkStateAwaitingReconnect},
		{"background scanning", LinkStateBackgroundScanning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLinkState(tt.state)
			if got := getGaugeValue(LinkState); got != tt.state {
				t.Errorf("LinkState = %v, want %v", got, tt.state)
			}
		})
	}
}

// TestRecordReconnectAttempt tests reconnect attempt counting by result
func TestRecordReconnectAttempt(t *testing.T) {
	successBefore := getCounterValue(LinkReconnectAttempts.WithLabelValues("success"))
	failureBefore := getCounterValue(LinkReconnectAttempts.WithLabelValues("failure"))

	RecordReconnectAttempt(true)
	RecordReconnectAttempt(false)
	RecordReconnectAttempt(false)

	if got := getCounterValue(LinkReconnectAttempts.WithLabelValues("success")); got != successBefore+1 {
		t.Errorf("success attempts = %v, want %v", got, successBefore+1)
	}
	if got := getCounterValue(LinkReconnectAttempts.WithLabelValues("failure")); got != failureBefore+2 {
		t.Errorf("failure attempts = %v, want %v", got, failureBefore+2)
	}
}

// TestUpdateLinkBackoff tests backoff gauge recording
func TestUpdateLinkBackoff(t *testing.T) {
	tests := []struct {
		name    string
		backoff time.Duration
		want    float64
	}{
		{"first tier", 5 * time.Second, 5},
		{"second tier", 30 * time.Second, 30},
		{"third tier", 120 * time.Second, 120},
		{"fourth tier", 300 * time.Second, 300},
		{"final tier", 900 * time.Second, 900},
		{"cleared", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			UpdateLinkBackoff(tt.backoff)
			if got := getGaugeValue(LinkBackoffSeconds); got != tt.want {
				t.Errorf("LinkBackoffSeconds = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestUpdateBatteryLevel tests battery gauge recording
func TestUpdateBatteryLevel(t *testing.T) {
	UpdateBatteryLevel(87)
	if got := getGaugeValue(DieBatteryLevel); got != 87 {
		t.Errorf("DieBatteryLevel = %v, want 87", got)
	}

	UpdateBatteryLevel(0)
	if got := getGaugeValue(DieBatteryLevel); got != 0 {
		t.Errorf("DieBatteryLevel = %v, want 0", got)
	}
}

// TestUpdateAdapterPowered tests adapter power state recording
func TestUpdateAdapterPowered(t *testing.T) {
	UpdateAdapterPowered(true)
	if got := getGaugeValue(AdapterPowered); got != 1 {
		t.Errorf("AdapterPowered = %v, want 1", got)
	}

	UpdateAdapterPowered(false)
	if got := getGaugeValue(AdapterPowered); got != 0 {
		t.Errorf("AdapterPowered = %v, want 0", got)
	}
}

// TestSessionLifecycle tests the open flag across session transitions
func TestSessionLifecycle(t *testing.T) {
	openedBefore := getCounterValue(SessionsOpened)

	RecordSessionOpened()
	if got := getGaugeValue(SessionOpen); got != 1 {
		t.Errorf("SessionOpen after open = %v, want 1", got)
	}
	if got := getCounterValue(SessionsOpened); got != openedBefore+1 {
		t.Errorf("SessionsOpened = %v, want %v", got, openedBefore+1)
	}

	RecordSessionClosed("sent", 125*time.Second)
	if got := getGaugeValue(SessionOpen); got != 0 {
		t.Errorf("SessionOpen after close = %v, want 0", got)
	}
}

// TestRecordSessionClosed tests session close recording by outcome
func TestRecordSessionClosed(t *testing.T) {
	tests := []struct {
		name     string
		outcome  string
		duration time.Duration
	}{
		{"short session hidden", "hidden", 5 * time.Second},
		{"normal session sent", "sent", 100 * time.Second},
		{"existing entry modified", "modified", 45 * time.Minute},
		{"stale conflict abandoned", "stale", 30 * time.Second},
		{"unreachable remote buffered", "buffered", 2 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := getCounterValue(SessionsClosed.WithLabelValues(tt.outcome))
			RecordSessionClosed(tt.outcome, tt.duration)
			if got := getCounterValue(SessionsClosed.WithLabelValues(tt.outcome)); got != before+1 {
				t.Errorf("SessionsClosed[%s] = %v, want %v", tt.outcome, got, before+1)
			}
		})
	}
}

// TestRecordRemoteSubmission tests submission recording by result
func TestRecordRemoteSubmission(t *testing.T) {
	tests := []struct {
		name     string
		result   string
		duration time.Duration
	}{
		{"accepted entry", "success", 80 * time.Millisecond},
		{"rejected entry", "rejected", 60 * time.Millisecond},
		{"unreachable service", "unreachable", 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := getCounterValue(RemoteSubmissions.WithLabelValues(tt.result))
			RecordRemoteSubmission(tt.result, tt.duration)
			if got := getCounterValue(RemoteSubmissions.WithLabelValues(tt.result)); got != before+1 {
				t.Errorf("RemoteSubmissions[%s] = %v, want %v", tt.result, got, before+1)
			}
		})
	}
}

// TestRecordRemoteFetch tests fetch recording by result
func TestRecordRemoteFetch(t *testing.T) {
	before := getCounterValue(RemoteFetches.WithLabelValues("success"))
	RecordRemoteFetch("success", 50*time.Millisecond)
	if got := getCounterValue(RemoteFetches.WithLabelValues("success")); got != before+1 {
		t.Errorf("RemoteFetches[success] = %v, want %v", got, before+1)
	}
}

// TestUpdateRemoteReachable tests reachability gauge recording
func TestUpdateRemoteReachable(t *testing.T) {
	UpdateRemoteReachable(true)
	if got := getGaugeValue(RemoteReachable); got != 1 {
		t.Errorf("RemoteReachable = %v, want 1", got)
	}

	UpdateRemoteReachable(false)
	if got := getGaugeValue(RemoteReachable); got != 0 {
		t.Errorf("RemoteReachable = %v, want 0", got)
	}
}

// TestBufferMetrics tests retry buffer depth tracking across appends and drains
func TestBufferMetrics(t *testing.T) {
	appendedBefore := getCounterValue(BufferAppended)
	drainedBefore := getCounterValue(BufferDrained)

	RecordBufferAppend(1)
	RecordBufferAppend(2)
	if got := getGaugeValue(BufferDepth); got != 2 {
		t.Errorf("BufferDepth after appends = %v, want 2", got)
	}

	RecordBufferDrain(1)
	if got := getGaugeValue(BufferDepth); got != 1 {
		t.Errorf("BufferDepth after drain = %v, want 1", got)
	}

	if got := getCounterValue(BufferAppended); got != appendedBefore+2 {
		t.Errorf("BufferAppended = %v, want %v", got, appendedBefore+2)
	}
	if got := getCounterValue(BufferDrained); got != drainedBefore+1 {
		t.Errorf("BufferDrained = %v, want %v", got, drainedBefore+1)
	}

	UpdateBufferDepth(0)
	if got := getGaugeValue(BufferDepth); got != 0 {
		t.Errorf("BufferDepth after reset = %v, want 0", got)
	}
}

// TestNotificationMetrics tests notification queue tracking
func TestNotificationMetrics(t *testing.T) {
	enqueuedBefore := getCounterValue(NotificationsEnqueued)

	RecordNotificationEnqueued(3)
	if got := getGaugeValue(NotificationQueueDepth); got != 3 {
		t.Errorf("NotificationQueueDepth = %v, want 3", got)
	}
	if got := getCounterValue(NotificationsEnqueued); got != enqueuedBefore+1 {
		t.Errorf("NotificationsEnqueued = %v, want %v", got, enqueuedBefore+1)
	}

	successBefore := getCounterValue(NotificationsDelivered.WithLabelValues("success"))
	failureBefore := getCounterValue(NotificationsDelivered.WithLabelValues("failure"))

	RecordNotificationDelivered(true, 2)
	RecordNotificationDelivered(false, 1)

	if got := getCounterValue(NotificationsDelivered.WithLabelValues("success")); got != successBefore+1 {
		t.Errorf("NotificationsDelivered[success] = %v, want %v", got, successBefore+1)
	}
	if got := getCounterValue(NotificationsDelivered.WithLabelValues("failure")); got != failureBefore+1 {
		t.Errorf("NotificationsDelivered[failure] = %v, want %v", got, failureBefore+1)
	}
	if got := getGaugeValue(NotificationQueueDepth); got != 1 {
		t.Errorf("NotificationQueueDepth = %v, want 1", got)
	}
}

// TestRecordAPIRequest tests API request metric recording
func TestRecordAPIRequest(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		endpoint   string
		statusCode string
		duration   time.Duration
	}{
		{
			name:       "successful status request",
			method:     "GET",
			endpoint:   "/api/v1/status",
			statusCode: "200",
			duration:   5 * time.Millisecond,
		},
		{
			name:       "discovery request",
			method:     "POST",
			endpoint:   "/api/v1/device/discover",
			statusCode: "200",
			duration:   10 * time.Second,
		},
		{
			name:       "unauthorized request",
			method:     "POST",
			endpoint:   "/api/v1/device/forget",
			statusCode: "401",
			duration:   2 * time.Millisecond,
		},
		{
			name:       "not found request",
			method:     "GET",
			endpoint:   "/api/v1/unknown",
			statusCode: "404",
			duration:   time.Millisecond,
		},
		{
			name:       "rate limited request",
			method:     "GET",
			endpoint:   "/api/v1/history",
			statusCode: "429",
			duration:   time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := getCounterValue(APIRequestsTotal.WithLabelValues(tt.method, tt.endpoint, tt.statusCode))
			RecordAPIRequest(tt.method, tt.endpoint, tt.statusCode, tt.duration)
			if got := getCounterValue(APIRequestsTotal.WithLabelValues(tt.method, tt.endpoint, tt.statusCode)); got != before+1 {
				t.Errorf("APIRequestsTotal = %v, want %v", got, before+1)
			}
		})
	}
}

// TestTrackActiveRequest tests the in-flight request gauge
func TestTrackActiveRequest(t *testing.T) {
	before := getGaugeValue(APIActiveRequests)

	TrackActiveRequest(true)
	TrackActiveRequest(true)
	if got := getGaugeValue(APIActiveRequests); got != before+2 {
		t.Errorf("APIActiveRequests = %v, want %v", got, before+2)
	}

	TrackActiveRequest(false)
	TrackActiveRequest(false)
	if got := getGaugeValue(APIActiveRequests); got != before {
		t.Errorf("APIActiveRequests = %v, want %v", got, before)
	}
}

// TestCircuitBreakerMetrics tests breaker state and transition recording
func TestCircuitBreakerMetrics(t *testing.T) {
	UpdateCircuitBreakerState("remote", 2)
	if got := getGaugeValue(CircuitBreakerState.WithLabelValues("remote")); got != 2 {
		t.Errorf("CircuitBreakerState[remote] = %v, want 2", got)
	}

	UpdateCircuitBreakerFailures("remote", 7)
	if got := getGaugeValue(CircuitBreakerConsecutiveFailures.WithLabelValues("remote")); got != 7 {
		t.Errorf("CircuitBreakerConsecutiveFailures[remote] = %v, want 7", got)
	}

	reqBefore := getCounterValue(CircuitBreakerRequests.WithLabelValues("remote", "rejected"))
	RecordCircuitBreakerRequest("remote", "rejected")
	if got := getCounterValue(CircuitBreakerRequests.WithLabelValues("remote", "rejected")); got != reqBefore+1 {
		t.Errorf("CircuitBreakerRequests[remote,rejected] = %v, want %v", got, reqBefore+1)
	}

	transBefore := getCounterValue(CircuitBreakerTransitions.WithLabelValues("remote", "closed", "open"))
	RecordCircuitBreakerTransition("remote", "closed", "open")
	if got := getCounterValue(CircuitBreakerTransitions.WithLabelValues("remote", "closed", "open")); got != transBefore+1 {
		t.Errorf("CircuitBreakerTransitions[remote,closed,open] = %v, want %v", got, transBefore+1)
	}
}

// TestWebSocketMetrics tests connection and message tracking
func TestWebSocketMetrics(t *testing.T) {
	before := getGaugeValue(WSConnections)

	TrackWebSocketConnection(true)
	if got := getGaugeValue(WSConnections); got != before+1 {
		t.Errorf("WSConnections = %v, want %v", got, before+1)
	}
	TrackWebSocketConnection(false)
	if got := getGaugeValue(WSConnections); got != before {
		t.Errorf("WSConnections = %v, want %v", got, before)
	}

	sentBefore := getCounterValue(WSMessagesSent)
	RecordWebSocketMessage()
	if got := getCounterValue(WSMessagesSent); got != sentBefore+1 {
		t.Errorf("WSMessagesSent = %v, want %v", got, sentBefore+1)
	}

	errBefore := getCounterValue(WSErrors.WithLabelValues("send_failed"))
	RecordWebSocketError("send_failed")
	if got := getCounterValue(WSErrors.WithLabelValues("send_failed")); got != errBefore+1 {
		t.Errorf("WSErrors[send_failed] = %v, want %v", got, errBefore+1)
	}
}

// TestRecordDiscovery tests discovery window recording by result
func TestRecordDiscovery(t *testing.T) {
	tests := []struct {
		name   string
		result string
	}{
		{"devices found", "found"},
		{"nothing in range", "empty"},
		{"scan failed", "failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := getCounterValue(DiscoveryRuns.WithLabelValues(tt.result))
			RecordDiscovery(tt.result)
			if got := getCounterValue(DiscoveryRuns.WithLabelValues(tt.result)); got != before+1 {
				t.Errorf("DiscoveryRuns[%s] = %v, want %v", tt.result, got, before+1)
			}
		})
	}
}

// TestAppMetrics tests version info and uptime recording
func TestAppMetrics(t *testing.T) {
	SetAppInfo("1.0.0-test")

	UpdateUptime(time.Now().Add(-time.Minute))
	if got := getGaugeValue(AppUptime); got < 59 || got > 120 {
		t.Errorf("AppUptime = %v, want roughly 60", got)
	}
}

// TestMetricsRegistration verifies all metrics are properly registered
func TestMetricsRegistration(t *testing.T) {
	metrics := []prometheus.Collector{
		LinkState,
		LinkReconnectAttempts,
		LinkBackoffSeconds,
		LinkConnects,
		LinkDisconnects,
		OrientationEvents,
		DieBatteryLevel,
		AdapterPowered,
		DiscoveryRuns,
		SessionsOpened,
		SessionsClosed,
		SessionDuration,
		SessionOpen,
		RemoteSubmissions,
		RemoteFetches,
		RemoteRequestDuration,
		RemoteReachable,
		BufferDepth,
		BufferAppended,
		BufferDrained,
		NotificationsEnqueued,
		NotificationsDelivered,
		NotificationQueueDepth,
		APIRequestsTotal,
		APIRequestDuration,
		APIActiveRequests,
		APIRateLimitHits,
		WSConnections,
		WSMessagesSent,
		WSErrors,
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerConsecutiveFailures,
		CircuitBreakerTransitions,
		AppInfo,
		AppUptime,
	}

	// Verify each metric can be described
	for _, m := range metrics {
		ch := make(chan *prometheus.Desc, 10)
		m.Describe(ch)
		close(ch)

		// Should have at least one descriptor
		count := 0
		for range ch {
			count++
		}
		if count == 0 {
			t.Errorf("Metric has no descriptors")
		}
	}
}

// TestMetricGathering tests that metrics can be gathered using testutil
func TestMetricGathering(t *testing.T) {
	RecordOrientationEvent()
	RecordAPIRequest("GET", "/test", "200", time.Millisecond)

	// Verify we can lint the metrics (checks for consistency issues)
	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Logf("Lint errors (may be expected): %v", err)
	}
	for _, p := range problems {
		t.Logf("Metric lint problem: %s", p.Text)
	}
}

// Benchmark tests for metrics performance

func BenchmarkRecordAPIRequest(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordAPIRequest("GET", "/api/v1/status", "200", 5*time.Millisecond)
	}
}

func BenchmarkRecordOrientationEvent(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordOrientationEvent()
	}
}

func BenchmarkTrackActiveRequest(b *testing.B) {
	for i := 0; i < b.N; i++ {
		TrackActiveRequest(true)
		TrackActiveRequest(false)
	}
}
