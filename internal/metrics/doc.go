// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package implements application instrumentation using the Prometheus client
library, exposing metrics for monitoring the Bluetooth link, tracking sessions,
remote submissions, and system health.

# Overview

The package provides metrics for:
  - Bluetooth link state, reconnect attempts, and backoff scheduling
  - Orientation events and die battery level
  - Tracking session lifecycle and durations
  - Remote time entry submissions, fetches, and the retry buffer
  - Circuit breaker state transitions
  - Desktop notification delivery
  - HTTP API latency and throughput
  - WebSocket connection counts

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8413/metrics

# Available Metrics

Link Metrics:
  - link_state: Current link state (gauge)
    Values: 0=idle, 1=scanning, 2=connecting, 3=connected,
    4=awaiting_reconnect, 5=background_scanning
  - link_reconnect_attempts_total: Reconnect attempts (counter)
    Labels: result (success, failure)
  - link_backoff_seconds: Currently scheduled backoff interval (gauge)
  - link_connects_total: Successful die connections (counter)
  - link_disconnects_total: Die disconnections (counter)
  - orientation_events_total: Orientation notifications received (counter)
  - die_battery_level: Last reported battery level, 0-100 (gauge)
  - bluetooth_adapter_powered: Adapter power state (gauge)
  - discovery_runs_total: Completed discovery windows (counter)
    Labels: result (found, empty, failure)

Tracking Metrics:
  - tracking_sessions_opened_total: Sessions opened (counter)
  - tracking_sessions_closed_total: Sessions closed (counter)
    Labels: outcome (hidden, sent, modified, stale, buffered)
  - tracking_session_duration_seconds: Session length (histogram)
  - tracking_session_open: Whether a session is currently open (gauge)

Remote Metrics:
  - remote_submissions_total: Time entry submissions (counter)
    Labels: result (success, rejected, unreachable)
  - remote_fetches_total: Time entry fetches (counter)
    Labels: result
  - remote_request_duration_seconds: Request latency (histogram)
    Labels: operation (submit, fetch, probe)
  - remote_reachable: Remote service reachability (gauge)
  - entry_buffer_depth: Buffered entries awaiting drain (gauge)
  - entry_buffer_appended_total: Entries appended to the buffer (counter)
  - entry_buffer_drained_total: Entries drained from the buffer (counter)

Circuit Breaker Metrics:
  - circuit_breaker_state: Current state (gauge)
    Labels: name
    Values: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total: Requests through breakers (counter)
    Labels: name, result
  - circuit_breaker_consecutive_failures: Consecutive failures (gauge)
    Labels: name
  - circuit_breaker_state_transitions_total: State transitions (counter)
    Labels: name, from_state, to_state

Notification Metrics:
  - notifications_enqueued_total: Notifications queued (counter)
  - notifications_delivered_total: Delivery attempts (counter)
    Labels: result (success, failure)
  - notification_queue_depth: Pending notifications (gauge)

API Metrics:
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - api_active_requests: Active requests (gauge)
  - api_rate_limit_hits_total: Rate limit rejections (counter)
    Labels: endpoint

WebSocket Metrics:
  - websocket_connections: Active connections (gauge)
  - websocket_messages_sent_total: Messages sent (counter)
  - websocket_errors_total: Errors by type (counter)
    Labels: error_type

# Usage Example

Basic setup in main.go:

	import (
	    "github.com/nollvik/sidetrackd/internal/metrics"
	    "github.com/prometheus/client_golang/prometheus/promhttp"
	)

	func main() {
	    http.Handle("/metrics", promhttp.Handler())

	    metrics.SetLinkState(metrics.LinkStateConnected)
	    metrics.RecordReconnectAttempt(true)
	    metrics.RecordSessionClosed("sent", 125*time.Second)
	}

# Thread Safety

All metric recording functions are thread-safe and designed for concurrent use
from multiple goroutines. The Prometheus client library handles synchronization
internally.

# Cardinality Management

To prevent high cardinality issues:

  - Endpoint labels are normalized route patterns, never raw request paths
  - Result and outcome labels are limited to predefined constants
  - Activity keys and device addresses are never used as labels

# See Also

  - internal/api: HTTP middleware with metrics integration
  - internal/remote: Submission and circuit breaker metrics recording
  - internal/ble: Link state metrics recording
  - https://prometheus.io/docs/practices/naming/: Metric naming conventions
*/
package metrics
