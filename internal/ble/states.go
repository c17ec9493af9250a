// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package ble

import "github.com/nollvik/sidetrackd/internal/metrics"

// LinkState describes where the connection state machine currently is.
type LinkState string

const (
	// StateIdle means no device is remembered, or the adapter is off.
	StateIdle LinkState = "idle"

	// StateScanning means a manual discovery window is open and no
	// connection exists.
	StateScanning LinkState = "scanning"

	// StateConnecting means a connect call to the remembered device is in
	// flight.
	StateConnecting LinkState = "connecting"

	// StateConnected means the die is linked and its notifications are
	// subscribed.
	StateConnected LinkState = "connected"

	// StateAwaitingReconnect means the link dropped or a connect attempt
	// failed and the next attempt is waiting out its backoff delay.
	StateAwaitingReconnect LinkState = "awaiting_reconnect"

	// StateBackgroundScanning means the die has been unreachable long
	// enough that the Manager passively scans for it between attempts.
	StateBackgroundScanning LinkState = "background_scanning"
)

// String returns the state name.
func (s LinkState) String() string {
	return string(s)
}

// metricValue maps the state onto its gauge encoding.
func (s LinkState) metricValue() float64 {
	switch s {
	case StateIdle:
		return metrics.LinkStateIdle
	case StateScanning:
		return metrics.LinkStateScanning
	case StateConnecting:
		return metrics.LinkStateConnecting
	case StateConnected:
		return metrics.LinkStateConnected
	case StateAwaitingReconnect:
		return metrics.LinkStateAwaitingReconnect
	case StateBackgroundScanning:
		return metrics.LinkStateBackgroundScanning
	default:
		return metrics.LinkStateIdle
	}
}
