// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package ble

import "time"

// backgroundScanAfter is the attempt count at which the Manager adds
// passive scanning between reconnect attempts. At the tier lengths below
// this is roughly two hours after the die went missing.
const backgroundScanAfter = 108

// reconnectDelay returns the wait before reconnect attempt number
// attempts. The first dozen attempts retry quickly to ride out transient
// radio drops, then the delay steps up so a die that is genuinely gone
// (taken on a trip, battery dead) does not keep the radio busy.
func reconnectDelay(attempts int) time.Duration {
	switch {
	case attempts >= backgroundScanAfter:
		return 15 * time.Minute
	case attempts >= 84:
		return 5 * time.Minute
	case attempts >= 36:
		return 2 * time.Minute
	case attempts >= 12:
		return 30 * time.Second
	default:
		return 5 * time.Second
	}
}
