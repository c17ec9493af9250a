// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package ble

import (
	"testing"

	"github.com/nollvik/sidetrackd/internal/metrics"
)

func TestLinkStateMetricValue(t *testing.T) {
	tests := []struct {
		state LinkState
		want  float64
	}{
		{StateIdle, metrics.LinkStateIdle},
		{StateScanning, metrics.LinkStateScanning},
		{StateConnecting, metrics.LinkStateConnecting},
		{StateConnected, metrics.LinkStateConnected},
		{StateAwaitingReconnect, metrics.LinkStateAwaitingReconnect},
		{StateBackgroundScanning, metrics.LinkStateBackgroundScanning},
		{LinkState("bogus"), metrics.LinkStateIdle},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := tt.state.metricValue(); got != tt.want {
				t.Errorf("metricValue(%s) = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}
