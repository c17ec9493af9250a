// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package ble

import (
	"slices"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestReconnectDelayTiers(t *testing.T) {
	tests := []struct {
		name     string
		attempts int
		want     time.Duration
	}{
		{"first attempt", 0, 5 * time.Second},
		{"last of first tier", 11, 5 * time.Second},
		{"second tier start", 12, 30 * time.Second},
		{"second tier end", 35, 30 * time.Second},
		{"third tier start", 36, 2 * time.Minute},
		{"third tier end", 83, 2 * time.Minute},
		{"fourth tier start", 84, 5 * time.Minute},
		{"fourth tier end", 107, 5 * time.Minute},
		{"background scan threshold", 108, 15 * time.Minute},
		{"deep into final tier", 5000, 15 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reconnectDelay(tt.attempts); got != tt.want {
				t.Errorf("reconnectDelay(%d) = %v, want %v", tt.attempts, got, tt.want)
			}
		})
	}
}

func TestReconnectDelayProperties(t *testing.T) {
	tiers := []time.Duration{
		5 * time.Second,
		30 * time.Second,
		2 * time.Minute,
		5 * time.Minute,
		15 * time.Minute,
	}

	rapid.Check(t, func(t *rapid.T) {
		attempts := rapid.IntRange(0, 10000).Draw(t, "attempts")
		delay := reconnectDelay(attempts)

		if !slices.Contains(tiers, delay) {
			t.Fatalf("reconnectDelay(%d) = %v, not a defined tier", attempts, delay)
		}
		if next := reconnectDelay(attempts + 1); next < delay {
			t.Fatalf("delay shrank from %v at %d attempts to %v at %d", delay, attempts, next, attempts+1)
		}
	})
}
