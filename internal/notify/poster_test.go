// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package notify

import (
	"context"
	"testing"

	"github.com/nollvik/sidetrackd/internal/bus"
)

func TestUrgencyByte(t *testing.T) {
	tests := []struct {
		urgency string
		want    byte
	}{
		{bus.UrgencyLow, 0},
		{bus.UrgencyNormal, 1},
		{bus.UrgencyCritical, 2},
		{"", 1},
		{"bogus", 1},
	}
	for _, tt := range tests {
		if got := urgencyByte(tt.urgency); got != tt.want {
			t.Errorf("urgencyByte(%q) = %d, want %d", tt.urgency, got, tt.want)
		}
	}
}

func TestLogPosterNeverFails(t *testing.T) {
	p := LogPoster{}
	n := Notification{Summary: "Tracking Meetings", Body: "Die face 2", Urgency: bus.UrgencyCritical}
	if err := p.Post(context.Background(), n); err != nil {
		t.Fatalf("Post: %v", err)
	}
}
