// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package bus

import (
	"testing"
	"time"
)

var testTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// TestNewConnectedEvent verifies constructor defaults
func TestNewConnectedEvent(t *testing.T) {
	event := NewConnectedEvent(testTime, "AA:BB:CC:DD:EE:FF", "Sidetrack D12")

	if event.SchemaVersion != SchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", event.SchemaVersion, SchemaVersion)
	}
	if event.ID() == "" {
		t.Error("expected non-empty event ID")
	}
	if !event.Timestamp.Equal(testTime) {
		t.Errorf("Timestamp = %v, want %v", event.Timestamp, testTime)
	}
	if event.Address != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("Address = %q", event.Address)
	}
	if event.Name != "Sidetrack D12" {
		t.Errorf("Name = %q", event.Name)
	}
	if err := event.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

// TestEventIDsAreUnique verifies each constructed event gets its own ID
func TestEventIDsAreUnique(t *testing.T) {
	a := NewOrientationEvent(testTime, "AA:BB:CC:DD:EE:FF", 1)
	b := NewOrientationEvent(testTime, "AA:BB:CC:DD:EE:FF", 1)
	if a.ID() == b.ID() {
		t.Errorf("expected unique event IDs, both were %q", a.ID())
	}
}

// TestEventTopics verifies the topic mapping for every event type
func TestEventTopics(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{"connected", NewConnectedEvent(testTime, "AA:BB:CC:DD:EE:FF", ""), TopicLinkConnected},
		{"disconnected", NewDisconnectedEvent(testTime, "AA:BB:CC:DD:EE:FF", ReasonRemote), TopicLinkDisconnected},
		{"orientation", NewOrientationEvent(testTime, "AA:BB:CC:DD:EE:FF", 3), TopicOrientation},
		{"battery", NewBatteryEvent(testTime, "AA:BB:CC:DD:EE:FF", 80), TopicBattery},
		{"reachability", NewReachabilityEvent(testTime, true), TopicReachability},
		{"session started", NewSessionStartedEvent(testTime, 2, "Meetings", "aB3xK9qW", testTime), TopicSession},
		{"buffer depth", NewBufferDepthEvent(testTime, 3), TopicBuffer},
		{"notify", NewNotifyRequestEvent(testTime, "Tracking Meetings", "", ""), TopicNotify},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.Topic(); got != tt.want {
				t.Errorf("Topic() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestConnectedEventValidate verifies required field checks
func TestConnectedEventValidate(t *testing.T) {
	event := NewConnectedEvent(testTime, "", "")
	if err := event.Validate(); err == nil {
		t.Error("expected error for missing address")
	}

	event = NewConnectedEvent(testTime, "AA:BB:CC:DD:EE:FF", "")
	event.EventID = ""
	if err := event.Validate(); err == nil {
		t.Error("expected error for missing event ID")
	}
}

// TestDisconnectedEventValidate verifies required field checks
func TestDisconnectedEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		address string
		reason  string
		wantErr bool
	}{
		{"valid remote drop", "AA:BB:CC:DD:EE:FF", ReasonRemote, false},
		{"valid forget", "AA:BB:CC:DD:EE:FF", ReasonForgotten, false},
		{"missing address", "", ReasonRemote, true},
		{"missing reason", "AA:BB:CC:DD:EE:FF", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := NewDisconnectedEvent(testTime, tt.address, tt.reason)
			err := event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestOrientationEventValidate verifies face 0 is a valid flat orientation
func TestOrientationEventValidate(t *testing.T) {
	flat := NewOrientationEvent(testTime, "AA:BB:CC:DD:EE:FF", 0)
	if err := flat.Validate(); err != nil {
		t.Errorf("Validate() for flat orientation = %v, want nil", err)
	}

	missing := NewOrientationEvent(testTime, "", 4)
	if err := missing.Validate(); err == nil {
		t.Error("expected error for missing address")
	}
}

// TestBatteryEventValidate verifies level bounds
func TestBatteryEventValidate(t *testing.T) {
	event := NewBatteryEvent(testTime, "AA:BB:CC:DD:EE:FF", 100)
	if err := event.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	event.Level = 101
	if err := event.Validate(); err == nil {
		t.Error("expected error for level above 100")
	}
}

// TestSessionEventValidate verifies lifecycle field requirements
func TestSessionEventValidate(t *testing.T) {
	started := NewSessionStartedEvent(testTime, 2, "Meetings", "aB3xK9qW", testTime)
	if err := started.Validate(); err != nil {
		t.Errorf("Validate() for started = %v, want nil", err)
	}

	stopped := NewSessionStoppedEvent(testTime, 2, "Meetings", "aB3xK9qW", testTime, testTime.Add(time.Minute), OutcomeSent)
	if err := stopped.Validate(); err != nil {
		t.Errorf("Validate() for stopped = %v, want nil", err)
	}

	tests := []struct {
		name   string
		mutate func(*SessionEvent)
	}{
		{"bad kind", func(e *SessionEvent) { e.Kind = "paused" }},
		{"missing activity", func(e *SessionEvent) { e.Activity = "" }},
		{"missing key", func(e *SessionEvent) { e.ActivityKey = "" }},
		{"missing start", func(e *SessionEvent) { e.StartedAt = time.Time{} }},
		{"stopped without stop time", func(e *SessionEvent) { e.StoppedAt = nil }},
		{"stopped without outcome", func(e *SessionEvent) { e.Outcome = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := NewSessionStoppedEvent(testTime, 2, "Meetings", "aB3xK9qW", testTime, testTime.Add(time.Minute), OutcomeSent)
			tt.mutate(event)
			if err := event.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

// TestSessionEventDuration verifies duration for open and closed sessions
func TestSessionEventDuration(t *testing.T) {
	start := testTime
	stop := testTime.Add(90 * time.Second)

	stopped := NewSessionStoppedEvent(stop, 2, "Meetings", "aB3xK9qW", start, stop, OutcomeSent)
	if got := stopped.Duration(stop.Add(time.Hour)); got != 90*time.Second {
		t.Errorf("Duration() for stopped = %v, want 90s", got)
	}
	if !stopped.IsStopped() {
		t.Error("IsStopped() = false for stopped session")
	}

	open := NewSessionStartedEvent(start, 2, "Meetings", "aB3xK9qW", start)
	if got := open.Duration(start.Add(30 * time.Second)); got != 30*time.Second {
		t.Errorf("Duration() for open = %v, want 30s", got)
	}
	if open.IsStopped() {
		t.Error("IsStopped() = true for open session")
	}
}

// TestBufferDepthEventValidate verifies depth bounds
func TestBufferDepthEventValidate(t *testing.T) {
	event := NewBufferDepthEvent(testTime, 0)
	if err := event.Validate(); err != nil {
		t.Errorf("Validate() for empty buffer = %v, want nil", err)
	}

	event = NewBufferDepthEvent(testTime, 5)
	if err := event.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	event.Depth = -1
	if err := event.Validate(); err == nil {
		t.Error("expected error for negative depth")
	}
}

// TestNotifyRequestEventValidate verifies urgency defaults and bounds
func TestNotifyRequestEventValidate(t *testing.T) {
	event := NewNotifyRequestEvent(testTime, "Tracking Meetings", "face 2 up", "")
	if event.Urgency != UrgencyNormal {
		t.Errorf("default Urgency = %q, want %q", event.Urgency, UrgencyNormal)
	}
	if err := event.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	event = NewNotifyRequestEvent(testTime, "", "", UrgencyLow)
	if err := event.Validate(); err == nil {
		t.Error("expected error for missing summary")
	}

	event = NewNotifyRequestEvent(testTime, "summary", "", UrgencyCritical)
	event.Urgency = "shouting"
	if err := event.Validate(); err == nil {
		t.Error("expected error for unknown urgency")
	}
}

// TestValidationError verifies the error string format
func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "address", Message: "required"}
	if got := err.Error(); got != "address: required" {
		t.Errorf("Error() = %q, want %q", got, "address: required")
	}
}
