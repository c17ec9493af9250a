// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package bus

import (
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the current event schema version.
// Increment this when making breaking changes to event payloads.
const SchemaVersion = 1

// Topic names for the in-process event bus. One topic per event type keeps
// per-topic delivery order equal to publish order.
const (
	// TopicLinkConnected carries ConnectedEvent payloads.
	TopicLinkConnected = "link.connected"
	// TopicLinkDisconnected carries DisconnectedEvent payloads.
	TopicLinkDisconnected = "link.disconnected"
	// TopicOrientation carries OrientationEvent payloads.
	TopicOrientation = "link.orientation"
	// TopicBattery carries BatteryEvent payloads.
	TopicBattery = "link.battery"
	// TopicReachability carries ReachabilityEvent payloads.
	TopicReachability = "remote.reachability"
	// TopicSession carries SessionEvent payloads.
	TopicSession = "tracking.session"
	// TopicBuffer carries BufferDepthEvent payloads.
	TopicBuffer = "tracking.buffer"
	// TopicNotify carries NotifyRequestEvent payloads.
	TopicNotify = "notify.request"
)

// Session event kinds.
const (
	// SessionStarted indicates a tracking session was opened.
	SessionStarted = "started"
	// SessionStopped indicates a tracking session was closed.
	SessionStopped = "stopped"
)

// Session close outcomes.
const (
	// OutcomeHidden indicates the session was below the short session cutoff
	// and recorded as a hidden entry.
	OutcomeHidden = "hidden"
	// OutcomeSent indicates a fresh entry was submitted for the session.
	OutcomeSent = "sent"
	// OutcomeModified indicates an existing remote entry was extended.
	OutcomeModified = "modified"
	// OutcomeStale indicates the session was abandoned because the remote
	// entry for its key was hidden.
	OutcomeStale = "stale"
	// OutcomeBuffered indicates the closing entry could not be delivered and
	// was placed in the retry buffer.
	OutcomeBuffered = "buffered"
	// OutcomeRejected indicates the service refused the closing entry.
	// Rejected entries are never buffered.
	OutcomeRejected = "rejected"
)

// Disconnect reasons.
const (
	// ReasonRemote indicates the die dropped the connection.
	ReasonRemote = "remote"
	// ReasonForgotten indicates the device was forgotten by request.
	ReasonForgotten = "forgotten"
	// ReasonAdapterOff indicates the Bluetooth adapter lost power.
	ReasonAdapterOff = "adapter_off"
	// ReasonReplaced indicates a different die was paired over this one.
	ReasonReplaced = "replaced"
	// ReasonShutdown indicates the daemon disconnected on exit.
	ReasonShutdown = "shutdown"
)

// Notification urgency levels, matching org.freedesktop.Notifications.
const (
	// UrgencyLow for informational notices.
	UrgencyLow = "low"
	// UrgencyNormal for regular activity changes.
	UrgencyNormal = "normal"
	// UrgencyCritical for failures needing attention.
	UrgencyCritical = "critical"
)

// Event is implemented by every payload published on the bus.
type Event interface {
	// ID returns the unique event identifier.
	ID() string
	// Topic returns the bus topic the event belongs on.
	Topic() string
	// Validate checks required fields and returns an error if validation fails.
	Validate() error
}

// envelope carries the fields shared by all events.
type envelope struct {
	SchemaVersion int       `json:"schema_version"`
	EventID       string    `json:"event_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func newEnvelope(now time.Time) envelope {
	return envelope{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.New().String(),
		Timestamp:     now.UTC(),
	}
}

// ID returns the unique event identifier.
func (e *envelope) ID() string {
	return e.EventID
}

func (e *envelope) validateEnvelope() error {
	if e.EventID == "" {
		return &ValidationError{Field: "event_id", Message: "required"}
	}
	if e.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Message: "required"}
	}
	return nil
}

// ConnectedEvent is published when the die link is established and both
// characteristic subscriptions are active.
type ConnectedEvent struct {
	envelope
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// NewConnectedEvent creates a link.connected event.
func NewConnectedEvent(now time.Time, address, name string) *ConnectedEvent {
	return &ConnectedEvent{
		envelope: newEnvelope(now),
		Address:  address,
		Name:     name,
	}
}

// Topic returns the bus topic for this event.
func (e *ConnectedEvent) Topic() string { return TopicLinkConnected }

// Validate checks required fields.
func (e *ConnectedEvent) Validate() error {
	if err := e.validateEnvelope(); err != nil {
		return err
	}
	if e.Address == "" {
		return &ValidationError{Field: "address", Message: "required"}
	}
	return nil
}

// DisconnectedEvent is published when the die link is lost or torn down.
type DisconnectedEvent struct {
	envelope
	Address string `json:"address"`
	Reason  string `json:"reason"`
}

// NewDisconnectedEvent creates a link.disconnected event.
func NewDisconnectedEvent(now time.Time, address, reason string) *DisconnectedEvent {
	return &DisconnectedEvent{
		envelope: newEnvelope(now),
		Address:  address,
		Reason:   reason,
	}
}

// Topic returns the bus topic for this event.
func (e *DisconnectedEvent) Topic() string { return TopicLinkDisconnected }

// Validate checks required fields.
func (e *DisconnectedEvent) Validate() error {
	if err := e.validateEnvelope(); err != nil {
		return err
	}
	if e.Address == "" {
		return &ValidationError{Field: "address", Message: "required"}
	}
	if e.Reason == "" {
		return &ValidationError{Field: "reason", Message: "required"}
	}
	return nil
}

// OrientationEvent is published for every orientation notification from the
// die. Face 0 means the die is flat or mid-roll; faces 1 and up identify the
// side currently up.
type OrientationEvent struct {
	envelope
	Address string `json:"address"`
	Face    uint8  `json:"face"`
}

// NewOrientationEvent creates a link.orientation event.
func NewOrientationEvent(now time.Time, address string, face uint8) *OrientationEvent {
	return &OrientationEvent{
		envelope: newEnvelope(now),
		Address:  address,
		Face:     face,
	}
}

// Topic returns the bus topic for this event.
func (e *OrientationEvent) Topic() string { return TopicOrientation }

// Validate checks required fields. Face 0 is valid, it signals the flat
// orientation.
func (e *OrientationEvent) Validate() error {
	if err := e.validateEnvelope(); err != nil {
		return err
	}
	if e.Address == "" {
		return &ValidationError{Field: "address", Message: "required"}
	}
	return nil
}

// BatteryEvent is published when the die reports a battery level.
type BatteryEvent struct {
	envelope
	Address string `json:"address"`
	Level   uint8  `json:"level"`
}

// NewBatteryEvent creates a link.battery event.
func NewBatteryEvent(now time.Time, address string, level uint8) *BatteryEvent {
	return &BatteryEvent{
		envelope: newEnvelope(now),
		Address:  address,
		Level:    level,
	}
}

// Topic returns the bus topic for this event.
func (e *BatteryEvent) Topic() string { return TopicBattery }

// Validate checks required fields.
func (e *BatteryEvent) Validate() error {
	if err := e.validateEnvelope(); err != nil {
		return err
	}
	if e.Address == "" {
		return &ValidationError{Field: "address", Message: "required"}
	}
	if e.Level > 100 {
		return &ValidationError{Field: "level", Message: "must be 0-100"}
	}
	return nil
}

// ReachabilityEvent is published when remote service reachability changes.
// Only edges are published, repeated probes with the same result stay silent.
type ReachabilityEvent struct {
	envelope
	Reachable bool `json:"reachable"`
}

// NewReachabilityEvent creates a remote.reachability event.
func NewReachabilityEvent(now time.Time, reachable bool) *ReachabilityEvent {
	return &ReachabilityEvent{
		envelope:  newEnvelope(now),
		Reachable: reachable,
	}
}

// Topic returns the bus topic for this event.
func (e *ReachabilityEvent) Topic() string { return TopicReachability }

// Validate checks required fields.
func (e *ReachabilityEvent) Validate() error {
	return e.validateEnvelope()
}

// SessionEvent is published when a tracking session opens or closes.
// Stopped events carry the close outcome and the stop time.
type SessionEvent struct {
	envelope
	Kind        string     `json:"kind"`
	Face        uint8      `json:"face"`
	Activity    string     `json:"activity"`
	ActivityKey string     `json:"activity_key"`
	StartedAt   time.Time  `json:"started_at"`
	StoppedAt   *time.Time `json:"stopped_at,omitempty"`
	Outcome     string     `json:"outcome,omitempty"`
}

// NewSessionStartedEvent creates a tracking.session event for an opened session.
func NewSessionStartedEvent(now time.Time, face uint8, activity, activityKey string, startedAt time.Time) *SessionEvent {
	return &SessionEvent{
		envelope:    newEnvelope(now),
		Kind:        SessionStarted,
		Face:        face,
		Activity:    activity,
		ActivityKey: activityKey,
		StartedAt:   startedAt.UTC(),
	}
}

// NewSessionStoppedEvent creates a tracking.session event for a closed session.
func NewSessionStoppedEvent(now time.Time, face uint8, activity, activityKey string, startedAt, stoppedAt time.Time, outcome string) *SessionEvent {
	stopped := stoppedAt.UTC()
	return &SessionEvent{
		envelope:    newEnvelope(now),
		Kind:        SessionStopped,
		Face:        face,
		Activity:    activity,
		ActivityKey: activityKey,
		StartedAt:   startedAt.UTC(),
		StoppedAt:   &stopped,
		Outcome:     outcome,
	}
}

// Topic returns the bus topic for this event.
func (e *SessionEvent) Topic() string { return TopicSession }

// Validate checks required fields.
func (e *SessionEvent) Validate() error {
	if err := e.validateEnvelope(); err != nil {
		return err
	}
	if e.Kind != SessionStarted && e.Kind != SessionStopped {
		return &ValidationError{Field: "kind", Message: "must be started or stopped"}
	}
	if e.Activity == "" {
		return &ValidationError{Field: "activity", Message: "required"}
	}
	if e.ActivityKey == "" {
		return &ValidationError{Field: "activity_key", Message: "required"}
	}
	if e.StartedAt.IsZero() {
		return &ValidationError{Field: "started_at", Message: "required"}
	}
	if e.Kind == SessionStopped {
		if e.StoppedAt == nil {
			return &ValidationError{Field: "stopped_at", Message: "required for stopped sessions"}
		}
		if e.Outcome == "" {
			return &ValidationError{Field: "outcome", Message: "required for stopped sessions"}
		}
	}
	return nil
}

// IsStopped returns true if this event closes a session.
func (e *SessionEvent) IsStopped() bool {
	return e.Kind == SessionStopped
}

// Duration returns the session length. For open sessions it measures against
// the given time.
func (e *SessionEvent) Duration(now time.Time) time.Duration {
	if e.StoppedAt != nil {
		return e.StoppedAt.Sub(e.StartedAt)
	}
	return now.Sub(e.StartedAt)
}

// BufferDepthEvent is published when the offline entry buffer changes
// size: one per append, and one after each drain pass that moved entries.
type BufferDepthEvent struct {
	envelope
	Depth int `json:"depth"`
}

// NewBufferDepthEvent creates a tracking.buffer event.
func NewBufferDepthEvent(now time.Time, depth int) *BufferDepthEvent {
	return &BufferDepthEvent{
		envelope: newEnvelope(now),
		Depth:    depth,
	}
}

// Topic returns the bus topic for this event.
func (e *BufferDepthEvent) Topic() string { return TopicBuffer }

// Validate checks required fields.
func (e *BufferDepthEvent) Validate() error {
	if err := e.validateEnvelope(); err != nil {
		return err
	}
	if e.Depth < 0 {
		return &ValidationError{Field: "depth", Message: "must not be negative"}
	}
	return nil
}

// NotifyRequestEvent asks the notification sequencer to post a desktop
// notification. Requests are delivered in enqueue order.
type NotifyRequestEvent struct {
	envelope
	Summary string `json:"summary"`
	Body    string `json:"body,omitempty"`
	Urgency string `json:"urgency,omitempty"`
}

// NewNotifyRequestEvent creates a notify.request event.
func NewNotifyRequestEvent(now time.Time, summary, body, urgency string) *NotifyRequestEvent {
	if urgency == "" {
		urgency = UrgencyNormal
	}
	return &NotifyRequestEvent{
		envelope: newEnvelope(now),
		Summary:  summary,
		Body:     body,
		Urgency:  urgency,
	}
}

// Topic returns the bus topic for this event.
func (e *NotifyRequestEvent) Topic() string { return TopicNotify }

// Validate checks required fields.
func (e *NotifyRequestEvent) Validate() error {
	if err := e.validateEnvelope(); err != nil {
		return err
	}
	if e.Summary == "" {
		return &ValidationError{Field: "summary", Message: "required"}
	}
	switch e.Urgency {
	case UrgencyLow, UrgencyNormal, UrgencyCritical:
		return nil
	default:
		return &ValidationError{Field: "urgency", Message: "must be low, normal, or critical"}
	}
}

// ValidationError represents a field validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
