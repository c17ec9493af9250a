// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/nollvik/sidetrackd/internal/bus"
	"github.com/nollvik/sidetrackd/internal/logging"
	"github.com/nollvik/sidetrackd/internal/metrics"
)

// LinkUpdate is the payload of a link feed message.
type LinkUpdate struct {
	State     string    `json:"state"` // connected or disconnected
	Address   string    `json:"address"`
	Name      string    `json:"name,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Forwarder turns bus events into feed broadcasts.
type Forwarder struct {
	bus *bus.Bus
	hub *Hub

	mu      sync.Mutex
	running bool
}

// NewForwarder creates a forwarder feeding the given hub.
func NewForwarder(b *bus.Bus, hub *Hub) *Forwarder {
	return &Forwarder{bus: b, hub: hub}
}

// Serve consumes bus events until ctx is cancelled. The subscriptions run
// on a bus router, one consumer handler per topic, so each gets the shared
// recovery and retry middleware. It is run under the supervision tree next
// to the hub it feeds.
func (f *Forwarder) Serve(ctx context.Context) error {
	router, err := bus.NewRouter(nil, f.bus.Logger())
	if err != nil {
		return fmt.Errorf("create feed router: %w", err)
	}

	handlers := []struct {
		name   string
		topic  string
		handle message.NoPublishHandlerFunc
	}{
		{"feed-link-connected", bus.TopicLinkConnected, f.forwardConnected},
		{"feed-link-disconnected", bus.TopicLinkDisconnected, f.forwardDisconnected},
		{"feed-orientation", bus.TopicOrientation, forward[bus.OrientationEvent](f, MessageTypeOrientation)},
		{"feed-battery", bus.TopicBattery, forward[bus.BatteryEvent](f, MessageTypeBattery)},
		{"feed-session", bus.TopicSession, forward[bus.SessionEvent](f, MessageTypeSession)},
		{"feed-reachability", bus.TopicReachability, forward[bus.ReachabilityEvent](f, MessageTypeReachability)},
		{"feed-buffer", bus.TopicBuffer, forward[bus.BufferDepthEvent](f, MessageTypeBufferDepth)},
		{"feed-notification", bus.TopicNotify, forward[bus.NotifyRequestEvent](f, MessageTypeNotification)},
	}
	for _, h := range handlers {
		router.AddConsumerHandler(h.name, h.topic, f.bus.Subscriber(), h.handle)
	}

	done := make(chan error, 1)
	go func() { done <- router.Run(ctx) }()

	select {
	case <-router.Running():
	case err := <-done:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return fmt.Errorf("feed router failed to start: %w", err)
		}
		return errors.New("feed router stopped before start")
	}

	f.setRunning(true)
	defer f.setRunning(false)

	logging.Info().Int("topics", len(handlers)).Msg("Feed forwarder started")

	err = <-done
	f.logShutdown(ctx)
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case err != nil:
		return fmt.Errorf("feed router: %w", err)
	default:
		return errors.New("feed router stopped")
	}
}

// forward builds a handler that decodes an event of type T and broadcasts
// it unchanged as a feed message. Decode failures return nil so the retry
// middleware does not redeliver a payload that can never decode.
func forward[T any](f *Forwarder, messageType string) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		evt, err := bus.Decode[T](msg)
		if err != nil {
			metrics.RecordWebSocketError("decode_failed")
			logging.Error().Err(err).Str("message_id", msg.UUID).Msg("Dropping undecodable feed event")
			return nil
		}
		f.hub.Broadcast(messageType, evt)
		return nil
	}
}

func (f *Forwarder) forwardConnected(msg *message.Message) error {
	evt, err := bus.Decode[bus.ConnectedEvent](msg)
	if err != nil {
		metrics.RecordWebSocketError("decode_failed")
		logging.Error().Err(err).Str("message_id", msg.UUID).Msg("Dropping undecodable feed event")
		return nil
	}
	f.hub.Broadcast(MessageTypeLink, LinkUpdate{
		State:     "connected",
		Address:   evt.Address,
		Name:      evt.Name,
		Timestamp: evt.Timestamp,
	})
	return nil
}

func (f *Forwarder) forwardDisconnected(msg *message.Message) error {
	evt, err := bus.Decode[bus.DisconnectedEvent](msg)
	if err != nil {
		metrics.RecordWebSocketError("decode_failed")
		logging.Error().Err(err).Str("message_id", msg.UUID).Msg("Dropping undecodable feed event")
		return nil
	}
	f.hub.Broadcast(MessageTypeLink, LinkUpdate{
		State:     "disconnected",
		Address:   evt.Address,
		Reason:    evt.Reason,
		Timestamp: evt.Timestamp,
	})
	return nil
}

func (f *Forwarder) setRunning(v bool) {
	f.mu.Lock()
	f.running = v
	f.mu.Unlock()
}

func (f *Forwarder) logShutdown(ctx context.Context) {
	reason := "unknown"
	switch ctx.Err() {
	case context.Canceled:
		reason = "context_canceled"
	case context.DeadlineExceeded:
		reason = "context_deadline"
	}
	logging.Info().
		Str("component", "feed_forwarder").
		Str("reason", reason).
		Msg("Shutting down gracefully")
}
