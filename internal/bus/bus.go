// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/nollvik/sidetrackd/internal/logging"
)

// MetadataCorrelationID is the message metadata key carrying the correlation
// ID of the publishing context.
const MetadataCorrelationID = "correlation_id"

// Config holds configuration for the in-process bus.
type Config struct {
	// OutputChannelBuffer is the per-subscriber channel buffer size.
	OutputChannelBuffer int64
}

// DefaultConfig returns production defaults for the bus.
func DefaultConfig() Config {
	return Config{
		OutputChannelBuffer: 64,
	}
}

// Bus is the in-process event bus connecting the link manager, tracking
// engine, notification sequencer, and presentation surfaces. It wraps a
// Watermill GoChannel Pub/Sub, so per-topic delivery order matches publish
// order and every subscriber receives every message.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter
	mu     sync.RWMutex
	closed bool
}

// New creates a bus. A nil logger falls back to the zerolog-backed adapter.
func New(cfg Config, logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = NewLoggerAdapter()
	}

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.OutputChannelBuffer,
	}, logger)

	return &Bus{
		pubsub: pubsub,
		logger: logger,
	}
}

// NewLoggerAdapter returns a Watermill logger that routes through the global
// zerolog logger via slog.
func NewLoggerAdapter() watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logging.NewSlogLogger())
}

// Publish validates, serializes, and publishes an event on its topic.
// The correlation ID from the context, if any, travels in message metadata.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("bus is closed")
	}
	b.mu.RUnlock()

	if err := event.Validate(); err != nil {
		return fmt.Errorf("validate event: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID(), data)
	msg.SetContext(ctx)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataCorrelationID, id)
	}

	return b.pubsub.Publish(event.Topic(), msg)
}

// Subscribe returns a channel of messages for the given topic. The
// subscription ends when the context is cancelled.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Publisher exposes the native Watermill publisher for router wiring.
func (b *Bus) Publisher() message.Publisher {
	return b.pubsub
}

// Logger returns the adapter the bus was created with, so components that
// build Watermill plumbing on top of the bus share its log stream.
func (b *Bus) Logger() watermill.LoggerAdapter {
	return b.logger
}

// Subscriber exposes the native Watermill subscriber for router wiring.
func (b *Bus) Subscriber() message.Subscriber {
	return b.pubsub
}

// Close shuts the bus down. Pending subscriber channels are closed.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	return b.pubsub.Close()
}

// Decode unmarshals a bus message payload into a concrete event type.
func Decode[T any](msg *message.Message) (*T, error) {
	var event T
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &event, nil
}

// CorrelationID returns the correlation ID carried in message metadata, or
// empty when the publisher had none.
func CorrelationID(msg *message.Message) string {
	return msg.Metadata.Get(MetadataCorrelationID)
}
