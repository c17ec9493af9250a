// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/nollvik/sidetrackd/internal/bus"
	"github.com/nollvik/sidetrackd/internal/clock"
	"github.com/nollvik/sidetrackd/internal/config"
	"github.com/nollvik/sidetrackd/internal/logging"
	"github.com/nollvik/sidetrackd/internal/metrics"
)

// Sequencer drains the notify.request topic one notification at a time.
//
// The bus subscription is the queue: messages wait there until the previous
// delivery and its spacing gap are done, so order is exactly enqueue order
// and at most one delivery is ever in flight.
type Sequencer struct {
	poster  Poster
	bus     *bus.Bus
	clk     clock.Clock
	spacing time.Duration

	mu      sync.Mutex
	running bool
}

// NewSequencer creates a sequencer posting through the given poster.
func NewSequencer(cfg config.NotifyConfig, poster Poster, b *bus.Bus, clk clock.Clock) *Sequencer {
	return &Sequencer{
		poster:  poster,
		bus:     b,
		clk:     clk,
		spacing: cfg.Spacing,
	}
}

// Serve consumes notification requests until ctx is cancelled. It is run
// under the supervision tree.
func (s *Sequencer) Serve(ctx context.Context) error {
	msgs, err := s.bus.Subscribe(ctx, bus.TopicNotify)
	if err != nil {
		return fmt.Errorf("subscribe notifications: %w", err)
	}

	s.setRunning(true)
	defer s.setRunning(false)

	logging.Info().Dur("spacing", s.spacing).Msg("Notification sequencer started")

	var lastPost time.Time
	for {
		select {
		case <-ctx.Done():
			s.logShutdown(ctx)
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				s.logShutdown(ctx)
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("notification subscription closed")
			}
			if err := s.handle(ctx, msg, &lastPost, len(msgs)); err != nil {
				s.logShutdown(ctx)
				return err
			}
		}
	}
}

// handle delivers one request, waiting out the spacing gap first. The
// message is acked in every path; only context cancellation during the gap
// returns an error.
func (s *Sequencer) handle(ctx context.Context, msg *message.Message, lastPost *time.Time, depth int) error {
	defer msg.Ack()

	metrics.RecordNotificationEnqueued(depth)

	evt, err := bus.Decode[bus.NotifyRequestEvent](msg)
	if err != nil {
		logging.Error().Err(err).Str("message_id", msg.UUID).Msg("Dropping undecodable notification request")
		return nil
	}

	if !lastPost.IsZero() {
		if wait := s.spacing - s.clk.Now().Sub(*lastPost); wait > 0 {
			if err := s.clk.Sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	n := Notification{Summary: evt.Summary, Body: evt.Body, Urgency: evt.Urgency}
	postErr := s.poster.Post(ctx, n)
	*lastPost = s.clk.Now()

	if postErr != nil {
		logging.Warn().Err(postErr).Str("summary", n.Summary).Msg("Notification delivery failed")
		metrics.RecordNotificationDelivered(false, depth)
		return nil
	}

	logging.Debug().Str("summary", n.Summary).Str("urgency", n.Urgency).Msg("Notification posted")
	metrics.RecordNotificationDelivered(true, depth)
	return nil
}

func (s *Sequencer) setRunning(v bool) {
	s.mu.Lock()
	s.running = v
	s.mu.Unlock()
}

func (s *Sequencer) logShutdown(ctx context.Context) {
	reason := "unknown"
	switch ctx.Err() {
	case context.Canceled:
		reason = "context_canceled"
	case context.DeadlineExceeded:
		reason = "context_deadline"
	}
	logging.Info().
		Str("component", "notify_sequencer").
		Str("reason", reason).
		Msg("Shutting down gracefully")
}
