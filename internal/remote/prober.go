// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package remote

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nollvik/sidetrackd/internal/bus"
	"github.com/nollvik/sidetrackd/internal/clock"
	"github.com/nollvik/sidetrackd/internal/logging"
	"github.com/nollvik/sidetrackd/internal/metrics"
)

// probeTimeout bounds a single reachability ping.
const probeTimeout = 10 * time.Second

// Pinger is the slice of the service client the prober needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober owns the reachability state of the time tracking service. Remote
// call outcomes flow in through Observe, probe outcomes through the run
// loop, and both funnel into the same edge detection. While the service is
// unreachable the prober pings on a fixed cadence; state edges in either
// direction publish a reachability event so the session engine can drain
// its buffer the moment the service answers again.
type Prober struct {
	pinger   Pinger
	bus      *bus.Bus
	clk      clock.Clock
	interval time.Duration

	// Control
	ctx    context.Context
	cancel context.CancelFunc

	// State - all protected by mu
	mu        sync.Mutex
	reachable bool
	running   bool
	stopping  bool          // true while Stop() is waiting for goroutine
	stopDone  chan struct{} // closed when Stop() completes
}

// NewProber creates a prober. The service starts out assumed reachable;
// the first failed call observed flips it.
func NewProber(pinger Pinger, b *bus.Bus, clk clock.Clock, interval time.Duration) *Prober {
	metrics.UpdateRemoteReachable(true)
	return &Prober{
		pinger:    pinger,
		bus:       b,
		clk:       clk,
		interval:  interval,
		reachable: true,
	}
}

// Start begins the probe loop. It runs until Stop is called or the context
// is canceled.
func (p *Prober) Start(ctx context.Context) error {
	p.mu.Lock()

	// Wait for any in-progress Stop() to complete
	for p.stopping {
		stopDone := p.stopDone
		p.mu.Unlock()
		<-stopDone
		p.mu.Lock()
	}

	if p.running {
		p.mu.Unlock()
		return nil
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true
	p.stopDone = make(chan struct{})

	// Capture context and done channel to avoid races
	loopCtx := p.ctx
	done := p.stopDone

	p.mu.Unlock()

	go p.runWithContext(loopCtx, done)

	logging.Info().Dur("interval", p.interval).Msg("Reachability prober started")
	return nil
}

// Stop gracefully stops the probe loop.
func (p *Prober) Stop() {
	p.mu.Lock()
	if !p.running || p.stopping {
		p.mu.Unlock()
		return
	}

	p.cancel()
	p.running = false
	p.stopping = true
	stopDone := p.stopDone
	p.mu.Unlock()

	// Wait for the goroutine to signal completion
	<-stopDone

	p.mu.Lock()
	p.stopping = false
	p.mu.Unlock()

	logging.Info().Msg("Reachability prober stopped")
}

// IsRunning reports whether the probe loop is active.
func (p *Prober) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Reachable reports the current reachability state.
func (p *Prober) Reachable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reachable
}

// runWithContext is the probe loop goroutine. The context is passed as a
// parameter to avoid race conditions with Stop().
func (p *Prober) runWithContext(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.clk.After(p.interval):
			p.probeOnce(ctx)
		}
	}
}

// probeOnce pings the service when it is currently unreachable. Probes are
// skipped while reachable; live traffic detects an outage faster than a
// timer would.
func (p *Prober) probeOnce(ctx context.Context) {
	p.mu.Lock()
	reachable := p.reachable
	p.mu.Unlock()

	if reachable {
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	err := p.pinger.Ping(pingCtx)
	cancel()

	if err != nil {
		logging.Debug().Err(err).Msg("Reachability probe failed")
		return
	}

	p.Observe(nil)
}

// Observe feeds the outcome of a remote call into reachability tracking.
// A nil error or a rejection proves the service answered; unreachable
// class errors prove it did not. State edges publish a reachability event
// on the bus.
func (p *Prober) Observe(err error) {
	answered := err == nil || errors.Is(err, ErrRejected)

	p.mu.Lock()
	if p.reachable == answered {
		p.mu.Unlock()
		return
	}
	p.reachable = answered
	p.mu.Unlock()

	metrics.UpdateRemoteReachable(answered)

	if answered {
		logging.Info().Msg("Time tracking service reachable again")
	} else {
		logging.Warn().Err(err).Msg("Time tracking service unreachable")
	}

	evt := bus.NewReachabilityEvent(p.clk.Now(), answered)
	if pubErr := p.bus.Publish(context.Background(), evt); pubErr != nil {
		logging.Error().Err(pubErr).Msg("Failed to publish reachability event")
	}
}
