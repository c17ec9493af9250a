// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig controls restart behavior for every supervisor in the tree.
type TreeConfig struct {
	// FailureThreshold is the accumulated failure score at which a
	// supervisor stops restarting immediately and enters backoff.
	FailureThreshold float64

	// FailureDecay is the half-life, in seconds, of the failure score.
	FailureDecay float64

	// FailureBackoff is how long a supervisor waits in backoff before
	// resuming restarts.
	FailureBackoff time.Duration

	// ShutdownTimeout is how long a supervisor waits for a service to
	// return after context cancellation before reporting it unstopped.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns the restart parameters used in production.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// SupervisorTree is the daemon's root supervisor plus its three child
// layers. Services are added to a layer, never to the root directly.
type SupervisorTree struct {
	root      *suture.Supervisor
	data      *suture.Supervisor
	messaging *suture.Supervisor
	api       *suture.Supervisor

	config TreeConfig
	logger *slog.Logger
}

// NewSupervisorTree builds the root supervisor and its data, messaging
// and api child supervisors. Zero-valued config fields fall back to the
// defaults from DefaultTreeConfig.
//
// Supervisor events are logged through sutureslog. The hook is attached
// to the root only; child supervisors inherit it when added.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	if logger == nil {
		return nil, errors.New("supervisor tree requires a logger")
	}

	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5.0
	}
	if config.FailureDecay <= 0 {
		config.FailureDecay = 30.0
	}
	if config.FailureBackoff <= 0 {
		config.FailureBackoff = 15 * time.Second
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	handler := &sutureslog.Handler{Logger: logger}
	eventHook := handler.MustHook()

	rootSpec := suture.Spec{
		EventHook:        eventHook,
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New("sidetrackd", rootSpec)
	data := suture.New("data-layer", childSpec)
	messaging := suture.New("messaging-layer", childSpec)
	api := suture.New("api-layer", childSpec)

	root.Add(data)
	root.Add(messaging)
	root.Add(api)

	return &SupervisorTree{
		root:      root,
		data:      data,
		messaging: messaging,
		api:       api,
		config:    config,
		logger:    logger,
	}, nil
}

// AddDataService registers a service under the data layer. Data services
// own storage maintenance and must not depend on messaging or api
// services.
func (t *SupervisorTree) AddDataService(svc suture.Service) suture.ServiceToken {
	return t.data.Add(svc)
}

// AddMessagingService registers a service under the messaging layer:
// the link manager, session engine, prober, sequencer and event feed.
func (t *SupervisorTree) AddMessagingService(svc suture.Service) suture.ServiceToken {
	return t.messaging.Add(svc)
}

// AddAPIService registers a service under the api layer, which holds the
// HTTP control server.
func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve runs the whole tree and blocks until the context is canceled or
// the root supervisor gives up. The returned error is ctx.Err() on a
// normal shutdown.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the tree in its own goroutine and returns a
// channel that yields the final error once the tree stops.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// Root exposes the root supervisor, mainly for tests.
func (t *SupervisorTree) Root() *suture.Supervisor {
	return t.root
}

// UnstoppedServiceReport lists services that failed to stop within the
// shutdown timeout. Only valid after Serve has returned.
func (t *SupervisorTree) UnstoppedServiceReport() (suture.UnstoppedServiceReport, error) {
	return t.root.UnstoppedServiceReport()
}
