// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

// Package main is the entry point for the sidetrackd daemon.
//
// Sidetrackd pairs with a Bluetooth LE tracking die, maps its faces to
// named activities, and records the resulting sessions as time entries
// on a remote time tracking service. It runs as an unprivileged user
// daemon and exposes a loopback HTTP API consumed by sidetrackctl.
//
// # Startup Order
//
// The daemon initializes components in the following order:
//
//  1. Configuration: defaults, then YAML file, then SIDETRACK_* env vars (Koanf v2)
//  2. Registry: Badger store for the paired device and submission audit log
//  3. Event bus: in-process Watermill pub/sub connecting the components
//  4. Remote client: time service client behind a circuit breaker, plus
//     the reachability prober that drives buffer drains
//  5. Session engine: face-to-activity session tracking
//  6. Link manager: BlueZ connection, reconnect and battery/orientation
//     subscriptions
//  7. Notifications: desktop notifier on the session D-Bus, falling back
//     to log output
//  8. Control API: chi router on the loopback listener with a WebSocket
//     event feed
//
// Everything then runs under a suture supervision tree; main itself only
// waits for signals.
//
// # Configuration
//
// The config file is searched at ./sidetrackd.yaml and
// /etc/sidetrackd/config.yaml, or taken from SIDETRACK_CONFIG. Every
// setting can be overridden via environment, for example:
//
//	export SIDETRACK_REMOTE_BASE_URL=https://track.example.com
//	export SIDETRACK_REMOTE_TOKEN=secret
//	export SIDETRACK_BT_NAME_FILTER=Sidetrack
//	./sidetrackd
//
// # Signal Handling
//
//   - SIGINT, SIGTERM: graceful shutdown. The open session is closed by
//     the engine's shutdown path, in-flight HTTP requests drain, and the
//     registry is flushed.
//   - SIGHUP: reload the config file and apply the face mapping section
//     to the running engine. Other settings still require a restart.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nollvik/sidetrackd/internal/api"
	"github.com/nollvik/sidetrackd/internal/ble"
	"github.com/nollvik/sidetrackd/internal/bus"
	"github.com/nollvik/sidetrackd/internal/clock"
	"github.com/nollvik/sidetrackd/internal/config"
	"github.com/nollvik/sidetrackd/internal/logging"
	"github.com/nollvik/sidetrackd/internal/notify"
	"github.com/nollvik/sidetrackd/internal/registry"
	"github.com/nollvik/sidetrackd/internal/remote"
	"github.com/nollvik/sidetrackd/internal/supervisor"
	"github.com/nollvik/sidetrackd/internal/supervisor/services"
	"github.com/nollvik/sidetrackd/internal/tracker"
	ws "github.com/nollvik/sidetrackd/internal/websocket"
)

const notifyAppName = "Sidetrack"

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Caller:    cfg.Log.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("adapter", cfg.Bluetooth.Adapter).
		Str("name_filter", cfg.Bluetooth.DeviceNameFilter).
		Str("remote", cfg.Remote.BaseURL).
		Str("remote_token", logging.SanitizeToken(cfg.Remote.Token)).
		Str("listen", cfg.API.Listen).
		Int("mapped_faces", len(cfg.Tracking.FaceMappings())).
		Msg("Starting sidetrackd")

	store, err := registry.Open(&cfg.Registry)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open registry")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing registry")
		}
	}()

	// In-process event bus. A nil logger routes Watermill's logging
	// through zerolog.
	b := bus.New(bus.DefaultConfig(), nil)
	defer func() {
		if err := b.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	clk := clock.NewSystem()

	// Remote time service. Every call goes through the circuit breaker;
	// the prober owns the reachable/unreachable transitions and triggers
	// buffer drains on recovery.
	breaker := remote.NewCircuitBreakerClient(&cfg.Remote)
	prober := remote.NewProber(breaker, b, clk, cfg.Remote.ProbeInterval)

	engine := tracker.NewEngine(cfg.Tracking, breaker, prober, b, store, clk)
	link := ble.NewManager(cfg.Bluetooth, b, store, clk)

	poster, closePoster := newPoster(cfg.Notify)
	defer closePoster()
	sequencer := notify.NewSequencer(cfg.Notify, poster, b, clk)

	// WebSocket event feed: the forwarder re-publishes bus events to hub
	// clients.
	hub := ws.NewHub()
	forwarder := ws.NewForwarder(b, hub)

	handler := api.NewHandler(api.HandlerDeps{
		Config:  cfg,
		Link:    link,
		Engine:  engine,
		Store:   store,
		Hub:     hub,
		Prober:  prober,
		Breaker: breaker,
	})
	middleware := api.NewMiddleware(cfg.API)

	server := &http.Server{
		Addr:              cfg.API.Listen,
		Handler:           api.NewRouter(handler, middleware),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The supervisor logs through slog; the adapter bridges it back into
	// zerolog so everything lands in one stream.
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if !cfg.Registry.InMemory {
		tree.AddDataService(services.NewRegistryGCService(store, time.Hour))
	}

	tree.AddMessagingService(services.NewRunnerService("link-manager", link))
	tree.AddMessagingService(services.NewRunnerService("session-engine", engine))
	tree.AddMessagingService(services.NewRunnerService("notification-sequencer", sequencer))
	tree.AddMessagingService(services.NewRunnerService("event-hub", hub))
	tree.AddMessagingService(services.NewRunnerService("event-forwarder", forwarder))
	tree.AddMessagingService(services.NewProbeService(prober))

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.API.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("Control API service added")

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		for sig := range sigCh {
			if sig == syscall.SIGHUP {
				reloadMappings(ctx, engine)
				continue
			}
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
			return
		}
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor closes the channel.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Daemon stopped gracefully")
}

// newPoster picks the notification backend. Desktop notifications need a
// session bus with a notification daemon on it; without one, or when
// notifications are disabled, deliveries go to the log instead. The
// returned func releases the D-Bus connection if one was made.
func newPoster(cfg config.NotifyConfig) (notify.Poster, func()) {
	if !cfg.Enabled {
		logging.Info().Msg("Desktop notifications disabled, using log output")
		return notify.LogPoster{}, func() {}
	}

	poster, err := notify.NewDBusPoster(notifyAppName)
	if err != nil {
		logging.Warn().Err(err).Msg("Desktop notifications unavailable, using log output")
		return notify.LogPoster{}, func() {}
	}

	logging.Info().Msg("Desktop notifications enabled")
	return poster, func() {
		if err := poster.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing notification bus")
		}
	}
}

// reloadMappings re-reads the configuration and applies the face mapping
// section to the running engine. Invoked on SIGHUP.
func reloadMappings(ctx context.Context, engine *tracker.Engine) {
	cfg, err := config.Load()
	if err != nil {
		logging.Warn().Err(err).Msg("Config reload failed, keeping previous mappings")
		return
	}

	applyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	mappings := cfg.Tracking.FaceMappings()
	if err := engine.UpdateMappings(applyCtx, mappings); err != nil {
		logging.Warn().Err(err).Msg("Mapping reload failed")
		return
	}

	logging.Info().Int("mapped_faces", len(mappings)).Msg("Face mappings reloaded")
}
