// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

// Package supervisor builds the daemon's supervision tree on top of
// suture v4.
//
// The tree has a fixed three-layer layout under a single root:
//
//	sidetrackd (root)
//	├── data-layer        registry maintenance (Badger value log GC)
//	├── messaging-layer   link manager, session engine, reachability
//	│                     prober, notification sequencer, event feed
//	└── api-layer         HTTP control server
//
// Layers isolate failures: a crashing link manager restarts without
// touching the HTTP server, and vice versa. Restart intensity is
// governed by TreeConfig; once a child exceeds its failure threshold
// the whole layer backs off together, which is the behavior we want
// when for example the D-Bus connection drops and every Bluetooth
// service starts failing at once.
//
// Services are plain suture.Service implementations. Components that
// already expose Serve(ctx) error are registered through the wrappers
// in the services subpackage, which exist mainly to give each service
// a stable name in supervisor logs.
//
// Supervisor lifecycle events are routed into the structured log via
// sutureslog, so restarts and backoffs show up in the same stream as
// everything else.
//
// Typical wiring from main:
//
//	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
//	if err != nil {
//		return err
//	}
//	tree.AddDataService(services.NewRegistryGCService(store, time.Hour))
//	tree.AddMessagingService(services.NewRunnerService("link-manager", link))
//	tree.AddAPIService(services.NewHTTPServerService(server, cfg.API.ShutdownTimeout))
//	err = tree.Serve(ctx)
package supervisor
