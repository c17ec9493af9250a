// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

// Package services adapts the daemon's components to suture.Service.
//
// The wrappers fall into three shapes:
//
//   - RunnerService wraps components that already expose
//     Serve(ctx context.Context) error, which is most of the daemon:
//     the link manager, session engine, notification sequencer, event
//     hub and event forwarder. The wrapper adds nothing but a stable
//     name for supervisor logs.
//
//   - ProbeService and HTTPServerService wrap components with a
//     start/stop lifecycle (the reachability prober, net/http.Server)
//     and translate it into a blocking Serve.
//
//   - RegistryGCService runs the registry's value log compaction loop
//     as a supervised service so a wedged Badger GC gets restarted
//     like everything else.
//
// Wrappers depend on small local interfaces rather than the concrete
// component packages, so this package imports none of them and tests
// can substitute doubles freely.
//
// Every Serve returns ctx.Err() on a clean shutdown. Suture treats a
// service that returns after its context is done as terminated rather
// than failed, so clean shutdowns never count toward the failure
// threshold.
package services
