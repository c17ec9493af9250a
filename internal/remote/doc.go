// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

// Package remote is the HTTP gateway to the time tracking service.
//
// Every failure is classified into one of two sentinel errors so callers
// never have to inspect HTTP details: ErrUnreachable covers transport
// faults, server errors, malformed response bodies and an open circuit
// breaker, while ErrRejected covers requests the service answered and
// refused. The session engine buffers entries on the first and drops them
// with a warning on the second.
//
// Client is the raw HTTP client. Production code wraps it in
// CircuitBreakerClient so a dead service fails fast instead of tying up
// sockets on timeouts. Prober watches reachability while the service is
// down and publishes edge events that trigger buffer drains.
package remote
