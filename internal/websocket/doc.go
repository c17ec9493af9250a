// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

// Package websocket streams daemon events to connected clients.
//
// The Hub owns the client set and fans broadcasts out in deterministic
// client order; the Forwarder subscribes to the internal bus and turns
// link, orientation, battery, session, and reachability events into feed
// messages. Slow clients are dropped rather than allowed to stall the
// broadcast path.
package websocket
