// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

// Package notify delivers desktop notifications in strict enqueue order.
//
// The sequencer consumes notify.request events from the bus and posts them
// one at a time with a fixed gap between deliveries, so a burst of session
// changes cannot flood the desktop. A failed delivery is logged and the
// queue moves on; a notification is never retried.
//
// Two posters exist: DBusPoster speaks org.freedesktop.Notifications on the
// session bus, LogPoster writes to the daemon log on headless hosts.
package notify
