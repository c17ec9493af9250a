// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

// Package tracker turns die orientation changes into time entries on the
// remote tracking service.
//
// The Engine is a single-goroutine loop fed by bus subscriptions
// (orientation, reachability, link state) and a control channel (manual
// stop, mapping reload). Because every face change is processed to
// completion, including its network round trips, before the next event is
// taken from the inbox, at most one session is ever open and a close always
// finishes before the following open begins.
//
// A face mapped to an activity opens a session: a fresh 8-character
// alphanumeric key, a zero-duration entry submitted immediately so the
// service shows the activity as in progress, and a session-started event
// for the presentation layer. Closing applies the short-flip cutoff first
// (hidden cancel entry, no conflict handling), then conflict resolution
// against the existing remote record for the key. Entries that cannot be
// delivered land in a volatile FIFO buffer drained once per
// reachability-restored signal; failures re-append to the tail so nothing
// is dropped while the service is down.
package tracker
