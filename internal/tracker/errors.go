// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package tracker

import "errors"

var (
	// ErrNoSession is returned by Stop when nothing is being tracked.
	ErrNoSession = errors.New("no tracking session open")

	// ErrNotRunning is returned for requests made while the engine loop is
	// not serving.
	ErrNotRunning = errors.New("session engine not running")
)
