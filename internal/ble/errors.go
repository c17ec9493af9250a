// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package ble

import "errors"

var (
	// ErrLinkUnavailable means the Bluetooth stack cannot serve requests
	// right now: bluetoothd is missing, the adapter is absent, or it is
	// powered off.
	ErrLinkUnavailable = errors.New("bluetooth link unavailable")

	// ErrConnectFailed means a connect attempt did not produce a usable
	// link to the die.
	ErrConnectFailed = errors.New("die connect attempt failed")

	// ErrNoDevicePaired means the operation needs a remembered die and
	// none is paired.
	ErrNoDevicePaired = errors.New("no die paired")

	// ErrNotRunning means the link manager loop is not serving requests.
	ErrNotRunning = errors.New("link manager not running")

	// errCharNotFound reports a required GATT characteristic missing from
	// the resolved database.
	errCharNotFound = errors.New("characteristic not found")
)
