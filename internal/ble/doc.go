// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

// Package ble maintains the Bluetooth link to the tracking die.
//
// The package splits into two layers. The transport layer (bluez.go) talks
// to the BlueZ daemon over the system D-Bus and translates its signal
// traffic into typed link events. The Manager (manager.go) owns the
// connection state machine: it runs a single goroutine that consumes link
// events, control requests and timer fires, and is the only writer of link
// state. Everything the rest of the daemon learns about the die arrives as
// bus events published from that loop.
//
// Reconnection is tiered. Each failed attempt bumps a counter that selects
// a progressively longer delay, and once the die has been gone long enough
// the Manager switches to passive background scanning so a die that
// reappears is picked up without waiting out the full delay. A successful
// connection resets the counter. Powering the adapter off halts all retry
// activity; powering it back on starts over from the shortest tier.
package ble
