// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

// Sidetrackctl is the command line client for the sidetrackd daemon.
//
// It talks to the daemon's loopback control API and covers the full
// surface: daemon status, device discovery and pairing, the current
// tracking session, face mappings, the offline entry buffer and the
// submission history.
//
// The daemon address defaults to http://127.0.0.1:8413 and can be set
// with --addr or SIDETRACK_CTL_ADDR. If the daemon has an auth token
// configured, pass it with --token or SIDETRACK_API_TOKEN.
//
// Examples:
//
//	sidetrackctl status
//	sidetrackctl discover
//	sidetrackctl pair DC:23:4E:05:11:7A
//	sidetrackctl stop
//	sidetrackctl history --limit 20
//
// Every command accepts --json to print the raw response payload for
// scripting.
package main

func main() {
	Execute()
}
