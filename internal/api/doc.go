// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

// Package api serves the daemon's loopback control surface: a chi router
// with health and metrics endpoints, a small JSON API under /api/v1 for
// status, discovery, pairing and session control, and a websocket upgrade
// onto the presentation feed hub.
//
// The API is designed for a single operator on the same machine. The
// listener binds loopback by default, auth is an optional static bearer
// token, and rate limits exist to contain a runaway script rather than an
// adversary. Every response uses the same envelope:
//
//	{"status": "success", "data": ..., "metadata": {"timestamp": ..., "request_id": ...}}
//
// with failures carrying an error object instead of data. sidetrackctl is
// the canonical client.
package api
