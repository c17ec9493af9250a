// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package remote

import "errors"

// Sentinel errors classifying time tracking service failures. Callers
// branch with errors.Is; the wrapped detail carries the HTTP specifics.
var (
	// ErrUnreachable covers transport failures, 5xx responses, malformed
	// response bodies and an open circuit breaker. Retryable: entries that
	// fail with this class go to the buffer.
	ErrUnreachable = errors.New("time tracking service unreachable")

	// ErrRejected covers requests the service processed and refused, plus
	// entries that fail validation before reaching the wire. Not
	// retryable: rejected entries are never buffered.
	ErrRejected = errors.New("time tracking service rejected request")
)
