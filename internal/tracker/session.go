// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package tracker

import (
	"crypto/rand"
	"time"
)

// activityKeyLen is the length of a session's remote entry key.
const activityKeyLen = 8

const keyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Session is the currently tracked activity. At most one exists at a time,
// owned by the engine loop; readers get copies through Status.
type Session struct {
	Face        uint8     `json:"face"`
	Activity    string    `json:"activity"`
	ActivityKey string    `json:"activity_key"`
	StartedAt   time.Time `json:"started_at"`
}

// newActivityKey returns a fresh random key for a session's remote entries.
// Keys are correlation identifiers, not secrets; the slight modulo bias is
// irrelevant but crypto/rand keeps keys unique across restarts without
// seeding.
func newActivityKey() string {
	buf := make([]byte, activityKeyLen)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand does not fail on supported platforms
	}
	for i, b := range buf {
		buf[i] = keyAlphabet[int(b)%len(keyAlphabet)]
	}
	return string(buf)
}
