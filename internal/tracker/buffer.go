// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package tracker

import "github.com/nollvik/sidetrackd/internal/remote"

// entryBuffer is the volatile FIFO of undelivered time entries. It is owned
// by the engine loop and never touched from another goroutine; readers see
// it through the engine's snapshot.
type entryBuffer struct {
	entries []remote.TimeEntry
}

// append places an entry at the tail.
func (b *entryBuffer) append(e remote.TimeEntry) {
	b.entries = append(b.entries, e)
}

// popFront removes and returns the head entry.
func (b *entryBuffer) popFront() (remote.TimeEntry, bool) {
	if len(b.entries) == 0 {
		return remote.TimeEntry{}, false
	}
	e := b.entries[0]
	b.entries = b.entries[1:]
	return e, true
}

// len reports the number of buffered entries.
func (b *entryBuffer) len() int {
	return len(b.entries)
}

// snapshot returns a copy of the buffered entries in FIFO order.
func (b *entryBuffer) snapshot() []remote.TimeEntry {
	if len(b.entries) == 0 {
		return nil
	}
	out := make([]remote.TimeEntry, len(b.entries))
	copy(out, b.entries)
	return out
}
