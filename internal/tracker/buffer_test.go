// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package tracker

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/nollvik/sidetrackd/internal/remote"
)

func TestEntryBufferFIFO(t *testing.T) {
	var buf entryBuffer

	if _, ok := buf.popFront(); ok {
		t.Fatal("popFront on empty buffer reported an entry")
	}

	for i := int64(1); i <= 3; i++ {
		buf.append(remote.TimeEntry{Key: fmt.Sprintf("key%d", i), T1: i, T2: i})
	}
	if buf.len() != 3 {
		t.Fatalf("len = %d, want 3", buf.len())
	}

	for i := int64(1); i <= 3; i++ {
		entry, ok := buf.popFront()
		if !ok {
			t.Fatalf("popFront %d failed", i)
		}
		if want := fmt.Sprintf("key%d", i); entry.Key != want {
			t.Errorf("popped %q, want %q", entry.Key, want)
		}
	}
	if buf.len() != 0 {
		t.Fatalf("len = %d after draining, want 0", buf.len())
	}
}

func TestEntryBufferSnapshotIsACopy(t *testing.T) {
	var buf entryBuffer
	buf.append(remote.TimeEntry{Key: "a", T1: 1, T2: 2})

	snap := buf.snapshot()
	snap[0].Key = "mutated"

	entry, _ := buf.popFront()
	if entry.Key != "a" {
		t.Errorf("buffer entry changed through snapshot: %q", entry.Key)
	}
}

func TestEntryBufferMatchesQueueModel(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var buf entryBuffer
		var model []string

		ops := rapid.IntRange(1, 200).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			if rapid.Bool().Draw(t, "push") {
				key := fmt.Sprintf("key%04d", i)
				buf.append(remote.TimeEntry{Key: key, T1: int64(i), T2: int64(i)})
				model = append(model, key)
			} else {
				entry, ok := buf.popFront()
				if len(model) == 0 {
					if ok {
						t.Fatalf("popFront returned %q from an empty buffer", entry.Key)
					}
				} else {
					if !ok {
						t.Fatalf("popFront failed with %d entries buffered", len(model))
					}
					if entry.Key != model[0] {
						t.Fatalf("popped %q, want head %q", entry.Key, model[0])
					}
					model = model[1:]
				}
			}
			if buf.len() != len(model) {
				t.Fatalf("len = %d, model has %d", buf.len(), len(model))
			}
		}
	})
}
