// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package tracker

import "testing"

func isKeyRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func TestNewActivityKeyShape(t *testing.T) {
	seen := make(map[string]bool, 256)

	for i := 0; i < 256; i++ {
		key := newActivityKey()
		if len(key) != activityKeyLen {
			t.Fatalf("key %q has length %d, want %d", key, len(key), activityKeyLen)
		}
		for _, r := range key {
			if !isKeyRune(r) {
				t.Fatalf("key %q contains %q, want only [a-zA-Z0-9]", key, r)
			}
		}
		if seen[key] {
			t.Fatalf("key %q generated twice", key)
		}
		seen[key] = true
	}
}
