// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package remote

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// HiddenLabelPrefix marks entries recorded for sessions too short to count.
// The prefix survives round trips through deployments that strip the hidden
// flag, so classification checks both signals.
const HiddenLabelPrefix = "[hidden] "

// TimeEntry is one recorded tracking interval on the remote service.
// T1 and T2 are Unix seconds with T1 <= T2. Values are treated as
// immutable; derive changed copies with WithTimes instead of mutating a
// shared entry.
type TimeEntry struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
	T1        int64     `json:"t1"`
	T2        int64     `json:"t2"`
	Label     string    `json:"label"`
	Hidden    bool      `json:"hidden"`
}

// NewEntry builds a visible entry covering [t1, t2].
func NewEntry(key, label string, t1, t2 int64, createdAt time.Time) TimeEntry {
	return TimeEntry{
		Key:       key,
		CreatedAt: createdAt.UTC(),
		T1:        t1,
		T2:        t2,
		Label:     label,
	}
}

// NewHiddenEntry builds an entry flagged hidden with the label prefix
// applied.
func NewHiddenEntry(key, label string, t1, t2 int64, createdAt time.Time) TimeEntry {
	e := NewEntry(key, HiddenLabelPrefix+label, t1, t2, createdAt)
	e.Hidden = true
	return e
}

// WithTimes returns a copy covering [t1, t2] in place of the original
// interval. The receiver is unchanged.
func (e TimeEntry) WithTimes(t1, t2 int64) TimeEntry {
	e.T1 = t1
	e.T2 = t2
	return e
}

// IsHidden reports whether the entry is hidden, by flag or by label prefix.
func (e TimeEntry) IsHidden() bool {
	return e.Hidden || strings.HasPrefix(e.Label, HiddenLabelPrefix)
}

// BaseLabel returns the label with any hidden prefix removed.
func (e TimeEntry) BaseLabel() string {
	return strings.TrimPrefix(e.Label, HiddenLabelPrefix)
}

// Duration returns the length of the covered interval.
func (e TimeEntry) Duration() time.Duration {
	return time.Duration(e.T2-e.T1) * time.Second
}

// Validate checks structural invariants before an entry goes on the wire.
func (e TimeEntry) Validate() error {
	if e.Key == "" {
		return errors.New("time entry: empty key")
	}
	if e.T2 < e.T1 {
		return fmt.Errorf("time entry %s: t2 %d before t1 %d", e.Key, e.T2, e.T1)
	}
	return nil
}
