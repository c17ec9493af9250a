// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

// Package clock abstracts wall-clock time behind an injectable interface.
//
// Every time-dependent component in the daemon (reconnect backoff,
// notification spacing, short-session cutoff, reachability probing) takes a
// Clock instead of calling the time package directly, so tests drive time
// deterministically with Fake instead of sleeping.
package clock

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Clock is the time source used throughout the daemon.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the time after d has elapsed.
	After(d time.Duration) <-chan time.Time

	// NewTimer returns a stoppable timer that fires once after d.
	NewTimer(d time.Duration) Timer

	// Sleep blocks until d has elapsed or ctx is done, returning ctx.Err()
	// in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// Timer is a single-fire timer that can be stopped before it fires.
type Timer interface {
	// C returns the channel the firing time is delivered on.
	C() <-chan time.Time

	// Stop prevents the timer from firing. It reports whether the timer was
	// still pending.
	Stop() bool
}

// System is the production Clock backed by the time package.
type System struct{}

// NewSystem returns the wall-clock implementation.
func NewSystem() System {
	return System{}
}

// Now returns time.Now().
func (System) Now() time.Time {
	return time.Now()
}

// After wraps time.After.
func (System) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// NewTimer wraps time.NewTimer.
func (System) NewTimer(d time.Duration) Timer {
	return systemTimer{t: time.NewTimer(d)}
}

// Sleep waits for d or until ctx is cancelled.
func (s System) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type systemTimer struct {
	t *time.Timer
}

func (s systemTimer) C() <-chan time.Time {
	return s.t.C
}

func (s systemTimer) Stop() bool {
	return s.t.Stop()
}

// Fake is a deterministic Clock for tests. Time only moves when Advance is
// called; timers due at or before the new time fire in deadline order.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*fakeTimer
}

// NewFake returns a Fake positioned at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// After registers a waiter that fires once Advance moves past d.
func (f *Fake) After(d time.Duration) <-chan time.Time {
	return f.NewTimer(d).C()
}

// NewTimer registers a stoppable waiter due after d.
func (f *Fake) NewTimer(d time.Duration) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := &fakeTimer{
		clock:    f,
		deadline: f.now.Add(d),
		ch:       make(chan time.Time, 1),
	}
	if d <= 0 {
		t.fired = true
		t.ch <- f.now
		return t
	}
	f.waiters = append(f.waiters, t)
	return t
}

// Sleep blocks until Advance passes d or ctx is done.
func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	t := f.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}

// Advance moves the fake time forward by d and fires every waiter whose
// deadline has been reached, earliest first.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	now := f.now

	var due []*fakeTimer
	remaining := f.waiters[:0]
	for _, t := range f.waiters {
		if !t.deadline.After(now) {
			due = append(due, t)
		} else {
			remaining = append(remaining, t)
		}
	}
	f.waiters = remaining

	sort.Slice(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
	for _, t := range due {
		t.fired = true
		t.ch <- now
	}
	f.mu.Unlock()
}

// Set jumps the fake time to a specific instant without firing waiters that
// remain in the future.
func (f *Fake) Set(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// NumWaiters reports how many timers are pending. Tests use it to wait for
// the component under test to block on its timer before advancing.
func (f *Fake) NumWaiters() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.waiters)
}

type fakeTimer struct {
	clock    *Fake
	deadline time.Time
	ch       chan time.Time
	fired    bool
}

func (t *fakeTimer) C() <-chan time.Time {
	return t.ch
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.fired {
		return false
	}
	for i, w := range t.clock.waiters {
		if w == t {
			t.clock.waiters = append(t.clock.waiters[:i], t.clock.waiters[i+1:]...)
			return true
		}
	}
	return false
}
