// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package services

import (
	"context"
	"time"
)

// GCStore matches the registry's blocking value log compaction loop.
type GCStore interface {
	RunGC(ctx context.Context, interval time.Duration) error
}

// RegistryGCService runs the registry's Badger value log GC on a fixed
// interval for the lifetime of the daemon.
type RegistryGCService struct {
	store    GCStore
	interval time.Duration
	name     string
}

// NewRegistryGCService wraps the store's GC loop as a supervised
// service. A zero or negative interval falls back to one hour.
func NewRegistryGCService(store GCStore, interval time.Duration) *RegistryGCService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RegistryGCService{
		store:    store,
		interval: interval,
		name:     "registry-gc",
	}
}

// Serve runs the compaction loop until the context is canceled.
func (s *RegistryGCService) Serve(ctx context.Context) error {
	return s.store.RunGC(ctx, s.interval)
}

// String names the service in supervisor logs.
func (s *RegistryGCService) String() string {
	return s.name
}
