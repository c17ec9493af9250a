// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

// Package registry is the durable store for the daemon: the remembered die
// and the audit trail of submitted time entries. Both live in a single
// BadgerDB instance under distinct key prefixes. The entry buffer is not
// here; it stays in memory, owned by the session engine, and does not
// survive a restart.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/nollvik/sidetrackd/internal/config"
	"github.com/nollvik/sidetrackd/internal/logging"
)

// Key prefixes for BadgerDB storage
const (
	deviceKey      = "device:current"
	auditKeyPrefix = "audit:"
)

// ErrNoDevice is returned when no die has been remembered yet.
var ErrNoDevice = errors.New("registry: no device remembered")

// DeviceRecord is the remembered tracking die. At most one exists; pairing
// replaces it and forgetting deletes it.
type DeviceRecord struct {
	Address  string    `json:"address"`
	Name     string    `json:"name"`
	PairedAt time.Time `json:"paired_at"`
}

// Store is the BadgerDB-backed registry.
type Store struct {
	db        *badger.DB
	retention time.Duration
}

// Open creates (or reopens) the registry at the configured path. With
// InMemory set the store is volatile, which the tests use.
func Open(cfg *config.RegistryConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Dur("audit_retention", cfg.AuditRetention).
		Msg("Registry opened")

	return &Store{db: db, retention: cfg.AuditRetention}, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveDevice remembers a die, replacing any previous record.
func (s *Store) SaveDevice(ctx context.Context, rec DeviceRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal device record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(deviceKey), data)
	})
	if err != nil {
		return fmt.Errorf("save device record: %w", err)
	}

	logging.Info().Str("address", rec.Address).Str("name", rec.Name).Msg("Device remembered")
	return nil
}

// Device returns the remembered die, or ErrNoDevice.
func (s *Store) Device(ctx context.Context) (*DeviceRecord, error) {
	var rec DeviceRecord

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(deviceKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNoDevice
		}
		if err != nil {
			return fmt.Errorf("get device record: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})

	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ForgetDevice deletes the remembered die. Forgetting when nothing is
// remembered is a no-op.
func (s *Store) ForgetDevice(ctx context.Context) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(deviceKey))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete device record: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logging.Info().Msg("Device forgotten")
	return nil
}

// RunGC runs Badger's value log garbage collection on a fixed interval
// until the context is canceled. It blocks, so callers run it under a
// supervisor or in a dedicated goroutine.
func (s *Store) RunGC(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err := s.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				logging.Warn().Err(err).Msg("Registry value log GC failed")
			}
		}
	}
}
