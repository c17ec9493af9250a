// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// AuditRecord documents one session close as it went to the time tracking
// service. Records expire after the configured retention.
type AuditRecord struct {
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	T1          int64     `json:"t1"`
	T2          int64     `json:"t2"`
	Hidden      bool      `json:"hidden"`
	Outcome     string    `json:"outcome"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// auditKey builds a lexicographically sortable key. Zero-padded nanosecond
// timestamps make forward iteration chronological and reverse iteration
// newest-first.
func auditKey(at time.Time, entryKey string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", auditKeyPrefix, at.UnixNano(), entryKey))
}

// AppendAudit records one submission outcome. The record's SubmittedAt
// orders the audit trail; a zero value is stamped with the current time.
func (s *Store) AppendAudit(ctx context.Context, rec AuditRecord) error {
	if rec.SubmittedAt.IsZero() {
		rec.SubmittedAt = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(auditKey(rec.SubmittedAt, rec.Key), data)
		if s.retention > 0 {
			entry = entry.WithTTL(s.retention)
		}
		return txn.SetEntry(entry)
	})
}

// RecentAudits returns up to limit audit records, newest first.
func (s *Store) RecentAudits(ctx context.Context, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	records := make([]AuditRecord, 0, limit)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration needs a seek point past every audit key.
		prefix := []byte(auditKeyPrefix)
		seek := append([]byte(auditKeyPrefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(records) < limit; it.Next() {
			item := it.Item()

			var rec AuditRecord
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("unmarshal audit record: %w", err)
			}
			records = append(records, rec)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return records, nil
}

// AuditCount returns the number of live audit records.
func (s *Store) AuditCount(ctx context.Context) (int, error) {
	count := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(auditKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})

	return count, err
}
