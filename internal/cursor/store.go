// Pleximport - Plex Media Server library import engine
// Copyright 2026 Pleximport contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediabridge/pleximport

// Package cursor persists per-section sync cursors in BadgerDB. A
// cursor is the highest update marker whose item the host has
// acknowledged; the next delta sync asks the provider for strictly
// newer items.
package cursor

import (
	"fmt"
	"strconv"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/mediabridge/pleximport/internal/logging"
)

// keyPrefix namespaces cursor entries within the store.
const keyPrefix = "cursor:"

// Store holds durable sync cursors keyed by (provider, section).
type Store struct {
	db *badger.DB
}

// Open opens the cursor store at path. An empty path selects an
// in-memory store whose cursors are lost on restart.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cursor store: %w", err)
	}

	logging.Debug().Str("path", path).Msg("cursor store opened")
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(providerID, sectionKey string) []byte {
	return []byte(keyPrefix + providerID + ":" + sectionKey)
}

// Get returns the stored cursor for a section, or 0 when none exists
// (forcing a full enumeration).
func (s *Store) Get(providerID, sectionKey string) (int64, error) {
	var cursor int64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(providerID, sectionKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			parsed, err := strconv.ParseInt(string(val), 10, 64)
			if err != nil {
				return fmt.Errorf("corrupt cursor value %q: %w", val, err)
			}
			cursor = parsed
			return nil
		})
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return 0, nil
		}
		return 0, fmt.Errorf("read cursor: %w", err)
	}
	return cursor, nil
}

// Put stores a section cursor. Cursors only move forward: a value not
// greater than the stored one is ignored.
func (s *Store) Put(providerID, sectionKey string, cursor int64) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		k := key(providerID, sectionKey)

		if item, err := txn.Get(k); err == nil {
			var existing int64
			_ = item.Value(func(val []byte) error {
				existing, _ = strconv.ParseInt(string(val), 10, 64)
				return nil
			})
			if cursor <= existing {
				return nil
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		return txn.Set(k, []byte(strconv.FormatInt(cursor, 10)))
	})
	if err != nil {
		return fmt.Errorf("write cursor: %w", err)
	}
	return nil
}

// Delete removes a section cursor, forcing the next sync to enumerate
// the section in full.
func (s *Store) Delete(providerID, sectionKey string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(providerID, sectionKey))
	})
	if err != nil {
		return fmt.Errorf("delete cursor: %w", err)
	}
	return nil
}
