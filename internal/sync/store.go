// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package sync

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/groovesync/internal/logging"
	"github.com/tomtom215/groovesync/internal/metrics"
	"github.com/tomtom215/groovesync/internal/models"
)

// Key layout. Entity ids are zero padded so that prefix iteration returns
// them in id order.
const (
	prefixEntity = "entity:"
	prefixCursor = "cursor:"
	prefixListen = "listen:pending:"
	keyLastSync  = "meta:last_sync:"
	keyOffline   = "meta:offline"
)

// Store is the client's local state, backed by badger.
type Store struct {
	db *badger.DB

	mu     sync.RWMutex
	closed bool
}

// OpenStore opens (or creates) the store at path. An empty path opens an
// in-memory store.
func OpenStore(path string) (*Store, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
		opts.SyncWrites = true
		opts.Compression = options.Snappy
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Debug().Str("path", path).Bool("in_memory", path == "").Msg("Client store opened")
	return &Store{db: db}, nil
}

// Close flushes and closes the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) view(fn func(txn *badger.Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.View(fn)
}

func (s *Store) update(fn func(txn *badger.Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.Update(fn)
}

// getJSON decodes key into v and reports whether it existed.
func getJSON(txn *badger.Txn, key []byte, v any) (bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set(key, data)
}

func entityKey(t models.EntityType, id int64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", prefixEntity, t, id))
}

func entityPrefix(t models.EntityType) []byte {
	return []byte(prefixEntity + string(t) + ":")
}

func cursorKey(userID int64, t models.EntityType) []byte {
	return []byte(fmt.Sprintf("%s%d:%s", prefixCursor, userID, t))
}

// ApplyPage writes one page of changes in a single transaction: removals
// first, then upserts. Applying the same page twice leaves the same state.
func (s *Store) ApplyPage(t models.EntityType, upserts map[int64]json.RawMessage, removed []int64) error {
	return s.update(func(txn *badger.Txn) error {
		for _, id := range removed {
			if err := txn.Delete(entityKey(t, id)); err != nil {
				return fmt.Errorf("delete %s %d: %w", t, id, err)
			}
		}
		for id, body := range upserts {
			if err := txn.Set(entityKey(t, id), body); err != nil {
				return fmt.Errorf("put %s %d: %w", t, id, err)
			}
		}
		return nil
	})
}

// GetEntity returns the stored body of one entity.
func (s *Store) GetEntity(t models.EntityType, id int64) (json.RawMessage, bool, error) {
	var out json.RawMessage
	err := s.view(func(txn *badger.Txn) error {
		item, err := txn.Get(entityKey(t, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

// EntityIDs lists the stored ids of type t in ascending order.
func (s *Store) EntityIDs(t models.EntityType) ([]int64, error) {
	var ids []int64
	prefix := entityPrefix(t)
	err := s.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			raw := strings.TrimPrefix(string(it.Item().Key()), string(prefix))
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("corrupt entity key %q: %w", it.Item().Key(), err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}

// GetCursors returns the cursor of every requested type. Types never
// synced get a zero cursor.
func (s *Store) GetCursors(userID int64, types []models.EntityType) (map[models.EntityType]models.SyncCursor, error) {
	out := make(map[models.EntityType]models.SyncCursor, len(types))
	err := s.view(func(txn *badger.Txn) error {
		for _, t := range types {
			c := models.SyncCursor{UserID: userID, EntityType: t}
			if _, err := getJSON(txn, cursorKey(userID, t), &c); err != nil {
				return fmt.Errorf("read %s cursor: %w", t, err)
			}
			out[t] = c
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SaveCursor upserts c.
func (s *Store) SaveCursor(c models.SyncCursor) error {
	return s.update(func(txn *badger.Txn) error {
		return setJSON(txn, cursorKey(c.UserID, c.EntityType), c)
	})
}

// LastSync returns the end of the last run that covered every entity type.
func (s *Store) LastSync(userID int64) (models.Timestamp, error) {
	var ts models.Timestamp
	err := s.view(func(txn *badger.Txn) error {
		_, err := getJSON(txn, []byte(keyLastSync+strconv.FormatInt(userID, 10)), &ts)
		return err
	})
	return ts, err
}

// SetLastSync records a completed full run.
func (s *Store) SetLastSync(userID int64, ts models.Timestamp) error {
	return s.update(func(txn *badger.Txn) error {
		return setJSON(txn, []byte(keyLastSync+strconv.FormatInt(userID, 10)), ts)
	})
}

// Offline reports the persisted offline flag.
func (s *Store) Offline() (bool, error) {
	var offline bool
	err := s.view(func(txn *badger.Txn) error {
		_, err := getJSON(txn, []byte(keyOffline), &offline)
		return err
	})
	return offline, err
}

// SetOffline persists the offline flag.
func (s *Store) SetOffline(offline bool) error {
	return s.update(func(txn *badger.Txn) error {
		return setJSON(txn, []byte(keyOffline), offline)
	})
}

// ListenEntry is a queued mark-listened request.
type ListenEntry struct {
	ID            string                     `json:"id"`
	Request       models.MarkListenedRequest `json:"request"`
	CreatedAt     time.Time                  `json:"createdAt"`
	Attempts      int                        `json:"attempts"`
	LastAttemptAt time.Time                  `json:"lastAttemptAt,omitempty"`
	LastError     string                     `json:"lastError,omitempty"`
}

// EnqueueListen stores req for a later replay.
func (s *Store) EnqueueListen(req models.MarkListenedRequest, attempts int, lastErr error) (string, error) {
	now := time.Now().UTC()
	entry := ListenEntry{
		ID:        uuid.NewString(),
		Request:   req,
		CreatedAt: now,
		Attempts:  attempts,
	}
	if lastErr != nil {
		entry.LastError = lastErr.Error()
		entry.LastAttemptAt = now
	}
	err := s.update(func(txn *badger.Txn) error {
		return setJSON(txn, []byte(prefixListen+entry.ID), &entry)
	})
	if err != nil {
		return "", fmt.Errorf("enqueue listen: %w", err)
	}
	s.refreshQueueDepth()
	return entry.ID, nil
}

// PendingListens returns every queued entry, oldest key first.
func (s *Store) PendingListens() ([]*ListenEntry, error) {
	var entries []*ListenEntry
	err := s.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixListen)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var e ListenEntry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				logging.Warn().Err(err).Str("key", string(it.Item().Key())).Msg("Skipping corrupt listen entry")
				continue
			}
			entries = append(entries, &e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortListens(entries)
	return entries, nil
}

// RecordListenAttempt bumps the attempt count of a queued entry.
func (s *Store) RecordListenAttempt(id string, attemptErr error) error {
	key := []byte(prefixListen + id)
	return s.update(func(txn *badger.Txn) error {
		var e ListenEntry
		found, err := getJSON(txn, key, &e)
		if err != nil || !found {
			return err
		}
		e.Attempts++
		e.LastAttemptAt = time.Now().UTC()
		if attemptErr != nil {
			e.LastError = attemptErr.Error()
		}
		return setJSON(txn, key, &e)
	})
}

// DeleteListen removes a replayed or dropped entry.
func (s *Store) DeleteListen(id string) error {
	err := s.update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(prefixListen + id))
	})
	if err == nil {
		s.refreshQueueDepth()
	}
	return err
}

// ListenQueueLen counts queued entries.
func (s *Store) ListenQueueLen() (int, error) {
	n := 0
	err := s.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(prefixListen)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (s *Store) refreshQueueDepth() {
	if n, err := s.ListenQueueLen(); err == nil {
		metrics.ListenQueueDepth.Set(float64(n))
	}
}

func sortListens(entries []*ListenEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}
