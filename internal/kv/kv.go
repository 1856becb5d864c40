// Package kv binds the in-memory sharded cache to the write-ahead log: the
// cache is the only thing steady-state reads ever consult, and every
// mutation is enqueued to the WAL before (and independently of) updating it.
package kv

import (
	"errors"
	"fmt"
	"time"

	"github.com/chuliyu/kvwal/internal/storage/wal"
)

// ErrNotFound is returned by Get and Delete when the key has no live value.
var ErrNotFound = errors.New("kv: key not found")

// Writer is the subset of *wal.Writer the store needs, so tests can swap in
// a fake that observes enqueued bytes without touching disk.
type Writer interface {
	Enqueue(record []byte) error
}

// Store is the live read/write path: GET never touches the persistent
// store, only the cache; SET/DELETE stamp a WAL record, enqueue it, and
// mutate the cache as two separate steps (the ordering is deliberate, see
// the package comment above) so a reader in this process always observes
// its own prior writes even before the record reaches disk.
type Store struct {
	cache  *shardedMap
	writer Writer
	now    func() time.Time
}

// New returns a Store bound to w. Keys loaded from the persistent store at
// bootstrap should be installed via Load before traffic starts.
func New(w Writer) *Store {
	return &Store{cache: newShardedMap(), writer: w, now: time.Now}
}

// Load installs a key/value pair directly into the cache without touching
// the WAL, used once at bootstrap to warm the cache from the canonical
// table.
func (s *Store) Load(key string, value []byte) {
	s.cache.set(key, value)
}

// Get returns the live value for key, or ErrNotFound.
func (s *Store) Get(key string) ([]byte, error) {
	v, ok := s.cache.get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// Set stamps a nanosecond write timestamp, encodes and enqueues a SET
// record, and only then updates the cache. If the enqueue fails (the writer
// has shut down), the cache is left untouched and the error is returned.
func (s *Store) Set(key string, value []byte) error {
	rec := wal.Record{Op: wal.OpSet, Time: uint64(s.now().UnixNano()), Key: []byte(key), Value: value}
	if err := s.writer.Enqueue(rec.Encode(nil)); err != nil {
		return fmt.Errorf("kv: enqueue set: %w", err)
	}
	s.cache.set(key, value)
	return nil
}

// Delete removes key. If the key is already absent, ErrNotFound is returned
// without writing to the WAL. Otherwise a DELETE record is stamped and
// enqueued before the cache entry is removed.
func (s *Store) Delete(key string) error {
	if !s.cache.has(key) {
		return ErrNotFound
	}
	rec := wal.Record{Op: wal.OpDelete, Time: uint64(s.now().UnixNano()), Key: []byte(key)}
	if err := s.writer.Enqueue(rec.Encode(nil)); err != nil {
		return fmt.Errorf("kv: enqueue delete: %w", err)
	}
	s.cache.delete(key)
	return nil
}
