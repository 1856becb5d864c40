// Package store defines the persistent-store capability this service needs
// (schema migration, staging upserts, reconciliation, and a bulk canonical
// read for cache warmup) and a concrete SQLite-backed implementation plus an
// in-memory fake for tests.
package store

import "context"

// Mutation is one staged change destined for wal_sync, carrying the
// nanosecond write-time timestamp used for last-write-wins reconciliation.
type Mutation struct {
	Key   string
	Time  uint64
	Value []byte // nil for a DELETE
	Set   bool   // true for SET, false for DELETE
}

// Row is one key/value pair as read back from the canonical table.
type Row struct {
	Key   string
	Value []byte
}

// RecoveryTx is a transaction scoped to processing one WAL segment during
// recovery: it accumulates staged mutations and commits or rolls back as a
// unit.
type RecoveryTx interface {
	// StageMutations upserts a batch into wal_sync, each row guarded by the
	// last-write-wins comparison against any existing row for that key.
	StageMutations(ctx context.Context, batch []Mutation) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is the capability the recovery driver, reconciler, and bootstrap
// cache loader need from the backing relational engine.
type Store interface {
	// Migrate creates kv_store and wal_sync if they do not already exist.
	Migrate(ctx context.Context) error

	// BeginRecoveryTx starts a transaction for processing a single segment.
	BeginRecoveryTx(ctx context.Context) (RecoveryTx, error)

	// Reconcile applies every staged row in wal_sync onto kv_store
	// (upserting SETs, applying DELETEs) and clears wal_sync, as one
	// transaction.
	Reconcile(ctx context.Context) error

	// LoadAll streams every row currently in kv_store to fn, chunkSize rows
	// at a time, used to warm the in-memory cache at bootstrap.
	LoadAll(ctx context.Context, chunkSize int, fn func([]Row) error) error

	// Close releases underlying resources.
	Close() error
}
