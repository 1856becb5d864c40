package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const ddl = `
CREATE TABLE IF NOT EXISTS kv_store (
	key   TEXT PRIMARY KEY,
	value TEXT
);
CREATE TABLE IF NOT EXISTS wal_sync (
	key       TEXT PRIMARY KEY,
	time      TEXT NOT NULL,
	value     TEXT,
	operation TEXT NOT NULL CHECK (operation IN ('SET', 'DELETE'))
);
`

const stageUpsert = `
INSERT INTO wal_sync (key, time, value, operation)
VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	time = excluded.time,
	value = excluded.value,
	operation = excluded.operation
WHERE wal_sync.time < excluded.time
`

// SQLiteStore is the concrete Store backed by a pure-Go SQLite driver. The
// nanosecond write timestamp is stored as a zero-padded 39-digit decimal
// string rather than a native numeric column, since SQLite has no
// fixed-precision NUMERIC type; zero-padding makes the lexicographic TEXT
// ordering SQLite actually uses coincide with the numeric ordering the
// last-write-wins guard depends on.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) a SQLite database at dsn.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	// The pure-Go driver serializes writes internally; a single connection
	// avoids SQLITE_BUSY churn under the recovery driver's transaction load.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, ddl)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

type sqliteRecoveryTx struct {
	tx *sql.Tx
}

func (s *SQLiteStore) BeginRecoveryTx(ctx context.Context) (RecoveryTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin recovery tx: %w", err)
	}
	return &sqliteRecoveryTx{tx: tx}, nil
}

func (t *sqliteRecoveryTx) StageMutations(ctx context.Context, batch []Mutation) error {
	stmt, err := t.tx.PrepareContext(ctx, stageUpsert)
	if err != nil {
		return fmt.Errorf("store: prepare stage upsert: %w", err)
	}
	defer stmt.Close()

	for _, m := range batch {
		op := "DELETE"
		var value any
		if m.Set {
			op = "SET"
			value = string(m.Value)
		}
		if _, err := stmt.ExecContext(ctx, m.Key, encodeTime(m.Time), value, op); err != nil {
			return fmt.Errorf("store: stage mutation for %q: %w", m.Key, err)
		}
	}
	return nil
}

func (t *sqliteRecoveryTx) Commit(ctx context.Context) error   { return t.tx.Commit() }
func (t *sqliteRecoveryTx) Rollback(ctx context.Context) error { return t.tx.Rollback() }

func (s *SQLiteStore) Reconcile(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin reconcile tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO kv_store (key, value)
		SELECT key, value FROM wal_sync WHERE operation = 'SET'
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`); err != nil {
		return fmt.Errorf("store: reconcile upsert: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM kv_store WHERE key IN (
			SELECT key FROM wal_sync WHERE operation = 'DELETE'
		)
	`); err != nil {
		return fmt.Errorf("store: reconcile delete: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM wal_sync`); err != nil {
		return fmt.Errorf("store: reconcile clear staging: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadAll(ctx context.Context, chunkSize int, fn func([]Row) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM kv_store ORDER BY key`)
	if err != nil {
		return fmt.Errorf("store: load all: %w", err)
	}
	defer rows.Close()

	chunk := make([]Row, 0, chunkSize)
	for rows.Next() {
		var r Row
		var value sql.NullString
		if err := rows.Scan(&r.Key, &value); err != nil {
			return fmt.Errorf("store: scan row: %w", err)
		}
		if value.Valid {
			r.Value = []byte(value.String)
		}
		chunk = append(chunk, r)
		if len(chunk) >= chunkSize {
			if err := fn(chunk); err != nil {
				return err
			}
			chunk = make([]Row, 0, chunkSize)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: iterate rows: %w", err)
	}
	if len(chunk) > 0 {
		return fn(chunk)
	}
	return nil
}

// encodeTime zero-pads a nanosecond timestamp to 39 digits so the TEXT
// comparison order SQLite applies coincides with numeric order. 39 digits
// leaves room for a full 128-bit value.
func encodeTime(t uint64) string {
	return fmt.Sprintf("%039d", t)
}
