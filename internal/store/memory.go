package store

import (
	"context"
	"sort"
	"sync"
)

// stagedRow mirrors one wal_sync row.
type stagedRow struct {
	time  uint64
	value []byte
	set   bool
}

// MemoryStore is an in-memory Store fake for tests that don't need a real
// database, implementing the same last-write-wins staging semantics.
type MemoryStore struct {
	mu      sync.Mutex
	kv      map[string][]byte
	staging map[string]stagedRow
}

// NewMemoryStore returns an empty fake store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		kv:      make(map[string][]byte),
		staging: make(map[string]stagedRow),
	}
}

func (m *MemoryStore) Migrate(ctx context.Context) error { return nil }
func (m *MemoryStore) Close() error                      { return nil }

type memoryRecoveryTx struct {
	store *MemoryStore
	rows  map[string]stagedRow
	done  bool
}

func (m *MemoryStore) BeginRecoveryTx(ctx context.Context) (RecoveryTx, error) {
	return &memoryRecoveryTx{store: m, rows: make(map[string]stagedRow)}, nil
}

func (t *memoryRecoveryTx) StageMutations(ctx context.Context, batch []Mutation) error {
	for _, m := range batch {
		existing, ok := t.rows[m.Key]
		if ok && existing.time >= m.Time {
			continue
		}
		t.rows[m.Key] = stagedRow{time: m.Time, value: m.Value, set: m.Set}
	}
	return nil
}

func (t *memoryRecoveryTx) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for k, row := range t.rows {
		existing, ok := t.store.staging[k]
		if ok && existing.time >= row.time {
			continue
		}
		t.store.staging[k] = row
	}
	return nil
}

func (t *memoryRecoveryTx) Rollback(ctx context.Context) error {
	t.done = true
	return nil
}

func (m *MemoryStore) Reconcile(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, row := range m.staging {
		if row.set {
			m.kv[k] = row.value
		} else {
			delete(m.kv, k)
		}
	}
	m.staging = make(map[string]stagedRow)
	return nil
}

func (m *MemoryStore) LoadAll(ctx context.Context, chunkSize int, fn func([]Row) error) error {
	m.mu.Lock()
	keys := make([]string, 0, len(m.kv))
	for k := range m.kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, Row{Key: k, Value: m.kv[k]})
	}
	m.mu.Unlock()

	for len(rows) > 0 {
		n := chunkSize
		if n > len(rows) || n <= 0 {
			n = len(rows)
		}
		if err := fn(rows[:n]); err != nil {
			return err
		}
		rows = rows[n:]
	}
	return nil
}
