// Package bootstrap drives the startup sequence every server entrypoint
// shares: migrate the store, replay and reconcile the WAL, warm the cache,
// open the segment pool, and start the background writer. Any failure here
// is fatal: the process should not accept traffic on a half-initialized
// store.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/chuliyu/kvwal/internal/config"
	"github.com/chuliyu/kvwal/internal/kv"
	"github.com/chuliyu/kvwal/internal/metrics"
	"github.com/chuliyu/kvwal/internal/recovery"
	"github.com/chuliyu/kvwal/internal/storage/wal"
	"github.com/chuliyu/kvwal/internal/store"
)

// cacheLoadWorkers bounds how many chunks are installed into the cache
// concurrently during warmup.
const cacheLoadWorkers = 4

// cacheLoadChunk is how many canonical rows each warmup chunk carries.
const cacheLoadChunk = 5000

// AppState is the long-lived singleton every network handler reads from: the
// cache+WAL binding, the segment pool, and the persistent store handle.
type AppState struct {
	Store     *store.SQLiteStore
	KV        *kv.Store
	Pool      *wal.Pool
	Log       *slog.Logger
	Collector *metrics.Collector

	writer *wal.Writer
}

// Start runs the full startup sequence:
//
//  1. open the persistent store and migrate its schema
//  2. run recovery (replay surviving segments, then reconcile)
//  3. load the canonical table into the cache, in parallel chunks
//  4. initialize the segment pool
//  5. start the background batching writer
//
// The network listeners are bound by the caller once Start returns.
// collector may be nil, in which case no metrics are recorded.
func Start(ctx context.Context, cfg config.Config, log *slog.Logger, collector *metrics.Collector) (*AppState, error) {
	st, err := store.OpenSQLite(cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("bootstrap: migrate: %w", err)
	}

	var recoveryCollectors []recovery.Collector
	if collector != nil {
		recoveryCollectors = append(recoveryCollectors, collector)
	}
	if err := recovery.Run(ctx, cfg.WAL.LogsDir, st, log, recoveryCollectors...); err != nil {
		st.Close()
		return nil, fmt.Errorf("bootstrap: recovery: %w", err)
	}

	// The writer exists before the pool so the cache+WAL binding can be
	// constructed and warmed first; its flush loop starts only once the
	// pool is open, and no handler runs before Start returns.
	writer := wal.NewWriter()
	kvStore := kv.New(writer)

	if err := loadCache(ctx, st, kvStore); err != nil {
		st.Close()
		return nil, fmt.Errorf("bootstrap: load cache: %w", err)
	}

	pool, err := wal.OpenPool(cfg.WAL.LogsDir, cfg.WAL.PoolSize, cfg.WAL.SyncOnAppend)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("bootstrap: open pool: %w", err)
	}
	if collector != nil {
		pool.SetCollector(collector)
		writer.SetCollector(collector)
	}
	writer.Start(pool)

	return &AppState{Store: st, KV: kvStore, Pool: pool, Log: log, Collector: collector, writer: writer}, nil
}

// loadCache streams the canonical table in fixed-size chunks, installing
// each chunk into the cache from its own goroutine so warmup parallelizes
// across the table instead of serializing on one query.
func loadCache(ctx context.Context, st store.Store, kvStore *kv.Store) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cacheLoadWorkers)

	err := st.LoadAll(ctx, cacheLoadChunk, func(rows []store.Row) error {
		g.Go(func() error {
			for _, r := range rows {
				kvStore.Load(r.Key, r.Value)
			}
			return nil
		})
		return nil
	})
	if err != nil {
		g.Wait()
		return err
	}
	return g.Wait()
}

// Shutdown stops the background writer and closes the segment pool and
// store, flushing any residual buffered records first.
func (a *AppState) Shutdown() error {
	a.writer.Close()
	if err := a.Pool.Close(); err != nil {
		return err
	}
	return a.Store.Close()
}
