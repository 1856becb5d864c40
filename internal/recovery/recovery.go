// Package recovery drives startup WAL replay: it scans surviving segment
// files, cross-process-locks each one, decodes and stages its records into
// the persistent store, and hands off to reconciliation once every segment
// has been processed.
package recovery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/chuliyu/kvwal/internal/storage/wal"
	"github.com/chuliyu/kvwal/internal/store"
)

// Collector is the subset of metrics.Collector that a recovery pass reports
// timing and skip counts to. Accepted as a variadic trailing argument to Run
// so callers that don't care about metrics (tests, fakes) don't need to pass
// one.
type Collector interface {
	SetRecoveryTime(seconds float64)
	SetSegmentsSkipped(n int)
}

// chunkSize is the read granularity from each segment file.
const chunkSize = 8192

// stageBatchSize is the number of staged rows accumulated before an
// intermediate flush to the store, keeping a single segment's memory use
// bounded even for very large WALs.
const stageBatchSize = 20000

// Run processes every segment under dir against st, then reconciles staging
// into the canonical table. It must run before the batching writer starts
// and before the cache is loaded.
func Run(ctx context.Context, dir string, st store.Store, log *slog.Logger, collectors ...Collector) error {
	start := time.Now()
	var collector Collector
	if len(collectors) > 0 {
		collector = collectors[0]
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return st.Reconcile(ctx)
		}
		return err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".log" {
			continue
		}
		names = append(names, e.Name())
	}
	// Newest first; reconciliation's last-write-wins guard makes the order
	// immaterial to correctness, this just surfaces the freshest data to any
	// intermediate flush sooner.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	skipped := 0
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := processSegment(ctx, path, st, log); err != nil {
			if errors.Is(err, ErrLockContended) {
				log.Warn("segment lock contended, skipping this run", "segment", name)
				skipped++
				continue
			}
			log.Error("segment processing failed, retaining for next startup", "segment", name, "error", err)
			continue
		}
	}

	if err := st.Reconcile(ctx); err != nil {
		return err
	}

	if collector != nil {
		collector.SetRecoveryTime(time.Since(start).Seconds())
		collector.SetSegmentsSkipped(skipped)
	}
	return nil
}

func processSegment(ctx context.Context, path string, st store.Store, log *slog.Logger) error {
	lock, err := AcquireLock(path)
	if err != nil {
		return err
	}
	defer lock.Release()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	tx, err := st.BeginRecoveryTx(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback(ctx)
		}
	}()

	dec := wal.NewDecoder()
	var setBatch, delBatch []store.Mutation
	buf := make([]byte, chunkSize)

	flush := func() error {
		if len(setBatch) > 0 {
			if err := tx.StageMutations(ctx, setBatch); err != nil {
				return err
			}
			setBatch = setBatch[:0]
		}
		if len(delBatch) > 0 {
			if err := tx.StageMutations(ctx, delBatch); err != nil {
				return err
			}
			delBatch = delBatch[:0]
		}
		return nil
	}

	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])
			for {
				rec, ok, decErr := dec.Next()
				if decErr != nil {
					log.Error("failed to decode WAL record, skipping", "segment", path, "error", decErr)
					dec.SkipByte()
					continue
				}
				if !ok {
					break
				}
				m := store.Mutation{Key: string(rec.Key), Time: rec.Time, Set: rec.Op == wal.OpSet}
				if m.Set {
					m.Value = rec.Value
					setBatch = append(setBatch, m)
				} else {
					delBatch = append(delBatch, m)
				}
				if len(setBatch) >= stageBatchSize || len(delBatch) >= stageBatchSize {
					if err := flush(); err != nil {
						return err
					}
				}
			}
			dec.Compact()
		}
		if lock.HeartbeatDue() {
			if err := lock.Heartbeat(); err != nil {
				log.Warn("failed to renew segment lock heartbeat", "segment", path, "error", err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}

	if err := flush(); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	committed = true

	if err := os.Remove(path); err != nil {
		return err
	}
	return nil
}
