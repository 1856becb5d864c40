package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chuliyu/kvwal/internal/config"
	"github.com/chuliyu/kvwal/internal/kv"
	"github.com/chuliyu/kvwal/internal/storage/wal"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.WAL.LogsDir = filepath.Join(base, "logs")
	cfg.Store.DSN = filepath.Join(base, "kv.db")
	return cfg
}

func writeSegment(t *testing.T, dir, name string, recs []wal.Record) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	var buf []byte
	for _, r := range recs {
		buf = r.Encode(buf)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf, 0o644))
}

func TestStartRecoversPreSeededSegmentsLastWriteWins(t *testing.T) {
	cfg := testConfig(t)

	// The segment whose name sorts later (processed first) carries the
	// older timestamp; the higher timestamp must still win.
	writeSegment(t, cfg.WAL.LogsDir, "wal_2.log", []wal.Record{
		{Op: wal.OpSet, Time: 100, Key: []byte("k"), Value: []byte("old")},
	})
	writeSegment(t, cfg.WAL.LogsDir, "wal_1.log", []wal.Record{
		{Op: wal.OpSet, Time: 200, Key: []byte("k"), Value: []byte("new")},
	})

	state, err := Start(context.Background(), cfg, discardLogger(), nil)
	require.NoError(t, err)
	defer state.Shutdown()

	got, err := state.KV.Get("k")
	require.NoError(t, err)
	require.Equal(t, "new", string(got))
}

func TestStartSurvivesRestart(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	state, err := Start(ctx, cfg, discardLogger(), nil)
	require.NoError(t, err)
	require.NoError(t, state.KV.Set("x", []byte("1")))
	require.NoError(t, state.KV.Set("y", []byte("2")))
	require.NoError(t, state.KV.Delete("y"))
	require.NoError(t, state.Shutdown())

	restarted, err := Start(ctx, cfg, discardLogger(), nil)
	require.NoError(t, err)
	defer restarted.Shutdown()

	got, err := restarted.KV.Get("x")
	require.NoError(t, err)
	require.Equal(t, "1", string(got))

	_, err = restarted.KV.Get("y")
	require.ErrorIs(t, err, kv.ErrNotFound)
}

func TestStartFailsWhenStoreCannotMigrate(t *testing.T) {
	cfg := testConfig(t)
	// A directory is not a usable database file.
	cfg.Store.DSN = t.TempDir()

	_, err := Start(context.Background(), cfg, discardLogger(), nil)
	require.Error(t, err)
}
