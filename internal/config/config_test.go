package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	require.Equal(t, 4000, cfg.Server.HTTPPort)
	require.Equal(t, "./logs", cfg.WAL.LogsDir)
	require.Equal(t, 2, cfg.WAL.PoolSize)
	require.True(t, cfg.Metrics.Enabled)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverlaysFileOntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("wal:\n  pool_size: 8\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8, cfg.WAL.PoolSize)
	// Untouched sections keep their defaults.
	require.Equal(t, 4000, cfg.Server.HTTPPort)
	require.Equal(t, "./logs", cfg.WAL.LogsDir)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadMalformedYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("wal: ["), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}
