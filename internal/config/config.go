// Package config loads the service's YAML configuration file, mirroring the
// cobra+yaml.v3 pattern the rest of this codebase's command-line tooling
// uses for its own config files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Server holds the network listener configuration.
type Server struct {
	HTTPPort int `yaml:"http_port"`
	RPCPort  int `yaml:"rpc_port"`
}

// WAL holds write-ahead log tuning parameters.
type WAL struct {
	LogsDir      string `yaml:"logs_dir"`
	PoolSize     int    `yaml:"pool_size"`
	SyncOnAppend bool   `yaml:"sync_on_append"`
}

// Store holds the backing relational store configuration.
type Store struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Metrics holds the Prometheus exporter configuration.
type Metrics struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Config is the top-level configuration document.
type Config struct {
	Server  Server  `yaml:"server"`
	WAL     WAL     `yaml:"wal"`
	Store   Store   `yaml:"store"`
	Metrics Metrics `yaml:"metrics"`
}

// Default returns the built-in configuration: HTTP port 4000, logs dir
// ./logs, WAL pool size 2.
func Default() Config {
	return Config{
		Server:  Server{HTTPPort: 4000, RPCPort: 4001},
		WAL:     WAL{LogsDir: "./logs", PoolSize: 2, SyncOnAppend: false},
		Store:   Store{Driver: "sqlite", DSN: "./kvwal.db"},
		Metrics: Metrics{Enabled: true, Port: 9090},
	}
}

// Load reads and parses a YAML config file, overlaying it onto Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
