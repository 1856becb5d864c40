// ============================================================================
// kvwal CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Cobra-based command line interface for the kvwal server and its
// client operations.
//
// Command Structure:
//   kvwal                      # Root command
//   ├── serve                  # Start the HTTP + gRPC server
//   │   └── --config, -c       # Specify config file
//   ├── get <key>               # Read a key from a running server
//   ├── set <key> <value>       # Write a key to a running server
//   ├── delete <key>            # Delete a key from a running server
//   ├── --version                # Display version information
//   └── --help                   # Display help information
//
// Configuration Management:
//   Uses a YAML config file given with --config (e.g. configs/default.yaml),
//   see internal/config; without one, built-in defaults apply. A .env file in the working directory is loaded first
//   (if present) so ENV, KVWAL_* variables can come from local development
//   setup.
//
// serve Command:
//   Starts the complete service:
//   1. Load .env + config file
//   2. Run bootstrap (migrate -> recover -> reconcile -> warm cache -> pool -> writer)
//   3. Start the Prometheus metrics server (if enabled)
//   4. Bind the HTTP and gRPC listeners
//   5. Listen for SIGINT/SIGTERM and shut down gracefully
//
// Signal Handling:
//   serve captures SIGINT (Ctrl+C) and SIGTERM and performs a graceful
//   shutdown: stop accepting new connections, flush the WAL writer's
//   residual buffer, close the segment pool and the store.
//
// ============================================================================

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/chuliyu/kvwal/internal/bootstrap"
	"github.com/chuliyu/kvwal/internal/config"
	"github.com/chuliyu/kvwal/internal/httpapi"
	"github.com/chuliyu/kvwal/internal/metrics"
	"github.com/chuliyu/kvwal/internal/rpc"
)

var configFile string

// BuildCLI assembles the root command and its subcommands.
func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kvwal",
		Short: "kvwal: an in-memory key-value store with WAL-backed durability",
		Long: `kvwal is a sharded in-memory key-value store whose mutations are
group-committed to a write-ahead log and periodically reconciled into a
backing relational table. On startup it replays any surviving WAL segments
before accepting traffic.`,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (defaults to built-in defaults)")

	rootCmd.AddCommand(buildServeCommand())
	rootCmd.AddCommand(buildGetCommand())
	rootCmd.AddCommand(buildSetCommand())
	rootCmd.AddCommand(buildDeleteCommand())

	return rootCmd
}

func buildServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the kvwal HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	return cmd
}

func newLogger() *slog.Logger {
	level := slog.LevelError
	if os.Getenv("ENV") == "development" {
		level = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

func runServe() error {
	// Load .env before anything else reads the environment.
	_ = godotenv.Load()

	log := newLogger()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dsn := os.Getenv("KVWAL_DSN"); dsn != "" {
		cfg.Store.DSN = dsn
	}

	collector := metrics.NewCollector()

	ctx := context.Background()
	state, err := bootstrap.Start(ctx, cfg, log, collector)
	if err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	if cfg.Metrics.Enabled {
		go func() {
			log.Info("starting metrics server", "port", cfg.Metrics.Port)
			if err := metrics.StartServer(cfg.Metrics.Port); err != nil {
				log.Error("metrics server exited", "error", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: httpapi.Handler(state.KV, collector, log),
	}
	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server exited", "error", err)
		}
	}()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.RPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen on rpc port %d: %w", cfg.Server.RPCPort, err)
	}
	grpcSrv := rpc.NewServer(state.KV)
	go func() {
		log.Info("starting gRPC server", "port", cfg.Server.RPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			log.Error("gRPC server exited", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutdown signal received, stopping gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	grpcSrv.GracefulStop()

	if err := state.Shutdown(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("kvwal stopped")
	return nil
}

func buildGetCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Read a key from a running kvwal server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := clientGet(addr, args[0])
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "http://localhost:4000", "kvwal HTTP server address")
	return cmd
}

func buildSetCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a key to a running kvwal server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return clientSet(addr, args[0], args[1])
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "http://localhost:4000", "kvwal HTTP server address")
	return cmd
}

func buildDeleteCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a key from a running kvwal server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return clientDelete(addr, args[0])
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "http://localhost:4000", "kvwal HTTP server address")
	return cmd
}

func clientGet(addr, key string) (string, error) {
	resp, err := http.Get(fmt.Sprintf("%s/key/%s", addr, key))
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("key %q not found", key)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	return string(body), nil
}

func clientSet(addr, key, value string) error {
	payload, err := json.Marshal(map[string]string{"value": value})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	resp, err := http.Post(fmt.Sprintf("%s/key/%s", addr, key), "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func clientDelete(addr, key string) error {
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/key/%s", addr, key), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("key %q not found", key)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
