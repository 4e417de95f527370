// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/stockroom/stockroom/internal/auth"
	authpg "github.com/stockroom/stockroom/internal/auth/postgres"
	"github.com/stockroom/stockroom/internal/config"
	"github.com/stockroom/stockroom/internal/httpapi"
	"github.com/stockroom/stockroom/internal/item"
	itempg "github.com/stockroom/stockroom/internal/item/postgres"
	"github.com/stockroom/stockroom/internal/logging"
	"github.com/stockroom/stockroom/internal/observability"
	"github.com/stockroom/stockroom/internal/store"
)

// shutdownTimeout bounds the graceful stop of each server.
const shutdownTimeout = 5 * time.Second

// dbPool is the slice of pgxpool.Pool the serve command needs: queries
// for the repositories, a ping for readiness, and Close.
type dbPool interface {
	store.Querier
	Ping(ctx context.Context) error
	Close()
}

// schemaMigrator applies pending migrations at startup.
type schemaMigrator interface {
	Up() error
	Close() error
}

// lifecycleServer is the Start/Stop contract shared by the API and
// observability servers.
type lifecycleServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// ServeDeps holds injectable dependencies for the serve command.
// Tests substitute fakes; production uses the defaults.
type ServeDeps struct {
	Connect      func(ctx context.Context, databaseURL string) (dbPool, error)
	NewMigrator  func(databaseURL string) (schemaMigrator, error)
	NewObsServer func(addr string, check observability.ReadinessChecker) lifecycleServer
	NewAPIServer func(addr string, handler http.Handler) lifecycleServer
}

func defaultServeDeps(deps *ServeDeps) {
	if deps.Connect == nil {
		deps.Connect = func(ctx context.Context, databaseURL string) (dbPool, error) {
			return store.Connect(ctx, databaseURL)
		}
	}
	if deps.NewMigrator == nil {
		deps.NewMigrator = func(databaseURL string) (schemaMigrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if deps.NewObsServer == nil {
		deps.NewObsServer = func(addr string, check observability.ReadinessChecker) lifecycleServer {
			return observability.NewServer(addr, check)
		}
	}
	if deps.NewAPIServer == nil {
		deps.NewAPIServer = func(addr string, handler http.Handler) lifecycleServer {
			return httpapi.NewServer(addr, handler)
		}
	}
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API and observability servers",
		Long: `Start the HTTP API server and the observability server
(metrics and health probes), connecting to PostgreSQL and applying any
pending schema migrations first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}

	cmd.Flags().String("addr", config.DefaultAddr, "API listen address")
	cmd.Flags().String("metrics-addr", config.DefaultMetricsAddr, "metrics/health listen address")
	cmd.Flags().String("log-format", "json", "log format (json or text)")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection string")
	cmd.Flags().Duration("token-ttl", config.DefaultTokenTTL, "bearer token time-to-live")
	cmd.Flags().Bool("auto-migrate", true, "apply pending migrations at startup")

	return cmd
}

// runServeWithDeps starts the service with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	defaultServeDeps(deps)

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	// Malformed configuration is the one fatal condition, checked once here
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault("stockroom", version, cfg.Log.Format, cfg.Log.Level)

	slog.Info("starting stockroom",
		"addr", cfg.Server.Addr,
		"metrics_addr", cfg.Server.MetricsAddr,
	)

	pool, err := deps.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return oops.With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	slog.Info("connected to database")

	autoMigrate, _ := cmd.Flags().GetBool("auto-migrate")
	if autoMigrate {
		if err := applyMigrations(deps, cfg.Database.URL); err != nil {
			return err
		}
	}

	// Build the authentication core and the item service
	hasher := auth.NewArgon2idHasher(cfg.Auth.Argon2.Params())
	codec, err := auth.NewTokenCodec([]byte(cfg.Auth.Secret), cfg.Auth.Algorithm)
	if err != nil {
		return err
	}

	users := authpg.NewUserRepository(pool)
	items := itempg.NewItemRepository(pool)
	guard := auth.NewGuard(codec, users)

	obsServer := deps.NewObsServer(cfg.Server.MetricsAddr, pool.Ping)

	var metrics *observability.Metrics
	if obs, ok := obsServer.(*observability.Server); ok {
		metrics = obs.Metrics()
	}

	api := httpapi.NewAPI(httpapi.Deps{
		Registrar:     auth.NewRegistrar(users, hasher),
		Authenticator: auth.NewAuthenticator(users, hasher, codec, cfg.Auth.TokenTTL),
		Guard:         guard,
		Items:         item.NewService(items, guard),
		Logger:        slog.Default(),
		Metrics:       metrics,
		Version:       version,
	})
	apiServer := deps.NewAPIServer(cfg.Server.Addr, api.Router())

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	obsErrCh, err := obsServer.Start()
	if err != nil {
		return oops.With("operation", "start observability server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, obsErrCh, "observability")

	apiErrCh, err := apiServer.Start()
	if err != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()
		if stopErr := obsServer.Stop(stopCtx); stopErr != nil {
			slog.Warn("failed to stop observability server during cleanup", "error", stopErr)
		}
		return oops.With("operation", "start api server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api")

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Stockroom started")
	slog.Info("stockroom ready",
		"addr", apiServer.Addr(),
		"metrics_addr", obsServer.Addr(),
	)

	// Wait for shutdown signal or server failure
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	// Graceful shutdown: API first so in-flight requests can still reach
	// the database, then observability, then the pool via defer
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping api server", "error", err)
	}
	if err := obsServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping observability server", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// applyMigrations brings the schema up to date at startup.
func applyMigrations(deps *ServeDeps, databaseURL string) error {
	migrator, err := deps.NewMigrator(databaseURL)
	if err != nil {
		return oops.With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("error closing migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.With("operation", "apply migrations").Wrap(err)
	}

	slog.Info("schema migrations applied")
	return nil
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// This ensures that server failures trigger graceful shutdown of the entire process.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
		// Context cancelled, exit monitoring
	}
}
