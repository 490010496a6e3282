package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/payee-recon/internal/config"
	"github.com/JonMunkholm/payee-recon/internal/core"
	"github.com/JonMunkholm/payee-recon/internal/logging"
	"github.com/JonMunkholm/payee-recon/internal/store/memstore"
	"github.com/JonMunkholm/payee-recon/internal/store/postgres"
	"github.com/JonMunkholm/payee-recon/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store", cfg.Store.Backend,
		"import_policy", cfg.Import.ConflictPolicy,
		"conflict_key", cfg.Import.ConflictKeyString(),
		"max_concurrent_runs", cfg.Runs.MaxConcurrent,
	)

	headers, err := core.LoadHeaderNormalizer(cfg.Import.HeaderSynonymsFile)
	if err != nil {
		slog.Error("failed to load header synonyms", "path", cfg.Import.HeaderSynonymsFile, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open registry store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	service := core.NewService(store, headers, serviceOptions(cfg), core.SlogSink{Logger: logger})

	// Create server with config
	server := web.NewServer(service, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	if cfg.Registry.RefreshInterval > 0 {
		go service.StartRegistryRefresher(jobCtx, cfg.Registry.RefreshInterval)
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active import and delete runs to complete (with timeout)
		runs := service.Limiter().Status()
		if runs.Active > 0 {
			slog.Info("waiting for runs to complete", "active", runs.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("runs did not complete in time", "error", err)
			} else {
				slog.Info("all runs completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}

// openStore builds the configured registry store and returns its cleanup.
func openStore(ctx context.Context, cfg *config.Config) (core.RegistryStore, func(), error) {
	if cfg.Store.Backend == config.BackendMemory {
		slog.Warn("using in-memory registry store; data is lost on restart")
		return memstore.New(memstore.Options{
			PageLimit:   cfg.Store.PageLimit,
			FilterLimit: cfg.Store.FilterLimit,
		}), func() {}, nil
	}

	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, err
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	store := postgres.New(pool, postgres.Options{
		PageLimit:   cfg.Store.PageLimit,
		FilterLimit: cfg.Store.FilterLimit,
	})
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}

// serviceOptions maps configuration onto the core service.
func serviceOptions(cfg *config.Config) core.ServiceOptions {
	return core.ServiceOptions{
		Import: core.ImportOptions{
			MaxBatchSize: cfg.Import.MaxBatchSize,
			MaxRecords:   cfg.Import.MaxRecords,
			Policy:       core.ConflictPolicy(cfg.Import.ConflictPolicy),
			ConflictKey:  cfg.Import.ConflictKey,
		},
		DeleteBatchSize:   cfg.Delete.MaxBatchSize,
		MatchChunkSize:    cfg.Match.ChunkSize,
		CacheTTL:          cfg.Registry.CacheTTL,
		FetchPageSize:     cfg.Registry.FetchPageSize,
		MaxConcurrentRuns: cfg.Runs.MaxConcurrent,
		RunMaxWait:        cfg.Runs.MaxWait,
	}
}
