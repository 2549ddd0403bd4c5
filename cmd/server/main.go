package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/ArmandoRuiz13/registro/internal/config"
	"github.com/ArmandoRuiz13/registro/internal/core"
	_ "github.com/ArmandoRuiz13/registro/internal/core/tables" // Register all sheets
	"github.com/ArmandoRuiz13/registro/internal/exchange"
	"github.com/ArmandoRuiz13/registro/internal/logging"
	"github.com/ArmandoRuiz13/registro/internal/pricing"
	"github.com/ArmandoRuiz13/registro/internal/sheet"
	"github.com/ArmandoRuiz13/registro/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store", cfg.Store.Backend,
		"redis", cfg.Redis.Enabled(),
		"write_max_concurrent", cfg.Writes.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	paidSnap, err := core.ParsePaidSnapTarget(cfg.Pricing.PaidSnapTarget)
	if err != nil {
		slog.Error("invalid pricing configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	base, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open sheet store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Error("failed to connect to redis", "addr", cfg.Redis.Address, "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		slog.Info("connected to redis", "addr", cfg.Redis.Address)
	}

	// Retries wrap the raw backend; the cache sits outside so a cache hit
	// never touches the retry path.
	var store sheet.Backend = sheet.NewRetrying(base, cfg.Store.ReadAttempts, cfg.Store.ReadBackoff)
	var locker sheet.Locker
	if rdb != nil {
		store = sheet.NewCached(store, sheet.NewRedisCache(rdb, cfg.Store.CacheTTL))
		locker = sheet.NewRedisLocker(rdb, cfg.Store.LockTTL, cfg.Store.LockWait)
	} else {
		store = sheet.NewCached(store, sheet.NewLocalCache(cfg.Store.CacheTTL))
		locker = sheet.NewLocalLocker()
	}
	defer func() {
		if err := sheet.Close(store); err != nil {
			slog.Error("failed to close sheet store", "error", err)
		}
	}()

	core.MaxImportSize = cfg.Import.MaxFileSize

	service := core.NewService(store, core.Config{
		Calculator: &pricing.Calculator{
			TaxMultiplier:  cfg.Pricing.TaxMultiplier,
			CommissionRate: cfg.Pricing.CommissionRate,
			MarkupFactor:   cfg.Pricing.MarkupFactor,
		},
		Rates: exchange.NewClient(exchange.Config{
			URL:          cfg.Exchange.URL,
			FallbackRate: cfg.Exchange.FallbackRate,
			Timeout:      cfg.Exchange.Timeout,
			CacheTTL:     cfg.Exchange.CacheTTL,
		}),
		Locker:        locker,
		Limiter:       core.NewWriteLimiter(cfg.Writes.MaxConcurrent, cfg.Writes.MaxWaitTime),
		PaidSnap:      paidSnap,
		WriteAttempts: cfg.Store.WriteAttempts,
		DeleteTTL:     cfg.Ledger.DeleteConfirmTTL,
	})

	sheets := service.ListSheets()
	slog.Info("sheets registered", "count", len(sheets))
	for _, info := range sheets {
		slog.Debug("sheet", "key", info.Key, "path", info.Path)
	}

	server := web.NewServer(service, cfg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartScheduler(jobCtx, core.SchedulerConfig{
		RefreshInterval: cfg.Exchange.RefreshInterval,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let in-flight sheet writes finish before the store closes.
		if status := service.WriteStatus(); status.Active > 0 {
			slog.Info("waiting for writes to complete", "active", status.Active)
			if err := service.WaitForWrites(shutdownCtx); err != nil {
				slog.Warn("writes did not complete in time", "error", err)
			} else {
				slog.Info("all writes completed")
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

// openStore opens the sheet backend selected by STORE_BACKEND.
func openStore(ctx context.Context, cfg *config.Config) (sheet.Backend, error) {
	switch strings.ToLower(cfg.Store.Backend) {
	case config.BackendMemory:
		slog.Warn("using in-memory store; data is lost on restart")
		return sheet.NewMemory(), nil

	case config.BackendPostgres:
		poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		poolConfig.MaxConns = int32(cfg.Database.MaxConns)
		poolConfig.MinConns = int32(cfg.Database.MinConns)
		poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
		poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		pg := sheet.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		slog.Info("connected to postgres")
		return pg, nil

	case config.BackendSQLite:
		return sheet.OpenSQLite(cfg.Store.Path)

	case config.BackendMySQL:
		return sheet.OpenMySQL(cfg.Database.URL)

	default:
		slog.Info("using workbook store", "path", cfg.Store.Path)
		return sheet.OpenWorkbook(cfg.Store.Path)
	}
}
