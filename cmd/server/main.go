package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/notifyhub/github-relay/internal/api"
	"github.com/notifyhub/github-relay/internal/config"
	"github.com/notifyhub/github-relay/internal/db"
	"github.com/notifyhub/github-relay/internal/domain"
	"github.com/notifyhub/github-relay/internal/metrics"
	"github.com/notifyhub/github-relay/internal/provider"
	"github.com/notifyhub/github-relay/internal/queue"
	"github.com/notifyhub/github-relay/internal/ratelimiter"
	"github.com/notifyhub/github-relay/internal/render"
	"github.com/notifyhub/github-relay/internal/repository"
	"github.com/notifyhub/github-relay/internal/service"
	"github.com/notifyhub/github-relay/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- destination settings ----
	ctx := context.Background()
	repo, closeRepo, err := openSettings(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open settings store", zap.Error(err))
	}
	defer closeRepo()

	if cfg.SeedFile != "" {
		settings, err := repository.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			logger.Fatal("failed to load settings seed file", zap.Error(err))
		}
		if err := repository.Seed(ctx, repo, settings); err != nil {
			logger.Fatal("failed to seed settings", zap.Error(err))
		}
		logger.Info("destination settings seeded", zap.Int("count", len(settings)))
	}

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	limiter := ratelimiter.New(cfg.RateLimitPerMinute)
	prov := provider.NewDingTalkProvider(cfg.ProviderTimeout, limiter, logger.Named("dingtalk"))

	// ---- one queue and pipeline per mode ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	pool := worker.NewPool()
	var queues []service.Queue
	for _, mode := range []domain.Mode{domain.ModeApp, domain.ModeWebhook} {
		log := logger.With(zap.String("mode", string(mode)))
		q := queue.New(mode, cfg.QueueCapacity, cfg.MaxRetries, logger)
		queues = append(queues, q)

		cache := worker.NewDispatcherCache(mode, repo, nil)
		consumer := worker.NewConsumer(cache, render.Render, prov, cfg.RetryDelay, logger,
			worker.MetricHooks(m.Hooks(mode)))

		trigger, err := worker.NewTrigger(cfg.BatchSchedule, q, consumer, cfg.BatchSize, log,
			func(d domain.QueueDepth) { m.ObserveQueue(mode, d) })
		if err != nil {
			logger.Fatal("failed to create batch trigger", zap.Error(err))
		}
		pool.Add(trigger, worker.NewRetryWorker(q, cfg.RetryInterval, log))
	}
	pool.Start(workerCtx)

	// ---- HTTP server ----
	svc := service.NewIngestService(logger, queues...)
	router := api.NewRouter(svc, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new webhooks.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop the triggers and retry workers.
	cancelWorkers()

	// 3. Wait for a running batch to finish. Drained deliveries are already
	// acked, so the batch keeps sending after the cancel.
	pool.Wait()

	logger.Info("server stopped cleanly")
}

// openSettings connects the configured settings backend and applies its
// migrations. The returned func releases the underlying connection.
func openSettings(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.SettingRepository, func(), error) {
	switch cfg.SettingsBackend {
	case config.BackendSQLite:
		conn, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := db.MigrateSQLite(cfg.SQLitePath, cfg.MigrationsDir); err != nil {
			conn.Close()
			return nil, nil, err
		}
		logger.Info("sqlite settings store ready", zap.String("path", cfg.SQLitePath))
		return repository.NewSQLiteSettingRepository(conn), func() { conn.Close() }, nil

	case config.BackendPostgres:
		pool, err := db.Connect(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("postgres settings store ready")
		return repository.NewPgSettingRepository(pool), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported settings backend %q", cfg.SettingsBackend)
}
