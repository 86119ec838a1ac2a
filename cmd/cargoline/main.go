package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/cargoline/cargoline/internal/accounting/accounts"
	"github.com/cargoline/cargoline/internal/accounting/journals"
	"github.com/cargoline/cargoline/internal/api"
	"github.com/cargoline/cargoline/internal/app"
	"github.com/cargoline/cargoline/internal/invoices"
	"github.com/cargoline/cargoline/internal/ledger"
	"github.com/cargoline/cargoline/internal/observability"
	"github.com/cargoline/cargoline/internal/payments"
	"github.com/cargoline/cargoline/internal/platform/cache"
	"github.com/cargoline/cargoline/internal/platform/db"
	"github.com/cargoline/cargoline/internal/reconcile"
	"github.com/cargoline/cargoline/internal/shared"
	"github.com/cargoline/cargoline/jobs"
)

func main() {
	_ = godotenv.Load()

	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// The cache and job inspector degrade gracefully without Redis; the
	// payment path itself never depends on it.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable", slog.Any("error", err))
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	// Resolve the chart of accounts once; refuse to start with a gap. A
	// missing account discovered at request time would silently drop
	// journal entries for the lifetime of the process.
	accountSet, err := accounts.Resolve(ctx, accounts.NewRepository(pool))
	if err != nil {
		logger.Error("resolve chart of accounts", slog.Any("error", err))
		os.Exit(1)
	}
	if err := accountSet.Validate(); err != nil {
		logger.Error("chart of accounts incomplete", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	builder := journals.NewBuilder(accountSet)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	paymentRepo := payments.NewRepository(pool)
	paymentService := payments.NewService(paymentRepo, builder, idempotencyStore, logger, metrics)
	if cfg.CompanyAccountID != 0 {
		paymentService.WithCompanyAccount(cfg.CompanyAccountID)
	}

	reconcileRepo := reconcile.NewRepository(pool)
	reconciler := reconcile.NewService(reconcileRepo, builder, logger, metrics)
	reconciler.WithPolicy(reconcile.AdjustmentPolicy(cfg.AdjustmentPolicy))

	invoiceRepo := invoices.NewRepository(pool)
	statusCache := invoices.NewStatusCache(redisClient, 5*time.Minute)
	ledgerRepo := ledger.NewRepository(pool)

	apiHandler := api.NewHandler(logger, paymentService, reconciler, invoiceRepo, statusCache, paymentRepo, ledgerRepo)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		API:     apiHandler,
		Jobs:    jobHandler,
		Metrics: metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
