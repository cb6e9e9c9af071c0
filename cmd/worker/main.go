package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/sitebeam-erp/sitebeam-erp/internal/app"
	"github.com/sitebeam-erp/sitebeam-erp/internal/audit"
	"github.com/sitebeam-erp/sitebeam-erp/internal/buycost"
	"github.com/sitebeam-erp/sitebeam-erp/internal/platform/cache"
	"github.com/sitebeam-erp/sitebeam-erp/internal/platform/db"
	"github.com/sitebeam-erp/sitebeam-erp/internal/shared"
	"github.com/sitebeam-erp/sitebeam-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis connect", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	buyCostRepo := buycost.NewRepository(pool, cfg.TenantID)
	buyCostService := buycost.NewService(buyCostRepo, redisClient, cfg.TenantID)
	warmupJob := jobs.NewBuyCostWarmupJob(buyCostService, logger)

	auditLogger := shared.NewAuditLogger(pool)
	auditExporter := audit.NewExporter(auditLogger, cfg.TenantID)
	exportJob := jobs.NewActivityExportJob(auditExporter, logger)

	warmupTask, err := jobs.NewBuyCostWarmupTask()
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskBuyCostWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskActivityExport, Handler: exportJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 5 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
