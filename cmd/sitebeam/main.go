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

	"github.com/sitebeam-erp/sitebeam-erp/internal/app"
	"github.com/sitebeam-erp/sitebeam-erp/internal/audit"
	"github.com/sitebeam-erp/sitebeam-erp/internal/buycost"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/conversion"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/estimates"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/grouping"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/settings"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/variations"
	"github.com/sitebeam-erp/sitebeam-erp/internal/platform/cache"
	"github.com/sitebeam-erp/sitebeam-erp/internal/platform/db"
	"github.com/sitebeam-erp/sitebeam-erp/internal/projects"
	"github.com/sitebeam-erp/sitebeam-erp/internal/purchaseorders"
	"github.com/sitebeam-erp/sitebeam-erp/internal/rbac"
	"github.com/sitebeam-erp/sitebeam-erp/internal/shared"
	"github.com/sitebeam-erp/sitebeam-erp/internal/workorders"
	"github.com/sitebeam-erp/sitebeam-erp/jobs"
)

// exportQueue adapts the asynq client to the audit handler's queue port.
type exportQueue struct {
	client *jobs.Client
}

func (q exportQueue) EnqueueActivityExport(ctx context.Context, estimateID int64, outputPath string) error {
	_, err := q.client.EnqueueActivityExport(ctx, jobs.ActivityExportPayload{
		EstimateID: estimateID,
		OutputPath: outputPath,
	})
	return err
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
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

	auditLogger := shared.NewAuditLogger(pool)

	rbacService := rbac.NewService(pool)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	settingsRepo := settings.NewRepository(pool)
	settingsService := settings.NewService(settingsRepo, cfg.TenantID)
	settingsHandler := settings.NewHandler(logger, settingsService)

	estimateRepo := estimates.NewRepository(pool, cfg.TenantID)
	estimateService := estimates.NewService(estimateRepo, settingsService, rbacService, auditLogger, cfg.TenantID)
	estimateHandler := estimates.NewHandler(logger, estimateService)

	variationRepo := variations.NewRepository(pool, cfg.TenantID)
	variationService := variations.NewService(variationRepo, estimateRepo, settingsService, rbacService, auditLogger, cfg.TenantID)
	variationHandler := variations.NewHandler(logger, variationService)

	groupingRepo := grouping.NewRepository(pool)
	groupingService := grouping.NewService(groupingRepo, cfg.TenantID)
	groupingHandler := grouping.NewHandler(logger, groupingService)

	projectRepo := projects.NewRepository(pool, cfg.TenantID)
	projectHandler := projects.NewHandler(logger, projectRepo)

	workOrderRepo := workorders.NewRepository(pool, cfg.TenantID)
	workOrderHandler := workorders.NewHandler(logger, workOrderRepo)

	purchaseOrderRepo := purchaseorders.NewRepository(pool, cfg.TenantID)
	purchaseOrderHandler := purchaseorders.NewHandler(logger, purchaseOrderRepo)

	buyCostRepo := buycost.NewRepository(pool, cfg.TenantID)
	buyCostService := buycost.NewService(buyCostRepo, redisClient, cfg.TenantID)

	conversionService := conversion.NewService(
		estimateRepo,
		groupingService,
		projectRepo,
		workOrderRepo,
		purchaseOrderRepo,
		buyCostService,
		rbacService,
		auditLogger,
		logger,
		cfg.TenantID,
	)
	conversionHandler := conversion.NewHandler(logger, conversionService)

	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	auditExporter := audit.NewExporter(auditLogger, cfg.TenantID)
	auditHandler := audit.NewHandler(logger, auditExporter, exportQueue{client: jobClient}, cfg.ExportDir)

	middlewares := app.MiddlewareStack(app.MiddlewareConfig{
		Logger: logger,
		Config: cfg,
		Redis:  redisClient,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		Pool:                 pool,
		Guard:                rbacMiddleware,
		EstimateHandler:      estimateHandler,
		VariationHandler:     variationHandler,
		GroupingHandler:      groupingHandler,
		SettingsHandler:      settingsHandler,
		ConversionHandler:    conversionHandler,
		ProjectHandler:       projectHandler,
		WorkOrderHandler:     workOrderHandler,
		PurchaseOrderHandler: purchaseOrderHandler,
		AuditHandler:         auditHandler,
		Middlewares:          middlewares,
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
