package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/hibiken/asynq"

	"github.com/freshmart/freshmart-pos/internal/app"
	"github.com/freshmart/freshmart-pos/internal/inventory"
	jobmetrics "github.com/freshmart/freshmart-pos/internal/jobs"
	"github.com/freshmart/freshmart-pos/internal/observability"
	"github.com/freshmart/freshmart-pos/internal/reports"
	"github.com/freshmart/freshmart-pos/internal/sales"
	"github.com/freshmart/freshmart-pos/internal/shared"
	"github.com/freshmart/freshmart-pos/jobs"
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

	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))

	infra, err := app.OpenInfra(ctx, cfg, logger)
	if err != nil {
		logger.Error("connect backends", slog.Any("error", err))
		os.Exit(1)
	}
	defer infra.Close()
	pool := infra.Pool

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())
	auditLogger := shared.NewAuditLogger(pool)
	reportCache := reports.NewCache(infra.Redis, cfg.ReportCacheTTL)

	salesService := sales.NewService(sales.NewRepository(pool), sales.ServiceDeps{Logger: logger})
	inventoryService := inventory.NewService(inventory.NewRepository(pool), inventory.ServiceDeps{
		Audit:   auditLogger,
		Metrics: metrics,
		Logger:  logger,
	})
	reportsService := reports.NewService(reports.NewRepository(pool), reportCache, logger).WithLocation(cfg.StoreLocation())

	receiptJob := &jobs.ReceiptMailJob{
		Receipts: salesService,
		Mailer:   jobs.SMTPMailer{Addr: cfg.SMTPAddr(), From: cfg.SMTPFrom},
		Logger:   logger,
		Metrics:  jobMetrics,
	}
	scanJob := &jobs.ReorderScanJob{Scanner: inventoryService, Logger: logger, Metrics: jobMetrics}
	warmupJob := &jobs.ReportsWarmupJob{Reports: reportsService, Logger: logger, Metrics: jobMetrics}

	scanTask, err := jobs.NewReorderScanTask(time.Now().UTC())
	if err != nil {
		logger.Error("build reorder scan task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewReportsWarmupTask("hourly")
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: app.AsynqRedis(cfg),
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReceiptMail, Handler: receiptJob.Handle},
			{Type: jobs.TaskReorderScan, Handler: scanJob.Handle},
			{Type: jobs.TaskReportsWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ReorderScanCron, Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 * * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	client, err := jobs.NewClient(app.AsynqRedis(cfg))
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = client.Close() }()

	// bumps collapse into one warmup per uniqueness window
	if err := reportCache.Subscribe(ctx, func(version int64) {
		if _, err := client.EnqueueReportsWarmup(ctx, "bump"); err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
			logger.Warn("enqueue warmup", slog.Int64("version", version), slog.Any("error", err))
		}
	}); err != nil {
		logger.Warn("subscribe report cache", slog.Any("error", err))
	}

	if cfg.WorkerMetricsAddr != "" {
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() { _ = metricsServer.Close() }()
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
