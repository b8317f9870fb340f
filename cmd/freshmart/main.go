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
	"github.com/freshmart/freshmart-pos/internal/audit"
	"github.com/freshmart/freshmart-pos/internal/auth"
	"github.com/freshmart/freshmart-pos/internal/bag"
	"github.com/freshmart/freshmart-pos/internal/catalog"
	"github.com/freshmart/freshmart-pos/internal/dashboard"
	"github.com/freshmart/freshmart-pos/internal/inventory"
	"github.com/freshmart/freshmart-pos/internal/lists"
	"github.com/freshmart/freshmart-pos/internal/observability"
	"github.com/freshmart/freshmart-pos/internal/rbac"
	"github.com/freshmart/freshmart-pos/internal/reports"
	"github.com/freshmart/freshmart-pos/internal/sales"
	"github.com/freshmart/freshmart-pos/internal/shared"
	"github.com/freshmart/freshmart-pos/internal/view"
	"github.com/freshmart/freshmart-pos/jobs"
	"github.com/freshmart/freshmart-pos/report"
)

func main() {
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

	infra, err := app.OpenInfra(ctx, cfg, logger)
	if err != nil {
		logger.Error("connect backends", slog.Any("error", err))
		os.Exit(1)
	}
	defer infra.Close()
	pool := infra.Pool

	sessionManager := shared.NewSessionManager(infra.Redis, "freshmart_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	reportCache := reports.NewCache(infra.Redis, cfg.ReportCacheTTL)

	rbacService := rbac.NewService()
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	jobClient, err := jobs.NewClient(app.AsynqRedis(cfg))
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	authService := auth.NewService(auth.NewRepository(pool))
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	catalogService := catalog.NewService(catalog.NewRepository(pool), auditLogger, reportCache, logger)
	catalogHandler := catalog.NewHandler(logger, catalogService, templates, csrfManager, rbacMiddleware)

	bagService := bag.NewService(bag.NewRepository(pool))
	bagHandler := bag.NewHandler(logger, bagService, templates, csrfManager, rbacMiddleware)

	listsService := lists.NewService(lists.NewRepository(pool))
	listsHandler := lists.NewHandler(logger, listsService, rbacMiddleware)

	pdfClient := report.NewClient(cfg.GotenbergURL)
	salesService := sales.NewService(sales.NewRepository(pool), sales.ServiceDeps{
		Audit:   auditLogger,
		Cache:   reportCache,
		Mailer:  jobClient,
		Metrics: metrics,
		Logger:  logger,
	})
	salesHandler := sales.NewHandler(logger, salesService, templates, csrfManager, rbacMiddleware, pdfClient)

	inventoryService := inventory.NewService(inventory.NewRepository(pool), inventory.ServiceDeps{
		Audit:   auditLogger,
		Cache:   reportCache,
		Metrics: metrics,
		Logger:  logger,
	})
	inventoryHandler := inventory.NewHandler(logger, inventoryService, rbacMiddleware)

	reportsService := reports.NewService(reports.NewRepository(pool), reportCache, logger).WithLocation(cfg.StoreLocation())
	reportsHandler := reports.NewHandler(logger, reportsService, templates, csrfManager, rbacMiddleware)

	dashboardService := dashboard.NewService(dashboard.NewRepository(pool)).WithLocation(cfg.StoreLocation())
	dashboardHandler := dashboard.NewHandler(logger, dashboardService, templates, csrfManager, rbacMiddleware)

	inspector := asynq.NewInspector(app.AsynqRedis(cfg))
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Metrics:            metrics,
		AuthHandler:        authHandler,
		CatalogHandler:     catalogHandler,
		BagHandler:         bagHandler,
		ListsHandler:       listsHandler,
		SalesHandler:       salesHandler,
		InventoryHandler:   inventoryHandler,
		ReportsHandler:     reportsHandler,
		DashboardHandler:   dashboardHandler,
		PermissionsHandler: rbac.NewPermissionsHandler(rbacService, rbacMiddleware),
		AuditHandler:       audit.NewHandler(logger, audit.NewService(audit.NewRepository(pool)), rbacMiddleware),
		ReportHandler:      report.NewHandler(pdfClient, logger),
		JobHandler:         jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
