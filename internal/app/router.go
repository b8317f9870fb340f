package app

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/freshmart/freshmart-pos/internal/audit"
	"github.com/freshmart/freshmart-pos/internal/auth"
	"github.com/freshmart/freshmart-pos/internal/bag"
	"github.com/freshmart/freshmart-pos/internal/catalog"
	"github.com/freshmart/freshmart-pos/internal/dashboard"
	"github.com/freshmart/freshmart-pos/internal/inventory"
	"github.com/freshmart/freshmart-pos/internal/lists"
	"github.com/freshmart/freshmart-pos/internal/observability"
	"github.com/freshmart/freshmart-pos/internal/platform/httpx"
	"github.com/freshmart/freshmart-pos/internal/rbac"
	"github.com/freshmart/freshmart-pos/internal/reports"
	"github.com/freshmart/freshmart-pos/internal/sales"
	"github.com/freshmart/freshmart-pos/internal/shared"
	"github.com/freshmart/freshmart-pos/jobs"
	"github.com/freshmart/freshmart-pos/report"
	"github.com/freshmart/freshmart-pos/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics

	AuthHandler        *auth.Handler
	CatalogHandler     *catalog.Handler
	BagHandler         *bag.Handler
	ListsHandler       *lists.Handler
	SalesHandler       *sales.Handler
	InventoryHandler   *inventory.Handler
	ReportsHandler     *reports.Handler
	DashboardHandler   *dashboard.Handler
	PermissionsHandler *rbac.PermissionsHandler
	AuditHandler       *audit.Handler
	ReportHandler      *report.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with FreshMart defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		// assets skip the session and rate limit stack
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:         params.Logger,
			Config:         params.Config,
			SessionManager: params.SessionManager,
			CSRFManager:    params.CSRFManager,
			Metrics:        params.Metrics,
		}) {
			r.Use(mw)
		}
		if params.BagHandler != nil {
			r.Use(params.BagHandler.CountMiddleware)
		}

		r.Get("/api/status", func(w http.ResponseWriter, r *http.Request) {
			httpx.JSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC()})
		})

		if params.AuthHandler != nil {
			r.Group(params.AuthHandler.MountRoutes)
		}
		if params.CatalogHandler != nil {
			r.Group(params.CatalogHandler.MountRoutes)
		}
		if params.BagHandler != nil {
			r.Group(params.BagHandler.MountRoutes)
		}
		if params.ListsHandler != nil {
			r.Group(params.ListsHandler.MountRoutes)
		}
		if params.SalesHandler != nil {
			r.Group(params.SalesHandler.MountRoutes)
		}
		if params.InventoryHandler != nil {
			r.Group(params.InventoryHandler.MountRoutes)
		}
		if params.ReportsHandler != nil {
			r.Group(params.ReportsHandler.MountRoutes)
		}
		if params.DashboardHandler != nil {
			r.Group(params.DashboardHandler.MountRoutes)
		}
		if params.PermissionsHandler != nil {
			r.Group(params.PermissionsHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Group(params.AuditHandler.MountRoutes)
		}
		if params.ReportHandler != nil {
			r.Route("/report", params.ReportHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
