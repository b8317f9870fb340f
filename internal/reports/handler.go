package reports

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/freshmart/freshmart-pos/internal/platform/httpx"
	"github.com/freshmart/freshmart-pos/internal/rbac"
	"github.com/freshmart/freshmart-pos/internal/shared"
	"github.com/freshmart/freshmart-pos/internal/view"
)

// Handler serves report pages and fragments.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler builds the report handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: rbac}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermReportsView))
		r.Get("/reports", h.showReports)
		r.Post("/reports/query", h.salesQuery)
		r.Get("/reports/csv", h.productCSV)
		r.Post("/api/product_report", h.productReport)
		r.Get("/api/product_kpis", h.productKPIs)
		r.Post("/api/employee_report", h.employeeReport)
		r.Post("/api/customer_report", h.customerReport)
		r.Get("/api/revenue_trend", h.revenueTrend)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermReportsAdmin))
		r.Get("/admin/inventory-report", h.inventoryReport)
		r.Post("/admin/inventory-report", h.inventoryReport)
	})
}

type reportsPageData struct {
	Departments []Option
	Employees   []Option
	Trend       template.HTML
}

func (h *Handler) showReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var data reportsPageData
	var err error
	if data.Departments, err = h.service.Departments(ctx); err != nil {
		h.fail(w, r, err)
		return
	}
	if data.Employees, err = h.service.EmployeeOptions(ctx); err != nil {
		h.fail(w, r, err)
		return
	}
	trend, err := h.service.RevenueTrend(ctx, 30)
	if err != nil {
		h.logger.Warn("revenue trend", slog.Any("error", err))
	}
	data.Trend = TrendChart(trend)
	h.render(w, r, "pages/reports.html", "Reports", data)
}

func (h *Handler) salesQuery(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	asJSON := strings.Contains(r.Header.Get("Accept"), "application/json") || p.get("format") == "json"
	rows, err := h.service.Sales(r.Context(), p.salesQuery())
	if err != nil {
		if asJSON {
			httpx.RespondError(w, h.logger, err)
			return
		}
		h.logger.Error("sales report", slog.Any("error", err))
		http.Error(w, "Could not load report. Please check parameter values and try again.", http.StatusInternalServerError)
		return
	}
	if asJSON {
		if rows == nil {
			rows = []SalesRow{}
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "data": rows})
		return
	}
	html, err := h.table(SalesTable(rows))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprint(w, html)
}

func (h *Handler) productReport(w http.ResponseWriter, r *http.Request) {
	h.fragment(w, r, func(ctx context.Context, p params) (Table, error) {
		rows, err := h.service.Products(ctx, p.productFilter())
		return ProductTable(rows), err
	})
}

func (h *Handler) employeeReport(w http.ResponseWriter, r *http.Request) {
	h.fragment(w, r, func(ctx context.Context, p params) (Table, error) {
		rows, err := h.service.Employees(ctx, p.employeeFilter())
		return EmployeeTable(rows), err
	})
}

func (h *Handler) customerReport(w http.ResponseWriter, r *http.Request) {
	h.fragment(w, r, func(ctx context.Context, p params) (Table, error) {
		rows, err := h.service.Customers(ctx, p.customerFilter())
		return CustomerTable(rows), err
	})
}

// fragment answers {"html": "<table ...>"}.
func (h *Handler) fragment(w http.ResponseWriter, r *http.Request, build func(context.Context, params) (Table, error)) {
	p, err := readParams(r)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	t, err := build(r.Context(), p)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	html, err := h.table(t)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"html": html})
}

func (h *Handler) productKPIs(w http.ResponseWriter, r *http.Request) {
	k, err := h.service.ProductKPIs(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, k)
}

func (h *Handler) revenueTrend(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	points, err := h.service.RevenueTrend(r.Context(), days)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, points)
}

func (h *Handler) productCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Products(r.Context(), params(r.URL.Query()).productFilter())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	name := fmt.Sprintf("product-report-%s.csv", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := WriteProductCSV(w, rows); err != nil {
		h.logger.Error("write product csv", slog.Any("error", err))
	}
}

type inventoryForm struct {
	Department  string
	MinPrice    string
	MaxPrice    string
	StockStatus string
}

type inventoryPageData struct {
	Departments []Option
	Filter      inventoryForm
	Rows        []InventoryRow
}

func (h *Handler) inventoryReport(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	form := inventoryForm{
		Department:  p.get("department"),
		MinPrice:    p.get("min_price"),
		MaxPrice:    p.get("max_price"),
		StockStatus: p.get("stock_status"),
	}
	filter := InventoryFilter{MinPrice: p.amount("min_price"), MaxPrice: p.amount("max_price"), StockStatus: form.StockStatus}
	if id := p.id("department"); id != nil {
		filter.DepartmentID = *id
	}
	rows, err := h.service.Inventory(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	depts, err := h.service.Departments(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/inventory_report.html", "Inventory report", inventoryPageData{Departments: depts, Filter: form, Rows: rows})
}

func (h *Handler) table(t Table) (string, error) {
	return h.templates.RenderString("partials/report_table.html", t)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	if err := h.templates.Render(w, name, view.Page(r, h.csrf, title, data)); err != nil {
		h.logger.Error("render", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("report page", slog.String("path", r.URL.Path), slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
