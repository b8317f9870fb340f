package inventory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/freshmart/freshmart-pos/internal/platform/httpx"
	"github.com/freshmart/freshmart-pos/internal/rbac"
	"github.com/freshmart/freshmart-pos/internal/shared"
)

// Handler exposes stock and sale endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds an inventory handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermInventoryEdit))
		r.Get("/api/low_stock", h.lowStock)
		r.Post("/update_stock", h.updateStock)
		r.Post("/restock", h.restock)
		r.Get("/api/reorder_alerts", h.alerts)
		r.Post("/api/reorder_alerts/{id}/resolve", h.resolveAlert)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermSalesManage))
		r.Post("/apply_sales", h.applySales)
		r.Post("/end_sales", h.endSales)
	})
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	dept, _ := strconv.ParseInt(r.URL.Query().Get("department"), 10, 64)
	items, err := h.service.LowStock(r.Context(), dept)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if items == nil {
		items = []LowStockItem{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) updateStock(w http.ResponseWriter, r *http.Request) {
	var in UpdateStockInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	res, err := h.service.UpdateStock(r.Context(), actor, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stockResponse{Message: "Stock updated successfully", StockResult: res})
}

func (h *Handler) restock(w http.ResponseWriter, r *http.Request) {
	var in RestockInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	res, err := h.service.Restock(r.Context(), actor, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stockResponse{Message: "Restocked", StockResult: res})
}

type stockResponse struct {
	Message string `json:"message"`
	StockResult
}

func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	open := r.URL.Query().Get("open")
	alerts, err := h.service.Alerts(r.Context(), open == "1" || open == "true")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if alerts == nil {
		alerts = []Alert{}
	}
	httpx.JSON(w, http.StatusOK, alerts)
}

func (h *Handler) resolveAlert(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, h.logger, ErrAlertNotFound)
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	if err := h.service.ResolveAlert(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Alert resolved")
}

func (h *Handler) applySales(w http.ResponseWriter, r *http.Request) {
	var in SaleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	n, err := h.service.ApplySale(r.Context(), actor, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Sales prices updated", "updated": n})
}

func (h *Handler) endSales(w http.ResponseWriter, r *http.Request) {
	var in EndSaleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	n, err := h.service.EndSale(r.Context(), actor, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Sales ended", "updated": n})
}
