package sales

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/freshmart/freshmart-pos/internal/bag"
	"github.com/freshmart/freshmart-pos/internal/platform/httpx"
	"github.com/freshmart/freshmart-pos/internal/rbac"
	"github.com/freshmart/freshmart-pos/internal/shared"
	"github.com/freshmart/freshmart-pos/internal/view"
	"github.com/freshmart/freshmart-pos/report"
)

// PDFRenderer converts HTML to PDF.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Handler wires HTTP endpoints for checkout, orders and receipts.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
	pdf       PDFRenderer
}

// NewHandler constructs sales handler. pdf may be nil, which disables PDF receipts.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware, pdf PDFRenderer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: rbac, pdf: pdf}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuth)
		r.Post("/checkout", h.checkout)
		r.Get("/api/receipts/{id}", h.receipt)
		r.Get("/api/receipts/{id}/pdf", h.receiptPDF)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermOrdersOwn))
		r.Get("/customer/orders", h.customerOrders)
		r.Get("/customer/orders/{id}", h.customerOrder)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermTransactionsView))
		r.Get("/transactions", h.transactions)
	})
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	p, ok := shared.PrincipalFromContext(r.Context())
	owner, err := bag.OwnerOf(p, ok)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var in CheckoutInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in.IdempotencyKey = r.Header.Get("Idempotency-Key")

	res, err := h.service.Checkout(r.Context(), owner, in)
	if err != nil {
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			httpx.JSON(w, http.StatusConflict, map[string]any{
				"error":      "Insufficient stock",
				"product_id": stockErr.ProductID,
				"available":  stockErr.Available,
			})
			return
		}
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.loadReceipt(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, rc)
}

func (h *Handler) receiptPDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.Error(w, http.StatusServiceUnavailable, "PDF rendering unavailable")
		return
	}
	rc, ok := h.loadReceipt(w, r)
	if !ok {
		return
	}
	html, err := h.templates.RenderString("partials/receipt.html", rc)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	pdf, err := h.pdf.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render receipt pdf", slog.Int64("transaction_id", rc.Header.TransactionID), slog.Any("error", err))
		httpx.Error(w, http.StatusBadGateway, "Could not render receipt")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", report.AttachmentName("receipt", rc.Header.TransactionID))
	_, _ = w.Write(pdf)
}

func (h *Handler) loadReceipt(w http.ResponseWriter, r *http.Request) (Receipt, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, h.logger, ErrOrderNotFound)
		return Receipt{}, false
	}
	viewer, _ := shared.PrincipalFromContext(r.Context())
	rc, err := h.service.ReceiptFor(r.Context(), viewer, id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return Receipt{}, false
	}
	return rc, true
}

type ordersPageData struct {
	Orders     []OrderSummary
	Pagination shared.Pagination
}

func (h *Handler) customerOrders(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	orders, pagination, err := h.service.CustomerOrders(r.Context(), p.ID, shared.PageFromQuery(r.URL.Query()))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.render(w, r, "pages/customer_orders.html", "My orders", ordersPageData{Orders: orders, Pagination: pagination})
}

func (h *Handler) customerOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	p, _ := shared.PrincipalFromContext(r.Context())
	rc, err := h.service.ReceiptFor(r.Context(), p, id)
	if errors.Is(err, shared.ErrNotFound) {
		h.renderStatus(w, r, http.StatusNotFound, "pages/error.html", "Not found", "Order not found")
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	h.render(w, r, "pages/customer_order.html", "Order #"+strconv.FormatInt(id, 10), rc)
}

type transactionsPageData struct {
	Filter         TransactionFilter
	PaymentMethods []string
	Transactions   []TransactionRow
}

func (h *Handler) transactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := TransactionFilter{
		Employee:      q.Get("employee"),
		PaymentMethod: q.Get("payment_method"),
		SortBy:        q.Get("sort_by"),
		Order:         q.Get("order"),
	}
	if f.SortBy != "amount" {
		f.SortBy = "date"
	}
	rows, err := h.service.Transactions(r.Context(), f)
	if err != nil {
		if httpx.WantsJSON(r) {
			httpx.RespondError(w, h.logger, err)
			return
		}
		h.fail(w, err)
		return
	}
	if httpx.WantsJSON(r) {
		if rows == nil {
			rows = []TransactionRow{}
		}
		httpx.JSON(w, http.StatusOK, rows)
		return
	}
	h.render(w, r, "pages/transactions.html", "Transactions", transactionsPageData{Filter: f, PaymentMethods: PaymentMethods, Transactions: rows})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	h.renderStatus(w, r, http.StatusOK, name, title, data)
}

func (h *Handler) renderStatus(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	if err := h.templates.RenderStatus(w, status, name, view.Page(r, h.csrf, title, data)); err != nil {
		h.logger.Error("render", slog.String("template", name), slog.Any("error", err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.logger.Error("sales page", slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
