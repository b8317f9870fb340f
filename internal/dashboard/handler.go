package dashboard

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/freshmart/freshmart-pos/internal/rbac"
	"github.com/freshmart/freshmart-pos/internal/shared"
	"github.com/freshmart/freshmart-pos/internal/view"
)

// Handler renders the role dashboards.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler constructs the dashboard handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: rbac}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireRole(shared.RoleAdmin)).Get("/admin", h.admin)
	r.With(h.rbac.RequireRole(shared.RoleEmployee)).Get("/employee", h.employee)
	r.With(h.rbac.RequireRole(shared.RoleCustomer)).Get("/customer", h.customer)
}

func (h *Handler) admin(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	st, err := h.service.Admin(r.Context(), p.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/admin.html", "Admin dashboard", st)
}

func (h *Handler) employee(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	st, err := h.service.Employee(r.Context(), p.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/employee.html", "Employee dashboard", st)
}

func (h *Handler) customer(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	st, err := h.service.Customer(r.Context(), p.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/customer.html", "My account", st)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	if err := h.templates.Render(w, name, view.Page(r, h.csrf, title, data)); err != nil {
		h.logger.Error("render", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// A stale session whose account was removed is sent back to login.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrProfileNotFound) {
		if sess := shared.SessionFromContext(r.Context()); sess != nil {
			sess.Clear()
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	h.logger.Error("dashboard", slog.String("path", r.URL.Path), slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
