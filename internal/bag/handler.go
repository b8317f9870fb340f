package bag

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/freshmart/freshmart-pos/internal/platform/httpx"
	"github.com/freshmart/freshmart-pos/internal/rbac"
	"github.com/freshmart/freshmart-pos/internal/shared"
	"github.com/freshmart/freshmart-pos/internal/view"
)

// Handler wires HTTP endpoints for the bag.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler constructs bag handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: rbac}
}

// MountRoutes registers bag routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuth)
		r.Get("/bag", h.showBag)
	})
	r.Route("/api/bag", func(r chi.Router) {
		r.Use(h.rbac.RequireAuth)
		r.Get("/", h.list)
		r.Post("/", h.add)
		r.Delete("/", h.clear)
		r.Get("/count", h.count)
		r.Patch("/{bagID}", h.update)
		r.Delete("/{bagID}", h.remove)
	})
}

// CountMiddleware stores the bag count in context for HTML pages.
func (h *Handler) CountMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/static/") {
			next.ServeHTTP(w, r)
			return
		}
		p, ok := shared.PrincipalFromContext(r.Context())
		if owner, err := OwnerOf(p, ok); err == nil {
			if n, err := h.service.Count(r.Context(), owner); err == nil {
				r = r.WithContext(shared.ContextWithBagCount(r.Context(), n))
			} else {
				h.logger.Warn("bag count", slog.Any("error", err))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (shared.Owner, bool) {
	p, ok := shared.PrincipalFromContext(r.Context())
	owner, err := OwnerOf(p, ok)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return shared.Owner{}, false
	}
	return owner, true
}

func (h *Handler) showBag(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	if _, ok := p.Owner(); !ok {
		http.Redirect(w, r, p.HomePath(), http.StatusSeeOther)
		return
	}
	if err := h.templates.Render(w, "pages/bag.html", view.Page(r, h.csrf, "Your bag", nil)); err != nil {
		h.logger.Error("render bag", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	items, err := h.service.Items(r.Context(), owner)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	var in AddInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, h.logger, ErrInvalidProduct)
		return
	}
	res, err := h.service.Add(r.Context(), owner, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if res.Merged {
		httpx.Message(w, http.StatusOK, "Cart updated")
		return
	}
	httpx.Message(w, http.StatusCreated, "Added to cart")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "bagID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, h.logger, ErrItemNotFound)
		return
	}
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.service.Update(r.Context(), owner, id, in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.list(w, r)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "bagID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, h.logger, ErrItemNotFound)
		return
	}
	if err := h.service.Remove(r.Context(), owner, id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.list(w, r)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	if err := h.service.Clear(r.Context(), owner); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, []Item{})
}

func (h *Handler) count(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	n, err := h.service.Count(r.Context(), owner)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"count": n})
}
