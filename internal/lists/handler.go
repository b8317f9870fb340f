package lists

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/freshmart/freshmart-pos/internal/bag"
	"github.com/freshmart/freshmart-pos/internal/platform/httpx"
	"github.com/freshmart/freshmart-pos/internal/rbac"
	"github.com/freshmart/freshmart-pos/internal/shared"
)

// Handler wires HTTP endpoints for shopping lists.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs lists handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers list routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/api/lists", func(r chi.Router) {
		r.Use(h.rbac.RequireAuth)
		r.Get("/", h.lists)
		r.Post("/", h.create)
		r.Route("/{listID}", func(r chi.Router) {
			r.Patch("/", h.rename)
			r.Delete("/", h.delete)
			r.Post("/add-to-bag", h.addToBag)
			r.Get("/items", h.items)
			r.Post("/items", h.addItem)
			r.Delete("/items", h.clear)
			r.Patch("/items/{productID}", h.setQuantity)
			r.Delete("/items/{productID}", h.removeItem)
		})
	})
}

// scope resolves the owner and, when present, the list and product IDs.
func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (shared.Owner, int64, int64, bool) {
	p, ok := shared.PrincipalFromContext(r.Context())
	owner, err := bag.OwnerOf(p, ok)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return shared.Owner{}, 0, 0, false
	}
	var listID, productID int64
	if raw := chi.URLParam(r, "listID"); raw != "" {
		if listID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			httpx.RespondError(w, h.logger, ErrListNotFound)
			return shared.Owner{}, 0, 0, false
		}
	}
	if raw := chi.URLParam(r, "productID"); raw != "" {
		if productID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			httpx.RespondError(w, h.logger, ErrItemNotFound)
			return shared.Owner{}, 0, 0, false
		}
	}
	return owner, listID, productID, true
}

func (h *Handler) lists(w http.ResponseWriter, r *http.Request) {
	owner, _, _, ok := h.scope(w, r)
	if !ok {
		return
	}
	out, err := h.service.Lists(r.Context(), owner)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	owner, _, _, ok := h.scope(w, r)
	if !ok {
		return
	}
	var in NameInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	l, err := h.service.Create(r.Context(), owner, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, l)
}

func (h *Handler) rename(w http.ResponseWriter, r *http.Request) {
	owner, listID, _, ok := h.scope(w, r)
	if !ok {
		return
	}
	var in NameInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.service.Rename(r.Context(), owner, listID, in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Message(w, http.StatusOK, "List renamed")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	owner, listID, _, ok := h.scope(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), owner, listID); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Message(w, http.StatusOK, "List deleted")
}

func (h *Handler) items(w http.ResponseWriter, r *http.Request) {
	owner, listID, _, ok := h.scope(w, r)
	if !ok {
		return
	}
	out, err := h.service.Items(r.Context(), owner, listID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	owner, listID, _, ok := h.scope(w, r)
	if !ok {
		return
	}
	var in ItemInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, h.logger, ErrInvalidItem)
		return
	}
	if err := h.service.AddItem(r.Context(), owner, listID, in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Item saved")
}

func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	owner, listID, productID, ok := h.scope(w, r)
	if !ok {
		return
	}
	var in QuantityInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.service.SetQuantity(r.Context(), owner, listID, productID, in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Item updated")
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	owner, listID, productID, ok := h.scope(w, r)
	if !ok {
		return
	}
	if err := h.service.RemoveItem(r.Context(), owner, listID, productID); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Item removed")
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	owner, listID, _, ok := h.scope(w, r)
	if !ok {
		return
	}
	if err := h.service.Clear(r.Context(), owner, listID); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Message(w, http.StatusOK, "List cleared")
}

func (h *Handler) addToBag(w http.ResponseWriter, r *http.Request) {
	owner, listID, _, ok := h.scope(w, r)
	if !ok {
		return
	}
	n, err := h.service.AddToBag(r.Context(), owner, listID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"added": n})
}
