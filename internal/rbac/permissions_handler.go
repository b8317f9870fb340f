package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/freshmart/freshmart-pos/internal/platform/httpx"
	"github.com/freshmart/freshmart-pos/internal/shared"
)

// PermissionsHandler reports the signed-in user and their grants.
type PermissionsHandler struct {
	service *Service
	rbac    Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(service *Service, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{service: service, rbac: rbac}
}

// MountRoutes registers /api/me.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAuth).Get("/api/me", h.me)
}

func (h *PermissionsHandler) me(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":        p.Role,
		"id":          p.ID,
		"name":        p.Name,
		"permissions": h.service.EffectivePermissions(p.Role),
	})
}
