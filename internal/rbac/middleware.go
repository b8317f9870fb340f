package rbac

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/freshmart/freshmart-pos/internal/platform/httpx"
	"github.com/freshmart/freshmart-pos/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireAuth rejects anonymous requests. Pages redirect to /login, API
// calls get 401.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := shared.PrincipalFromContext(r.Context()); !ok {
			m.unauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole ensures the current user has one of the roles.
func (m Middleware) RequireRole(roles ...shared.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				m.unauthorized(w, r)
				return
			}
			if !slices.Contains(roles, p.Role) {
				m.forbidden(w, r, p)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				m.unauthorized(w, r)
				return
			}
			for _, perm := range perms {
				if m.Service.Can(p, perm) {
					next.ServeHTTP(w, r)
					return
				}
			}
			m.forbidden(w, r, p)
		})
	}
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				m.unauthorized(w, r)
				return
			}
			for _, perm := range perms {
				if !m.Service.Can(p, perm) {
					m.forbidden(w, r, p)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) unauthorized(w http.ResponseWriter, r *http.Request) {
	if httpx.WantsJSON(r) || r.Method != http.MethodGet {
		httpx.Error(w, http.StatusUnauthorized, shared.ErrUnauthorized.Message)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (m Middleware) forbidden(w http.ResponseWriter, r *http.Request, p shared.Principal) {
	if m.Logger != nil {
		m.Logger.Warn("rbac denied", slog.String("role", string(p.Role)), slog.Int64("principal", p.ID), slog.String("path", r.URL.Path))
	}
	if httpx.WantsJSON(r) || r.Method != http.MethodGet {
		httpx.Error(w, http.StatusForbidden, shared.ErrForbidden.Message)
		return
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}
