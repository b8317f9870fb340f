package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/freshmart/freshmart-pos/internal/shared"
)

func requestAs(t *testing.T, method, target string, p *shared.Principal) *http.Request {
	t.Helper()
	mr := miniredis.RunT(t)
	sm := shared.NewSessionManager(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "s", 0, false)
	req := httptest.NewRequest(method, target, nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	if p != nil {
		sess.SetPrincipal(*p)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

func TestRequireAuthRedirectsPages(t *testing.T) {
	m := Middleware{Service: NewService()}
	rec := httptest.NewRecorder()
	m.RequireAuth(ok).ServeHTTP(rec, requestAs(t, http.MethodGet, "/customer", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRequireAuthJSON401(t *testing.T) {
	m := Middleware{Service: NewService()}
	rec := httptest.NewRecorder()
	m.RequireAuth(ok).ServeHTTP(rec, requestAs(t, http.MethodGet, "/api/bag", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"Login required"}`, rec.Body.String())
}

func TestRequireAnyByRole(t *testing.T) {
	m := Middleware{Service: NewService()}
	guard := m.RequireAny(PermReportsView)

	rec := httptest.NewRecorder()
	guard(ok).ServeHTTP(rec, requestAs(t, http.MethodPost, "/reports/query", &shared.Principal{Role: shared.RoleEmployee, ID: 3}))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	guard(ok).ServeHTTP(rec, requestAs(t, http.MethodPost, "/reports/query", &shared.Principal{Role: shared.RoleCustomer, ID: 3}))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRole(t *testing.T) {
	m := Middleware{Service: NewService()}
	guard := m.RequireRole(shared.RoleAdmin)

	rec := httptest.NewRecorder()
	guard(ok).ServeHTTP(rec, requestAs(t, http.MethodGet, "/admin", &shared.Principal{Role: shared.RoleAdmin, ID: 1}))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	guard(ok).ServeHTTP(rec, requestAs(t, http.MethodGet, "/admin", &shared.Principal{Role: shared.RoleEmployee, ID: 1}))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAllNeedsEveryGrant(t *testing.T) {
	m := Middleware{Service: NewService()}
	guard := m.RequireAll(PermReportsView, PermReportsAdmin)

	rec := httptest.NewRecorder()
	guard(ok).ServeHTTP(rec, requestAs(t, http.MethodGet, "/api/x", &shared.Principal{Role: shared.RoleEmployee, ID: 1}))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	guard(ok).ServeHTTP(rec, requestAs(t, http.MethodGet, "/api/x", &shared.Principal{Role: shared.RoleAdmin, ID: 1}))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestEffectivePermissionsIsACopy(t *testing.T) {
	svc := NewService()
	perms := svc.EffectivePermissions(shared.RoleCustomer)
	perms[0] = "tampered"
	require.True(t, svc.Can(shared.Principal{Role: shared.RoleCustomer}, PermBagUse))
}
