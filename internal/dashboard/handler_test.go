package dashboard

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/freshmart/freshmart-pos/internal/rbac"
	"github.com/freshmart/freshmart-pos/internal/shared"
	"github.com/freshmart/freshmart-pos/internal/testing/authtest"
	"github.com/freshmart/freshmart-pos/internal/view"
)

func newTestRouter(t *testing.T, repo *stubRepo) http.Handler {
	t.Helper()
	engine, err := view.NewEngine()
	require.NoError(t, err)
	h := NewHandler(nil, NewService(repo), engine, nil, rbac.Middleware{Service: rbac.NewService()})
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestDashboardsRender(t *testing.T) {
	router := newTestRouter(t, newStubRepo())
	cases := []struct {
		path string
		as   shared.Principal
		want string
	}{
		{"/admin", authtest.Admin, "Welcome, Ada Admin"},
		{"/employee", authtest.Employee, "Low stock in Produce"},
		{"/customer", authtest.Customer, "Hi, Sam Shopper"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, authtest.As(t, http.MethodGet, tc.path, "", tc.as))
		require.Equal(t, http.StatusOK, rec.Code, tc.path)
		require.Contains(t, rec.Body.String(), tc.want, tc.path)
	}
}

func TestDashboardRoles(t *testing.T) {
	router := newTestRouter(t, newStubRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authtest.As(t, http.MethodGet, "/admin", "", authtest.Customer))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authtest.Request(t, http.MethodGet, "/customer", "", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestDashboardQueryFailureIs500(t *testing.T) {
	repo := newStubRepo()
	repo.failOn = "sales"
	router := newTestRouter(t, repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authtest.As(t, http.MethodGet, "/admin", "", authtest.Admin))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDashboardMissingProfileRedirects(t *testing.T) {
	router := newTestRouter(t, newStubRepo())
	ghost := shared.Principal{Role: shared.RoleCustomer, ID: 5}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authtest.As(t, http.MethodGet, "/customer", "", ghost))
	require.Equal(t, http.StatusSeeOther, rec.Code)
}
