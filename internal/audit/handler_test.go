package audit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshmart/freshmart-pos/internal/rbac"
	"github.com/freshmart/freshmart-pos/internal/testing/authtest"
)

func newTestRouter(repo *stubRepo) http.Handler {
	h := NewHandler(nil, NewService(repo), rbac.Middleware{Service: rbac.NewService()})
	h.now = func() time.Time { return time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestTimelineEndpoint(t *testing.T) {
	repo := &stubRepo{rows: makeRows(3)}
	router := newTestRouter(repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authtest.As(t, http.MethodGet, "/api/audit_logs?entity=product&actor_id=1&page_size=2", "", authtest.Admin))
	require.Equal(t, http.StatusOK, rec.Code)

	var res Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Len(t, res.Rows, 2)
	assert.True(t, res.Paging.HasNext)

	f := repo.calls[0].filters
	assert.Equal(t, "product", f.Entity)
	assert.Equal(t, int64(1), f.ActorID)
	assert.Equal(t, time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC), f.From)
}

func TestTimelineRejectsBadFilters(t *testing.T) {
	router := newTestRouter(&stubRepo{})
	for _, target := range []string{
		"/api/audit_logs?from=yesterday",
		"/api/audit_logs?from=2024-05-09&to=2024-05-01",
		"/api/audit_logs?from=2023-01-01&to=2024-05-01",
		"/api/audit_logs?actor_id=-4",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, authtest.As(t, http.MethodGet, target, "", authtest.Admin))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestAuditIsAdminOnly(t *testing.T) {
	router := newTestRouter(&stubRepo{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authtest.As(t, http.MethodGet, "/api/audit_logs", "", authtest.Employee))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExportCSV(t *testing.T) {
	repo := &stubRepo{rows: makeRows(4)}
	router := newTestRouter(repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authtest.As(t, http.MethodGet, "/api/audit_logs/export.csv", "", authtest.Admin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, 0, repo.calls[0].limit)
	assert.Contains(t, rec.Body.String(), "product.create")
}
