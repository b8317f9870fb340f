package sales

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/freshmart/freshmart-pos/internal/rbac"
	"github.com/freshmart/freshmart-pos/internal/testing/authtest"
	"github.com/freshmart/freshmart-pos/internal/view"
)

func newTestRouter(t *testing.T, repo *memoryRepo) http.Handler {
	t.Helper()
	engine, err := view.NewEngine()
	require.NoError(t, err)
	h := NewHandler(nil, NewService(repo, ServiceDeps{}), engine, nil, rbac.Middleware{Service: rbac.NewService()}, nil)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestCheckoutEndpoint(t *testing.T) {
	repo := newMemoryRepo()
	seed(repo)
	repo.state.bags[shopper] = []BagLine{{ProductID: 1, Quantity: 2}}
	router := newTestRouter(t, repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authtest.As(t, http.MethodPost, "/checkout", `{"payment_method":"Cash"}`, authtest.Customer))
	require.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.EqualValues(t, 1, body["transaction_id"])
	require.EqualValues(t, 4, body["total_amount"])
}

func TestCheckoutEndpointInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	seed(repo)
	repo.state.bags[shopper] = []BagLine{{ProductID: 2, Quantity: 9}}
	router := newTestRouter(t, repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authtest.As(t, http.MethodPost, "/checkout", `{}`, authtest.Customer))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.JSONEq(t, `{"error":"Insufficient stock","product_id":2,"available":3}`, rec.Body.String())
}

func TestCheckoutEndpointEmptyBagAndAdmin(t *testing.T) {
	router := newTestRouter(t, newMemoryRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authtest.As(t, http.MethodPost, "/checkout", `{}`, authtest.Employee))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error":"Bag is empty"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authtest.As(t, http.MethodPost, "/checkout", `{}`, authtest.Admin))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReceiptEndpointHidesForeignOrders(t *testing.T) {
	repo := newMemoryRepo()
	seed(repo)
	repo.state.bags[shopper] = []BagLine{{ProductID: 1, Quantity: 1}}
	router := newTestRouter(t, repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authtest.As(t, http.MethodPost, "/checkout", `{}`, authtest.Customer))
	require.Equal(t, http.StatusCreated, rec.Code)

	other := authtest.Customer
	other.ID = 99
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authtest.As(t, http.MethodGet, "/api/receipts/1", "", other))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authtest.As(t, http.MethodGet, "/api/receipts/1", "", authtest.Admin))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"total_units":1`)
}
