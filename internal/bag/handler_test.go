package bag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/freshmart/freshmart-pos/internal/rbac"
	"github.com/freshmart/freshmart-pos/internal/shared"
	"github.com/freshmart/freshmart-pos/internal/testing/authtest"
	"github.com/freshmart/freshmart-pos/internal/view"
)

type memoryRepo struct {
	products map[int64]string
	lines    map[int64]memoryLine
	nextID   int64
	clock    time.Time
}

type memoryLine struct {
	owner shared.Owner
	item  Item
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		products: map[int64]string{1: "Bananas", 2: "Bread"},
		lines:    make(map[int64]memoryLine),
		clock:    time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (r *memoryRepo) List(_ context.Context, owner shared.Owner) ([]Item, error) {
	var out []Item
	for _, l := range r.lines {
		if l.owner == owner {
			out = append(out, l.item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.After(out[j].AddedAt) })
	return out, nil
}

func (r *memoryRepo) Add(_ context.Context, owner shared.Owner, productID int64, qty int) (AddResult, error) {
	name, ok := r.products[productID]
	if !ok {
		return AddResult{}, ErrInvalidProduct
	}
	for id, l := range r.lines {
		if l.owner == owner && l.item.ProductID == productID {
			l.item.Quantity += qty
			r.lines[id] = l
			return AddResult{Merged: true}, nil
		}
	}
	r.nextID++
	r.clock = r.clock.Add(time.Minute)
	r.lines[r.nextID] = memoryLine{owner: owner, item: Item{
		BagID: r.nextID, ProductID: productID, Name: name,
		Price: decimal.RequireFromString("2.50"), Quantity: qty, AddedAt: r.clock,
	}}
	return AddResult{}, nil
}

func (r *memoryRepo) SetQuantity(ctx context.Context, owner shared.Owner, bagID int64, qty int) error {
	if qty <= 0 {
		return r.Remove(ctx, owner, bagID)
	}
	l, ok := r.lines[bagID]
	if !ok || l.owner != owner {
		return ErrItemNotFound
	}
	l.item.Quantity = qty
	r.lines[bagID] = l
	return nil
}

func (r *memoryRepo) Remove(_ context.Context, owner shared.Owner, bagID int64) error {
	l, ok := r.lines[bagID]
	if !ok || l.owner != owner {
		return ErrItemNotFound
	}
	delete(r.lines, bagID)
	return nil
}

func (r *memoryRepo) Clear(_ context.Context, owner shared.Owner) error {
	for id, l := range r.lines {
		if l.owner == owner {
			delete(r.lines, id)
		}
	}
	return nil
}

func (r *memoryRepo) Count(_ context.Context, owner shared.Owner) (int, error) {
	n := 0
	for _, l := range r.lines {
		if l.owner == owner {
			n += l.item.Quantity
		}
	}
	return n, nil
}

func newTestRouter(t *testing.T, repo *memoryRepo) http.Handler {
	t.Helper()
	engine, err := view.NewEngine()
	require.NoError(t, err)
	h := NewHandler(nil, NewService(repo), engine, nil, rbac.Middleware{Service: rbac.NewService()})
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func serve(t *testing.T, router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAddMergesQuantities(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(t, repo)

	rec := serve(t, router, authtest.As(t, http.MethodPost, "/api/bag", `{"product_id":1,"quantity":2}`, authtest.Customer))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.JSONEq(t, `{"message":"Added to cart"}`, rec.Body.String())

	rec = serve(t, router, authtest.As(t, http.MethodPost, "/api/bag", `{"product_id":1,"quantity":3}`, authtest.Customer))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"message":"Cart updated"}`, rec.Body.String())

	rec = serve(t, router, authtest.As(t, http.MethodGet, "/api/bag", "", authtest.Customer))
	require.Equal(t, http.StatusOK, rec.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	require.EqualValues(t, 5, items[0]["Quantity"])
	require.EqualValues(t, 2.5, items[0]["Price"])
}

func TestAddRejectsBadInput(t *testing.T) {
	router := newTestRouter(t, newMemoryRepo())

	for _, body := range []string{`{"product_id":1,"quantity":0}`, `{"product_id":99,"quantity":1}`, `{"quantity":1}`} {
		rec := serve(t, router, authtest.As(t, http.MethodPost, "/api/bag", body, authtest.Employee))
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
		require.JSONEq(t, `{"error":"Invalid product or quantity"}`, rec.Body.String())
	}
}

func TestAdminAndAnonymousHaveNoBag(t *testing.T) {
	router := newTestRouter(t, newMemoryRepo())

	rec := serve(t, router, authtest.As(t, http.MethodGet, "/api/bag", "", authtest.Admin))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"Login required"}`, rec.Body.String())

	rec = serve(t, router, authtest.Request(t, http.MethodGet, "/api/bag", "", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBagsAreSeparatedByOwner(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(t, repo)

	rec := serve(t, router, authtest.As(t, http.MethodPost, "/api/bag", `{"product_id":2,"quantity":1}`, authtest.Customer))
	require.Equal(t, http.StatusCreated, rec.Code)

	// Employee 42 would collide with customer 42 if owners were keyed by ID alone.
	clerk := authtest.Employee
	clerk.ID = authtest.Customer.ID
	rec = serve(t, router, authtest.As(t, http.MethodPatch, "/api/bag/1", `{"quantity":9}`, clerk))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, router, authtest.As(t, http.MethodGet, "/api/bag/count", "", clerk))
	require.JSONEq(t, `{"count":0}`, rec.Body.String())
}

func TestUpdateToZeroRemovesLine(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(t, repo)
	serve(t, router, authtest.As(t, http.MethodPost, "/api/bag", `{"product_id":1,"quantity":2}`, authtest.Customer))

	rec := serve(t, router, authtest.As(t, http.MethodPatch, "/api/bag/1", `{"quantity":0}`, authtest.Customer))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
	require.Empty(t, repo.lines)
}

func TestCountMiddleware(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	_, err := svc.Add(context.Background(), shared.Owner{Kind: shared.OwnerCustomer, ID: authtest.Customer.ID}, AddInput{ProductID: 1, Quantity: 4})
	require.NoError(t, err)

	h := NewHandler(nil, svc, nil, nil, rbac.Middleware{})
	var got int
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { got = shared.BagCountFromContext(r.Context()) })

	h.CountMiddleware(next).ServeHTTP(httptest.NewRecorder(), authtest.As(t, http.MethodGet, "/", "", authtest.Customer))
	require.Equal(t, 4, got)

	got = -1
	h.CountMiddleware(next).ServeHTTP(httptest.NewRecorder(), authtest.As(t, http.MethodGet, "/", "", authtest.Admin))
	require.Equal(t, 0, got)
}
