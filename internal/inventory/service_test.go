package inventory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/freshmart/freshmart-pos/internal/shared"
)

type memoryProduct struct {
	name   string
	stock  int
	level  int
	dept   int64
	price  decimal.Decimal
	sale   *decimal.Decimal
	active bool
}

type memoryRepo struct {
	products  map[int64]*memoryProduct
	alerts    []Alert
	restocked map[int64]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[int64]*memoryProduct), restocked: make(map[int64]bool)}
}

func (r *memoryRepo) add(id int64, stock, level int) *memoryProduct {
	p := &memoryProduct{name: "p" + decimal.NewFromInt(id).String(), stock: stock, level: level, dept: 1, price: decimal.RequireFromString("10.00"), active: true}
	r.products[id] = p
	return p
}

func (r *memoryRepo) openAlerts(productID int64) int {
	n := 0
	for _, a := range r.alerts {
		if a.ProductID == productID && a.ResolvedAt == nil {
			n++
		}
	}
	return n
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, memoryTx{r})
}

func (r *memoryRepo) LowStock(_ context.Context, departmentID int64) ([]LowStockItem, error) {
	var out []LowStockItem
	for id, p := range r.products {
		if p.active && p.stock <= p.level && (departmentID == 0 || p.dept == departmentID) {
			out = append(out, LowStockItem{ProductID: id, Name: p.name, QuantityInStock: p.stock, ReorderLevel: p.level})
		}
	}
	return out, nil
}

func (r *memoryRepo) Alerts(_ context.Context, openOnly bool) ([]Alert, error) {
	var out []Alert
	for _, a := range r.alerts {
		if !openOnly || a.ResolvedAt == nil {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memoryRepo) ResolveAlert(_ context.Context, alertID int64) error {
	for i := range r.alerts {
		if r.alerts[i].AlertID == alertID && r.alerts[i].ResolvedAt == nil {
			now := r.alerts[i].CreatedAt
			r.alerts[i].ResolvedAt = &now
			return nil
		}
	}
	return ErrAlertNotFound
}

func (r *memoryRepo) ApplySale(_ context.Context, departmentID *int64, salePrice func(decimal.Decimal) decimal.Decimal) (int64, error) {
	var n int64
	for _, p := range r.products {
		if !p.active || (departmentID != nil && p.dept != *departmentID) {
			continue
		}
		sale := salePrice(p.price)
		p.sale = &sale
		n++
	}
	return n, nil
}

func (r *memoryRepo) EndSale(_ context.Context, departmentID *int64) (int64, error) {
	var n int64
	for _, p := range r.products {
		if p.sale != nil && (departmentID == nil || p.dept == *departmentID) {
			p.sale = nil
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) ScanReorder(ctx context.Context) (int, error) {
	n := 0
	for id, p := range r.products {
		if !p.active || p.stock > p.level {
			continue
		}
		ok, _ := memoryTx{r}.RaiseAlert(ctx, id, p.stock, p.level)
		if ok {
			n++
		}
	}
	return n, nil
}

type memoryTx struct{ r *memoryRepo }

func (t memoryTx) LockLevel(_ context.Context, productID int64) (Level, error) {
	p, ok := t.r.products[productID]
	if !ok {
		return Level{}, ErrProductNotFound
	}
	return Level{ProductID: productID, QuantityInStock: p.stock, ReorderLevel: p.level}, nil
}

func (t memoryTx) SetStock(_ context.Context, productID int64, qty int, restocked bool) error {
	t.r.products[productID].stock = qty
	if restocked {
		t.r.restocked[productID] = true
	}
	return nil
}

func (t memoryTx) RaiseAlert(_ context.Context, productID int64, qty, level int) (bool, error) {
	if t.r.openAlerts(productID) > 0 {
		return false, nil
	}
	t.r.alerts = append(t.r.alerts, Alert{AlertID: int64(len(t.r.alerts) + 1), ProductID: productID, QuantityAtAlert: qty, ReorderLevel: level})
	return true, nil
}

func (t memoryTx) ResolveOpenAlerts(_ context.Context, productID int64) (int, error) {
	n := 0
	for i := range t.r.alerts {
		if t.r.alerts[i].ProductID == productID && t.r.alerts[i].ResolvedAt == nil {
			now := t.r.alerts[i].CreatedAt
			t.r.alerts[i].ResolvedAt = &now
			n++
		}
	}
	return n, nil
}

type countingObserver struct{ n int }

func (o *countingObserver) ObserveReorderAlerts(n int) { o.n += n }

type countingCache struct{ bumps int }

func (c *countingCache) Bump(context.Context) error {
	c.bumps++
	return nil
}

type recordingAudit struct{ actions []string }

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.actions = append(a.actions, log.Action)
	return nil
}

var admin = shared.Principal{Role: shared.RoleAdmin, ID: 1}

func intPtr(v int) *int { return &v }

func TestUpdateStockRaisesSingleAlert(t *testing.T) {
	repo := newMemoryRepo()
	repo.add(1, 50, 10)
	obs := &countingObserver{}
	cache := &countingCache{}
	audit := &recordingAudit{}
	svc := NewService(repo, ServiceDeps{Metrics: obs, Cache: cache, Audit: audit})

	res, err := svc.UpdateStock(context.Background(), admin, UpdateStockInput{ProductID: 1, NewStock: intPtr(10)})
	require.NoError(t, err)
	require.True(t, res.AlertRaised)
	require.Equal(t, 10, res.Stock)

	res, err = svc.UpdateStock(context.Background(), admin, UpdateStockInput{ProductID: 1, NewStock: intPtr(3)})
	require.NoError(t, err)
	require.False(t, res.AlertRaised)
	require.Equal(t, 1, repo.openAlerts(1))
	require.Equal(t, 1, obs.n)
	require.Equal(t, 2, cache.bumps)
	require.Equal(t, []string{"inventory.update_stock", "inventory.update_stock"}, audit.actions)
}

func TestUpdateStockValidation(t *testing.T) {
	repo := newMemoryRepo()
	repo.add(1, 50, 10)
	svc := NewService(repo, ServiceDeps{})

	_, err := svc.UpdateStock(context.Background(), admin, UpdateStockInput{ProductID: 1, NewStock: intPtr(-1)})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.UpdateStock(context.Background(), admin, UpdateStockInput{ProductID: 1})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.UpdateStock(context.Background(), admin, UpdateStockInput{ProductID: 99, NewStock: intPtr(5)})
	require.ErrorIs(t, err, ErrProductNotFound)
	require.Equal(t, 50, repo.products[1].stock)
}

func TestApplySaleRoundsToCents(t *testing.T) {
	repo := newMemoryRepo()
	for id, price := range map[int64]string{1: "1.25", 2: "3.99", 3: "0.99"} {
		repo.add(id, 20, 10).price = decimal.RequireFromString(price)
	}
	svc := NewService(repo, ServiceDeps{})

	_, err := svc.ApplySale(context.Background(), admin, SaleInput{Percent: decimal.RequireFromString("10")})
	require.NoError(t, err)
	require.Equal(t, "1.13", repo.products[1].sale.StringFixed(2))
	require.Equal(t, "3.59", repo.products[2].sale.StringFixed(2))
	require.Equal(t, "0.89", repo.products[3].sale.StringFixed(2))

	_, err = svc.ApplySale(context.Background(), admin, SaleInput{Percent: decimal.RequireFromString("33.3")})
	require.NoError(t, err)
	require.Equal(t, "2.66", repo.products[2].sale.StringFixed(2))
}

func TestStockInputValidation(t *testing.T) {
	repo := newMemoryRepo()
	repo.add(1, 50, 10)
	svc := NewService(repo, ServiceDeps{})

	_, err := svc.UpdateStock(context.Background(), admin, UpdateStockInput{ProductID: 0, NewStock: intPtr(5)})
	require.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.UpdateStock(context.Background(), admin, UpdateStockInput{ProductID: 1, NewStock: intPtr(-1)})
	require.EqualError(t, err, "Stock cannot be negative")

	_, err = svc.UpdateStock(context.Background(), admin, UpdateStockInput{ProductID: 1})
	require.EqualError(t, err, "Missing required field: new_stock")

	_, err = svc.Restock(context.Background(), admin, RestockInput{ProductID: -4, Quantity: 3})
	require.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.Restock(context.Background(), admin, RestockInput{ProductID: 1, Quantity: -2})
	require.EqualError(t, err, "Restock quantity must be at least 1")
	require.Equal(t, 50, repo.products[1].stock)
}

func TestRestockResolvesAlerts(t *testing.T) {
	repo := newMemoryRepo()
	repo.add(1, 4, 10)
	svc := NewService(repo, ServiceDeps{})

	n, err := svc.ScanReorder(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	res, err := svc.Restock(context.Background(), admin, RestockInput{ProductID: 1, Quantity: 3})
	require.NoError(t, err)
	require.Equal(t, 7, res.Stock)
	require.Equal(t, 0, res.AlertsCleared)
	require.Equal(t, 1, repo.openAlerts(1))

	res, err = svc.Restock(context.Background(), admin, RestockInput{ProductID: 1, Quantity: 20})
	require.NoError(t, err)
	require.Equal(t, 27, res.Stock)
	require.Equal(t, 1, res.AlertsCleared)
	require.Zero(t, repo.openAlerts(1))
	require.True(t, repo.restocked[1])

	_, err = svc.Restock(context.Background(), admin, RestockInput{ProductID: 1, Quantity: 0})
	require.ErrorIs(t, err, ErrInvalidRestock)
}

func TestScanReorderSkipsOpenAlerts(t *testing.T) {
	repo := newMemoryRepo()
	repo.add(1, 2, 10)
	repo.add(2, 30, 10)
	obs := &countingObserver{}
	svc := NewService(repo, ServiceDeps{Metrics: obs})

	n, err := svc.ScanReorder(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	n, err = svc.ScanReorder(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, 1, obs.n)

	low, err := svc.LowStock(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, int64(1), low[0].ProductID)
}

func TestResolveAlert(t *testing.T) {
	repo := newMemoryRepo()
	repo.add(1, 2, 10)
	svc := NewService(repo, ServiceDeps{})
	_, err := svc.ScanReorder(context.Background())
	require.NoError(t, err)

	require.NoError(t, svc.ResolveAlert(context.Background(), admin, 1))
	require.ErrorIs(t, svc.ResolveAlert(context.Background(), admin, 1), ErrAlertNotFound)

	open, err := svc.Alerts(context.Background(), true)
	require.NoError(t, err)
	require.Empty(t, open)
	all, err := svc.Alerts(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestApplySaleBounds(t *testing.T) {
	repo := newMemoryRepo()
	repo.add(1, 20, 10)
	other := repo.add(2, 20, 10)
	other.dept = 2
	svc := NewService(repo, ServiceDeps{})

	for _, pct := range []string{"0", "-5", "90.01", "100"} {
		_, err := svc.ApplySale(context.Background(), admin, SaleInput{Percent: decimal.RequireFromString(pct)})
		require.ErrorIs(t, err, ErrInvalidPercent, pct)
	}

	dept := int64(1)
	n, err := svc.ApplySale(context.Background(), admin, SaleInput{Percent: decimal.RequireFromString("15"), DepartmentID: &dept})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Equal(t, "8.50", repo.products[1].sale.StringFixed(2))
	require.Nil(t, repo.products[2].sale)

	n, err = svc.EndSale(context.Background(), admin, EndSaleInput{})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Nil(t, repo.products[1].sale)
}
