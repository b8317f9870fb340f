package sales

import (
	"context"
	"errors"
	"maps"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/freshmart/freshmart-pos/internal/observability"
	"github.com/freshmart/freshmart-pos/internal/shared"
)

type memoryState struct {
	stock   map[int64]StockRow
	bags    map[shared.Owner][]BagLine
	headers map[int64]Header
	lines   map[int64][]Line
	alerts  map[int64]bool
	keys    map[string]bool
	nextID  int64
}

func (s memoryState) clone() memoryState {
	c := memoryState{
		stock:   maps.Clone(s.stock),
		bags:    make(map[shared.Owner][]BagLine, len(s.bags)),
		headers: maps.Clone(s.headers),
		lines:   maps.Clone(s.lines),
		alerts:  maps.Clone(s.alerts),
		keys:    maps.Clone(s.keys),
		nextID:  s.nextID,
	}
	for k, v := range s.bags {
		c.bags[k] = append([]BagLine(nil), v...)
	}
	return c
}

type memoryRepo struct {
	state memoryState
}

type memoryTx struct {
	st *memoryState
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: memoryState{
		stock:   make(map[int64]StockRow),
		bags:    make(map[shared.Owner][]BagLine),
		headers: make(map[int64]Header),
		lines:   make(map[int64][]Line),
		alerts:  make(map[int64]bool),
		keys:    make(map[string]bool),
	}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	work := r.state.clone()
	if err := fn(ctx, &memoryTx{st: &work}); err != nil {
		return err
	}
	r.state = work
	return nil
}

func (r *memoryRepo) CustomerEmail(context.Context, int64) (string, error) {
	return "shopper@example.com", nil
}

func (r *memoryRepo) CustomerOrders(context.Context, int64, shared.Page) ([]OrderSummary, int, error) {
	return nil, 0, nil
}

func (r *memoryRepo) Receipt(_ context.Context, txID int64) (Receipt, error) {
	h, ok := r.state.headers[txID]
	if !ok {
		return Receipt{}, ErrOrderNotFound
	}
	rc := Receipt{Header: ReceiptHeader{TransactionID: txID, CustomerID: h.CustomerID, PaymentMethod: h.PaymentMethod}}
	for _, l := range r.state.lines[txID] {
		rc.Items = append(rc.Items, ReceiptItem{Quantity: l.Quantity, Price: l.Price, Discount: l.Discount, Subtotal: l.Subtotal})
	}
	rc.Summarize()
	return rc, nil
}

func (r *memoryRepo) Transactions(context.Context, TransactionFilter) ([]TransactionRow, error) {
	return nil, nil
}

func (t *memoryTx) ClaimIdempotency(_ context.Context, key string) error {
	if t.st.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	t.st.keys[key] = true
	return nil
}

func (t *memoryTx) BagLines(_ context.Context, owner shared.Owner) ([]BagLine, error) {
	return append([]BagLine(nil), t.st.bags[owner]...), nil
}

func (t *memoryTx) LockStock(_ context.Context, ids []int64) (map[int64]StockRow, error) {
	out := make(map[int64]StockRow)
	for _, id := range ids {
		if s, ok := t.st.stock[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (t *memoryTx) DecrementStock(_ context.Context, id int64, qty int) error {
	s := t.st.stock[id]
	s.QuantityInStock -= qty
	s.QuantityAvailable -= qty
	t.st.stock[id] = s
	return nil
}

func (t *memoryTx) InsertTransaction(_ context.Context, h Header) (int64, error) {
	t.st.nextID++
	t.st.headers[t.st.nextID] = h
	return t.st.nextID, nil
}

func (t *memoryTx) InsertLines(_ context.Context, txID int64, lines []Line) error {
	t.st.lines[txID] = lines
	return nil
}

func (t *memoryTx) RaiseReorderAlert(_ context.Context, id int64, _, _ int) (bool, error) {
	if t.st.alerts[id] {
		return false, nil
	}
	t.st.alerts[id] = true
	return true, nil
}

func (t *memoryTx) ClearBag(_ context.Context, owner shared.Owner) error {
	delete(t.st.bags, owner)
	return nil
}

type recordingMailer struct {
	sent map[int64]string
}

func (m *recordingMailer) EnqueueReceiptMail(_ context.Context, id int64, email string) error {
	if m.sent == nil {
		m.sent = make(map[int64]string)
	}
	m.sent[id] = email
	return nil
}

var shopper = shared.Owner{Kind: shared.OwnerCustomer, ID: 42}

func seed(repo *memoryRepo) {
	repo.state.stock[1] = StockRow{ProductID: 1, Name: "Apples", Price: decimal.RequireFromString("2.00"), IsActive: true,
		QuantityInStock: 20, QuantityAvailable: 20, ReorderLevel: 10, HasInventory: true}
	repo.state.stock[2] = StockRow{ProductID: 2, Name: "Cheese", Price: decimal.RequireFromString("5.00"),
		SalePrice: decimal.NewNullDecimal(decimal.RequireFromString("4.00")), OnSale: true, IsActive: true,
		QuantityInStock: 3, QuantityAvailable: 3, ReorderLevel: 2, HasInventory: true}
}

func TestCheckoutSuccess(t *testing.T) {
	repo := newMemoryRepo()
	seed(repo)
	repo.state.bags[shopper] = []BagLine{{ProductID: 2, Quantity: 2}, {ProductID: 1, Quantity: 3}}
	mailer := &recordingMailer{}
	metrics := observability.NewMetrics()
	svc := NewService(repo, ServiceDeps{Mailer: mailer, Metrics: metrics})
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }

	res, err := svc.Checkout(context.Background(), shopper, CheckoutInput{})
	require.NoError(t, err)
	require.Equal(t, "14.00", res.TotalAmount.StringFixed(2))
	require.Equal(t, "2.00", res.OrderDiscount.StringFixed(2))
	require.Equal(t, 1, res.AlertsRaised)

	require.Equal(t, 17, repo.state.stock[1].QuantityInStock)
	require.Equal(t, 1, repo.state.stock[2].QuantityInStock)
	require.Empty(t, repo.state.bags[shopper])
	require.True(t, repo.state.alerts[2])
	require.False(t, repo.state.alerts[1])

	h := repo.state.headers[res.TransactionID]
	require.Equal(t, PaymentCard, h.PaymentMethod)
	require.Equal(t, StatusCompleted, h.OrderStatus)
	require.NotNil(t, h.CustomerID)
	require.Nil(t, h.EmployeeID)

	lines := repo.state.lines[res.TransactionID]
	require.Len(t, lines, 2)
	require.Equal(t, int64(1), lines[0].ProductID)
	require.Equal(t, "8.00", lines[1].Subtotal.StringFixed(2))
	require.Equal(t, "2.00", lines[1].Discount.StringFixed(2))
	require.Equal(t, "shopper@example.com", mailer.sent[res.TransactionID])
}

func TestCheckoutInsufficientStockRollsBack(t *testing.T) {
	repo := newMemoryRepo()
	seed(repo)
	repo.state.bags[shopper] = []BagLine{{ProductID: 1, Quantity: 5}, {ProductID: 2, Quantity: 4}}
	svc := NewService(repo, ServiceDeps{})

	_, err := svc.Checkout(context.Background(), shopper, CheckoutInput{PaymentMethod: PaymentCash})
	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	require.Equal(t, int64(2), stockErr.ProductID)
	require.Equal(t, 3, stockErr.Available)
	require.ErrorIs(t, err, shared.ErrConflict)

	require.Equal(t, 20, repo.state.stock[1].QuantityInStock)
	require.Equal(t, 3, repo.state.stock[2].QuantityInStock)
	require.Len(t, repo.state.bags[shopper], 2)
	require.Empty(t, repo.state.headers)
}

func TestCheckoutInactiveProduct(t *testing.T) {
	repo := newMemoryRepo()
	seed(repo)
	row := repo.state.stock[1]
	row.IsActive = false
	repo.state.stock[1] = row
	repo.state.bags[shopper] = []BagLine{{ProductID: 1, Quantity: 1}}

	_, err := NewService(repo, ServiceDeps{}).Checkout(context.Background(), shopper, CheckoutInput{})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Zero(t, stockErr.Available)
}

func TestCheckoutEmptyBag(t *testing.T) {
	svc := NewService(newMemoryRepo(), ServiceDeps{})
	_, err := svc.Checkout(context.Background(), shopper, CheckoutInput{})
	require.ErrorIs(t, err, ErrEmptyBag)
}

func TestCheckoutRejectsUnknownPayment(t *testing.T) {
	svc := NewService(newMemoryRepo(), ServiceDeps{})
	_, err := svc.Checkout(context.Background(), shopper, CheckoutInput{PaymentMethod: "IOU"})
	require.ErrorIs(t, err, ErrInvalidPayment)
}

func TestCheckoutIdempotencyReplay(t *testing.T) {
	repo := newMemoryRepo()
	seed(repo)
	repo.state.bags[shopper] = []BagLine{{ProductID: 1, Quantity: 1}}
	svc := NewService(repo, ServiceDeps{})

	_, err := svc.Checkout(context.Background(), shopper, CheckoutInput{IdempotencyKey: "k-1"})
	require.NoError(t, err)
	repo.state.bags[shopper] = []BagLine{{ProductID: 1, Quantity: 1}}
	_, err = svc.Checkout(context.Background(), shopper, CheckoutInput{IdempotencyKey: "k-1"})
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.Equal(t, 19, repo.state.stock[1].QuantityInStock)
}

func TestEmployeeCheckoutSetsEmployee(t *testing.T) {
	repo := newMemoryRepo()
	seed(repo)
	clerk := shared.Owner{Kind: shared.OwnerEmployee, ID: 7}
	repo.state.bags[clerk] = []BagLine{{ProductID: 1, Quantity: 1}}
	mailer := &recordingMailer{}

	res, err := NewService(repo, ServiceDeps{Mailer: mailer}).Checkout(context.Background(), clerk, CheckoutInput{})
	require.NoError(t, err)
	h := repo.state.headers[res.TransactionID]
	require.Nil(t, h.CustomerID)
	require.Equal(t, int64(7), *h.EmployeeID)
	require.Empty(t, mailer.sent)
}

func TestReceiptForCustomerOwnership(t *testing.T) {
	repo := newMemoryRepo()
	seed(repo)
	repo.state.bags[shopper] = []BagLine{{ProductID: 1, Quantity: 2}}
	svc := NewService(repo, ServiceDeps{})
	res, err := svc.Checkout(context.Background(), shopper, CheckoutInput{})
	require.NoError(t, err)

	rc, err := svc.ReceiptFor(context.Background(), shared.Principal{Role: shared.RoleCustomer, ID: 42}, res.TransactionID)
	require.NoError(t, err)
	require.Equal(t, 2, rc.Totals.TotalUnits)
	require.Equal(t, 1, rc.Totals.TotalItems)
	require.Equal(t, "4.00", rc.Totals.SubtotalSum.StringFixed(2))

	_, err = svc.ReceiptFor(context.Background(), shared.Principal{Role: shared.RoleCustomer, ID: 43}, res.TransactionID)
	require.ErrorIs(t, err, ErrOrderNotFound)

	_, err = svc.ReceiptFor(context.Background(), shared.Principal{Role: shared.RoleEmployee, ID: 7}, res.TransactionID)
	require.NoError(t, err)
}
