package sales

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/freshmart/freshmart-pos/internal/money"
	"github.com/freshmart/freshmart-pos/internal/observability"
	"github.com/freshmart/freshmart-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	CustomerEmail(ctx context.Context, customerID int64) (string, error)
	CustomerOrders(ctx context.Context, customerID int64, page shared.Page) ([]OrderSummary, int, error)
	Receipt(ctx context.Context, txID int64) (Receipt, error)
	Transactions(ctx context.Context, f TransactionFilter) ([]TransactionRow, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheInvalidator drops cached reports after a sale.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// ReceiptMailer queues the receipt e-mail for a committed transaction.
type ReceiptMailer interface {
	EnqueueReceiptMail(ctx context.Context, transactionID int64, email string) error
}

// Observer records checkout metrics.
type Observer interface {
	ObserveCheckout(outcome string, total float64)
	ObserveReorderAlerts(n int)
}

// Service coordinates checkout, orders and receipts.
type Service struct {
	repo     RepositoryPort
	metrics  Observer
	audit    AuditPort
	cache    CacheInvalidator
	mailer   ReceiptMailer
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// ServiceDeps groups optional collaborators.
type ServiceDeps struct {
	Audit   AuditPort
	Cache   CacheInvalidator
	Mailer  ReceiptMailer
	Metrics Observer
	Logger  *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		metrics:  deps.Metrics,
		audit:    deps.Audit,
		cache:    deps.Cache,
		mailer:   deps.Mailer,
		logger:   logger,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Checkout converts the owner's bag into a completed transaction. Stock is
// locked, checked and decremented atomically; any shortage rolls back.
func (s *Service) Checkout(ctx context.Context, owner shared.Owner, in CheckoutInput) (CheckoutResult, error) {
	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	in.ShippingAddress = strings.TrimSpace(in.ShippingAddress)
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "PaymentMethod" {
			return CheckoutResult{}, ErrInvalidPayment
		}
		return CheckoutResult{}, shared.Validation("Shipping address is too long")
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = PaymentCard
	}

	var result CheckoutResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if in.IdempotencyKey != "" {
			if err := tx.ClaimIdempotency(ctx, in.IdempotencyKey); err != nil {
				return err
			}
		}

		lines, err := tx.BagLines(ctx, owner)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyBag
		}
		sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
		ids := make([]int64, len(lines))
		for i, l := range lines {
			ids[i] = l.ProductID
		}

		stock, err := tx.LockStock(ctx, ids)
		if err != nil {
			return err
		}

		details := make([]Line, 0, len(lines))
		total, discount := decimal.Zero, decimal.Zero
		for _, l := range lines {
			row, ok := stock[l.ProductID]
			if !ok || !row.IsActive {
				return &InsufficientStockError{ProductID: l.ProductID, Available: 0}
			}
			if row.QuantityInStock < l.Quantity {
				return &InsufficientStockError{ProductID: l.ProductID, Available: row.QuantityInStock}
			}
			qty := decimal.NewFromInt(int64(l.Quantity))
			unit := row.UnitPrice()
			lineDiscount := money.Round(row.Price.Sub(unit).Mul(qty))
			if lineDiscount.IsNegative() {
				lineDiscount = decimal.Zero
			}
			subtotal := money.Round(unit.Mul(qty))
			details = append(details, Line{
				ProductID: l.ProductID,
				Quantity:  l.Quantity,
				Price:     row.Price,
				Discount:  lineDiscount,
				Subtotal:  subtotal,
			})
			total = total.Add(subtotal)
			discount = discount.Add(lineDiscount)
		}

		for _, d := range details {
			if err := tx.DecrementStock(ctx, d.ProductID, d.Quantity); err != nil {
				return err
			}
		}

		txID, err := tx.InsertTransaction(ctx, Header{
			CustomerID:      owner.CustomerID(),
			EmployeeID:      owner.EmployeeID(),
			TransactionDate: s.now(),
			TotalAmount:     money.Round(total),
			PaymentMethod:   in.PaymentMethod,
			OrderStatus:     StatusCompleted,
			OrderDiscount:   money.Round(discount),
			ShippingAddress: in.ShippingAddress,
		})
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, txID, details); err != nil {
			return err
		}

		alerts := 0
		for _, d := range details {
			row := stock[d.ProductID]
			if !row.HasInventory {
				continue
			}
			remaining := row.QuantityInStock - d.Quantity
			if remaining > row.ReorderLevel {
				continue
			}
			raised, err := tx.RaiseReorderAlert(ctx, d.ProductID, remaining, row.ReorderLevel)
			if err != nil {
				return err
			}
			if raised {
				alerts++
			}
		}

		if err := tx.ClearBag(ctx, owner); err != nil {
			return err
		}
		result = CheckoutResult{
			TransactionID: txID,
			TotalAmount:   money.Round(total),
			OrderDiscount: money.Round(discount),
			AlertsRaised:  alerts,
		}
		return nil
	})
	if err != nil {
		s.observe(checkoutOutcome(err), 0, 0)
		return CheckoutResult{}, err
	}

	revenue, _ := result.TotalAmount.Float64()
	s.observe(observability.CheckoutCompleted, revenue, result.AlertsRaised)
	s.afterCommit(ctx, owner, result)
	return result, nil
}

func (s *Service) observe(outcome string, revenue float64, alerts int) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveCheckout(outcome, revenue)
	s.metrics.ObserveReorderAlerts(alerts)
}

func checkoutOutcome(err error) string {
	var stockErr *InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return observability.CheckoutInsufficientStock
	case errors.Is(err, ErrEmptyBag):
		return observability.CheckoutEmptyBag
	default:
		return observability.CheckoutFailed
	}
}

// afterCommit runs side effects that must not undo a committed sale.
func (s *Service) afterCommit(ctx context.Context, owner shared.Owner, res CheckoutResult) {
	logger := s.logger.With(slog.Int64("transaction_id", res.TransactionID))
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			logger.Warn("bump report cache", slog.Any("error", err))
		}
	}
	if s.audit != nil {
		role := shared.RoleCustomer
		if owner.Kind == shared.OwnerEmployee {
			role = shared.RoleEmployee
		}
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorRole: role,
			ActorID:   owner.ID,
			Action:    "checkout",
			Entity:    "sales_transaction",
			EntityID:  strconv.FormatInt(res.TransactionID, 10),
			Meta:      map[string]any{"total_amount": res.TotalAmount.StringFixed(2), "alerts": res.AlertsRaised},
		})
		if err != nil {
			logger.Warn("audit checkout", slog.Any("error", err))
		}
	}
	if s.mailer != nil && owner.Kind == shared.OwnerCustomer {
		email, err := s.repo.CustomerEmail(ctx, owner.ID)
		if err != nil {
			logger.Warn("lookup receipt email", slog.Any("error", err))
			return
		}
		if email == "" {
			return
		}
		if err := s.mailer.EnqueueReceiptMail(ctx, res.TransactionID, email); err != nil {
			logger.Warn("enqueue receipt mail", slog.Any("error", err))
		}
	}
	logger.Info("checkout completed", slog.String("total", res.TotalAmount.StringFixed(2)))
}

// CustomerOrders lists a customer's orders.
func (s *Service) CustomerOrders(ctx context.Context, customerID int64, page shared.Page) ([]OrderSummary, shared.Pagination, error) {
	orders, total, err := s.repo.CustomerOrders(ctx, customerID, page)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return orders, shared.NewPagination(page, total), nil
}

// ReceiptFor returns the receipt if viewer may see it. Customers only see
// their own transactions; staff see all.
func (s *Service) ReceiptFor(ctx context.Context, viewer shared.Principal, txID int64) (Receipt, error) {
	rc, err := s.repo.Receipt(ctx, txID)
	if err != nil {
		return Receipt{}, err
	}
	if viewer.Role == shared.RoleCustomer {
		if rc.Header.CustomerID == nil || *rc.Header.CustomerID != viewer.ID {
			return Receipt{}, ErrOrderNotFound
		}
	}
	return rc, nil
}

// Receipt returns a receipt without an ownership check, for background jobs.
func (s *Service) Receipt(ctx context.Context, txID int64) (Receipt, error) {
	return s.repo.Receipt(ctx, txID)
}

// Transactions lists transactions for staff.
func (s *Service) Transactions(ctx context.Context, f TransactionFilter) ([]TransactionRow, error) {
	f.Employee = strings.TrimSpace(f.Employee)
	if f.PaymentMethod != "" && !validPayment(f.PaymentMethod) {
		f.PaymentMethod = ""
	}
	return s.repo.Transactions(ctx, f)
}

func validPayment(m string) bool {
	for _, p := range PaymentMethods {
		if p == m {
			return true
		}
	}
	return false
}
