package inventory

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/freshmart/freshmart-pos/internal/money"
	"github.com/freshmart/freshmart-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	LowStock(ctx context.Context, departmentID int64) ([]LowStockItem, error)
	Alerts(ctx context.Context, openOnly bool) ([]Alert, error)
	ResolveAlert(ctx context.Context, alertID int64) error
	ApplySale(ctx context.Context, departmentID *int64, salePrice func(price decimal.Decimal) decimal.Decimal) (int64, error)
	EndSale(ctx context.Context, departmentID *int64) (int64, error)
	ScanReorder(ctx context.Context) (int, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheInvalidator drops cached reports after stock or price changes.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// AlertObserver counts raised reorder alerts.
type AlertObserver interface {
	ObserveReorderAlerts(n int)
}

// Service orchestrates stock levels, reorder alerts and holiday sales.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
	audit    AuditPort
	cache    CacheInvalidator
	metrics  AlertObserver
	logger   *slog.Logger
}

// ServiceDeps carries optional collaborators.
type ServiceDeps struct {
	Audit   AuditPort
	Cache   CacheInvalidator
	Metrics AlertObserver
	Logger  *slog.Logger
}

// NewService constructs the inventory service.
func NewService(repo RepositoryPort, deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		validate: validator.New(),
		audit:    deps.Audit,
		cache:    deps.Cache,
		metrics:  deps.Metrics,
		logger:   logger,
	}
}

// LowStock lists products needing reorder.
func (s *Service) LowStock(ctx context.Context, departmentID int64) ([]LowStockItem, error) {
	return s.repo.LowStock(ctx, departmentID)
}

// Alerts lists reorder alerts.
func (s *Service) Alerts(ctx context.Context, openOnly bool) ([]Alert, error) {
	return s.repo.Alerts(ctx, openOnly)
}

// UpdateStock sets the absolute stock of a product. Falling to or below the
// reorder level raises an alert; climbing above it resolves open ones.
func (s *Service) UpdateStock(ctx context.Context, actor shared.Principal, in UpdateStockInput) (StockResult, error) {
	if err := s.validate.Struct(in); err != nil {
		return StockResult{}, stockValidationError(err)
	}
	res, err := s.setStock(ctx, in.ProductID, func(Level) int { return *in.NewStock }, false)
	if err != nil {
		return StockResult{}, err
	}
	s.after(ctx, actor, "inventory.update_stock", in.ProductID, res)
	return res, nil
}

// Restock adds qty units and stamps the restock date.
func (s *Service) Restock(ctx context.Context, actor shared.Principal, in RestockInput) (StockResult, error) {
	if err := s.validate.Struct(in); err != nil {
		return StockResult{}, stockValidationError(err)
	}
	res, err := s.setStock(ctx, in.ProductID, func(l Level) int { return l.QuantityInStock + in.Quantity }, true)
	if err != nil {
		return StockResult{}, err
	}
	s.after(ctx, actor, "inventory.restock", in.ProductID, res)
	return res, nil
}

func (s *Service) setStock(ctx context.Context, productID int64, next func(Level) int, restocked bool) (StockResult, error) {
	res := StockResult{ProductID: productID}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		lvl, err := tx.LockLevel(ctx, productID)
		if err != nil {
			return err
		}
		qty := next(lvl)
		if err := tx.SetStock(ctx, productID, qty, restocked); err != nil {
			return err
		}
		res.Stock = qty
		if qty <= lvl.ReorderLevel {
			res.AlertRaised, err = tx.RaiseAlert(ctx, productID, qty, lvl.ReorderLevel)
			return err
		}
		res.AlertsCleared, err = tx.ResolveOpenAlerts(ctx, productID)
		return err
	})
	if err != nil {
		return StockResult{}, err
	}
	if res.AlertRaised && s.metrics != nil {
		s.metrics.ObserveReorderAlerts(1)
	}
	return res, nil
}

// ResolveAlert closes an open alert by id.
func (s *Service) ResolveAlert(ctx context.Context, actor shared.Principal, alertID int64) error {
	if alertID <= 0 {
		return ErrAlertNotFound
	}
	if err := s.repo.ResolveAlert(ctx, alertID); err != nil {
		return err
	}
	s.record(ctx, actor, "inventory.resolve_alert", "reorder_alert", alertID, nil)
	return nil
}

// ApplySale marks products on sale at pct percent off and returns the number
// of products updated.
func (s *Service) ApplySale(ctx context.Context, actor shared.Principal, in SaleInput) (int64, error) {
	if !in.Percent.IsPositive() || in.Percent.GreaterThan(MaxSalePercent) {
		return 0, ErrInvalidPercent
	}
	n, err := s.repo.ApplySale(ctx, in.DepartmentID, func(price decimal.Decimal) decimal.Decimal {
		return money.Percent(price, in.Percent)
	})
	if err != nil {
		return 0, err
	}
	meta := map[string]any{"percent": in.Percent.String(), "updated": n}
	if in.DepartmentID != nil {
		meta["department_id"] = *in.DepartmentID
	}
	s.record(ctx, actor, "sales.apply", "product", 0, meta)
	s.invalidate(ctx)
	return n, nil
}

// EndSale clears sale prices.
func (s *Service) EndSale(ctx context.Context, actor shared.Principal, in EndSaleInput) (int64, error) {
	n, err := s.repo.EndSale(ctx, in.DepartmentID)
	if err != nil {
		return 0, err
	}
	s.record(ctx, actor, "sales.end", "product", 0, map[string]any{"updated": n})
	s.invalidate(ctx)
	return n, nil
}

// ScanReorder raises alerts for any low product missing one.
func (s *Service) ScanReorder(ctx context.Context) (int, error) {
	n, err := s.repo.ScanReorder(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 && s.metrics != nil {
		s.metrics.ObserveReorderAlerts(n)
	}
	return n, nil
}

// stockValidationError maps the first failed field to the message clients
// already know for it.
func stockValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return shared.Validation("Invalid stock request")
	}
	fe := verrs[0]
	switch fe.Field() {
	case "ProductID":
		return ErrProductNotFound
	case "NewStock":
		if fe.Tag() == "required" {
			return shared.Validation("Missing required field: new_stock")
		}
		return ErrNegativeStock
	case "Quantity":
		return ErrInvalidRestock
	}
	return shared.Validation("Invalid stock request")
}

func (s *Service) after(ctx context.Context, actor shared.Principal, action string, productID int64, res StockResult) {
	s.record(ctx, actor, action, "product", productID, map[string]any{
		"stock":           res.Stock,
		"alert_raised":    res.AlertRaised,
		"alerts_resolved": res.AlertsCleared,
	})
	s.invalidate(ctx)
}

func (s *Service) record(ctx context.Context, actor shared.Principal, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	entityID := ""
	if id > 0 {
		entityID = strconv.FormatInt(id, 10)
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorRole: actor.Role,
		ActorID:   actor.ID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Meta:      meta,
	})
	if err != nil {
		s.logger.Warn("audit inventory", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump report cache", slog.Any("error", err))
	}
}
