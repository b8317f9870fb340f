package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/freshmart/freshmart-pos/internal/shared"
)

// KPILimit is the length of every product KPI list.
const KPILimit = 5

// RepositoryPort abstracts report queries.
type RepositoryPort interface {
	Sales(ctx context.Context, q SalesQuery) ([]SalesRow, error)
	Products(ctx context.Context, f ProductFilter) ([]ProductRow, error)
	TopSold(ctx context.Context, limit int) ([]KPIEntry, error)
	SlowMoving(ctx context.Context, limit int) ([]KPIEntry, error)
	LowestStock(ctx context.Context, limit int) ([]KPIEntry, error)
	Employees(ctx context.Context, f EmployeeFilter) ([]EmployeeRow, error)
	Customers(ctx context.Context, f CustomerFilter) ([]CustomerRow, error)
	Inventory(ctx context.Context, f InventoryFilter) ([]InventoryRow, error)
	RevenueByDay(ctx context.Context, from time.Time) ([]TrendPoint, error)
	Departments(ctx context.Context) ([]Option, error)
	EmployeeOptions(ctx context.Context) ([]Option, error)
}

// Service coordinates report queries with the cache layer.
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	logger *slog.Logger
	now    func() time.Time
	loc    *time.Location
}

// NewService wires a Repository with a Cache helper. cache may be nil.
func NewService(repo RepositoryPort, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger, now: time.Now, loc: time.UTC}
}

// WithLocation sets the store time zone used to cut trend days.
func (s *Service) WithLocation(loc *time.Location) *Service {
	if loc != nil {
		s.loc = loc
	}
	return s
}

// Cache exposes the report cache so writers can bump it.
func (s *Service) Cache() *Cache {
	return s.cache
}

func cached[T any](ctx context.Context, s *Service, name string, scope any, load func(context.Context) (T, error)) (T, error) {
	var out T
	key, err := s.cache.BuildKey(ctx, name, fingerprint(scope))
	if err != nil {
		s.logger.Warn("report cache key", slog.String("report", name), slog.Any("error", err))
		return load(ctx)
	}
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	return out, err
}

func fingerprint(scope any) string {
	raw, err := json.Marshal(scope)
	if err != nil {
		return "-"
	}
	h := fnv.New64a()
	_, _ = h.Write(raw)
	return fmt.Sprintf("%016x", h.Sum64())
}

// Sales runs the grouped sales query.
func (s *Service) Sales(ctx context.Context, q SalesQuery) ([]SalesRow, error) {
	q.GroupBy = ParseGroupBy(string(q.GroupBy))
	if q.From.IsZero() {
		q.From = DefaultFrom
	}
	if q.To.IsZero() {
		q.To = DefaultTo
	}
	return cached(ctx, s, "sales", q, func(ctx context.Context) ([]SalesRow, error) {
		return s.repo.Sales(ctx, q)
	})
}

// Products returns the product overview.
func (s *Service) Products(ctx context.Context, f ProductFilter) ([]ProductRow, error) {
	return cached(ctx, s, "products", f, func(ctx context.Context) ([]ProductRow, error) {
		return s.repo.Products(ctx, f)
	})
}

// ProductKPIs returns the top sold, slow moving and lowest stock lists.
func (s *Service) ProductKPIs(ctx context.Context) (ProductKPIs, error) {
	return cached(ctx, s, "product_kpis", KPILimit, func(ctx context.Context) (ProductKPIs, error) {
		var (
			k   ProductKPIs
			err error
		)
		if k.TopSold, err = s.repo.TopSold(ctx, KPILimit); err != nil {
			return ProductKPIs{}, err
		}
		if k.SlowMoving, err = s.repo.SlowMoving(ctx, KPILimit); err != nil {
			return ProductKPIs{}, err
		}
		if k.LowStock, err = s.repo.LowestStock(ctx, KPILimit); err != nil {
			return ProductKPIs{}, err
		}
		k.TopSold = nonNil(k.TopSold)
		k.SlowMoving = nonNil(k.SlowMoving)
		k.LowStock = nonNil(k.LowStock)
		return k, nil
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Employees returns the employee report.
func (s *Service) Employees(ctx context.Context, f EmployeeFilter) ([]EmployeeRow, error) {
	return cached(ctx, s, "employees", f, func(ctx context.Context) ([]EmployeeRow, error) {
		return s.repo.Employees(ctx, f)
	})
}

// Customers returns the customer report.
func (s *Service) Customers(ctx context.Context, f CustomerFilter) ([]CustomerRow, error) {
	return cached(ctx, s, "customers", f, func(ctx context.Context) ([]CustomerRow, error) {
		return s.repo.Customers(ctx, f)
	})
}

// Inventory returns the admin inventory report. It always reads live data.
func (s *Service) Inventory(ctx context.Context, f InventoryFilter) ([]InventoryRow, error) {
	return s.repo.Inventory(ctx, f)
}

// RevenueTrend returns one point per day for the last days days, oldest
// first. Days without sales carry zero revenue.
func (s *Service) RevenueTrend(ctx context.Context, days int) ([]TrendPoint, error) {
	if days <= 0 {
		days = 30
	}
	if days > 366 {
		days = 366
	}
	today := shared.StartOfDay(s.now(), s.loc)
	from := today.AddDate(0, 0, -(days - 1))
	scope := struct {
		From string
		Zone string
		Days int
	}{from.Format("2006-01-02"), s.loc.String(), days}
	return cached(ctx, s, "revenue_trend", scope, func(ctx context.Context) ([]TrendPoint, error) {
		points, err := s.repo.RevenueByDay(ctx, from)
		if err != nil {
			return nil, err
		}
		return fillDays(points, from, days), nil
	})
}

func fillDays(points []TrendPoint, from time.Time, days int) []TrendPoint {
	byDate := make(map[string]TrendPoint, len(points))
	for _, p := range points {
		byDate[p.Date] = p
	}
	out := make([]TrendPoint, 0, days)
	for i := 0; i < days; i++ {
		d := from.AddDate(0, 0, i).Format("2006-01-02")
		p, ok := byDate[d]
		if !ok {
			p = TrendPoint{Date: d, Revenue: decimal.Zero}
		}
		out = append(out, p)
	}
	return out
}

// Departments lists departments for report filters.
func (s *Service) Departments(ctx context.Context) ([]Option, error) {
	return s.repo.Departments(ctx)
}

// EmployeeOptions lists employees for report filters.
func (s *Service) EmployeeOptions(ctx context.Context) ([]Option, error) {
	return s.repo.EmployeeOptions(ctx)
}

// Warmup pre-builds the product KPIs and the 30 day revenue trend.
func (s *Service) Warmup(ctx context.Context) error {
	if _, err := s.ProductKPIs(ctx); err != nil {
		return fmt.Errorf("warm product kpis: %w", err)
	}
	if _, err := s.RevenueTrend(ctx, 30); err != nil {
		return fmt.Errorf("warm revenue trend: %w", err)
	}
	return nil
}
