package dashboard

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/freshmart/freshmart-pos/internal/shared"
)

// RepositoryPort abstracts the dashboard queries.
type RepositoryPort interface {
	ActiveProducts(ctx context.Context) (int64, error)
	Customers(ctx context.Context) (int64, error)
	ActiveEmployees(ctx context.Context) (int64, error)
	LowStock(ctx context.Context, departmentID int64) (int64, error)
	OpenAlerts(ctx context.Context) (int64, error)
	SalesSince(ctx context.Context, since time.Time) (Sales, error)
	AdminName(ctx context.Context, adminID int64) (string, error)
	Employee(ctx context.Context, employeeID int64) (Employee, error)
	Customer(ctx context.Context, customerID int64) (Customer, error)
	RecentOrders(ctx context.Context, customerID int64, limit int) ([]RecentOrder, error)
	CustomerTotals(ctx context.Context, customerID int64) (int64, decimal.Decimal, error)
}

// Service assembles dashboards from independent queries run concurrently.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
	loc  *time.Location
}

// NewService constructs Service. "Today" is a UTC day until WithLocation.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now, loc: time.UTC}
}

// WithLocation sets the store time zone that bounds "today".
func (s *Service) WithLocation(loc *time.Location) *Service {
	if loc != nil {
		s.loc = loc
	}
	return s
}

func (s *Service) startOfDay() time.Time {
	return shared.StartOfDay(s.now(), s.loc)
}

// Admin builds the administrator dashboard.
func (s *Service) Admin(ctx context.Context, adminID int64) (AdminStats, error) {
	var st AdminStats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.AdminName, err = s.repo.AdminName(ctx, adminID)
		return err
	})
	g.Go(func() (err error) {
		st.TotalProducts, err = s.repo.ActiveProducts(ctx)
		return err
	})
	g.Go(func() (err error) {
		st.TotalCustomers, err = s.repo.Customers(ctx)
		return err
	})
	g.Go(func() (err error) {
		st.ActiveEmployees, err = s.repo.ActiveEmployees(ctx)
		return err
	})
	g.Go(func() (err error) {
		st.LowStock, err = s.repo.LowStock(ctx, 0)
		return err
	})
	g.Go(func() (err error) {
		st.OpenAlerts, err = s.repo.OpenAlerts(ctx)
		return err
	})
	g.Go(func() error {
		sales, err := s.repo.SalesSince(ctx, s.startOfDay())
		if err != nil {
			return err
		}
		st.RevenueToday, st.OrdersToday = sales.Revenue, sales.Orders
		return nil
	})
	if err := g.Wait(); err != nil {
		return AdminStats{}, err
	}
	return st, nil
}

// Employee builds the employee dashboard. Sales figures are store wide;
// the low stock count covers the employee's department.
func (s *Service) Employee(ctx context.Context, employeeID int64) (EmployeeStats, error) {
	profile, err := s.repo.Employee(ctx, employeeID)
	if err != nil {
		return EmployeeStats{}, err
	}
	st := EmployeeStats{Name: profile.Name, DepartmentName: profile.DepartmentName}
	if st.DepartmentName == "" {
		st.DepartmentName = "all departments"
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sales, err := s.repo.SalesSince(gctx, s.startOfDay())
		if err != nil {
			return err
		}
		st.RevenueToday, st.OrdersToday = sales.Revenue, sales.Orders
		return nil
	})
	g.Go(func() (err error) {
		st.LowStockCount, err = s.repo.LowStock(gctx, profile.DepartmentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return EmployeeStats{}, err
	}
	return st, nil
}

// Customer builds the customer dashboard.
func (s *Service) Customer(ctx context.Context, customerID int64) (CustomerStats, error) {
	var st CustomerStats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.Customer, err = s.repo.Customer(ctx, customerID)
		return err
	})
	g.Go(func() (err error) {
		st.Orders, err = s.repo.RecentOrders(ctx, customerID, RecentOrderLimit)
		return err
	})
	g.Go(func() (err error) {
		st.TotalOrders, st.TotalSaved, err = s.repo.CustomerTotals(ctx, customerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return CustomerStats{}, err
	}
	return st, nil
}
