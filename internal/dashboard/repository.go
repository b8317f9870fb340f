package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/freshmart/freshmart-pos/internal/shared"
)

// ErrProfileNotFound is returned when the signed-in account no longer exists.
var ErrProfileNotFound = shared.NotFound("Account not found")

// Repository reads dashboard figures from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) count(ctx context.Context, sql string, args ...any) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, sql, args...).Scan(&n)
	return n, err
}

// ActiveProducts counts products on sale in the store.
func (r *Repository) ActiveProducts(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM products WHERE is_active`)
}

// Customers counts registered customers.
func (r *Repository) Customers(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM customers`)
}

// ActiveEmployees counts employees who can sign in.
func (r *Repository) ActiveEmployees(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM employees WHERE is_active`)
}

// LowStock counts active products at or below their reorder level. A zero
// departmentID counts every department.
func (r *Repository) LowStock(ctx context.Context, departmentID int64) (int64, error) {
	return r.count(ctx, `
		SELECT COUNT(*)
		FROM inventory i
		JOIN products p ON p.product_id = i.product_id
		WHERE p.is_active AND i.quantity_available <= i.reorder_level
		  AND ($1::bigint = 0 OR p.department_id = $1)`, departmentID)
}

// OpenAlerts counts unresolved reorder alerts.
func (r *Repository) OpenAlerts(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM reorder_alerts WHERE resolved_at IS NULL`)
}

// SalesSince sums transactions at or after since.
func (r *Repository) SalesSince(ctx context.Context, since time.Time) (Sales, error) {
	var s Sales
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0), COUNT(*)
		FROM sales_transactions
		WHERE transaction_date >= $1`, since).Scan(&s.Revenue, &s.Orders)
	return s, err
}

// AdminName returns the administrator's display name.
func (r *Repository) AdminName(ctx context.Context, adminID int64) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(NULLIF(TRIM(name), ''), username) FROM administrators WHERE admin_id = $1`, adminID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrProfileNotFound
	}
	return name, err
}

// Employee returns the employee's name and department.
func (r *Repository) Employee(ctx context.Context, employeeID int64) (Employee, error) {
	var e Employee
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(NULLIF(TRIM(e.name), ''), e.username), COALESCE(e.department_id, 0), COALESCE(d.name, '')
		FROM employees e
		LEFT JOIN departments d ON d.department_id = e.department_id
		WHERE e.employee_id = $1`, employeeID).Scan(&e.Name, &e.DepartmentID, &e.DepartmentName)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrProfileNotFound
	}
	return e, err
}

// Customer returns the customer's profile.
func (r *Repository) Customer(ctx context.Context, customerID int64) (Customer, error) {
	var c Customer
	err := r.pool.QueryRow(ctx, `SELECT name, email, COALESCE(phone, '') FROM customers WHERE customer_id = $1`, customerID).
		Scan(&c.Name, &c.Email, &c.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrProfileNotFound
	}
	return c, err
}

// RecentOrders lists the customer's latest orders with item counts.
func (r *Repository) RecentOrders(ctx context.Context, customerID int64, limit int) ([]RecentOrder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.transaction_id, t.transaction_date, COALESCE(SUM(d.quantity), 0), t.total_amount, t.order_status
		FROM sales_transactions t
		LEFT JOIN transaction_details d ON d.transaction_id = t.transaction_id
		WHERE t.customer_id = $1
		GROUP BY t.transaction_id
		ORDER BY t.transaction_date DESC, t.transaction_id DESC
		LIMIT $2`, customerID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (RecentOrder, error) {
		var o RecentOrder
		err := row.Scan(&o.TransactionID, &o.TransactionDate, &o.ItemCount, &o.TotalAmount, &o.OrderStatus)
		return o, err
	})
}

// CustomerTotals returns the customer's order count and summed order discounts.
func (r *Repository) CustomerTotals(ctx context.Context, customerID int64) (int64, decimal.Decimal, error) {
	var (
		orders int64
		saved  decimal.Decimal
	)
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(order_discount), 0)
		FROM sales_transactions WHERE customer_id = $1`, customerID).Scan(&orders, &saved)
	return orders, saved, err
}
