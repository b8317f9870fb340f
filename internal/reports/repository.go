package reports

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs report queries against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// query accumulates WHERE and HAVING clauses with numbered placeholders.
type query struct {
	where  []string
	having []string
	args   []any
}

func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

func (q *query) whereSQL() string {
	if len(q.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.where, " AND ")
}

func (q *query) havingSQL() string {
	if len(q.having) == 0 {
		return ""
	}
	return " HAVING " + strings.Join(q.having, " AND ")
}

func direction(v string) string {
	if strings.EqualFold(v, "desc") {
		return "DESC"
	}
	return "ASC"
}

type salesDim struct{ id, name string }

// Products without a department are reported under id 0.
var salesDims = map[GroupBy]salesDim{
	GroupByProduct:    {"p.product_id", "p.name"},
	GroupByDepartment: {"COALESCE(d.department_id, 0)", "COALESCE(d.name, 'Unassigned')"},
	GroupByEmployee:   {"e.employee_id", "COALESCE(NULLIF(TRIM(e.name), ''), e.username)"},
}

func dimFor(g GroupBy) salesDim {
	if dim, ok := salesDims[g]; ok {
		return dim
	}
	return salesDims[GroupByProduct]
}

// Sales aggregates sold units and line revenue per dimension.
func (r *Repository) Sales(ctx context.Context, sq SalesQuery) ([]SalesRow, error) {
	dim := dimFor(sq.GroupBy)
	var q query
	q.where = append(q.where,
		"st.transaction_date >= "+q.arg(sq.From),
		"st.transaction_date < "+q.arg(sq.To)+"::date + 1",
	)
	if sq.DepartmentID != nil {
		q.where = append(q.where, "d.department_id = "+q.arg(*sq.DepartmentID))
	}
	if sq.EmployeeID != nil {
		q.where = append(q.where, "e.employee_id = "+q.arg(*sq.EmployeeID))
	}
	if sq.MinUnits > 0 {
		q.having = append(q.having, "SUM(td.quantity) >= "+q.arg(sq.MinUnits))
	}
	sql := fmt.Sprintf(`
		SELECT %[1]s, %[2]s, SUM(td.quantity), COALESCE(SUM(td.subtotal), 0)
		FROM sales_transactions st
		JOIN transaction_details td ON td.transaction_id = st.transaction_id
		JOIN products p ON p.product_id = td.product_id
		LEFT JOIN departments d ON d.department_id = p.department_id
		%[3]s JOIN employees e ON e.employee_id = st.employee_id%[4]s
		GROUP BY %[1]s, %[2]s%[5]s
		ORDER BY %[2]s`, dim.id, dim.name, employeeJoin(sq.GroupBy), q.whereSQL(), q.havingSQL())

	rows, err := r.pool.Query(ctx, sql, q.args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SalesRow, error) {
		var s SalesRow
		err := row.Scan(&s.DimID, &s.DimName, &s.UnitsSold, &s.GrossRevenue)
		return s, err
	})
}

// Online orders have no employee; grouping by employee only counts staff sales.
func employeeJoin(g GroupBy) string {
	if g == GroupByEmployee {
		return ""
	}
	return "LEFT"
}

var productSorts = map[string]string{
	"name":       "p.name",
	"department": "d.name",
	"price":      "p.price",
	"stock":      "p.quantity_in_stock",
	"reorder":    "i.reorder_level",
	"restock":    "i.last_restock_date",
	"units_sold": "units_sold",
	"revenue":    "revenue",
}

// Products returns the product overview.
func (r *Repository) Products(ctx context.Context, f ProductFilter) ([]ProductRow, error) {
	var q query
	q.where = append(q.where, "p.is_active")
	if len(f.DepartmentIDs) > 0 {
		q.where = append(q.where, "p.department_id = ANY("+q.arg(f.DepartmentIDs)+")")
	}
	if f.Name != "" {
		q.where = append(q.where, "p.name ILIKE "+q.arg("%"+f.Name+"%"))
	}
	q.where = append(q.where, stockClause(f.StockStatus, "p.quantity_in_stock")...)
	if f.OnSaleOnly {
		q.where = append(q.where, "p.on_sale")
	}
	if f.MinPrice != nil {
		q.where = append(q.where, "p.price >= "+q.arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		q.where = append(q.where, "p.price <= "+q.arg(*f.MaxPrice))
	}
	if f.MinQty != nil {
		q.where = append(q.where, "p.quantity_in_stock >= "+q.arg(*f.MinQty))
	}
	if f.MaxQty != nil {
		q.where = append(q.where, "p.quantity_in_stock <= "+q.arg(*f.MaxQty))
	}
	if f.RestockFrom != nil {
		q.where = append(q.where, "i.last_restock_date >= "+q.arg(*f.RestockFrom))
	}
	if f.RestockTo != nil {
		q.where = append(q.where, "i.last_restock_date < "+q.arg(*f.RestockTo)+"::date + 1")
	}
	col, ok := productSorts[f.SortColumn]
	if !ok {
		col = "p.name"
	}
	sql := `
		SELECT p.product_id, p.name, COALESCE(d.name, ''), p.barcode, p.price, p.sale_price, p.on_sale,
		       p.quantity_in_stock, COALESCE(i.reorder_level, 0), i.last_restock_date,
		       COALESCE(s.units, 0) AS units_sold, COALESCE(s.revenue, 0) AS revenue
		FROM products p
		LEFT JOIN departments d ON d.department_id = p.department_id
		LEFT JOIN inventory i ON i.product_id = p.product_id
		LEFT JOIN (
			SELECT product_id, SUM(quantity) AS units, SUM(subtotal) AS revenue
			FROM transaction_details GROUP BY product_id
		) s ON s.product_id = p.product_id` + q.whereSQL() +
		fmt.Sprintf(" ORDER BY %s %s NULLS LAST, p.product_id", col, direction(f.SortDirection))

	rows, err := r.pool.Query(ctx, sql, q.args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ProductRow, error) {
		var p ProductRow
		err := row.Scan(&p.ProductID, &p.Name, &p.Department, &p.Barcode, &p.Price, &p.SalePrice, &p.OnSale,
			&p.QuantityInStock, &p.ReorderLevel, &p.LastRestock, &p.UnitsSold, &p.Revenue)
		return p, err
	})
}

func stockClause(status, column string) []string {
	switch status {
	case StockOut:
		return []string{column + " = 0"}
	case StockLow:
		return []string{column + " > 0", column + " <= COALESCE(i.reorder_level, 0)"}
	case StockIn:
		return []string{column + " > COALESCE(i.reorder_level, 0)"}
	}
	return nil
}

// TopSold returns the best sellers by units.
func (r *Repository) TopSold(ctx context.Context, limit int) ([]KPIEntry, error) {
	return r.kpi(ctx, `
		SELECT p.name, COALESCE(SUM(td.quantity), 0) AS sales
		FROM products p
		JOIN transaction_details td ON td.product_id = p.product_id
		WHERE p.is_active
		GROUP BY p.product_id, p.name
		ORDER BY sales DESC, p.name
		LIMIT $1`, limit)
}

// SlowMoving returns active products with the fewest units sold.
func (r *Repository) SlowMoving(ctx context.Context, limit int) ([]KPIEntry, error) {
	return r.kpi(ctx, `
		SELECT p.name, COALESCE(SUM(td.quantity), 0) AS sales
		FROM products p
		LEFT JOIN transaction_details td ON td.product_id = p.product_id
		WHERE p.is_active
		GROUP BY p.product_id, p.name
		ORDER BY sales ASC, p.name
		LIMIT $1`, limit)
}

func (r *Repository) kpi(ctx context.Context, sql string, limit int) ([]KPIEntry, error) {
	rows, err := r.pool.Query(ctx, sql, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (KPIEntry, error) {
		var e KPIEntry
		err := row.Scan(&e.Name, &e.Sales)
		return e, err
	})
}

// LowestStock returns active products with the least stock on hand.
func (r *Repository) LowestStock(ctx context.Context, limit int) ([]KPIEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.name, p.quantity_in_stock, COALESCE(i.reorder_level, 0)
		FROM products p
		LEFT JOIN inventory i ON i.product_id = p.product_id
		WHERE p.is_active
		ORDER BY p.quantity_in_stock, p.name
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (KPIEntry, error) {
		var (
			name         string
			qty, reorder int
		)
		if err := row.Scan(&name, &qty, &reorder); err != nil {
			return KPIEntry{}, err
		}
		return KPIEntry{Name: name, Sales: int64(qty), Qty: &qty, Reorder: &reorder}, nil
	})
}

var employeeSorts = map[string]string{
	"name":       "name",
	"job_title":  "e.job_title",
	"department": "department",
	"hire_date":  "e.hire_date",
	"orders":     "orders",
	"units_sold": "units_sold",
	"revenue":    "revenue",
}

// Employees returns employees with their sales totals.
func (r *Repository) Employees(ctx context.Context, f EmployeeFilter) ([]EmployeeRow, error) {
	var q query
	if len(f.DepartmentIDs) > 0 {
		q.where = append(q.where, "e.department_id = ANY("+q.arg(f.DepartmentIDs)+")")
	}
	if f.Name != "" {
		q.where = append(q.where, "(e.name ILIKE "+q.arg("%"+f.Name+"%")+" OR e.username ILIKE "+q.arg("%"+f.Name+"%")+")")
	}
	if f.JobTitle != "" {
		q.where = append(q.where, "e.job_title ILIKE "+q.arg("%"+f.JobTitle+"%"))
	}
	if f.HireFrom != nil {
		q.where = append(q.where, "e.hire_date >= "+q.arg(*f.HireFrom))
	}
	if f.HireTo != nil {
		q.where = append(q.where, "e.hire_date <= "+q.arg(*f.HireTo))
	}
	if f.MinRevenue != nil {
		q.having = append(q.having, "COALESCE(SUM(td.subtotal), 0) >= "+q.arg(*f.MinRevenue))
	}
	if f.MaxRevenue != nil {
		q.having = append(q.having, "COALESCE(SUM(td.subtotal), 0) <= "+q.arg(*f.MaxRevenue))
	}
	col, ok := employeeSorts[f.Sort]
	if !ok {
		col = "name"
	}
	sql := `
		SELECT e.employee_id, COALESCE(NULLIF(TRIM(e.name), ''), e.username) AS name, COALESCE(e.job_title, ''),
		       COALESCE(d.name, '') AS department, e.hire_date, e.is_active,
		       COUNT(DISTINCT st.transaction_id) AS orders,
		       COALESCE(SUM(td.quantity), 0) AS units_sold,
		       COALESCE(SUM(td.subtotal), 0) AS revenue
		FROM employees e
		LEFT JOIN departments d ON d.department_id = e.department_id
		LEFT JOIN sales_transactions st ON st.employee_id = e.employee_id
		LEFT JOIN transaction_details td ON td.transaction_id = st.transaction_id` + q.whereSQL() + `
		GROUP BY e.employee_id, e.name, e.username, e.job_title, d.name, e.hire_date, e.is_active` + q.havingSQL() +
		fmt.Sprintf(" ORDER BY %s %s, e.employee_id", col, direction(f.Order))

	rows, err := r.pool.Query(ctx, sql, q.args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (EmployeeRow, error) {
		var e EmployeeRow
		err := row.Scan(&e.EmployeeID, &e.Name, &e.JobTitle, &e.Department, &e.HireDate, &e.IsActive, &e.Orders, &e.UnitsSold, &e.Revenue)
		return e, err
	})
}

var customerSorts = map[string]string{
	"name":          "c.name",
	"email":         "c.email",
	"purchases":     "purchases",
	"total_spent":   "total_spent",
	"total_saved":   "total_saved",
	"last_purchase": "last_purchase",
}

// Customers returns customers with purchase totals inside the date range.
func (r *Repository) Customers(ctx context.Context, f CustomerFilter) ([]CustomerRow, error) {
	var q query
	join := "LEFT JOIN sales_transactions st ON st.customer_id = c.customer_id"
	if f.From != nil {
		join += " AND st.transaction_date >= " + q.arg(*f.From)
	}
	if f.To != nil {
		join += " AND st.transaction_date < " + q.arg(*f.To) + "::date + 1"
	}
	if f.Name != "" {
		q.where = append(q.where, "c.name ILIKE "+q.arg("%"+f.Name+"%"))
	}
	if f.Email != "" {
		q.where = append(q.where, "c.email ILIKE "+q.arg("%"+f.Email+"%"))
	}
	if f.MinSpent != nil {
		q.having = append(q.having, "COALESCE(SUM(st.total_amount), 0) >= "+q.arg(*f.MinSpent))
	}
	if f.MaxSpent != nil {
		q.having = append(q.having, "COALESCE(SUM(st.total_amount), 0) <= "+q.arg(*f.MaxSpent))
	}
	if f.MinPurchases != nil {
		q.having = append(q.having, "COUNT(st.transaction_id) >= "+q.arg(*f.MinPurchases))
	}
	if f.MaxPurchases != nil {
		q.having = append(q.having, "COUNT(st.transaction_id) <= "+q.arg(*f.MaxPurchases))
	}
	col, ok := customerSorts[f.Sort]
	if !ok {
		col = "c.name"
	}
	sql := `
		SELECT c.customer_id, c.name, c.email, COALESCE(c.phone, ''),
		       COUNT(st.transaction_id) AS purchases,
		       COALESCE(SUM(st.total_amount), 0) AS total_spent,
		       COALESCE(SUM(st.order_discount), 0) AS total_saved,
		       MAX(st.transaction_date) AS last_purchase
		FROM customers c
		` + join + q.whereSQL() + `
		GROUP BY c.customer_id, c.name, c.email, c.phone` + q.havingSQL() +
		fmt.Sprintf(" ORDER BY %s %s NULLS LAST, c.customer_id", col, direction(f.Order))

	rows, err := r.pool.Query(ctx, sql, q.args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (CustomerRow, error) {
		var c CustomerRow
		err := row.Scan(&c.CustomerID, &c.Name, &c.Email, &c.Phone, &c.Purchases, &c.TotalSpent, &c.TotalSaved, &c.LastPurchase)
		return c, err
	})
}

// Inventory returns products joined with their inventory rows.
func (r *Repository) Inventory(ctx context.Context, f InventoryFilter) ([]InventoryRow, error) {
	var q query
	q.where = append(q.where, "p.is_active")
	if f.DepartmentID > 0 {
		q.where = append(q.where, "p.department_id = "+q.arg(f.DepartmentID))
	}
	if f.MinPrice != nil {
		q.where = append(q.where, "p.price >= "+q.arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		q.where = append(q.where, "p.price <= "+q.arg(*f.MaxPrice))
	}
	q.where = append(q.where, stockClause(f.StockStatus, "i.quantity_available")...)
	sql := `
		SELECT p.product_id, p.name, COALESCE(d.name, ''), p.price, i.quantity_available, i.reorder_level, i.last_restock_date
		FROM products p
		JOIN inventory i ON i.product_id = p.product_id
		LEFT JOIN departments d ON d.department_id = p.department_id` + q.whereSQL() + `
		ORDER BY d.name, p.name`

	rows, err := r.pool.Query(ctx, sql, q.args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (InventoryRow, error) {
		var i InventoryRow
		err := row.Scan(&i.ProductID, &i.Name, &i.Department, &i.Price, &i.QuantityAvailable, &i.ReorderLevel, &i.LastRestockDate)
		return i, err
	})
}

// RevenueByDay returns completed revenue per day since from. Days are cut in
// from's time zone; days without sales are absent.
func (r *Repository) RevenueByDay(ctx context.Context, from time.Time) ([]TrendPoint, error) {
	rows, err := r.pool.Query(ctx, revenueByDaySQL, from, from.Location().String())
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TrendPoint, error) {
		var p TrendPoint
		err := row.Scan(&p.Date, &p.Revenue, &p.Orders)
		return p, err
	})
}

const revenueByDaySQL = `
		SELECT to_char(d, 'YYYY-MM-DD'), COALESCE(SUM(total_amount), 0), COUNT(*)
		FROM (
			SELECT (transaction_date AT TIME ZONE $2)::date AS d, total_amount
			FROM sales_transactions
			WHERE transaction_date >= $1
		) t
		GROUP BY d
		ORDER BY d`

// Departments lists departments for filter boxes.
func (r *Repository) Departments(ctx context.Context) ([]Option, error) {
	return r.options(ctx, `SELECT department_id, name FROM departments ORDER BY name`)
}

// EmployeeOptions lists employees for filter boxes.
func (r *Repository) EmployeeOptions(ctx context.Context) ([]Option, error) {
	return r.options(ctx, `SELECT employee_id, COALESCE(NULLIF(TRIM(name), ''), username) AS n FROM employees ORDER BY n`)
}

func (r *Repository) options(ctx context.Context, sql string) ([]Option, error) {
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Option, error) {
		var o Option
		err := row.Scan(&o.ID, &o.Name)
		return o, err
	})
}
