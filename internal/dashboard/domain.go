package dashboard

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecentOrderLimit caps the orders shown on the customer dashboard.
const RecentOrderLimit = 5

// AdminStats backs GET /admin.
type AdminStats struct {
	AdminName       string
	TotalProducts   int64
	TotalCustomers  int64
	RevenueToday    decimal.Decimal
	OrdersToday     int64
	ActiveEmployees int64
	LowStock        int64
	OpenAlerts      int64
}

// EmployeeStats backs GET /employee.
type EmployeeStats struct {
	Name           string
	DepartmentName string
	OrdersToday    int64
	RevenueToday   decimal.Decimal
	LowStockCount  int64
}

// Customer is the profile shown on the customer dashboard.
type Customer struct {
	Name  string
	Email string
	Phone string
}

// RecentOrder is one row of the customer's order history.
type RecentOrder struct {
	TransactionID   int64
	TransactionDate time.Time
	ItemCount       int64
	TotalAmount     decimal.Decimal
	OrderStatus     string
}

// CustomerStats backs GET /customer.
type CustomerStats struct {
	Customer    Customer
	Orders      []RecentOrder
	TotalSaved  decimal.Decimal
	TotalOrders int64
}

// Sales is revenue and order count for a window.
type Sales struct {
	Revenue decimal.Decimal
	Orders  int64
}

// Employee is the signed-in employee's profile.
type Employee struct {
	Name           string
	DepartmentID   int64
	DepartmentName string
}
