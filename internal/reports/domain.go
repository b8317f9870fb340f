package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// GroupBy selects the dimension of the sales query.
type GroupBy string

// Supported groupings.
const (
	GroupByProduct    GroupBy = "product"
	GroupByDepartment GroupBy = "department"
	GroupByEmployee   GroupBy = "employee"
)

// ParseGroupBy falls back to product for unknown values.
func ParseGroupBy(v string) GroupBy {
	switch g := GroupBy(v); g {
	case GroupByDepartment, GroupByEmployee:
		return g
	}
	return GroupByProduct
}

// Stock filters shared by product and inventory reports.
const (
	StockLow = "low"
	StockOut = "out"
	StockIn  = "in"
)

// SalesQuery scopes POST /reports/query.
type SalesQuery struct {
	From         time.Time
	To           time.Time
	GroupBy      GroupBy
	DepartmentID *int64
	EmployeeID   *int64
	MinUnits     int
}

// SalesRow is one grouped result.
type SalesRow struct {
	DimID        int64
	DimName      string
	UnitsSold    int64
	GrossRevenue decimal.Decimal
}

// ProductFilter scopes the product overview.
type ProductFilter struct {
	DepartmentIDs []int64
	Name          string
	StockStatus   string
	OnSaleOnly    bool
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	MinQty        *int
	MaxQty        *int
	RestockFrom   *time.Time
	RestockTo     *time.Time
	SortColumn    string
	SortDirection string
}

// ProductRow is one line of the product overview.
type ProductRow struct {
	ProductID       int64
	Name            string
	Department      string
	Barcode         string
	Price           decimal.Decimal
	SalePrice       decimal.NullDecimal
	OnSale          bool
	QuantityInStock int
	ReorderLevel    int
	LastRestock     *time.Time
	UnitsSold       int64
	Revenue         decimal.Decimal
}

// KPIEntry is one product in a KPI list. For low stock, Sales carries the
// quantity on hand.
type KPIEntry struct {
	Name    string `json:"name"`
	Sales   int64  `json:"sales"`
	Qty     *int   `json:"qty,omitempty"`
	Reorder *int   `json:"reorder,omitempty"`
}

// ProductKPIs is the payload of GET /api/product_kpis.
type ProductKPIs struct {
	TopSold    []KPIEntry `json:"top_sold"`
	SlowMoving []KPIEntry `json:"slow_moving"`
	LowStock   []KPIEntry `json:"low_stock"`
}

// EmployeeFilter scopes the employee report.
type EmployeeFilter struct {
	DepartmentIDs []int64
	Name          string
	JobTitle      string
	HireFrom      *time.Time
	HireTo        *time.Time
	MinRevenue    *decimal.Decimal
	MaxRevenue    *decimal.Decimal
	Sort          string
	Order         string
}

// EmployeeRow is one employee with sales totals.
type EmployeeRow struct {
	EmployeeID int64
	Name       string
	JobTitle   string
	Department string
	HireDate   *time.Time
	IsActive   bool
	Orders     int64
	UnitsSold  int64
	Revenue    decimal.Decimal
}

// CustomerFilter scopes the customer report.
type CustomerFilter struct {
	Name         string
	Email        string
	From         *time.Time
	To           *time.Time
	MinSpent     *decimal.Decimal
	MaxSpent     *decimal.Decimal
	MinPurchases *int
	MaxPurchases *int
	Sort         string
	Order        string
}

// CustomerRow is one customer with purchase totals.
type CustomerRow struct {
	CustomerID   int64
	Name         string
	Email        string
	Phone        string
	Purchases    int64
	TotalSpent   decimal.Decimal
	TotalSaved   decimal.Decimal
	LastPurchase *time.Time
}

// InventoryFilter scopes the admin inventory report.
type InventoryFilter struct {
	DepartmentID int64
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	StockStatus  string
}

// InventoryRow is one product with its inventory record.
type InventoryRow struct {
	ProductID         int64
	Name              string
	Department        string
	Price             decimal.Decimal
	QuantityAvailable int
	ReorderLevel      int
	LastRestockDate   time.Time
}

// TrendPoint is one day of revenue.
type TrendPoint struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int64           `json:"orders"`
}

// Option is a select box entry.
type Option struct {
	ID   int64
	Name string
}
