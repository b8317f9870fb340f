package reports

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/freshmart/freshmart-pos/internal/money"
)

// Table is rendered by partials/report_table.html.
type Table struct {
	Headers []string
	Rows    [][]string
}

// SalesTable formats grouped sales.
func SalesTable(rows []SalesRow) Table {
	t := Table{Headers: []string{"Group", "Units Sold", "Gross Revenue"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.DimName, strconv.FormatInt(r.UnitsSold, 10), money.Format(r.GrossRevenue)})
	}
	return t
}

// ProductTable formats the product overview.
func ProductTable(rows []ProductRow) Table {
	t := Table{Headers: productHeaders}
	for _, r := range rows {
		t.Rows = append(t.Rows, productRecord(r, money.Format))
	}
	return t
}

var productHeaders = []string{
	"ID", "Product", "Department", "Barcode", "Price", "Sale Price", "On Sale",
	"Stock", "Reorder Level", "Last Restock", "Units Sold", "Revenue",
}

func productRecord(r ProductRow, amount func(decimal.Decimal) string) []string {
	sale := ""
	if r.SalePrice.Valid {
		sale = amount(r.SalePrice.Decimal)
	}
	onSale := "No"
	if r.OnSale {
		onSale = "Yes"
	}
	return []string{
		strconv.FormatInt(r.ProductID, 10),
		r.Name,
		r.Department,
		r.Barcode,
		amount(r.Price),
		sale,
		onSale,
		strconv.Itoa(r.QuantityInStock),
		strconv.Itoa(r.ReorderLevel),
		day(r.LastRestock),
		strconv.FormatInt(r.UnitsSold, 10),
		amount(r.Revenue),
	}
}

// EmployeeTable formats the employee report.
func EmployeeTable(rows []EmployeeRow) Table {
	t := Table{Headers: []string{"ID", "Name", "Job Title", "Department", "Hire Date", "Orders", "Units Sold", "Revenue"}}
	for _, r := range rows {
		name := r.Name
		if !r.IsActive {
			name += " (inactive)"
		}
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(r.EmployeeID, 10),
			name,
			r.JobTitle,
			r.Department,
			day(r.HireDate),
			strconv.FormatInt(r.Orders, 10),
			strconv.FormatInt(r.UnitsSold, 10),
			money.Format(r.Revenue),
		})
	}
	return t
}

// CustomerTable formats the customer report.
func CustomerTable(rows []CustomerRow) Table {
	t := Table{Headers: []string{"ID", "Name", "Email", "Phone", "Purchases", "Total Spent", "Total Saved", "Last Purchase"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(r.CustomerID, 10),
			r.Name,
			r.Email,
			r.Phone,
			strconv.FormatInt(r.Purchases, 10),
			money.Format(r.TotalSpent),
			money.Format(r.TotalSaved),
			day(r.LastPurchase),
		})
	}
	return t
}

func day(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
