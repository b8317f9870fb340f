package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/freshmart/freshmart-pos/internal/shared"
)

// DefaultReorderLevel seeds inventory rows created on demand.
const DefaultReorderLevel = 10

// MaxSalePercent caps holiday markdowns.
var MaxSalePercent = decimal.NewFromInt(90)

// LowStockItem is an active product at or below its reorder level.
type LowStockItem struct {
	ProductID       int64
	Name            string
	QuantityInStock int
	ReorderLevel    int
}

// Level is the locked stock state of one product.
type Level struct {
	ProductID       int64
	QuantityInStock int
	ReorderLevel    int
}

// Alert is a reorder alert row.
type Alert struct {
	AlertID         int64
	ProductID       int64
	ProductName     string
	QuantityAtAlert int
	ReorderLevel    int
	CreatedAt       time.Time
	ResolvedAt      *time.Time
}

// UpdateStockInput is the payload of POST /update_stock.
type UpdateStockInput struct {
	ProductID int64 `json:"product_id" validate:"gt=0"`
	NewStock  *int  `json:"new_stock" validate:"required,gte=0"`
}

// RestockInput is the payload of POST /restock.
type RestockInput struct {
	ProductID int64 `json:"product_id" validate:"gt=0"`
	Quantity  int   `json:"quantity" validate:"gte=1"`
}

// SaleInput is the payload of POST /apply_sales.
type SaleInput struct {
	Percent      decimal.Decimal `json:"percent"`
	DepartmentID *int64          `json:"department_id"`
}

// EndSaleInput is the payload of POST /end_sales.
type EndSaleInput struct {
	DepartmentID *int64 `json:"department_id"`
}

// StockResult reports the outcome of a stock change.
type StockResult struct {
	ProductID     int64 `json:"product_id"`
	Stock         int   `json:"stock"`
	AlertRaised   bool  `json:"alert_raised"`
	AlertsCleared int   `json:"alerts_resolved"`
}

var (
	// ErrProductNotFound is returned for unknown products.
	ErrProductNotFound = shared.NotFound("Product not found")
	// ErrNegativeStock is returned when the new stock is below zero.
	ErrNegativeStock = shared.Validation("Stock cannot be negative")
	// ErrInvalidRestock is returned for a restock quantity below one.
	ErrInvalidRestock = shared.Validation("Restock quantity must be at least 1")
	// ErrInvalidPercent is returned when the markdown is outside (0, 90].
	ErrInvalidPercent = shared.Validation("Percent must be greater than 0 and at most 90")
	// ErrAlertNotFound is returned for unknown or already resolved alerts.
	ErrAlertNotFound = shared.NotFound("Alert not found")
)
