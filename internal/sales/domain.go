package sales

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/freshmart/freshmart-pos/internal/shared"
)

// Payment methods accepted at checkout.
const (
	PaymentCard   = "Card"
	PaymentCash   = "Cash"
	PaymentMobile = "Mobile"
)

// PaymentMethods lists the accepted payment methods in display order.
var PaymentMethods = []string{PaymentCard, PaymentCash, PaymentMobile}

// StatusCompleted is the order status of a successful checkout.
const StatusCompleted = "Completed"

// CheckoutInput is the payload of POST /checkout.
type CheckoutInput struct {
	PaymentMethod   string `json:"payment_method" validate:"omitempty,oneof=Card Cash Mobile"`
	ShippingAddress string `json:"shipping_address" validate:"max=255"`
	IdempotencyKey  string `json:"-"`
}

// CheckoutResult is returned after commit.
type CheckoutResult struct {
	TransactionID int64           `json:"transaction_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	OrderDiscount decimal.Decimal `json:"order_discount"`
	AlertsRaised  int             `json:"-"`
}

// BagLine is a bag row read inside the checkout transaction.
type BagLine struct {
	ProductID int64
	Quantity  int
}

// StockRow is a locked product with its inventory row.
type StockRow struct {
	ProductID         int64
	Name              string
	Price             decimal.Decimal
	SalePrice         decimal.NullDecimal
	OnSale            bool
	IsActive          bool
	QuantityInStock   int
	QuantityAvailable int
	ReorderLevel      int
	HasInventory      bool
}

// UnitPrice is the price charged per unit.
func (s StockRow) UnitPrice() decimal.Decimal {
	if s.OnSale && s.SalePrice.Valid {
		return s.SalePrice.Decimal
	}
	return s.Price
}

// Header is the sales_transactions row written by checkout.
type Header struct {
	CustomerID      *int64
	EmployeeID      *int64
	TransactionDate time.Time
	TotalAmount     decimal.Decimal
	PaymentMethod   string
	OrderStatus     string
	OrderDiscount   decimal.Decimal
	ShippingAddress string
}

// Line is a transaction_details row.
type Line struct {
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
	Discount  decimal.Decimal
	Subtotal  decimal.Decimal
}

// InsufficientStockError reports the first product that cannot be fulfilled.
type InsufficientStockError struct {
	ProductID int64
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for product %d (available %d)", e.ProductID, e.Available)
}

// Is lets callers match with errors.Is(err, shared.ErrConflict).
func (e *InsufficientStockError) Is(target error) bool {
	return target == shared.ErrConflict
}

// OrderSummary is one row of a customer's order history.
type OrderSummary struct {
	TransactionID   int64
	TransactionDate time.Time
	ItemCount       int
	TotalAmount     decimal.Decimal
	OrderDiscount   decimal.Decimal
	OrderStatus     string
}

// ReceiptHeader describes the transaction on a receipt.
type ReceiptHeader struct {
	TransactionID   int64
	TransactionDate time.Time
	CustomerID      *int64 `json:"-"`
	CustomerName    string
	CustomerEmail   string `json:"-"`
	PaymentMethod   string
	OrderStatus     string
	ShippingAddress string
}

// ReceiptItem is a receipt line.
type ReceiptItem struct {
	ProductName  string
	Quantity     int
	Price        decimal.Decimal
	Discount     decimal.Decimal
	Subtotal     decimal.Decimal
	EmployeeName string
}

// ReceiptTotals aggregates the receipt lines.
type ReceiptTotals struct {
	TotalUnits    int             `json:"total_units"`
	TotalItems    int             `json:"total_items"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	SubtotalSum   decimal.Decimal `json:"subtotal_sum"`
}

// Receipt is the full receipt payload.
type Receipt struct {
	Header ReceiptHeader `json:"header"`
	Items  []ReceiptItem `json:"items"`
	Totals ReceiptTotals `json:"totals"`
}

// Summarize computes totals from the items.
func (r *Receipt) Summarize() {
	t := ReceiptTotals{TotalDiscount: decimal.Zero, SubtotalSum: decimal.Zero}
	for _, it := range r.Items {
		t.TotalItems++
		t.TotalUnits += it.Quantity
		t.TotalDiscount = t.TotalDiscount.Add(it.Discount)
		t.SubtotalSum = t.SubtotalSum.Add(it.Subtotal)
	}
	r.Totals = t
}

// TransactionFilter drives GET /transactions.
type TransactionFilter struct {
	Employee      string
	PaymentMethod string
	SortBy        string
	Order         string
	Limit         int
}

// TransactionRow is one row of the transactions list.
type TransactionRow struct {
	TransactionID   int64
	TransactionDate time.Time
	CustomerName    string
	EmployeeName    string
	PaymentMethod   string
	TotalAmount     decimal.Decimal
}

var (
	// ErrEmptyBag is returned when checking out an empty bag.
	ErrEmptyBag = shared.Validation("Bag is empty")
	// ErrOrderNotFound is returned for missing or foreign orders.
	ErrOrderNotFound = shared.NotFound("Order not found")
	// ErrInvalidPayment is returned for unknown payment methods.
	ErrInvalidPayment = shared.Validation("Invalid payment method")
)
