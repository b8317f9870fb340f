package bag

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/freshmart/freshmart-pos/internal/shared"
)

// Item is one bag line. Price is the effective unit price.
type Item struct {
	BagID     int64
	ProductID int64
	Name      string
	Price     decimal.Decimal
	Quantity  int
	AddedAt   time.Time
}

// AddInput is the payload of POST /api/bag.
type AddInput struct {
	ProductID int64 `json:"product_id" validate:"gt=0"`
	Quantity  int   `json:"quantity" validate:"gte=1"`
}

// UpdateInput is the payload of PATCH /api/bag/{bag_id}.
type UpdateInput struct {
	Quantity int `json:"quantity"`
}

// AddResult reports whether POST /api/bag inserted or merged.
type AddResult struct {
	Merged bool
}

var (
	// ErrInvalidProduct is returned for a missing or inactive product or a quantity below one.
	ErrInvalidProduct = shared.Validation("Invalid product or quantity")
	// ErrItemNotFound is returned when the bag line does not belong to the owner.
	ErrItemNotFound = shared.NotFound("Item not found")
)
