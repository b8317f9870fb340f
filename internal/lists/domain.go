package lists

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/freshmart/freshmart-pos/internal/shared"
)

// DefaultListName is the list created on first access.
const DefaultListName = "My List"

// List is a named shopping list.
type List struct {
	ListID    int64
	Name      string
	IsDefault bool
	ItemCount int
	CreatedAt time.Time
}

// Item is a product saved on a list.
type Item struct {
	ProductID int64
	Name      string
	Price     decimal.Decimal
	Quantity  int
	AddedAt   time.Time
}

// NameInput is the payload for create and rename.
type NameInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

// ItemInput is the payload of POST /api/lists/{id}/items.
type ItemInput struct {
	ProductID int64 `json:"product_id" validate:"gt=0"`
	Quantity  int   `json:"quantity" validate:"gte=1"`
}

// QuantityInput is the payload of PATCH /api/lists/{id}/items/{pid}.
type QuantityInput struct {
	Quantity int `json:"quantity"`
}

var (
	// ErrNameRequired is returned for a blank list name.
	ErrNameRequired = shared.Validation("List name is required")
	// ErrListNotFound is returned when the list does not belong to the owner.
	ErrListNotFound = shared.NotFound("List not found")
	// ErrItemNotFound is returned when the product is not on the list.
	ErrItemNotFound = shared.NotFound("Item not found")
	// ErrDefaultList is returned when deleting the default list.
	ErrDefaultList = shared.Conflict("The default list cannot be deleted")
	// ErrInvalidItem is returned for a missing product or a quantity below one.
	ErrInvalidItem = shared.Validation("Invalid product or quantity")
)
