package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/freshmart/freshmart-pos/internal/shared"
)

// DefaultReorderLevel is the inventory reorder level given to new products.
const DefaultReorderLevel = 10

// Department groups products.
type Department struct {
	ID   int64  `json:"department_id"`
	Name string `json:"name"`
}

// DepartmentSummary is one row of the department overview.
type DepartmentSummary struct {
	ID           int64
	Name         string
	ProductCount int
	UnitsInStock int
}

// Product is a sellable catalog item.
type Product struct {
	ID              int64               `json:"product_id"`
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	Price           decimal.Decimal     `json:"price"`
	SalePrice       decimal.NullDecimal `json:"sale_price"`
	OnSale          bool                `json:"on_sale"`
	Barcode         string              `json:"barcode"`
	QuantityInStock int                 `json:"quantity_in_stock"`
	DepartmentID    *int64              `json:"department_id"`
	DepartmentName  string              `json:"department_name,omitempty"`
	ImageURL        string              `json:"image_url,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// EffectivePrice is the sale price while the product is on sale.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.OnSale && p.SalePrice.Valid {
		return p.SalePrice.Decimal
	}
	return p.Price
}

// ProductFilter narrows ListProducts.
type ProductFilter struct {
	DepartmentID int64
	Query        string
	OnSale       *bool
}

// NewProductInput is the payload of POST /add.
type NewProductInput struct {
	Name            string          `json:"name" validate:"required,max=100"`
	Description     string          `json:"description" validate:"max=1000"`
	Price           decimal.Decimal `json:"price"`
	Barcode         string          `json:"barcode" validate:"required,max=50"`
	QuantityInStock int             `json:"quantity_in_stock" validate:"gte=0"`
	DepartmentID    int64           `json:"department_id" validate:"required,gt=0"`
	ImageURL        string          `json:"image_url" validate:"omitempty,url,max=500"`
}

// UpdateProductInput is the payload of PATCH /products/{id}; nil fields are left alone.
type UpdateProductInput struct {
	Name         *string          `json:"name" validate:"omitempty,min=1,max=100"`
	Description  *string          `json:"description" validate:"omitempty,max=1000"`
	Price        *decimal.Decimal `json:"price"`
	DepartmentID *int64           `json:"department_id" validate:"omitempty,gt=0"`
	ImageURL     *string          `json:"image_url" validate:"omitempty,max=500"`
}

func (in UpdateProductInput) empty() bool {
	return in.Name == nil && in.Description == nil && in.Price == nil && in.DepartmentID == nil && in.ImageURL == nil
}

var (
	// ErrProductNotFound is returned for missing or inactive products.
	ErrProductNotFound = shared.NotFound("Product not found")
	// ErrBarcodeTaken is returned when another product uses the barcode.
	ErrBarcodeTaken = shared.Conflict("Barcode already exists")
	// ErrUnknownDepartment is returned when department_id matches no department.
	ErrUnknownDepartment = shared.Validation("Unknown department")
	// ErrInvalidPrice is returned for zero or negative prices.
	ErrInvalidPrice = shared.Validation("Price must be greater than zero")
	// ErrNothingToUpdate is returned by an empty PATCH.
	ErrNothingToUpdate = shared.Validation("No fields to update")
)
