package catalog

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
)

var (
	ErrProductNotFound  = apperr.New(apperr.KindNotFound, "Product not found")
	ErrProductNameTaken = apperr.New(apperr.KindConflict, "A product with this name already exists")
	ErrImageNotFound    = apperr.New(apperr.KindNotFound, "Image not found")
)

type Product struct {
	ID        uuid.UUID       `json:"product_id"`
	Name      string          `json:"product_name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Category  string          `json:"category"`
	ImageURL  string          `json:"image_url"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProductUpdate holds the fields an admin wants changed. Nil fields keep
// their stored value.
type ProductUpdate struct {
	Name     *string
	Price    *decimal.Decimal
	Stock    *int
	Category *string
	ImageURL *string
}

type ShowcaseImage struct {
	ID        uuid.UUID `json:"id"`
	ImageURL  string    `json:"image_url"`
	Removed   bool      `json:"removed"`
	CreatedAt time.Time `json:"created_at"`
}

// InsufficientStockError reports the first product that cannot cover a
// requested quantity.
type InsufficientStockError struct {
	Product string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s", e.Product)
}

func (e *InsufficientStockError) Kind() apperr.Kind { return apperr.KindInsufficientStock }
