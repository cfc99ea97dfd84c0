package cart

import (
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
)

const DefaultImageURL = "/static/default_image.png"

var (
	ErrInvalidQuantity = apperr.New(apperr.KindValidation, "Quantity must be greater than zero")
	ErrItemNotFound    = apperr.New(apperr.KindNotFound, "Item not found in cart")
)

// Item is one cart line priced with the live catalog price.
type Item struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
	Stock       int             `json:"-"`
}

func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Cart struct {
	Items    []Item          `json:"cart_items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

func NewCart(items []Item) *Cart {
	c := &Cart{Items: items, Subtotal: decimal.Zero}
	for i := range c.Items {
		if c.Items[i].ImageURL == "" {
			c.Items[i].ImageURL = DefaultImageURL
		}
		c.Subtotal = c.Subtotal.Add(c.Items[i].LineTotal())
	}
	return c
}
