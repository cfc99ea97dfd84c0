package report

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// NotAvailable stands in for values a sale has no record of.
const NotAvailable = "N/A"

const topLimit = 10

// SaleRow is a sale joined with its payment, the buyer's latest card and the
// shipping details it was delivered to.
type SaleRow struct {
	SaleID           uuid.UUID       `json:"sale_id"`
	Username         string          `json:"username"`
	ProductID        uuid.UUID       `json:"product_id"`
	ProductName      string          `json:"product_name"`
	Quantity         int             `json:"quantity"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	CreatedAt        string          `json:"created_at"`
	PaymentMethod    string          `json:"payment_method"`
	CardNumber       string          `json:"card_number"`
	CardHolderName   string          `json:"card_holder_name"`
	ExpirationDate   string          `json:"expiration_date"`
	ShippingFullName string          `json:"shipping_full_name"`
	AddressLine1     string          `json:"address_line1"`
	AddressLine2     string          `json:"address_line2"`
	City             string          `json:"city"`
	Province         string          `json:"province"`
	PostalCode       string          `json:"postal_code"`
	PhoneNumber      string          `json:"phone_number"`
}

type BuyerCount struct {
	Username string `json:"username" db:"username"`
	Count    int    `json:"count" db:"count"`
}

type ItemCount struct {
	ProductName string `json:"product_name" db:"product_name"`
	Count       int    `json:"count" db:"count"`
}

type Spending struct {
	Username   string          `json:"username" db:"username"`
	TotalSpent decimal.Decimal `json:"total_spent" db:"total_spent"`
}

type GenderCount struct {
	Gender string `db:"gender"`
	Count  int    `db:"count"`
}

type CategoryCount struct {
	Category string `db:"category"`
	Count    int    `db:"count"`
}

type Analytics struct {
	GenderPercentage map[string]float64 `json:"gender_percentage"`
	FrequentBuyers   []BuyerCount       `json:"frequent_buyers"`
	FrequentItems    []ItemCount        `json:"frequent_items"`
	SpendingStats    []Spending         `json:"spending_stats"`
	CategoryData     map[string]int     `json:"category_data"`
}

type Customer struct {
	ID        uuid.UUID `json:"user_id" db:"user_id"`
	Username  string    `json:"username" db:"username"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Email     string    `json:"email" db:"email"`
	Gender    string    `json:"gender" db:"gender"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type PaymentRecord struct {
	ID            uuid.UUID       `json:"payment_id" db:"payment_id"`
	UserID        uuid.UUID       `json:"user_id" db:"user_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Method        string          `json:"payment_method" db:"payment_method"`
	TransactionID string          `json:"transaction_id" db:"transaction_id"`
	Status        string          `json:"status" db:"status"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

type ShippingRecord struct {
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	FullName     string    `json:"full_name" db:"full_name"`
	AddressLine1 string    `json:"address_line1" db:"address_line1"`
	AddressLine2 string    `json:"address_line2" db:"address_line2"`
	City         string    `json:"city" db:"city"`
	Province     string    `json:"province" db:"province"`
	PostalCode   string    `json:"postal_code" db:"postal_code"`
	PhoneNumber  string    `json:"phone_number" db:"phone_number"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type SaleRecord struct {
	ID          uuid.UUID       `json:"sale_id" db:"sale_id"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	ProductName string          `json:"product_name" db:"product_name"`
	Quantity    int             `json:"quantity" db:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price" db:"total_price"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// UserInfo is one customer's purchasing history as shown on the admin user
// overview.
type UserInfo struct {
	User       Customer         `json:"user"`
	Payments   []PaymentRecord  `json:"payments"`
	TotalSpent decimal.Decimal  `json:"total_spent"`
	Shipping   []ShippingRecord `json:"shipping_info"`
	Sales      []SaleRecord     `json:"sales_info"`
}
