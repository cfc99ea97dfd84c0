package checkout

import (
	"slices"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Method string

const (
	MethodCashOnDelivery Method = "Cash on Delivery"
	MethodEWallet        Method = "E-Wallet"
	MethodCard           Method = "Card"
)

var (
	EWalletProviders = []string{"GCASH", "MAYA"}
	CardProviders    = []string{"BDO", "BPI", "MetroBank"}
)

func (m Method) Valid() bool {
	return m == MethodCashOnDelivery || m == MethodEWallet || m == MethodCard
}

func (m Method) String() string {
	return string(m)
}

type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusPaid      PaymentStatus = "paid"
	StatusFailed    PaymentStatus = "failed"
	StatusCancelled PaymentStatus = "cancelled"
	StatusRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) String() string {
	return string(s)
}

var allowedTransitions = map[PaymentStatus]map[PaymentStatus]bool{
	StatusPending: {
		StatusPaid:      true,
		StatusFailed:    true,
		StatusCancelled: true,
	},
	StatusPaid: {
		StatusRefunded: true,
	},
	StatusFailed:    {},
	StatusCancelled: {},
	StatusRefunded:  {},
}

type Payment struct {
	ID              uuid.UUID       `json:"payment_id"`
	UserID          uuid.UUID       `json:"user_id"`
	OrderID         uuid.NullUUID   `json:"order_id"`
	Amount          decimal.Decimal `json:"amount"`
	Method          Method          `json:"payment_method"`
	EWalletProvider string          `json:"e_wallet_provider,omitempty"`
	CardProvider    string          `json:"card_provider,omitempty"`
	TransactionID   string          `json:"transaction_id"`
	Status          PaymentStatus   `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Line is one cart row priced at the current catalog price.
type Line struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Category    string          `json:"category"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"price"`
	Stock       int             `json:"-"`
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Summary struct {
	Items    []SummaryLine   `json:"cart_items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type SummaryLine struct {
	Line
	LineTotal decimal.Decimal `json:"line_total"`
}

func summarize(lines []Line) *Summary {
	s := &Summary{Items: make([]SummaryLine, 0, len(lines)), Subtotal: decimal.Zero}
	for _, l := range lines {
		total := l.Total()
		s.Items = append(s.Items, SummaryLine{Line: l, LineTotal: total})
		s.Subtotal = s.Subtotal.Add(total)
	}
	return s
}

type ShippingInfo struct {
	ID           uuid.UUID `json:"shipping_id"`
	UserID       uuid.UUID `json:"user_id"`
	PaymentID    uuid.UUID `json:"payment_id"`
	FullName     string    `json:"full_name"`
	AddressLine1 string    `json:"address_line1"`
	AddressLine2 string    `json:"address_line2,omitempty"`
	City         string    `json:"city"`
	Province     string    `json:"province,omitempty"`
	PostalCode   string    `json:"postal_code"`
	PhoneNumber  string    `json:"phone_number"`
	CreatedAt    time.Time `json:"created_at"`
}

// Sale is the immutable ledger record of one purchased line.
type Sale struct {
	ID          uuid.UUID       `json:"sale_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	UserID      uuid.UUID       `json:"user_id"`
	Username    string          `json:"username"`
	PaymentID   uuid.UUID       `json:"payment_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Order is the buyer-facing record of a Sale.
type Order struct {
	ID          uuid.UUID       `json:"order_id"`
	UserID      uuid.UUID       `json:"user_id"`
	SaleID      uuid.UUID       `json:"sale_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Card holds saved card details. CVV is never stored.
type Card struct {
	ID             uuid.UUID `json:"-"`
	UserID         uuid.UUID `json:"-"`
	Number         string    `json:"card_number"`
	HolderName     string    `json:"card_holder_name"`
	ExpirationDate string    `json:"expiration_date"`
	CreatedAt      time.Time `json:"-"`
}

type CardInput struct {
	Number         string
	HolderName     string
	ExpirationDate string
	CVV            string
}

type PaymentRequest struct {
	Method   Method
	Provider string
}

type CompleteRequest struct {
	PaymentID uuid.NullUUID
	Method    Method
	Shipping  ShippingInfo
}

type Receipt struct {
	PaymentID  uuid.UUID       `json:"payment_id"`
	ShippingID uuid.UUID       `json:"shipping_id"`
	Orders     []Order         `json:"orders"`
	Total      decimal.Decimal `json:"total"`
	State      State           `json:"state"`
}

func validProvider(m Method, provider string) bool {
	switch m {
	case MethodEWallet:
		return slices.Contains(EWalletProviders, provider)
	case MethodCard:
		return slices.Contains(CardProviders, provider)
	default:
		return provider == ""
	}
}
