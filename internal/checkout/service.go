package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
)

const transactionTimeLayout = "20060102150405"

// Transaction id prefixes. Payments recorded ahead of the order use
// PrefixRecorded; cash on delivery payments created while completing an order
// use PrefixCashOnDelivery.
const (
	PrefixRecorded       = "TXN"
	PrefixCashOnDelivery = "COD"
)

type Service interface {
	InitiateCheckout(ctx context.Context, userID uuid.UUID) (*Summary, error)
	RecordPayment(ctx context.Context, userID uuid.UUID, req PaymentRequest) (*Payment, error)
	CompleteOrder(ctx context.Context, userID uuid.UUID, req CompleteRequest) (*Receipt, error)

	SaveCard(ctx context.Context, userID uuid.UUID, in CardInput) (*Card, error)
	GetSavedCard(ctx context.Context, userID uuid.UUID) (*Card, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]Order, error)
	UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, status PaymentStatus) error
}

type Option func(*service)

// WithClock replaces the time source used for transaction ids and card
// expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository, opts ...Option) Service {
	s := &service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) InitiateCheckout(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	lines, err := s.repo.CartLines(ctx, userID, false)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to read cart for checkout")
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	newAttempt(userID)
	return summarize(lines), nil
}

func validatePayment(req *PaymentRequest) error {
	if !req.Method.Valid() {
		return ErrInvalidPaymentMethod
	}
	req.Provider = strings.TrimSpace(req.Provider)
	if !validProvider(req.Method, req.Provider) {
		return ErrInvalidProvider
	}
	return nil
}

func (s *service) newPayment(userID uuid.UUID, req PaymentRequest, amount decimal.Decimal, prefix string) *Payment {
	p := &Payment{
		UserID:        userID,
		Amount:        amount,
		Method:        req.Method,
		Status:        StatusPending,
		TransactionID: TransactionID(prefix, s.now(), userID),
	}
	switch req.Method {
	case MethodEWallet:
		p.EWalletProvider = req.Provider
	case MethodCard:
		p.CardProvider = req.Provider
	}
	return p
}

// TransactionID formats the payment reference for a prefix, time and user.
func TransactionID(prefix string, at time.Time, userID uuid.UUID) string {
	return fmt.Sprintf("%s_%s_%s", prefix, at.UTC().Format(transactionTimeLayout), userID)
}

func (s *service) RecordPayment(ctx context.Context, userID uuid.UUID, req PaymentRequest) (*Payment, error) {
	if err := validatePayment(&req); err != nil {
		return nil, err
	}

	lines, err := s.repo.CartLines(ctx, userID, false)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to read cart for payment")
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	p := s.newPayment(userID, req, summarize(lines).Subtotal, PrefixRecorded)
	id, err := s.repo.CreatePayment(ctx, p)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindInternal {
			return nil, err
		}
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to record payment")
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}
	p.ID = id

	log.Info().
		Stringer("user_id", userID).
		Stringer("payment_id", id).
		Str("transaction_id", p.TransactionID).
		Msg("Payment recorded")
	return p, nil
}

// CompleteOrder turns the cart into ledger records in one transaction. Stock
// is decremented, one Sale and one Order are written per line, the shipping
// address is stored against the payment and the cart is cleared. Any failure
// leaves every table as it was.
func (s *service) CompleteOrder(ctx context.Context, userID uuid.UUID, req CompleteRequest) (*Receipt, error) {
	a := &attempt{userID: userID, state: StateCartReviewed}

	if req.Method == "" {
		req.Method = MethodCashOnDelivery
	}
	if err := validateShipping(&req.Shipping); err != nil {
		a.fail(err)
		return nil, err
	}

	var receipt *Receipt
	err := s.repo.WithTx(ctx, func(repo Repository) error {
		paymentID, err := s.resolvePayment(ctx, repo, userID, req)
		if err != nil {
			return err
		}
		a.advance(StatePaymentRecorded)

		lines, err := repo.CartLines(ctx, userID, true)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}
		for _, l := range lines {
			if l.Stock < l.Quantity {
				return &catalog.InsufficientStockError{Product: l.ProductName}
			}
		}

		username, err := repo.Username(ctx, userID)
		if err != nil {
			return err
		}

		r := &Receipt{PaymentID: paymentID, Orders: make([]Order, 0, len(lines)), Total: decimal.Zero}
		for _, l := range lines {
			ok, err := repo.DecrementStock(ctx, l.ProductID, l.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return &catalog.InsufficientStockError{Product: l.ProductName}
			}

			total := l.Total()
			sale := &Sale{
				ProductID:   l.ProductID,
				UserID:      userID,
				Username:    username,
				PaymentID:   paymentID,
				ProductName: l.ProductName,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
				TotalPrice:  total,
			}
			if sale.ID, err = repo.CreateSale(ctx, sale); err != nil {
				return err
			}

			order := &Order{
				UserID:      userID,
				SaleID:      sale.ID,
				ProductName: l.ProductName,
				Price:       total,
				Category:    l.Category,
			}
			if order.ID, err = repo.CreateOrder(ctx, order); err != nil {
				return err
			}
			r.Orders = append(r.Orders, *order)
			r.Total = r.Total.Add(total)
		}

		if err := repo.LinkPaymentOrder(ctx, paymentID, r.Orders[0].ID); err != nil {
			return err
		}

		shipping := req.Shipping
		shipping.UserID = userID
		shipping.PaymentID = paymentID
		if r.ShippingID, err = repo.CreateShipping(ctx, &shipping); err != nil {
			return err
		}

		if err := repo.ClearCart(ctx, userID); err != nil {
			return err
		}

		receipt = r
		return nil
	})
	if err != nil {
		a.fail(err)
		if apperr.KindOf(err) != apperr.KindInternal {
			return nil, err
		}
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to complete order")
		return nil, fmt.Errorf("failed to complete order: %w", err)
	}

	a.advance(StateOrderCommitted)
	receipt.State = a.state
	log.Info().
		Stringer("user_id", userID).
		Stringer("payment_id", receipt.PaymentID).
		Int("orders", len(receipt.Orders)).
		Str("total", receipt.Total.StringFixed(2)).
		Msg("Order completed")
	return receipt, nil
}

// resolvePayment returns the payment the order is settled against. Cash on
// delivery orders without a prior payment get one created inline with amount
// zero.
func (s *service) resolvePayment(ctx context.Context, repo Repository, userID uuid.UUID, req CompleteRequest) (uuid.UUID, error) {
	if req.PaymentID.Valid {
		p, err := repo.GetPayment(ctx, req.PaymentID.UUID)
		if err != nil {
			return uuid.Nil, err
		}
		if p.UserID != userID {
			return uuid.Nil, ErrPaymentNotFound
		}
		return p.ID, nil
	}

	if req.Method != MethodCashOnDelivery {
		if !req.Method.Valid() {
			return uuid.Nil, ErrInvalidPaymentMethod
		}
		return uuid.Nil, ErrPaymentRequired
	}

	p := s.newPayment(userID, PaymentRequest{Method: MethodCashOnDelivery}, decimal.Zero, PrefixCashOnDelivery)
	return repo.CreatePayment(ctx, p)
}

func validateShipping(info *ShippingInfo) error {
	info.FullName = strings.TrimSpace(info.FullName)
	info.AddressLine1 = strings.TrimSpace(info.AddressLine1)
	info.AddressLine2 = strings.TrimSpace(info.AddressLine2)
	info.City = strings.TrimSpace(info.City)
	info.Province = strings.TrimSpace(info.Province)
	info.PostalCode = strings.TrimSpace(info.PostalCode)
	info.PhoneNumber = strings.TrimSpace(info.PhoneNumber)

	if info.FullName == "" || info.AddressLine1 == "" || info.City == "" ||
		info.PostalCode == "" || info.PhoneNumber == "" {
		return apperr.Invalid("Missing required shipping information")
	}
	return nil
}

func (s *service) SaveCard(ctx context.Context, userID uuid.UUID, in CardInput) (*Card, error) {
	number := strings.ReplaceAll(strings.TrimSpace(in.Number), " ", "")
	holder := strings.TrimSpace(in.HolderName)
	expiration := strings.TrimSpace(in.ExpirationDate)
	cvv := strings.TrimSpace(in.CVV)

	if number == "" || holder == "" || expiration == "" || cvv == "" {
		return nil, apperr.Invalid("Missing required card details")
	}

	var problems []string
	if !digits(number) || len(number) < 12 || len(number) > 19 {
		problems = append(problems, "Card number must be 12 to 19 digits.")
	}
	if !digits(cvv) || len(cvv) < 3 || len(cvv) > 4 {
		problems = append(problems, "CVV must be 3 or 4 digits.")
	}
	if expired, err := cardExpired(expiration, s.now()); err != nil {
		problems = append(problems, "Expiration date must be in MM/YYYY format.")
	} else if expired {
		problems = append(problems, "Card is expired.")
	}
	if len(problems) > 0 {
		return nil, apperr.Invalid(problems...)
	}

	card := &Card{UserID: userID, Number: number, HolderName: holder, ExpirationDate: expiration}
	id, err := s.repo.SaveCard(ctx, card)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to save card details")
		return nil, fmt.Errorf("failed to save card details: %w", err)
	}
	card.ID = id
	card.Number = MaskCardNumber(card.Number)
	return card, nil
}

// cardExpired reports whether a MM/YYYY card is past its last valid month.
func cardExpired(expiration string, now time.Time) (bool, error) {
	month, year, ok := strings.Cut(expiration, "/")
	if !ok || len(month) != 2 || len(year) != 4 {
		return false, errors.New("invalid expiration format")
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return false, errors.New("invalid expiration month")
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return false, errors.New("invalid expiration year")
	}
	firstInvalid := time.Date(y, time.Month(m)+1, 1, 0, 0, 0, 0, time.UTC)
	return !now.UTC().Before(firstInvalid), nil
}

func (s *service) GetSavedCard(ctx context.Context, userID uuid.UUID) (*Card, error) {
	card, err := s.repo.LatestCard(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrCardNotFound) {
			return nil, ErrCardNotFound
		}
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to load saved card")
		return nil, fmt.Errorf("failed to load saved card: %w", err)
	}
	card.Number = MaskCardNumber(card.Number)
	return card, nil
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	orders, err := s.repo.ListOrders(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to fetch user orders")
		return nil, fmt.Errorf("failed to fetch user orders: %w", err)
	}
	return orders, nil
}

func (s *service) UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, status PaymentStatus) error {
	if _, known := allowedTransitions[status]; !known {
		return ErrInvalidStatus
	}

	return s.repo.WithTx(ctx, func(repo Repository) error {
		current, err := repo.GetPayment(ctx, paymentID)
		if err != nil {
			if errors.Is(err, ErrPaymentNotFound) {
				return ErrPaymentNotFound
			}
			log.Error().Err(err).Stringer("payment_id", paymentID).Msg("Failed to get payment for status update")
			return fmt.Errorf("failed to get payment for status update: %w", err)
		}

		if current.Status == status {
			log.Info().Stringer("payment_id", paymentID).Stringer("status", status).Msg("Payment status is already the same, no update needed")
			return nil
		}
		if !allowedTransitions[current.Status][status] {
			log.Warn().
				Stringer("payment_id", paymentID).
				Stringer("current_status", current.Status).
				Stringer("new_status", status).
				Msg("Invalid payment status transition attempt")
			return ErrInvalidStatusTransition
		}

		if err := repo.UpdatePaymentStatus(ctx, paymentID, status); err != nil {
			if errors.Is(err, ErrPaymentNotFound) {
				return err
			}
			return fmt.Errorf("failed to update payment status: %w", err)
		}

		log.Info().
			Stringer("payment_id", paymentID).
			Stringer("old_status", current.Status).
			Stringer("new_status", status).
			Msg("Payment status updated")
		return nil
	})
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
