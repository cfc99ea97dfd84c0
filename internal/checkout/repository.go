package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/storefront/internal/db"
)

type Repository interface {
	// WithTx runs fn against a repository bound to one transaction. Any error
	// returned by fn rolls back every write made through that repository.
	WithTx(ctx context.Context, fn func(repo Repository) error) error

	// CartLines returns the user's cart priced with current product rows. With
	// lock set the product rows stay locked until the transaction ends.
	CartLines(ctx context.Context, userID uuid.UUID, lock bool) ([]Line, error)
	Username(ctx context.Context, userID uuid.UUID) (string, error)

	CreatePayment(ctx context.Context, p *Payment) (uuid.UUID, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error)
	LinkPaymentOrder(ctx context.Context, paymentID, orderID uuid.UUID) error
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error

	// DecrementStock reports false when stock no longer covers qty.
	DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	CreateSale(ctx context.Context, s *Sale) (uuid.UUID, error)
	CreateOrder(ctx context.Context, o *Order) (uuid.UUID, error)
	CreateShipping(ctx context.Context, s *ShippingInfo) (uuid.UUID, error)
	ClearCart(ctx context.Context, userID uuid.UUID) error

	SaveCard(ctx context.Context, c *Card) (uuid.UUID, error)
	LatestCard(ctx context.Context, userID uuid.UUID) (*Card, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]Order, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
	q    db.Querier
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool, q: pool}
}

func (r *postgresRepository) WithTx(ctx context.Context, fn func(repo Repository) error) error {
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&postgresRepository{q: tx})
	})
}

func (r *postgresRepository) CartLines(ctx context.Context, userID uuid.UUID, lock bool) ([]Line, error) {
	query := `
		SELECT p.product_id, p.product_name, p.category, c.quantity, p.price, p.stock
		FROM cart_items c
		JOIN products p ON p.product_id = c.product_id
		WHERE c.user_id = $1
		ORDER BY p.product_id`
	if lock {
		query += ` FOR UPDATE OF p`
	}

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart lines: %w", err)
	}
	defer rows.Close()

	lines := make([]Line, 0)
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.Category, &l.Quantity, &l.UnitPrice, &l.Stock); err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating cart lines: %w", err)
	}
	return lines, nil
}

func (r *postgresRepository) Username(ctx context.Context, userID uuid.UUID) (string, error) {
	var username string
	err := r.q.QueryRow(ctx, `SELECT username FROM users WHERE user_id = $1`, userID).Scan(&username)
	if err != nil {
		return "", fmt.Errorf("repository: failed to select username for %s: %w", userID, err)
	}
	return username, nil
}

func (r *postgresRepository) CreatePayment(ctx context.Context, p *Payment) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to generate payment ID: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.q.Exec(ctx, `
		INSERT INTO payments (payment_id, user_id, amount, payment_method, e_wallet_provider, card_provider,
		                      transaction_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		id, p.UserID, p.Amount, string(p.Method), nullable(p.EWalletProvider), nullable(p.CardProvider),
		p.TransactionID, string(p.Status), now,
	)
	if err != nil {
		if constraint, ok := db.UniqueViolation(err); ok && constraint == "payments_transaction_id_key" {
			return uuid.Nil, ErrDuplicateTransaction
		}
		if _, ok := db.CheckViolation(err); ok {
			return uuid.Nil, ErrInvalidProvider
		}
		return uuid.Nil, fmt.Errorf("repository: failed to insert payment: %w", err)
	}

	p.CreatedAt = now
	return id, nil
}

func (r *postgresRepository) GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error) {
	var (
		p                 Payment
		method, status    string
		eWallet, cardProv *string
	)
	err := r.q.QueryRow(ctx, `
		SELECT payment_id, user_id, order_id, amount, payment_method, e_wallet_provider, card_provider,
		       transaction_id, status, created_at
		FROM payments WHERE payment_id = $1`, id,
	).Scan(&p.ID, &p.UserID, &p.OrderID, &p.Amount, &method, &eWallet, &cardProv, &p.TransactionID, &status, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("repository: failed to select payment %s: %w", id, err)
	}

	p.Method = Method(method)
	p.Status = PaymentStatus(status)
	if eWallet != nil {
		p.EWalletProvider = *eWallet
	}
	if cardProv != nil {
		p.CardProvider = *cardProv
	}
	return &p, nil
}

func (r *postgresRepository) LinkPaymentOrder(ctx context.Context, paymentID, orderID uuid.UUID) error {
	cmdTag, err := r.q.Exec(ctx,
		`UPDATE payments SET order_id = $1, updated_at = $2 WHERE payment_id = $3 AND order_id IS NULL`,
		orderID, time.Now().UTC(), paymentID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to link payment %s to order: %w", paymentID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *postgresRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error {
	cmdTag, err := r.q.Exec(ctx,
		`UPDATE payments SET status = $1, updated_at = $2 WHERE payment_id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update payment status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *postgresRepository) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	cmdTag, err := r.q.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = NOW()
		WHERE product_id = $1 AND stock >= $2`,
		productID, qty,
	)
	if err != nil {
		return false, fmt.Errorf("repository: failed to decrement stock for %s: %w", productID, err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

func (r *postgresRepository) CreateSale(ctx context.Context, s *Sale) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to generate sale ID: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.q.Exec(ctx, `
		INSERT INTO sales (sale_id, product_id, user_id, username, payment_id, product_name, quantity,
		                   unit_price, total_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, s.ProductID, s.UserID, s.Username, s.PaymentID, s.ProductName, s.Quantity,
		s.UnitPrice, s.TotalPrice, now,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to insert sale: %w", err)
	}

	s.CreatedAt = now
	return id, nil
}

func (r *postgresRepository) CreateOrder(ctx context.Context, o *Order) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to generate order ID: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.q.Exec(ctx, `
		INSERT INTO orders (order_id, user_id, sale_id, product_name, price, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, o.UserID, o.SaleID, o.ProductName, o.Price, o.Category, now,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to insert order: %w", err)
	}

	o.CreatedAt = now
	return id, nil
}

func (r *postgresRepository) CreateShipping(ctx context.Context, s *ShippingInfo) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to generate shipping ID: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.q.Exec(ctx, `
		INSERT INTO user_shipping_info (shipping_id, user_id, payment_id, full_name, address_line1, address_line2,
		                                city, province, postal_code, phone_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, s.UserID, s.PaymentID, s.FullName, s.AddressLine1, nullable(s.AddressLine2),
		s.City, nullable(s.Province), s.PostalCode, nullable(s.PhoneNumber), now,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to insert shipping info: %w", err)
	}

	s.CreatedAt = now
	return id, nil
}

func (r *postgresRepository) ClearCart(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("repository: failed to clear cart: %w", err)
	}
	return nil
}

func (r *postgresRepository) SaveCard(ctx context.Context, c *Card) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to generate card ID: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.q.Exec(ctx, `
		INSERT INTO card_details (card_id, user_id, card_number, card_holder_name, expiration_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, c.UserID, c.Number, c.HolderName, c.ExpirationDate, now,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to insert card details: %w", err)
	}

	c.CreatedAt = now
	return id, nil
}

func (r *postgresRepository) LatestCard(ctx context.Context, userID uuid.UUID) (*Card, error) {
	var c Card
	err := r.q.QueryRow(ctx, `
		SELECT card_id, user_id, card_number, card_holder_name, expiration_date, created_at
		FROM card_details
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, userID,
	).Scan(&c.ID, &c.UserID, &c.Number, &c.HolderName, &c.ExpirationDate, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("repository: failed to select card details: %w", err)
	}
	return &c, nil
}

func (r *postgresRepository) ListOrders(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	rows, err := r.q.Query(ctx, `
		SELECT order_id, user_id, sale_id, product_name, price, category, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.SaleID, &o.ProductName, &o.Price, &o.Category, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating orders: %w", err)
	}
	return orders, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
