package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const createdAtLayout = "2006-01-02 15:04:05"

// Repository reads the sales ledger. Card numbers come back unmasked.
type Repository interface {
	SalesBetween(ctx context.Context, start, end time.Time) ([]SaleRow, error)

	CountUsers(ctx context.Context) (int, error)
	GenderCounts(ctx context.Context) ([]GenderCount, error)
	TopBuyers(ctx context.Context, limit int) ([]BuyerCount, error)
	TopItems(ctx context.Context, limit int) ([]ItemCount, error)
	TopSpenders(ctx context.Context, limit int) ([]Spending, error)
	CategoryCounts(ctx context.Context) ([]CategoryCount, error)

	Customers(ctx context.Context) ([]Customer, error)
	Payments(ctx context.Context) ([]PaymentRecord, error)
	Shipping(ctx context.Context) ([]ShippingRecord, error)
	Sales(ctx context.Context) ([]SaleRecord, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{db: sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx")}
}

type saleRow struct {
	SaleID           uuid.UUID       `db:"sale_id"`
	Username         string          `db:"username"`
	ProductID        uuid.UUID       `db:"product_id"`
	ProductName      string          `db:"product_name"`
	Quantity         int             `db:"quantity"`
	TotalPrice       decimal.Decimal `db:"total_price"`
	CreatedAt        time.Time       `db:"created_at"`
	PaymentMethod    sql.NullString  `db:"payment_method"`
	CardNumber       sql.NullString  `db:"card_number"`
	CardHolderName   sql.NullString  `db:"card_holder_name"`
	ExpirationDate   sql.NullString  `db:"expiration_date"`
	ShippingFullName sql.NullString  `db:"shipping_full_name"`
	AddressLine1     sql.NullString  `db:"address_line1"`
	AddressLine2     sql.NullString  `db:"address_line2"`
	City             sql.NullString  `db:"city"`
	Province         sql.NullString  `db:"province"`
	PostalCode       sql.NullString  `db:"postal_code"`
	PhoneNumber      sql.NullString  `db:"phone_number"`
}

func (r saleRow) toSaleRow() SaleRow {
	return SaleRow{
		SaleID:           r.SaleID,
		Username:         r.Username,
		ProductID:        r.ProductID,
		ProductName:      r.ProductName,
		Quantity:         r.Quantity,
		TotalPrice:       r.TotalPrice,
		CreatedAt:        r.CreatedAt.UTC().Format(createdAtLayout),
		PaymentMethod:    orNA(r.PaymentMethod),
		CardNumber:       orNA(r.CardNumber),
		CardHolderName:   orNA(r.CardHolderName),
		ExpirationDate:   orNA(r.ExpirationDate),
		ShippingFullName: orNA(r.ShippingFullName),
		AddressLine1:     orNA(r.AddressLine1),
		AddressLine2:     orNA(r.AddressLine2),
		City:             orNA(r.City),
		Province:         orNA(r.Province),
		PostalCode:       orNA(r.PostalCode),
		PhoneNumber:      orNA(r.PhoneNumber),
	}
}

func orNA(s sql.NullString) string {
	if !s.Valid || s.String == "" {
		return NotAvailable
	}
	return s.String
}

func (r *postgresRepository) SalesBetween(ctx context.Context, start, end time.Time) ([]SaleRow, error) {
	query := `
		SELECT s.sale_id, s.username, s.product_id, s.product_name, s.quantity, s.total_price, s.created_at,
		       p.payment_method,
		       cd.card_number, cd.card_holder_name, cd.expiration_date,
		       sh.full_name AS shipping_full_name, sh.address_line1, sh.address_line2,
		       sh.city, sh.province, sh.postal_code, sh.phone_number
		FROM sales s
		LEFT JOIN payments p ON p.payment_id = s.payment_id
		LEFT JOIN LATERAL (
			SELECT card_number, card_holder_name, expiration_date
			FROM card_details
			WHERE user_id = s.user_id
			ORDER BY created_at DESC
			LIMIT 1
		) cd ON TRUE
		LEFT JOIN LATERAL (
			SELECT full_name, address_line1, address_line2, city, province, postal_code, phone_number
			FROM user_shipping_info
			WHERE payment_id = s.payment_id
			ORDER BY created_at DESC
			LIMIT 1
		) sh ON TRUE
		WHERE s.created_at >= $1 AND s.created_at < $2
		ORDER BY s.created_at DESC, s.sale_id`

	var rows []saleRow
	if err := r.db.SelectContext(ctx, &rows, query, start, end); err != nil {
		return nil, fmt.Errorf("repository: failed to query sales: %w", err)
	}

	sales := make([]SaleRow, 0, len(rows))
	for _, row := range rows {
		sales = append(sales, row.toSaleRow())
	}
	return sales, nil
}

func (r *postgresRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("repository: failed to count users: %w", err)
	}
	return n, nil
}

func (r *postgresRepository) GenderCounts(ctx context.Context) ([]GenderCount, error) {
	query := `
		SELECT COALESCE(gender, 'Unspecified') AS gender, COUNT(*) AS count
		FROM users
		GROUP BY 1`

	counts := make([]GenderCount, 0)
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("repository: failed to count genders: %w", err)
	}
	return counts, nil
}

func (r *postgresRepository) TopBuyers(ctx context.Context, limit int) ([]BuyerCount, error) {
	query := `
		SELECT username, COUNT(sale_id) AS count
		FROM sales
		GROUP BY username
		ORDER BY count DESC, username
		LIMIT $1`

	buyers := make([]BuyerCount, 0)
	if err := r.db.SelectContext(ctx, &buyers, query, limit); err != nil {
		return nil, fmt.Errorf("repository: failed to query top buyers: %w", err)
	}
	return buyers, nil
}

func (r *postgresRepository) TopItems(ctx context.Context, limit int) ([]ItemCount, error) {
	query := `
		SELECT p.product_name, COUNT(s.sale_id) AS count
		FROM sales s
		JOIN products p ON p.product_id = s.product_id
		GROUP BY p.product_name
		ORDER BY count DESC, p.product_name
		LIMIT $1`

	items := make([]ItemCount, 0)
	if err := r.db.SelectContext(ctx, &items, query, limit); err != nil {
		return nil, fmt.Errorf("repository: failed to query top items: %w", err)
	}
	return items, nil
}

func (r *postgresRepository) TopSpenders(ctx context.Context, limit int) ([]Spending, error) {
	query := `
		SELECT username, SUM(total_price) AS total_spent
		FROM sales
		GROUP BY username
		ORDER BY total_spent DESC, username
		LIMIT $1`

	spenders := make([]Spending, 0)
	if err := r.db.SelectContext(ctx, &spenders, query, limit); err != nil {
		return nil, fmt.Errorf("repository: failed to query top spenders: %w", err)
	}
	return spenders, nil
}

func (r *postgresRepository) CategoryCounts(ctx context.Context) ([]CategoryCount, error) {
	query := `
		SELECT p.category, COUNT(s.sale_id) AS count
		FROM sales s
		JOIN products p ON p.product_id = s.product_id
		GROUP BY p.category`

	counts := make([]CategoryCount, 0)
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("repository: failed to count categories: %w", err)
	}
	return counts, nil
}

func (r *postgresRepository) Customers(ctx context.Context) ([]Customer, error) {
	query := `
		SELECT user_id, username, first_name, last_name, email,
		       COALESCE(gender, '') AS gender, role, created_at
		FROM users
		ORDER BY username`

	customers := make([]Customer, 0)
	if err := r.db.SelectContext(ctx, &customers, query); err != nil {
		return nil, fmt.Errorf("repository: failed to query users: %w", err)
	}
	return customers, nil
}

func (r *postgresRepository) Payments(ctx context.Context) ([]PaymentRecord, error) {
	query := `
		SELECT payment_id, user_id, amount, payment_method, transaction_id, status, created_at
		FROM payments
		ORDER BY created_at DESC`

	payments := make([]PaymentRecord, 0)
	if err := r.db.SelectContext(ctx, &payments, query); err != nil {
		return nil, fmt.Errorf("repository: failed to query payments: %w", err)
	}
	return payments, nil
}

func (r *postgresRepository) Shipping(ctx context.Context) ([]ShippingRecord, error) {
	query := `
		SELECT user_id, full_name, address_line1, COALESCE(address_line2, '') AS address_line2,
		       city, COALESCE(province, '') AS province, postal_code,
		       COALESCE(phone_number, '') AS phone_number, created_at
		FROM user_shipping_info
		ORDER BY created_at DESC`

	shipping := make([]ShippingRecord, 0)
	if err := r.db.SelectContext(ctx, &shipping, query); err != nil {
		return nil, fmt.Errorf("repository: failed to query shipping info: %w", err)
	}
	return shipping, nil
}

func (r *postgresRepository) Sales(ctx context.Context) ([]SaleRecord, error) {
	query := `
		SELECT sale_id, user_id, product_name, quantity, total_price, created_at
		FROM sales
		ORDER BY created_at DESC`

	sales := make([]SaleRecord, 0)
	if err := r.db.SelectContext(ctx, &sales, query); err != nil {
		return nil, fmt.Errorf("repository: failed to query sales: %w", err)
	}
	return sales, nil
}
