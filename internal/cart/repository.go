package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/db"
)

type Repository interface {
	// WithTx runs fn against a repository bound to one transaction.
	WithTx(ctx context.Context, fn func(repo Repository) error) error

	// LockProduct returns the product row locked for the rest of the transaction.
	LockProduct(ctx context.Context, productID uuid.UUID) (*catalog.Product, error)
	Quantity(ctx context.Context, userID, productID uuid.UUID) (int, bool, error)
	AddQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) error
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) error
	Delete(ctx context.Context, userID, productID uuid.UUID) error
	Items(ctx context.Context, userID uuid.UUID) ([]Item, error)
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

func (r *postgresRepository) LockProduct(ctx context.Context, productID uuid.UUID) (*catalog.Product, error) {
	var p catalog.Product
	err := r.q.QueryRow(ctx, `
		SELECT product_id, product_name, price, stock, category, COALESCE(image_url, '')
		FROM products WHERE product_id = $1
		FOR UPDATE`, productID,
	).Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Category, &p.ImageURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to lock product %s: %w", productID, err)
	}
	return &p, nil
}

func (r *postgresRepository) Quantity(ctx context.Context, userID, productID uuid.UUID) (int, bool, error) {
	var qty int
	err := r.q.QueryRow(ctx,
		`SELECT quantity FROM cart_items WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("repository: failed to select cart item: %w", err)
	}
	return qty, true, nil
}

// AddQuantity merges qty into the user's row for the product, creating it if
// needed.
func (r *postgresRepository) AddQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("repository: failed to generate cart item ID: %w", err)
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO cart_items (cart_item_id, user_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT cart_items_user_product_key
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		id, userID, productID, qty,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to upsert cart item: %w", err)
	}
	return nil
}

func (r *postgresRepository) SetQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) error {
	cmdTag, err := r.q.Exec(ctx,
		`UPDATE cart_items SET quantity = $1 WHERE user_id = $2 AND product_id = $3`,
		qty, userID, productID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update cart item: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Delete removes the row if present. A missing row is not an error here.
func (r *postgresRepository) Delete(ctx context.Context, userID, productID uuid.UUID) error {
	_, err := r.q.Exec(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to delete cart item: %w", err)
	}
	return nil
}

func (r *postgresRepository) Items(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	rows, err := r.q.Query(ctx, `
		SELECT p.product_id, p.product_name, p.price, c.quantity, p.category, COALESCE(p.image_url, ''), p.stock
		FROM cart_items c
		JOIN products p ON p.product_id = c.product_id
		WHERE c.user_id = $1
		ORDER BY p.product_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.ProductName, &it.Price, &it.Quantity, &it.Category, &it.ImageURL, &it.Stock); err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating cart: %w", err)
	}
	return items, nil
}
