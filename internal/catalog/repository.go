package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/storefront/internal/db"
)

type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	Search(ctx context.Context, term string) ([]Product, error)
	Create(ctx context.Context, p *Product) (uuid.UUID, error)
	Update(ctx context.Context, p *Product) error

	ListShowcase(ctx context.Context, includeRemoved bool) ([]ShowcaseImage, error)
	AddShowcaseImage(ctx context.Context, url string) (bool, error)
	MarkShowcaseRemoved(ctx context.Context, url string) error
}

type postgresRepository struct {
	db db.Querier
}

func NewRepository(q db.Querier) Repository {
	return &postgresRepository{db: q}
}

const productColumns = `product_id, product_name, price, stock, category, COALESCE(image_url, ''), created_at, updated_at`

func (r *postgresRepository) List(ctx context.Context) ([]Product, error) {
	return r.queryProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY product_name`)
}

func (r *postgresRepository) Search(ctx context.Context, term string) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products
		WHERE strpos(lower(product_name), lower($1)) > 0
		ORDER BY product_name`
	return r.queryProducts(ctx, query, term)
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE product_id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product %s: %w", id, err)
	}
	return p, nil
}

func (r *postgresRepository) Create(ctx context.Context, p *Product) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to generate product ID: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.db.Exec(ctx, `
		INSERT INTO products (product_id, product_name, price, stock, category, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		id, p.Name, p.Price, p.Stock, p.Category, p.ImageURL, now,
	)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return uuid.Nil, ErrProductNameTaken
		}
		return uuid.Nil, fmt.Errorf("repository: failed to insert product: %w", err)
	}

	p.CreatedAt = now
	p.UpdatedAt = now
	return id, nil
}

func (r *postgresRepository) Update(ctx context.Context, p *Product) error {
	now := time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE products
		SET product_name = $1, price = $2, stock = $3, category = $4, image_url = $5, updated_at = $6
		WHERE product_id = $7`,
		p.Name, p.Price, p.Stock, p.Category, p.ImageURL, now, p.ID,
	)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return ErrProductNameTaken
		}
		return fmt.Errorf("repository: failed to update product %s: %w", p.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	p.UpdatedAt = now
	return nil
}

func (r *postgresRepository) queryProducts(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating products: %w", err)
	}
	return products, nil
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Category, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepository) ListShowcase(ctx context.Context, includeRemoved bool) ([]ShowcaseImage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT showcase_image_id, image_url, removed, created_at
		FROM showcase_images
		WHERE $1 OR NOT removed
		ORDER BY created_at`, includeRemoved)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query showcase images: %w", err)
	}
	defer rows.Close()

	images := make([]ShowcaseImage, 0)
	for rows.Next() {
		var img ShowcaseImage
		if err := rows.Scan(&img.ID, &img.ImageURL, &img.Removed, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan showcase image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating showcase images: %w", err)
	}
	return images, nil
}

// AddShowcaseImage reports whether a new row was written. Known urls are left
// untouched.
func (r *postgresRepository) AddShowcaseImage(ctx context.Context, url string) (bool, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return false, fmt.Errorf("repository: failed to generate image ID: %w", err)
	}
	cmdTag, err := r.db.Exec(ctx, `
		INSERT INTO showcase_images (showcase_image_id, image_url)
		VALUES ($1, $2)
		ON CONFLICT ON CONSTRAINT showcase_images_image_url_key DO NOTHING`, id, url)
	if err != nil {
		return false, fmt.Errorf("repository: failed to insert showcase image: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

func (r *postgresRepository) MarkShowcaseRemoved(ctx context.Context, url string) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE showcase_images SET removed = TRUE WHERE image_url = $1`, url)
	if err != nil {
		return fmt.Errorf("repository: failed to remove showcase image: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrImageNotFound
	}
	return nil
}
