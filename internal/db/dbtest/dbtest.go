// Package dbtest connects integration tests to the PostgreSQL database named
// by STOREFRONT_TEST_DATABASE_URL. Tests are skipped when it is unset.
package dbtest

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/db"
)

const EnvDatabaseURL = "STOREFRONT_TEST_DATABASE_URL"

var (
	once    sync.Once
	pool    *pgxpool.Pool
	openErr error
)

// Pool returns a shared pool with migrations applied.
func Pool(tb testing.TB) *pgxpool.Pool {
	tb.Helper()

	url := os.Getenv(EnvDatabaseURL)
	if url == "" {
		tb.Skipf("%s is not set, skipping database test", EnvDatabaseURL)
	}

	once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cfg, err := pgxpool.ParseConfig(url)
		if err != nil {
			openErr = err
			return
		}
		cfg.MaxConns = 10

		pool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			openErr = err
			return
		}
		if err = pool.Ping(ctx); err != nil {
			openErr = err
			return
		}
		openErr = db.ApplyMigrations(pool)
		if openErr == nil {
			log.Info().Msg("Test Database connection established.")
		}
	})
	if openErr != nil {
		tb.Fatalf("failed to open test database: %v", openErr)
	}
	return pool
}

// User inserts a customer row and returns its id.
func User(tb testing.TB, p *pgxpool.Pool, username string) uuid.UUID {
	tb.Helper()

	id := uuid.Must(uuid.NewV4())
	_, err := p.Exec(context.Background(), `
		INSERT INTO users (user_id, first_name, last_name, email, username, password_hash, role)
		VALUES ($1, 'Test', 'User', $2, $3, 'x', 'user')`,
		id, id.String()+"@example.com", username+"-"+id.String()[:8])
	if err != nil {
		tb.Fatalf("failed to insert test user: %v", err)
	}
	return id
}

// Product inserts a product row and returns its id.
func Product(tb testing.TB, p *pgxpool.Pool, price string, stock int) uuid.UUID {
	tb.Helper()

	id := uuid.Must(uuid.NewV4())
	_, err := p.Exec(context.Background(), `
		INSERT INTO products (product_id, product_name, price, stock, category)
		VALUES ($1, $2, $3::numeric, $4, 'Meals')`,
		id, "Product "+id.String(), price, stock)
	if err != nil {
		tb.Fatalf("failed to insert test product: %v", err)
	}
	return id
}
