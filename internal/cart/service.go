package cart

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
)

type Service interface {
	AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) error
	UpdateItem(ctx context.Context, userID, productID uuid.UUID, qty int) (decimal.Decimal, error)
	GetCart(ctx context.Context, userID uuid.UUID) (*Cart, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	err := s.repo.WithTx(ctx, func(repo Repository) error {
		product, err := repo.LockProduct(ctx, productID)
		if err != nil {
			return err
		}

		existing, _, err := repo.Quantity(ctx, userID, productID)
		if err != nil {
			return err
		}
		if existing+qty > product.Stock {
			return &catalog.InsufficientStockError{Product: product.Name}
		}

		return repo.AddQuantity(ctx, userID, productID, qty)
	})
	if err != nil {
		return s.classify(err, "add item to cart", userID)
	}

	log.Debug().Str("user_id", userID.String()).Str("product_id", productID.String()).Int("quantity", qty).Msg("Item added to cart")
	return nil
}

// UpdateItem sets the quantity of an existing line. A quantity of zero or
// less removes the line. It returns the recomputed subtotal.
func (s *service) UpdateItem(ctx context.Context, userID, productID uuid.UUID, qty int) (decimal.Decimal, error) {
	var subtotal decimal.Decimal
	err := s.repo.WithTx(ctx, func(repo Repository) error {
		_, found, err := repo.Quantity(ctx, userID, productID)
		if err != nil {
			return err
		}
		if !found {
			return ErrItemNotFound
		}

		if qty <= 0 {
			if err := repo.Delete(ctx, userID, productID); err != nil {
				return err
			}
		} else {
			product, err := repo.LockProduct(ctx, productID)
			if err != nil {
				return err
			}
			if qty > product.Stock {
				return &catalog.InsufficientStockError{Product: product.Name}
			}
			if err := repo.SetQuantity(ctx, userID, productID, qty); err != nil {
				return err
			}
		}

		items, err := repo.Items(ctx, userID)
		if err != nil {
			return err
		}
		subtotal = NewCart(items).Subtotal
		return nil
	})
	if err != nil {
		return decimal.Zero, s.classify(err, "update cart", userID)
	}
	return subtotal, nil
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	items, err := s.repo.Items(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to load cart")
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return NewCart(items), nil
}

// classify passes domain errors through and wraps everything else.
func (s *service) classify(err error, op string, userID uuid.UUID) error {
	if apperr.KindOf(err) != apperr.KindInternal {
		return err
	}
	log.Error().Err(err).Str("user_id", userID.String()).Msgf("Failed to %s", op)
	return fmt.Errorf("failed to %s: %w", op, err)
}
