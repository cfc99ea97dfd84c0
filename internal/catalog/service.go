package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
)

type Service interface {
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id uuid.UUID) (*Product, error)
	Search(ctx context.Context, term string) ([]Product, error)
	Create(ctx context.Context, p *Product) (*Product, error)
	Update(ctx context.Context, id uuid.UUID, upd ProductUpdate) (*Product, error)

	ListShowcase(ctx context.Context, includeRemoved bool) ([]ShowcaseImage, error)
	AddShowcaseImages(ctx context.Context, urls []string) (int, error)
	RemoveShowcaseImage(ctx context.Context, url string) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context) ([]Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list products")
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Str("product_id", id.String()).Msg("Failed to get product")
		return nil, fmt.Errorf("failed to get product by id '%s': %w", id, err)
	}
	return p, nil
}

// Search matches product names case-insensitively. An empty term lists
// everything.
func (s *service) Search(ctx context.Context, term string) ([]Product, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.List(ctx)
	}
	products, err := s.repo.Search(ctx, term)
	if err != nil {
		log.Error().Err(err).Str("term", term).Msg("Failed to search products")
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return products, nil
}

func (s *service) Create(ctx context.Context, p *Product) (*Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	id, err := s.repo.Create(ctx, p)
	if err != nil {
		if errors.Is(err, ErrProductNameTaken) {
			return nil, err
		}
		log.Error().Err(err).Str("product_name", p.Name).Msg("Failed to create product")
		return nil, fmt.Errorf("failed to save product: %w", err)
	}
	p.ID = id

	log.Info().Str("product_id", id.String()).Str("product_name", p.Name).Msg("Product created")
	return p, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, upd ProductUpdate) (*Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		p.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.Stock != nil {
		p.Stock = *upd.Stock
	}
	if upd.Category != nil {
		p.Category = strings.TrimSpace(*upd.Category)
	}
	if upd.ImageURL != nil {
		p.ImageURL = strings.TrimSpace(*upd.ImageURL)
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, ErrProductNameTaken) || errors.Is(err, ErrProductNotFound) {
			return nil, err
		}
		log.Error().Err(err).Str("product_id", id.String()).Msg("Failed to update product")
		return nil, fmt.Errorf("failed to update product by id '%s': %w", id, err)
	}
	return p, nil
}

func validateProduct(p *Product) error {
	var problems []string
	if p.Name == "" {
		problems = append(problems, "Product name is required.")
	}
	if p.Price.IsNegative() {
		problems = append(problems, "Price cannot be negative.")
	}
	if p.Stock < 0 {
		problems = append(problems, "Stock cannot be negative.")
	}
	if p.Category == "" {
		problems = append(problems, "Category is required.")
	}
	if len(problems) > 0 {
		return apperr.Invalid(problems...)
	}
	return nil
}

func (s *service) ListShowcase(ctx context.Context, includeRemoved bool) ([]ShowcaseImage, error) {
	images, err := s.repo.ListShowcase(ctx, includeRemoved)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list showcase images")
		return nil, fmt.Errorf("failed to list showcase images: %w", err)
	}
	return images, nil
}

// AddShowcaseImages stores the given urls, skipping blanks and known ones, and
// returns how many were new.
func (s *service) AddShowcaseImages(ctx context.Context, urls []string) (int, error) {
	added := 0
	for _, url := range urls {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		created, err := s.repo.AddShowcaseImage(ctx, url)
		if err != nil {
			log.Error().Err(err).Str("image_url", url).Msg("Failed to add showcase image")
			return added, fmt.Errorf("failed to add showcase image: %w", err)
		}
		if created {
			added++
		}
	}
	return added, nil
}

func (s *service) RemoveShowcaseImage(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return apperr.Invalid("No image URL provided")
	}
	if err := s.repo.MarkShowcaseRemoved(ctx, url); err != nil {
		if errors.Is(err, ErrImageNotFound) {
			return err
		}
		log.Error().Err(err).Str("image_url", url).Msg("Failed to remove showcase image")
		return fmt.Errorf("failed to remove showcase image: %w", err)
	}
	return nil
}
