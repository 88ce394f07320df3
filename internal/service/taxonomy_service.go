package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/slug"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// TaxonomyService manages categories and brands. Both get their slugs from
// the same allocator as products, each against their own namespace.
type TaxonomyService interface {
	CreateCategory(ctx context.Context, name string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	CategoryBySlug(ctx context.Context, slug string) (*domain.Category, error)
	CreateBrand(ctx context.Context, name string) (*domain.Brand, error)
	DeleteBrand(ctx context.Context, id uuid.UUID) error
	ListBrands(ctx context.Context) ([]*domain.Brand, error)
	BrandBySlug(ctx context.Context, slug string) (*domain.Brand, error)
}

type taxonomyService struct {
	categoryRepo repository.CategoryRepository
	brandRepo    repository.BrandRepository
	logger       *zap.Logger
}

// NewTaxonomyService creates a new instance of TaxonomyService
func NewTaxonomyService(
	categoryRepo repository.CategoryRepository,
	brandRepo repository.BrandRepository,
	logger *zap.Logger,
) TaxonomyService {
	return &taxonomyService{
		categoryRepo: categoryRepo,
		brandRepo:    brandRepo,
		logger:       logger,
	}
}

func (s *taxonomyService) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	category := &domain.Category{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Now(),
	}

	allocator := slug.Allocator{IsTaken: s.categoryRepo.SlugExists}
	err := commitTaxonomy(ctx, allocator, name, func(allocated string) error {
		category.Slug = allocated
		return s.categoryRepo.Create(ctx, category)
	})
	if err != nil {
		return nil, err
	}

	return category, nil
}

func (s *taxonomyService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.categoryRepo.Delete(ctx, id)
}

func (s *taxonomyService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categoryRepo.List(ctx)
}

func (s *taxonomyService) CategoryBySlug(ctx context.Context, slugValue string) (*domain.Category, error) {
	return s.categoryRepo.FindBySlug(ctx, slugValue)
}

func (s *taxonomyService) CreateBrand(ctx context.Context, name string) (*domain.Brand, error) {
	brand := &domain.Brand{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Now(),
	}

	allocator := slug.Allocator{IsTaken: s.brandRepo.SlugExists}
	err := commitTaxonomy(ctx, allocator, name, func(allocated string) error {
		brand.Slug = allocated
		return s.brandRepo.Create(ctx, brand)
	})
	if err != nil {
		return nil, err
	}

	return brand, nil
}

func (s *taxonomyService) DeleteBrand(ctx context.Context, id uuid.UUID) error {
	return s.brandRepo.Delete(ctx, id)
}

func (s *taxonomyService) ListBrands(ctx context.Context) ([]*domain.Brand, error) {
	return s.brandRepo.List(ctx)
}

func (s *taxonomyService) BrandBySlug(ctx context.Context, slugValue string) (*domain.Brand, error) {
	return s.brandRepo.FindBySlug(ctx, slugValue)
}

// commitTaxonomy allocates a slug and commits, re-probing on commit-time
// slug collisions the same way product saves do.
func commitTaxonomy(ctx context.Context, allocator slug.Allocator, name string, save func(allocated string) error) error {
	backoff := retry.WithMaxRetries(slugCommitRetries, retry.NewConstant(10*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		allocated, err := allocator.Allocate(ctx, name, "")
		if err != nil {
			return err
		}
		if err := save(allocated); err != nil {
			if errors.Is(err, repository.ErrSlugTaken) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save taxonomy entry: %w", err)
	}
	return nil
}
