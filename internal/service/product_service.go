package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/assets"
	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/slug"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// slugCommitRetries bounds recovery from commit-time slug collisions. Each
// attempt re-probes against the now-committed rows, so a handful of retries
// is enough even under heavy contention on one base name.
const slugCommitRetries = 8

// ResolutionStatus is the outcome of resolving an (id, slug) pair.
type ResolutionStatus int

const (
	// ResolutionNotFound: no product with the id exists.
	ResolutionNotFound ResolutionStatus = iota
	// ResolutionCanonical: the requested slug is the product's current slug.
	ResolutionCanonical
	// ResolutionRedirect: the id exists but the slug is stale or unknown;
	// the caller should permanently redirect to the canonical pair. The id
	// is authoritative, the slug advisory.
	ResolutionRedirect
)

// Resolution carries the resolved product. For redirects only the canonical
// identity (id, slug) may be exposed to the client, never product content.
type Resolution struct {
	Status  ResolutionStatus
	Product *domain.Product
}

// ProductInput is the persistence payload for creating or updating a product.
type ProductInput struct {
	Name        string
	Slug        string // optional; allocated from Name when empty
	Description string
	Price       int64
	Inventory   int
	CategoryID  *uuid.UUID
	BrandID     *uuid.UUID
	IsSpecial   bool
	ImageData   []byte // optional raw image bytes
	ImageExt    string // file extension for ImageData, e.g. "jpg"
}

// ProductService owns the product save pipeline (slug allocation, slug
// history, image handling) and slug resolution.
type ProductService interface {
	Create(ctx context.Context, input ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Resolve(ctx context.Context, id uuid.UUID, requestedSlug string) (*Resolution, error)
	Related(ctx context.Context, product *domain.Product) ([]domain.ProductSummary, error)
	ImageURL(product *domain.Product) *string
}

// relatedLimit caps the related-products strip on the detail page.
const relatedLimit = 6

type productService struct {
	productRepo repository.ProductRepository
	assetStore  assets.Store
	normalizer  *assets.Normalizer
	logger      *zap.Logger
}

// NewProductService creates a new instance of ProductService
func NewProductService(
	productRepo repository.ProductRepository,
	assetStore assets.Store,
	normalizer *assets.Normalizer,
	logger *zap.Logger,
) ProductService {
	return &productService{
		productRepo: productRepo,
		assetStore:  assetStore,
		normalizer:  normalizer,
		logger:      logger,
	}
}

// allocator builds a slug allocator backed by the product store's current
// slugs. The check is advisory; the unique constraint decides at commit.
func (s *productService) allocator() slug.Allocator {
	return slug.Allocator{IsTaken: s.productRepo.SlugExists}
}

// Create persists a new product, allocating a collision-free slug and
// running the image pipeline once the record has an identity.
func (s *productService) Create(ctx context.Context, input ProductInput) (*domain.Product, error) {
	now := time.Now()
	product := &domain.Product{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Inventory:   input.Inventory,
		CategoryID:  input.CategoryID,
		BrandID:     input.BrandID,
		IsSpecial:   input.IsSpecial,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	imageKey := s.imageKey(product.ID, input)
	product.ImageRef = imageKey

	slugSource := input.Slug
	if slugSource == "" {
		slugSource = input.Name
	}

	err := s.commitWithSlug(ctx, product, slugSource, "", s.productRepo.Create)
	if err != nil {
		return nil, err
	}

	s.storeImage(ctx, imageKey, input.ImageData)
	return product, nil
}

// Update persists changes to an existing product. Whenever the persisted
// slug differs from the previous persisted slug, a history entry for the
// old value is committed in the same transaction as the rename, and a
// changed image replaces the prior asset.
func (s *productService) Update(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	existing, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Capture the prior asset before anything is committed.
	priorSlug := existing.Slug
	priorImage := existing.ImageRef

	product := &domain.Product{
		ID:          existing.ID,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Inventory:   input.Inventory,
		CategoryID:  input.CategoryID,
		BrandID:     input.BrandID,
		IsSpecial:   input.IsSpecial,
		ImageRef:    existing.ImageRef,
		CreatedAt:   existing.CreatedAt,
		UpdatedAt:   time.Now(),
	}

	imageKey := s.imageKey(product.ID, input)
	if imageKey != nil {
		product.ImageRef = imageKey
	}

	slugSource := input.Slug
	if slugSource == "" {
		slugSource = input.Name
	}

	save := func(ctx context.Context, p *domain.Product) error {
		var superseded *domain.SlugHistoryEntry
		if p.Slug != priorSlug {
			superseded = &domain.SlugHistoryEntry{
				ID:           uuid.New(),
				ProductID:    p.ID,
				OldSlug:      priorSlug,
				SupersededAt: time.Now(),
			}
		}
		return s.productRepo.Update(ctx, p, superseded)
	}
	if err := s.commitWithSlug(ctx, product, slugSource, priorSlug, save); err != nil {
		return nil, err
	}

	// The record is durable; everything below is best-effort asset work.
	if priorImage != nil && imageKey != nil && *priorImage != *imageKey {
		if err := s.assetStore.Delete(ctx, *priorImage); err != nil && !errors.Is(err, assets.ErrAssetNotFound) {
			// An orphaned old asset is acceptable; a failed save is not.
			s.logger.Warn("Failed to delete replaced image",
				zap.String("key", *priorImage), zap.Error(err))
		}
	}

	s.storeImage(ctx, imageKey, input.ImageData)
	return product, nil
}

// commitWithSlug allocates a slug for product and commits via save,
// re-probing when the uniqueness constraint rejects the candidate. The
// existence pre-check alone is not trusted under concurrency.
func (s *productService) commitWithSlug(
	ctx context.Context,
	product *domain.Product,
	slugSource, ownPrior string,
	save func(context.Context, *domain.Product) error,
) error {
	backoff := retry.WithMaxRetries(slugCommitRetries, retry.NewConstant(10*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		allocated, err := s.allocator().Allocate(ctx, slugSource, ownPrior)
		if err != nil {
			return err
		}
		product.Slug = allocated

		if err := save(ctx, product); err != nil {
			if errors.Is(err, repository.ErrSlugTaken) {
				s.logger.Debug("Slug taken at commit, re-probing",
					zap.String("slug", allocated), zap.String("product_id", product.ID.String()))
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

// Delete removes a product and its stored image. Slug history cascades at
// the storage layer.
func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}

	if product.ImageRef != nil {
		if err := s.assetStore.Delete(ctx, *product.ImageRef); err != nil && !errors.Is(err, assets.ErrAssetNotFound) {
			s.logger.Warn("Failed to delete product image",
				zap.String("key", *product.ImageRef), zap.Error(err))
		}
	}

	return nil
}

// Resolve decides how a requested (id, slug) pair maps onto the catalog.
func (s *productService) Resolve(ctx context.Context, id uuid.UUID, requestedSlug string) (*Resolution, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return &Resolution{Status: ResolutionNotFound}, nil
		}
		return nil, err
	}

	if product.Slug == requestedSlug {
		return &Resolution{Status: ResolutionCanonical, Product: product}, nil
	}

	// Historical or entirely unknown slug: either way the id wins and the
	// client is redirected to the canonical pair.
	return &Resolution{Status: ResolutionRedirect, Product: product}, nil
}

// Related returns listing summaries of products in the same category.
func (s *productService) Related(ctx context.Context, product *domain.Product) ([]domain.ProductSummary, error) {
	if product.CategoryID == nil {
		return []domain.ProductSummary{}, nil
	}

	rows, err := s.productRepo.Related(ctx, *product.CategoryID, product.ID, relatedLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load related products: %w", err)
	}

	results := make([]domain.ProductSummary, 0, len(rows))
	for _, row := range rows {
		results = append(results, summarize(row, s.assetStore))
	}
	return results, nil
}

// ImageURL resolves a product's stored image reference to a servable URL.
func (s *productService) ImageURL(product *domain.Product) *string {
	if product.ImageRef == nil {
		return nil
	}
	u := s.assetStore.URL(*product.ImageRef)
	return &u
}

// imageKey derives the deterministic asset key for a save carrying image
// data. Nil when the save has no image.
func (s *productService) imageKey(id uuid.UUID, input ProductInput) *string {
	if len(input.ImageData) == 0 {
		return nil
	}
	ext := input.ImageExt
	if ext == "" {
		ext = "jpg"
	}
	key := fmt.Sprintf("%s.%s", id, ext)
	return &key
}

// storeImage writes and normalizes a new asset. Best-effort: the enclosing
// save has already committed and must not fail here.
func (s *productService) storeImage(ctx context.Context, key *string, data []byte) {
	if key == nil || len(data) == 0 {
		return
	}

	if err := s.assetStore.Put(ctx, *key, data); err != nil {
		s.logger.Warn("Failed to store product image", zap.String("key", *key), zap.Error(err))
		return
	}

	s.normalizer.Normalize(ctx, *key)
}
