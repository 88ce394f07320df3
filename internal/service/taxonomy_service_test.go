package service

import (
	"context"
	"sync"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/slug"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCategoryRepo struct {
	mu         sync.Mutex
	categories []*domain.Category
}

func (f *fakeCategoryRepo) Create(_ context.Context, category *domain.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range f.categories {
		if c.Slug == category.Slug {
			return repository.ErrSlugTaken
		}
		if c.Name == category.Name {
			return repository.ErrCategoryAlreadyExists
		}
	}
	copied := *category
	f.categories = append(f.categories, &copied)
	return nil
}

func (f *fakeCategoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, c := range f.categories {
		if c.ID == id {
			f.categories = append(f.categories[:i], f.categories[i+1:]...)
			return nil
		}
	}
	return repository.ErrCategoryNotFound
}

func (f *fakeCategoryRepo) List(_ context.Context) ([]*domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.Category{}, f.categories...), nil
}

func (f *fakeCategoryRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range f.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, repository.ErrCategoryNotFound
}

func (f *fakeCategoryRepo) FindBySlug(_ context.Context, slugValue string) (*domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range f.categories {
		if c.Slug == slugValue {
			return c, nil
		}
	}
	return nil, repository.ErrCategoryNotFound
}

func (f *fakeCategoryRepo) SlugExists(_ context.Context, slugValue string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range f.categories {
		if c.Slug == slugValue {
			return true, nil
		}
	}
	return false, nil
}

type fakeBrandRepo struct {
	mu     sync.Mutex
	brands []*domain.Brand
}

func (f *fakeBrandRepo) Create(_ context.Context, brand *domain.Brand) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, b := range f.brands {
		if b.Slug == brand.Slug {
			return repository.ErrSlugTaken
		}
	}
	copied := *brand
	f.brands = append(f.brands, &copied)
	return nil
}

func (f *fakeBrandRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, b := range f.brands {
		if b.ID == id {
			f.brands = append(f.brands[:i], f.brands[i+1:]...)
			return nil
		}
	}
	return repository.ErrBrandNotFound
}

func (f *fakeBrandRepo) List(_ context.Context) ([]*domain.Brand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.Brand{}, f.brands...), nil
}

func (f *fakeBrandRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Brand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, b := range f.brands {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, repository.ErrBrandNotFound
}

func (f *fakeBrandRepo) FindBySlug(_ context.Context, slugValue string) (*domain.Brand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, b := range f.brands {
		if b.Slug == slugValue {
			return b, nil
		}
	}
	return nil, repository.ErrBrandNotFound
}

func (f *fakeBrandRepo) SlugExists(_ context.Context, slugValue string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, b := range f.brands {
		if b.Slug == slugValue {
			return true, nil
		}
	}
	return false, nil
}

func newTaxonomyFixture() (*fakeCategoryRepo, *fakeBrandRepo, TaxonomyService) {
	catRepo := &fakeCategoryRepo{}
	brandRepo := &fakeBrandRepo{}
	return catRepo, brandRepo, NewTaxonomyService(catRepo, brandRepo, zap.NewNop())
}

func TestCreateCategory_AllocatesSlug(t *testing.T) {
	_, _, svc := newTaxonomyFixture()

	category, err := svc.CreateCategory(context.Background(), "Running Shoes")
	require.NoError(t, err)
	assert.Equal(t, "running-shoes", category.Slug)
}

func TestCreateCategory_EmptyNameRejected(t *testing.T) {
	_, _, svc := newTaxonomyFixture()

	_, err := svc.CreateCategory(context.Background(), "   ")
	assert.ErrorIs(t, err, slug.ErrEmptySlug)
}

func TestCreateBrand_CollidingNamesGetSuffixes(t *testing.T) {
	_, _, svc := newTaxonomyFixture()
	ctx := context.Background()

	first, err := svc.CreateBrand(ctx, "Plumbus")
	require.NoError(t, err)
	assert.Equal(t, "plumbus", first.Slug)

	second, err := svc.CreateBrand(ctx, "PLUMBUS")
	require.NoError(t, err)
	assert.Equal(t, "plumbus-1", second.Slug)
}

func TestDeleteCategory_RemovesIt(t *testing.T) {
	catRepo, _, svc := newTaxonomyFixture()
	ctx := context.Background()

	created, err := svc.CreateCategory(ctx, "Footwear")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCategory(ctx, created.ID))
	_, err = catRepo.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, repository.ErrCategoryNotFound)
}

func TestDeleteBrand_UnknownID(t *testing.T) {
	_, _, svc := newTaxonomyFixture()

	err := svc.DeleteBrand(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrBrandNotFound)
}

func TestCategoryBySlug_Roundtrip(t *testing.T) {
	_, _, svc := newTaxonomyFixture()
	ctx := context.Background()

	created, err := svc.CreateCategory(ctx, "Footwear")
	require.NoError(t, err)

	found, err := svc.CategoryBySlug(ctx, "footwear")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = svc.CategoryBySlug(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrCategoryNotFound)
}
