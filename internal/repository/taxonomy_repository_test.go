package repository

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

func TestCategoryRepository_CreateAndFind(t *testing.T) {
	resetTables(t)
	repo := NewCategoryRepository(testDB)
	ctx := context.Background()

	category := &domain.Category{ID: uuid.New(), Name: "Footwear", Slug: "footwear", CreatedAt: time.Now()}
	if err := repo.Create(ctx, category); err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}

	bySlug, err := repo.FindBySlug(ctx, "footwear")
	if err != nil {
		t.Fatalf("Failed to find category by slug: %v", err)
	}
	if bySlug.ID != category.ID || bySlug.Name != "Footwear" {
		t.Fatalf("Unexpected category: %+v", bySlug)
	}

	if _, err := repo.FindBySlug(ctx, "missing"); err != ErrCategoryNotFound {
		t.Fatalf("Expected ErrCategoryNotFound, got: %v", err)
	}
}

func TestCategoryRepository_DuplicatesAreRejected(t *testing.T) {
	resetTables(t)
	repo := NewCategoryRepository(testDB)
	ctx := context.Background()

	first := &domain.Category{ID: uuid.New(), Name: "Footwear", Slug: "footwear", CreatedAt: time.Now()}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}

	sameSlug := &domain.Category{ID: uuid.New(), Name: "Other", Slug: "footwear", CreatedAt: time.Now()}
	if err := repo.Create(ctx, sameSlug); err != ErrSlugTaken {
		t.Fatalf("Expected ErrSlugTaken on duplicate slug, got: %v", err)
	}

	sameName := &domain.Category{ID: uuid.New(), Name: "Footwear", Slug: "footwear-2", CreatedAt: time.Now()}
	if err := repo.Create(ctx, sameName); err != ErrCategoryAlreadyExists {
		t.Fatalf("Expected ErrCategoryAlreadyExists on duplicate name, got: %v", err)
	}
}

func TestCategoryRepository_ListIsOrderedByName(t *testing.T) {
	resetTables(t)
	repo := NewCategoryRepository(testDB)
	ctx := context.Background()

	for _, name := range []string{"Shoes", "Apparel", "Hats"} {
		category := &domain.Category{ID: uuid.New(), Name: name, Slug: name, CreatedAt: time.Now()}
		if err := repo.Create(ctx, category); err != nil {
			t.Fatalf("Failed to create category: %v", err)
		}
	}

	categories, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list categories: %v", err)
	}
	if len(categories) != 3 {
		t.Fatalf("Expected 3 categories, got %d", len(categories))
	}
	for i, want := range []string{"Apparel", "Hats", "Shoes"} {
		if categories[i].Name != want {
			t.Fatalf("Expected %s at position %d, got %s", want, i, categories[i].Name)
		}
	}
}

func TestCategoryRepository_DeleteNullsProductReference(t *testing.T) {
	resetTables(t)
	categoryRepo := NewCategoryRepository(testDB)
	productRepo := NewProductRepository(testDB)
	ctx := context.Background()

	category := &domain.Category{ID: uuid.New(), Name: "Footwear", Slug: "footwear", CreatedAt: time.Now()}
	if err := categoryRepo.Create(ctx, category); err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}

	product := newTestProduct("red-shoe", 100, 5)
	product.CategoryID = &category.ID
	if err := productRepo.Create(ctx, product); err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}

	if err := categoryRepo.Delete(ctx, category.ID); err != nil {
		t.Fatalf("Failed to delete category: %v", err)
	}

	retrieved, err := productRepo.FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("Product should survive category deletion: %v", err)
	}
	if retrieved.CategoryID != nil {
		t.Fatalf("Expected nulled category reference, got %v", retrieved.CategoryID)
	}
}

func TestBrandRepository_CreateFindAndConflicts(t *testing.T) {
	resetTables(t)
	repo := NewBrandRepository(testDB)
	ctx := context.Background()

	brand := &domain.Brand{ID: uuid.New(), Name: "Plumbus", Slug: "plumbus", CreatedAt: time.Now()}
	if err := repo.Create(ctx, brand); err != nil {
		t.Fatalf("Failed to create brand: %v", err)
	}

	bySlug, err := repo.FindBySlug(ctx, "plumbus")
	if err != nil {
		t.Fatalf("Failed to find brand by slug: %v", err)
	}
	if bySlug.ID != brand.ID {
		t.Fatalf("Unexpected brand: %+v", bySlug)
	}

	dup := &domain.Brand{ID: uuid.New(), Name: "Other", Slug: "plumbus", CreatedAt: time.Now()}
	if err := repo.Create(ctx, dup); err != ErrSlugTaken {
		t.Fatalf("Expected ErrSlugTaken on duplicate slug, got: %v", err)
	}

	exists, err := repo.SlugExists(ctx, "plumbus")
	if err != nil || !exists {
		t.Fatalf("Expected plumbus to exist, got exists=%v err=%v", exists, err)
	}
}
