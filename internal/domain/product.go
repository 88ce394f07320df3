package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a product in the catalog. Price is a whole-unit
// currency amount; the catalog has no fractional subdivision.
type Product struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Slug        string     `json:"slug" db:"slug"`
	Description string     `json:"description" db:"description"`
	Price       int64      `json:"price" db:"price"`
	Inventory   int        `json:"inventory" db:"inventory"`
	CategoryID  *uuid.UUID `json:"category_id" db:"category_id"`
	BrandID     *uuid.UUID `json:"brand_id" db:"brand_id"`
	IsSpecial   bool       `json:"is_special" db:"is_special"`
	ImageRef    *string    `json:"image_ref" db:"image_ref"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Category represents a product category. Products reference it weakly:
// deleting a category nulls the reference, it never deletes products.
type Category struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Brand represents a product brand with the same deletion policy as Category.
type Brand struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SlugHistoryEntry records a slug a product held before a rename.
// Rows are append-only and live as long as the owning product.
type SlugHistoryEntry struct {
	ID           uuid.UUID `json:"id" db:"id"`
	ProductID    uuid.UUID `json:"product_id" db:"product_id"`
	OldSlug      string    `json:"old_slug" db:"old_slug"`
	SupersededAt time.Time `json:"superseded_at" db:"superseded_at"`
}

// ProductSummary is the listing projection of a product. It never carries
// the full entity; the description is truncated and price is pre-formatted.
type ProductSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Image       *string   `json:"image"`
	Category    *string   `json:"category"`
	Brand       *string   `json:"brand"`
	Inventory   int       `json:"inventory"`
}
