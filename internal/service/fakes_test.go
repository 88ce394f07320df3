package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

// fakeProductRepo is an in-memory ProductRepository that mirrors the SQL
// implementation's filter, sort, and uniqueness semantics.
type fakeProductRepo struct {
	mu       sync.Mutex
	rows     []*repository.ProductRow
	history  []*domain.SlugHistoryEntry
	slugLies int // SlugExists calls that falsely report "free", to force commit conflicts
	counts   int // Count invocations, to observe cache hits
}

func (f *fakeProductRepo) Create(_ context.Context, product *domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, row := range f.rows {
		if row.Slug == product.Slug {
			return repository.ErrSlugTaken
		}
	}
	copied := *product
	f.rows = append(f.rows, &repository.ProductRow{Product: copied})
	return nil
}

func (f *fakeProductRepo) Update(_ context.Context, product *domain.Product, superseded *domain.SlugHistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, row := range f.rows {
		if row.ID != product.ID && row.Slug == product.Slug {
			return repository.ErrSlugTaken
		}
	}
	for _, row := range f.rows {
		if row.ID == product.ID {
			row.Product = *product
			if superseded != nil {
				copied := *superseded
				f.history = append(f.history, &copied)
			}
			return nil
		}
	}
	return repository.ErrProductNotFound
}

func (f *fakeProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, row := range f.rows {
		if row.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrProductNotFound
}

func (f *fakeProductRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, row := range f.rows {
		if row.ID == id {
			copied := row.Product
			return &copied, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (f *fakeProductRepo) SlugExists(_ context.Context, slug string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.slugLies > 0 {
		f.slugLies--
		return false, nil
	}
	for _, row := range f.rows {
		if row.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProductRepo) ListSlugHistory(_ context.Context, productID uuid.UUID) ([]*domain.SlugHistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := []*domain.SlugHistoryEntry{}
	for _, e := range f.history {
		if e.ProductID == productID {
			copied := *e
			entries = append(entries, &copied)
		}
	}
	return entries, nil
}

func (f *fakeProductRepo) matches(row *repository.ProductRow, plan domain.QueryPlan) bool {
	if plan.SearchTerm != "" {
		term := plan.SearchTerm
		hay := []string{strings.ToLower(row.Name), strings.ToLower(row.Description), strings.ToLower(row.Slug)}
		if row.CategoryName != nil {
			hay = append(hay, strings.ToLower(*row.CategoryName))
		}
		if row.BrandName != nil {
			hay = append(hay, strings.ToLower(*row.BrandName))
		}
		found := false
		for _, h := range hay {
			if strings.Contains(h, term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(plan.CategoryIDs) > 0 {
		if row.CategoryID == nil || !containsID(plan.CategoryIDs, *row.CategoryID) {
			return false
		}
	}
	if len(plan.BrandIDs) > 0 {
		if row.BrandID == nil || !containsID(plan.BrandIDs, *row.BrandID) {
			return false
		}
	}
	if plan.MinPrice != nil && row.Price < *plan.MinPrice {
		return false
	}
	if plan.MaxPrice != nil && row.Price > *plan.MaxPrice {
		return false
	}
	if plan.InStockOnly && row.Inventory < 1 {
		return false
	}
	return true
}

func (f *fakeProductRepo) filtered(plan domain.QueryPlan) []*repository.ProductRow {
	matched := []*repository.ProductRow{}
	for _, row := range f.rows {
		if f.matches(row, plan) {
			matched = append(matched, row)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		tie := strings.Compare(a.ID.String(), b.ID.String()) < 0
		switch plan.Sort {
		case domain.SortPriceAsc:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		case domain.SortPriceDesc:
			if a.Price != b.Price {
				return a.Price > b.Price
			}
		case domain.SortOldest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return tie
	})

	return matched
}

func (f *fakeProductRepo) Count(_ context.Context, plan domain.QueryPlan) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.counts++
	return len(f.filtered(plan)), nil
}

func (f *fakeProductRepo) Page(_ context.Context, plan domain.QueryPlan, limit, offset int) ([]*repository.ProductRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	matched := f.filtered(plan)
	if offset >= len(matched) {
		return []*repository.ProductRow{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (f *fakeProductRepo) Related(_ context.Context, categoryID uuid.UUID, exclude uuid.UUID, limit int) ([]*repository.ProductRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := []*repository.ProductRow{}
	for _, row := range f.rows {
		if row.ID == exclude || row.CategoryID == nil || *row.CategoryID != categoryID {
			continue
		}
		result = append(result, row)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (f *fakeProductRepo) Featured(_ context.Context, limit int) ([]*repository.ProductRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := []*repository.ProductRow{}
	for _, row := range f.rows {
		if row.IsSpecial {
			result = append(result, row)
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// fakePageCache is an in-memory PageCache recording hit/miss traffic.
type fakePageCache struct {
	mu      sync.Mutex
	entries map[string]*domain.ProductPage
	gets    int
	sets    int
}

func newFakePageCache() *fakePageCache {
	return &fakePageCache{entries: map[string]*domain.ProductPage{}}
}

func (c *fakePageCache) Get(_ context.Context, key string) (*domain.ProductPage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gets++
	page, ok := c.entries[key]
	return page, ok
}

func (c *fakePageCache) Set(_ context.Context, key string, page *domain.ProductPage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sets++
	c.entries[key] = page
}

// fakeAssetStore is an in-memory asset store with optional write failures.
type fakeAssetStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	failPut bool
	deletes []string
}

func newFakeAssetStore() *fakeAssetStore {
	return &fakeAssetStore{blobs: map[string][]byte{}}
}

func (s *fakeAssetStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failPut {
		return errors.New("asset store unavailable")
	}
	s.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (s *fakeAssetStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.blobs[key]
	if !ok {
		return nil, errors.New("asset not found")
	}
	return data, nil
}

func (s *fakeAssetStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deletes = append(s.deletes, key)
	delete(s.blobs, key)
	return nil
}

func (s *fakeAssetStore) URL(key string) string {
	return "/media/products/" + key
}
