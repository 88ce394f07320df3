package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"storefront/internal/assets"
	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogService plans and executes catalog queries and fronts them with the
// result cache.
type CatalogService interface {
	PlanFromQuery(values url.Values) domain.QueryPlan
	List(ctx context.Context, plan domain.QueryPlan) (*domain.ProductPage, error)
	Featured(ctx context.Context) ([]domain.ProductSummary, error)
}

// featuredLimit caps the landing-page selection of special products.
const featuredLimit = 3

type catalogService struct {
	productRepo     repository.ProductRepository
	pageCache       cache.PageCache
	assetStore      assets.Store
	defaultPageSize int
	logger          *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	productRepo repository.ProductRepository,
	pageCache cache.PageCache,
	assetStore assets.Store,
	defaultPageSize int,
	logger *zap.Logger,
) CatalogService {
	if defaultPageSize < 1 {
		defaultPageSize = domain.DefaultPageSize
	}
	return &catalogService{
		productRepo:     productRepo,
		pageCache:       pageCache,
		assetStore:      assetStore,
		defaultPageSize: defaultPageSize,
		logger:          logger,
	}
}

// PlanFromQuery interprets raw query parameters into a normalized plan.
// Malformed input never errors: garbage id tokens are dropped, non-numeric
// prices and pages are ignored or defaulted, unknown sort keys fall back to
// newest-first. The endpoint stays resilient to arbitrary query strings.
func (s *catalogService) PlanFromQuery(values url.Values) domain.QueryPlan {
	plan := domain.QueryPlan{
		SearchTerm:  values.Get("q"),
		CategoryIDs: parseIDList(values.Get("categories")),
		BrandIDs:    parseIDList(values.Get("brands")),
		MinPrice:    parsePriceBound(values.Get("min_price")),
		MaxPrice:    parsePriceBound(values.Get("max_price")),
		InStockOnly: parseTruthy(values.Get("in_stock")),
		Sort:        domain.SortKey(strings.TrimSpace(values.Get("sort"))),
		Page:        parsePositiveInt(values.Get("page"), 1),
		PageSize:    parsePositiveInt(values.Get("per_page"), s.defaultPageSize),
	}
	plan.Normalize()
	return plan
}

// List serves a catalog page, preferring the result cache. A cached empty
// page is a hit like any other; only a true miss re-executes the plan.
func (s *catalogService) List(ctx context.Context, plan domain.QueryPlan) (*domain.ProductPage, error) {
	key := plan.CacheKey()
	if page, ok := s.pageCache.Get(ctx, key); ok {
		return page, nil
	}

	page, err := s.execute(ctx, plan)
	if err != nil {
		return nil, err
	}

	s.pageCache.Set(ctx, key, page)
	return page, nil
}

// execute runs the plan against the product store. The requested page number
// is clamped to the last valid page, never rejected.
func (s *catalogService) execute(ctx context.Context, plan domain.QueryPlan) (*domain.ProductPage, error) {
	total, err := s.productRepo.Count(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("failed to execute catalog plan: %w", err)
	}

	totalPages := (total + plan.PageSize - 1) / plan.PageSize
	if totalPages < 1 {
		totalPages = 1
	}

	page := plan.Page
	if page > totalPages {
		page = totalPages
	}

	rows, err := s.productRepo.Page(ctx, plan, plan.PageSize, (page-1)*plan.PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to execute catalog plan: %w", err)
	}

	results := make([]domain.ProductSummary, 0, len(rows))
	for _, row := range rows {
		results = append(results, summarize(row, s.assetStore))
	}

	return &domain.ProductPage{
		Results: results,
		Pagination: domain.Pagination{
			Page:       page,
			PerPage:    plan.PageSize,
			TotalPages: totalPages,
			TotalItems: total,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}, nil
}

// Featured returns a random selection of up to three special products.
func (s *catalogService) Featured(ctx context.Context) ([]domain.ProductSummary, error) {
	rows, err := s.productRepo.Featured(ctx, featuredLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load featured products: %w", err)
	}

	results := make([]domain.ProductSummary, 0, len(rows))
	for _, row := range rows {
		results = append(results, summarize(row, s.assetStore))
	}
	return results, nil
}

// descriptionLimit bounds listing descriptions; the full text is only on the
// detail endpoint.
const descriptionLimit = 200

// summarize projects a joined product row into its listing shape.
func summarize(row *repository.ProductRow, store assets.Store) domain.ProductSummary {
	desc := row.Description
	if len([]rune(desc)) > descriptionLimit {
		desc = string([]rune(desc)[:descriptionLimit])
	}

	var image *string
	if row.ImageRef != nil {
		u := store.URL(*row.ImageRef)
		image = &u
	}

	return domain.ProductSummary{
		ID:          row.ID,
		Name:        row.Name,
		Slug:        row.Slug,
		Description: desc,
		Price:       strconv.FormatInt(row.Price, 10),
		Image:       image,
		Category:    row.CategoryName,
		Brand:       row.BrandName,
		Inventory:   row.Inventory,
	}
}

// parseIDList splits a comma-separated id list, silently dropping tokens
// that are not valid UUIDs.
func parseIDList(raw string) []uuid.UUID {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	ids := []uuid.UUID{}
	seen := map[uuid.UUID]bool{}
	for _, token := range strings.Split(raw, ",") {
		id, err := uuid.Parse(strings.TrimSpace(token))
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// parsePriceBound parses an inclusive price bound; non-numeric input means
// the bound is simply not applied.
func parsePriceBound(raw string) *int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

// parseTruthy recognizes the accepted truthy spellings; anything else is
// falsy.
func parseTruthy(raw string) bool {
	switch strings.TrimSpace(raw) {
	case "1", "true", "True":
		return true
	}
	return false
}

func parsePositiveInt(raw string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
