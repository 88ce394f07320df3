package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// SortKey enumerates the supported catalog sort orders.
type SortKey string

const (
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
	SortNewest    SortKey = "newest"
	SortOldest    SortKey = "oldest"
)

// DefaultPageSize is used when per_page is absent or unparseable.
const DefaultPageSize = 12

// QueryPlan is the canonical, order-independent form of a catalog request.
// Two requests with the same effective filters normalize to identical plans
// regardless of parameter ordering or incidental whitespace, so the plan's
// fingerprint is safe to use as a cache key.
type QueryPlan struct {
	SearchTerm  string
	CategoryIDs []uuid.UUID
	BrandIDs    []uuid.UUID
	MinPrice    *int64
	MaxPrice    *int64
	InStockOnly bool
	Sort        SortKey
	Page        int
	PageSize    int
}

// Normalize sorts the id sets and trims the search term so that plans
// built from cosmetically different inputs compare and hash identically.
func (p *QueryPlan) Normalize() {
	p.SearchTerm = strings.ToLower(strings.TrimSpace(p.SearchTerm))
	sortUUIDs(p.CategoryIDs)
	sortUUIDs(p.BrandIDs)
	switch p.Sort {
	case SortPriceAsc, SortPriceDesc, SortNewest, SortOldest:
	default:
		p.Sort = SortNewest
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.Page < 1 {
		p.Page = 1
	}
}

// Fingerprint returns the stable serialization of the normalized plan.
func (p QueryPlan) Fingerprint() string {
	var b strings.Builder
	b.WriteString("q=")
	b.WriteString(p.SearchTerm)
	b.WriteString("|cat=")
	b.WriteString(joinUUIDs(p.CategoryIDs))
	b.WriteString("|brand=")
	b.WriteString(joinUUIDs(p.BrandIDs))
	b.WriteString("|min=")
	b.WriteString(formatBound(p.MinPrice))
	b.WriteString("|max=")
	b.WriteString(formatBound(p.MaxPrice))
	b.WriteString("|stock=")
	b.WriteString(strconv.FormatBool(p.InStockOnly))
	b.WriteString("|sort=")
	b.WriteString(string(p.Sort))
	b.WriteString("|page=")
	b.WriteString(strconv.Itoa(p.Page))
	b.WriteString("|size=")
	b.WriteString(strconv.Itoa(p.PageSize))
	return b.String()
}

// CacheKey hashes the fingerprint into the namespaced cache key.
func (p QueryPlan) CacheKey() string {
	return fmt.Sprintf("catalog:pages:%016x", xxhash.Sum64String(p.Fingerprint()))
}

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	TotalItems int  `json:"total_items"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// ProductPage is one cacheable page of catalog results.
type ProductPage struct {
	Results    []ProductSummary `json:"results"`
	Pagination Pagination       `json:"pagination"`
}

func sortUUIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return strings.Compare(ids[i].String(), ids[j].String()) < 0
	})
}

func joinUUIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func formatBound(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
