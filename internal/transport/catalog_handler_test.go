package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"storefront/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubCatalogService struct {
	page        *domain.ProductPage
	listErr     error
	featured    []domain.ProductSummary
	featuredErr error

	lastPlan domain.QueryPlan
}

func (s *stubCatalogService) PlanFromQuery(values url.Values) domain.QueryPlan {
	plan := domain.QueryPlan{SearchTerm: values.Get("q"), Page: 1, PageSize: domain.DefaultPageSize}
	plan.Normalize()
	return plan
}

func (s *stubCatalogService) List(_ context.Context, plan domain.QueryPlan) (*domain.ProductPage, error) {
	s.lastPlan = plan
	return s.page, s.listErr
}

func (s *stubCatalogService) Featured(_ context.Context) ([]domain.ProductSummary, error) {
	return s.featured, s.featuredErr
}

func newCatalogRouter(stub *stubCatalogService) *chi.Mux {
	router := chi.NewRouter()
	NewCatalogHandler(stub, zap.NewNop()).RegisterRoutes(router)
	return router
}

func TestCatalogList_ServesPage(t *testing.T) {
	stub := &stubCatalogService{
		page: &domain.ProductPage{
			Results: []domain.ProductSummary{{Name: "Red Shoe", Slug: "red-shoe", Price: "100"}},
			Pagination: domain.Pagination{
				Page: 1, PerPage: 12, TotalPages: 1, TotalItems: 1,
			},
		},
	}
	router := newCatalogRouter(stub)

	req := httptest.NewRequest(http.MethodGet, "/api/products?q=shoe", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var page domain.ProductPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Results, 1)
	assert.Equal(t, "red-shoe", page.Results[0].Slug)
	assert.Equal(t, "shoe", stub.lastPlan.SearchTerm)
}

func TestCatalogList_GarbageQueryStillOK(t *testing.T) {
	stub := &stubCatalogService{
		page: &domain.ProductPage{
			Results:    []domain.ProductSummary{},
			Pagination: domain.Pagination{Page: 1, PerPage: 12, TotalPages: 1},
		},
	}
	router := newCatalogRouter(stub)

	req := httptest.NewRequest(http.MethodGet, "/api/products?page=banana&min_price=%20&sort=;;", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCatalogList_StorageFailure(t *testing.T) {
	router := newCatalogRouter(&stubCatalogService{listErr: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCatalogFeatured(t *testing.T) {
	stub := &stubCatalogService{
		featured: []domain.ProductSummary{
			{Name: "Special", Slug: "special", Price: "100"},
		},
	}
	router := newCatalogRouter(stub)

	req := httptest.NewRequest(http.MethodGet, "/api/products/featured", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []domain.ProductSummary `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "special", resp.Results[0].Slug)
}
