package transport

import (
	"errors"
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/slug"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaxonomyRequest represents the category/brand create payload
type TaxonomyRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// TaxonomyHandler handles HTTP requests for categories and brands
type TaxonomyHandler struct {
	taxonomyService service.TaxonomyService
	logger          *zap.Logger
}

// NewTaxonomyHandler creates a new TaxonomyHandler
func NewTaxonomyHandler(taxonomyService service.TaxonomyService, logger *zap.Logger) *TaxonomyHandler {
	return &TaxonomyHandler{
		taxonomyService: taxonomyService,
		logger:          logger,
	}
}

// RegisterRoutes registers category and brand routes
func (h *TaxonomyHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Post("/", h.CreateCategory)
		r.Get("/{slug}", h.CategoryBySlug)
		r.Delete("/{id}", h.DeleteCategory)
	})
	r.Route("/api/brands", func(r chi.Router) {
		r.Get("/", h.ListBrands)
		r.Post("/", h.CreateBrand)
		r.Get("/{slug}", h.BrandBySlug)
		r.Delete("/{id}", h.DeleteBrand)
	})
}

// ListCategories lists all categories
func (h *TaxonomyHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.taxonomyService.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("Category listing failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"results": categories})
}

// CategoryBySlug serves a single category by its slug
func (h *TaxonomyHandler) CategoryBySlug(w http.ResponseWriter, r *http.Request) {
	category, err := h.taxonomyService.CategoryBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "category not found")
			return
		}
		h.logger.Error("Category lookup failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load category")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, category)
}

// CreateCategory creates a category with an allocated slug
func (h *TaxonomyHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	name, ok := h.decodeName(w, r)
	if !ok {
		return
	}

	category, err := h.taxonomyService.CreateCategory(r.Context(), name)
	if err != nil {
		h.respondSaveError(w, err, repository.ErrCategoryAlreadyExists, "category with this name already exists")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

// DeleteCategory removes a category. Products referencing it keep existing
// with the reference nulled at the storage layer.
func (h *TaxonomyHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, "category not found")
		return
	}

	if err := h.taxonomyService.DeleteCategory(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "category not found")
			return
		}
		h.logger.Error("Category deletion failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete category")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "category deleted"})
}

// ListBrands lists all brands
func (h *TaxonomyHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.taxonomyService.ListBrands(r.Context())
	if err != nil {
		h.logger.Error("Brand listing failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list brands")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"results": brands})
}

// BrandBySlug serves a single brand by its slug
func (h *TaxonomyHandler) BrandBySlug(w http.ResponseWriter, r *http.Request) {
	brand, err := h.taxonomyService.BrandBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, repository.ErrBrandNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "brand not found")
			return
		}
		h.logger.Error("Brand lookup failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load brand")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, brand)
}

// CreateBrand creates a brand with an allocated slug
func (h *TaxonomyHandler) CreateBrand(w http.ResponseWriter, r *http.Request) {
	name, ok := h.decodeName(w, r)
	if !ok {
		return
	}

	brand, err := h.taxonomyService.CreateBrand(r.Context(), name)
	if err != nil {
		h.respondSaveError(w, err, repository.ErrBrandAlreadyExists, "brand with this name already exists")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, brand)
}

// DeleteBrand removes a brand, nulling product references the same way.
func (h *TaxonomyHandler) DeleteBrand(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, "brand not found")
		return
	}

	if err := h.taxonomyService.DeleteBrand(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrBrandNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "brand not found")
			return
		}
		h.logger.Error("Brand deletion failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete brand")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "brand deleted"})
}

func (h *TaxonomyHandler) decodeName(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req TaxonomyRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Taxonomy payload validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return "", false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}

	return req.Name, true
}

func (h *TaxonomyHandler) respondSaveError(w http.ResponseWriter, err error, conflict error, conflictMsg string) {
	switch {
	case errors.Is(err, conflict):
		middleware.RespondWithError(w, http.StatusConflict, conflictMsg)
	case errors.Is(err, slug.ErrEmptySlug):
		middleware.RespondWithError(w, http.StatusBadRequest, "name does not produce a usable slug")
	default:
		h.logger.Error("Taxonomy save failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to save")
	}
}
