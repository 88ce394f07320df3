package transport

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/slug"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductRequest represents the product create/update payload
type ProductRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Slug        string `json:"slug,omitempty" validate:"omitempty,max=240"`
	Description string `json:"description"`
	Price       int64  `json:"price" validate:"gte=0"`
	Inventory   int    `json:"inventory" validate:"gte=0"`
	CategoryID  string `json:"category_id,omitempty" validate:"omitempty,uuid4"`
	BrandID     string `json:"brand_id,omitempty" validate:"omitempty,uuid4"`
	IsSpecial   bool   `json:"is_special"`
	ImageData   string `json:"image_data,omitempty"` // base64-encoded
	ImageExt    string `json:"image_ext,omitempty" validate:"omitempty,oneof=jpg jpeg png gif"`
}

// ProductDetailResponse is the canonical product detail payload
type ProductDetailResponse struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Slug        string                  `json:"slug"`
	Description string                  `json:"description"`
	Price       string                  `json:"price"`
	Inventory   int                     `json:"inventory"`
	IsSpecial   bool                    `json:"is_special"`
	Image       *string                 `json:"image"`
	CategoryID  *uuid.UUID              `json:"category_id"`
	BrandID     *uuid.UUID              `json:"brand_id"`
	CreatedAt   time.Time               `json:"created_at"`
	Related     []domain.ProductSummary `json:"related"`
}

// ProductHandler handles HTTP requests for product detail and persistence
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes. The listing and featured
// routes under the same prefix belong to the catalog handler, so everything
// here is registered flat to share the /api/products space with it.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/products", h.Create)
	r.Put("/api/products/{id}", h.Update)
	r.Delete("/api/products/{id}", h.Delete)
	r.Get("/api/products/{id}/{slug}", h.Detail)
}

// Detail resolves the (id, slug) pair: canonical match serves the product,
// a stale or unknown slug gets a permanent redirect to the canonical path,
// and an unknown id is not found. Redirects never carry product content.
func (h *ProductHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		return
	}

	requestedSlug := chi.URLParam(r, "slug")

	resolution, err := h.productService.Resolve(r.Context(), id, requestedSlug)
	if err != nil {
		h.logger.Error("Slug resolution failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to resolve product")
		return
	}

	switch resolution.Status {
	case service.ResolutionNotFound:
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		return
	case service.ResolutionRedirect:
		canonical := fmt.Sprintf("/api/products/%s/%s", resolution.Product.ID, resolution.Product.Slug)
		http.Redirect(w, r, canonical, http.StatusMovedPermanently)
		return
	}

	product := resolution.Product

	related, err := h.productService.Related(r.Context(), product)
	if err != nil {
		h.logger.Error("Related products failed", zap.Error(err))
		related = []domain.ProductSummary{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductDetailResponse{
		ID:          product.ID.String(),
		Name:        product.Name,
		Slug:        product.Slug,
		Description: product.Description,
		Price:       fmt.Sprintf("%d", product.Price),
		Inventory:   product.Inventory,
		IsSpecial:   product.IsSpecial,
		Image:       h.productService.ImageURL(product),
		CategoryID:  product.CategoryID,
		BrandID:     product.BrandID,
		CreatedAt:   product.CreatedAt,
		Related:     related,
	})
}

// Create handles product creation
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	product, err := h.productService.Create(r.Context(), *input)
	if err != nil {
		h.respondSaveError(w, err)
		return
	}

	h.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("slug", product.Slug),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Update handles product updates
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		return
	}

	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	product, err := h.productService.Update(r.Context(), id, *input)
	if err != nil {
		h.respondSaveError(w, err)
		return
	}

	h.logger.Info("Product updated",
		zap.String("product_id", product.ID.String()),
		zap.String("slug", product.Slug),
	)
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete handles product deletion
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		return
	}

	if err := h.productService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Product deletion failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "product deleted"})
}

func (h *ProductHandler) decodeInput(w http.ResponseWriter, r *http.Request) (*service.ProductInput, bool) {
	var req ProductRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product payload validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return nil, false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	var imageData []byte
	if req.ImageData != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.ImageData)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "image_data is not valid base64")
			return nil, false
		}
		imageData = decoded
	}

	input := &service.ProductInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Price:       req.Price,
		Inventory:   req.Inventory,
		IsSpecial:   req.IsSpecial,
		ImageData:   imageData,
		ImageExt:    req.ImageExt,
	}

	if req.CategoryID != "" {
		id, err := uuid.Parse(req.CategoryID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid category_id")
			return nil, false
		}
		input.CategoryID = &id
	}

	if req.BrandID != "" {
		id, err := uuid.Parse(req.BrandID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid brand_id")
			return nil, false
		}
		input.BrandID = &id
	}

	return input, true
}

func (h *ProductHandler) respondSaveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, slug.ErrEmptySlug):
		middleware.RespondWithError(w, http.StatusBadRequest, "name does not produce a usable slug")
	default:
		h.logger.Error("Product save failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to save product")
	}
}
