package transport

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CatalogHandler handles HTTP requests for catalog browsing
type CatalogHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalogService service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// RegisterRoutes registers the catalog browsing routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/products", h.List)
	r.Get("/api/products/featured", h.Featured)
}

// List serves a catalog page built from the request's query parameters.
// Malformed filters are dropped, never rejected, so this endpoint does not
// produce 400s for bad query strings.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	plan := h.catalogService.PlanFromQuery(r.URL.Query())

	page, err := h.catalogService.List(r.Context(), plan)
	if err != nil {
		h.logger.Error("Catalog listing failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, page)
}

// Featured serves the random selection of special products.
func (h *CatalogHandler) Featured(w http.ResponseWriter, r *http.Request) {
	results, err := h.catalogService.Featured(r.Context())
	if err != nil {
		h.logger.Error("Featured products failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list featured products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}
