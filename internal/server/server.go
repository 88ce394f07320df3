package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/assets"
	"storefront/internal/cache"
	"storefront/internal/config"
	custommiddleware "storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// mediaBaseURL is where stored product images are served from.
const mediaBaseURL = "/media/products"

type Server struct {
	*http.Server
	config      *config.Config
	logger      *zap.Logger
	db          *sql.DB
	redisClient *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB, redisClient *redis.Client) (*Server, error) {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.Env != "production"))
	router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: 300,
		Window:            time.Minute,
		KeyPrefix:         "storefront:ratelimit",
	}, logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Asset storage and image pipeline
	assetStore, err := assets.NewFSStore(cfg.Media.Dir, mediaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize asset store: %w", err)
	}
	normalizer := assets.NewNormalizer(assetStore, cfg.Media.MaxWidth, logger)

	// Result cache
	pageCache := cache.NewRedisPageCache(redisClient, cfg.Catalog.CacheTTL, logger)

	// Initialize repositories
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	brandRepo := repository.NewBrandRepository(db)

	// Initialize services
	catalogService := service.NewCatalogService(productRepo, pageCache, assetStore, cfg.Catalog.PageSize, logger)
	productService := service.NewProductService(productRepo, assetStore, normalizer, logger)
	taxonomyService := service.NewTaxonomyService(categoryRepo, brandRepo, logger)

	// Initialize handlers
	catalogHandler := transport.NewCatalogHandler(catalogService, logger)
	productHandler := transport.NewProductHandler(productService, logger)
	taxonomyHandler := transport.NewTaxonomyHandler(taxonomyService, logger)

	// Register routes
	catalogHandler.RegisterRoutes(router)
	productHandler.RegisterRoutes(router)
	taxonomyHandler.RegisterRoutes(router)

	// Serve stored product images
	router.Handle(mediaBaseURL+"/*", http.StripPrefix(mediaBaseURL+"/", http.FileServer(http.Dir(cfg.Media.Dir))))

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:      cfg,
		logger:      logger,
		db:          db,
		redisClient: redisClient,
	}

	return server, nil
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	// Close Redis connection
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
