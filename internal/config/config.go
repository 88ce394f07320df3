package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Catalog  CatalogConfig
	Media    MediaConfig
}

type ServerConfig struct {
	Port string
	Env  string
	// AllowedOrigins restricts browser cross-origin access in production.
	// Empty means every origin: the catalog is a public, credential-free
	// read surface by default.
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type CatalogConfig struct {
	PageSize int           // default per_page for listings
	CacheTTL time.Duration // result-page lifetime
}

type MediaConfig struct {
	Dir      string // root directory for stored product images
	MaxWidth int    // images wider than this are downscaled on save
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CATALOG_PAGE_SIZE", 12)
	viper.SetDefault("CACHE_TTL_SECONDS", 300)
	viper.SetDefault("MEDIA_DIR", "media/products")
	viper.SetDefault("IMAGE_MAX_WIDTH", 800)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			AllowedOrigins: splitOrigins(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Catalog: CatalogConfig{
			PageSize: viper.GetInt("CATALOG_PAGE_SIZE"),
			CacheTTL: time.Duration(viper.GetInt("CACHE_TTL_SECONDS")) * time.Second,
		},
		Media: MediaConfig{
			Dir:      viper.GetString("MEDIA_DIR"),
			MaxWidth: viper.GetInt("IMAGE_MAX_WIDTH"),
		},
	}
}

// splitOrigins parses a comma-separated origin list.
func splitOrigins(raw string) []string {
	origins := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			origins = append(origins, part)
		}
	}
	return origins
}
