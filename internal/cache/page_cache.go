package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Namespace prefixes every key this service writes so the cache can be
// shared with other tenants of the same Redis instance.
const Namespace = "storefront:"

// PageCache memoizes computed catalog pages keyed by the query plan's hash.
// Entries live for a fixed TTL; there is no invalidation on product writes,
// so a page may be stale for up to the TTL window. That staleness is the
// documented consistency contract, not a bug. Implementations must never
// fail a request: any backend error degrades to a miss or a dropped write.
type PageCache interface {
	Get(ctx context.Context, key string) (*domain.ProductPage, bool)
	Set(ctx context.Context, key string, page *domain.ProductPage)
}

type redisPageCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewClient builds a Redis client from configuration.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewRedisPageCache creates a PageCache backed by Redis with a fixed TTL.
func NewRedisPageCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) PageCache {
	return &redisPageCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached page for key, or a miss. An empty-but-valid page is
// a hit like any other; callers cannot distinguish empty from missing.
func (c *redisPageCache) Get(ctx context.Context, key string) (*domain.ProductPage, bool) {
	data, err := c.client.Get(ctx, Namespace+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Page cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	page := &domain.ProductPage{}
	if err := json.Unmarshal(data, page); err != nil {
		c.logger.Warn("Page cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return page, true
}

// Set stores a page under key for the cache's TTL. Failures are dropped.
func (c *redisPageCache) Set(ctx context.Context, key string, page *domain.ProductPage) {
	data, err := json.Marshal(page)
	if err != nil {
		c.logger.Warn("Page cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, Namespace+key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Page cache write failed", zap.String("key", key), zap.Error(err))
	}
}
