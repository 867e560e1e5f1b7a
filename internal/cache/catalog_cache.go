package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/GTDGit/lumina_api/internal/models"
)

const catalogKey = "catalog:products:latest"

// CatalogLoader reads the full newest-first product list from storage.
type CatalogLoader func(ctx context.Context) ([]models.Product, error)

// CatalogCache is a cache-aside layer over the product list that search and
// listing read on every request. Concurrent misses share one load.
// A nil redis client disables caching and always loads.
type CatalogCache struct {
	redis *RedisClient
	ttl   time.Duration
	group singleflight.Group
}

// NewCatalogCache creates a new CatalogCache.
func NewCatalogCache(redis *RedisClient, ttl time.Duration) *CatalogCache {
	return &CatalogCache{redis: redis, ttl: ttl}
}

// Products returns the cached list or loads, stores and returns it.
// Cache errors are logged and fall through to the loader.
func (c *CatalogCache) Products(ctx context.Context, load CatalogLoader) ([]models.Product, error) {
	if c.redis != nil && c.ttl > 0 {
		raw, err := c.redis.Get(ctx, catalogKey)
		switch {
		case err == nil:
			var products []models.Product
			if err := json.Unmarshal([]byte(raw), &products); err == nil {
				return products, nil
			}
			log.Warn().Msg("catalog cache entry is corrupt, reloading")
		case !IsMiss(err):
			log.Warn().Err(err).Msg("catalog cache read failed")
		}
	}

	v, err, _ := c.group.Do(catalogKey, func() (any, error) {
		products, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.store(ctx, products)
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Product), nil
}

// Invalidate drops the cached list. Call after every catalog mutation.
func (c *CatalogCache) Invalidate(ctx context.Context) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Delete(ctx, catalogKey); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate catalog cache")
	}
}

func (c *CatalogCache) store(ctx context.Context, products []models.Product) {
	if c.redis == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(products)
	if err != nil {
		log.Warn().Err(err).Msg("failed to marshal catalog")
		return
	}
	if err := c.redis.Set(ctx, catalogKey, string(data), c.ttl); err != nil {
		log.Warn().Err(err).Msg("failed to store catalog cache")
	}
}
