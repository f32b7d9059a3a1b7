// Package cache provides Redis read-through caching for catalog lookups.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/product"
)

const keyPrefix = "storefront:product:"

// Store is the subset of the Redis client used by the cache.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

var _ product.Repository = (*Products)(nil)

// Products decorates a product.Repository, caching single product lookups.
// Listings are passed through. Redis failures degrade to the underlying
// repository.
type Products struct {
	product.Repository
	store Store
	ttl   time.Duration
}

// NewProducts wraps repo with a cache stored in store for ttl.
func NewProducts(repo product.Repository, store Store, ttl time.Duration) *Products {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Products{Repository: repo, store: store, ttl: ttl}
}

// GetByID returns the product with the given ID.
func (c *Products) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return c.get(ctx, keyPrefix+"id:"+id, func() (*product.Product, error) {
		return c.Repository.GetByID(ctx, id)
	})
}

// GetBySlug returns the product with the given slug.
func (c *Products) GetBySlug(ctx context.Context, slug string) (*product.Product, error) {
	return c.get(ctx, keyPrefix+"slug:"+slug, func() (*product.Product, error) {
		return c.Repository.GetBySlug(ctx, slug)
	})
}

func (c *Products) get(ctx context.Context, key string, load func() (*product.Product, error)) (*product.Product, error) {
	lg := zctx.From(ctx)

	data, err := c.store.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p product.Product
		if err := json.Unmarshal(data, &p); err == nil {
			return &p, nil
		}
		lg.Warn("Drop malformed cache entry", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		lg.Warn("Product cache read failed", zap.String("key", key), zap.Error(err))
	}

	p, err := load()
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := c.store.Set(ctx, key, data, c.ttl).Err(); err != nil {
			lg.Warn("Product cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return p, nil
}
