package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Pesokrava/invoicing/internal/domain"
)

const reportKeysSet = "reports:cache_keys"

// RedisCache caches product reads and report results
type RedisCache struct {
	client     *redis.Client
	productTTL time.Duration
	reportTTL  time.Duration
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(client *redis.Client, productTTL, reportTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     client,
		productTTL: productTTL,
		reportTTL:  reportTTL,
	}
}

// Product cache keys and methods

func productKey(productID string) string {
	return fmt.Sprintf("product:%s", productID)
}

// GetProduct retrieves a cached product, domain.ErrNotFound on a miss
func (c *RedisCache) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	val, err := c.client.Get(ctx, productKey(productID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var product domain.Product
	if err := json.Unmarshal(val, &product); err != nil {
		return nil, err
	}

	return &product, nil
}

// SetProduct stores a product in cache
func (c *RedisCache) SetProduct(ctx context.Context, product *domain.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, productKey(product.ID), data, c.productTTL).Err()
}

// InvalidateProduct removes a product from cache
func (c *RedisCache) InvalidateProduct(ctx context.Context, productID string) error {
	return c.client.Del(ctx, productKey(productID)).Err()
}

// Report cache keys and methods

func reportKey(name, params string) string {
	return fmt.Sprintf("report:%s:%s", name, params)
}

// GetReport decodes a cached report into dest, domain.ErrNotFound on a miss
func (c *RedisCache) GetReport(ctx context.Context, name, params string, dest any) error {
	val, err := c.client.Get(ctx, reportKey(name, params)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ErrNotFound
		}
		return err
	}

	return json.Unmarshal(val, dest)
}

// SetReport stores a report and tracks its key in a SET for bulk invalidation
func (c *RedisCache) SetReport(ctx context.Context, name, params string, report any) error {
	key := reportKey(name, params)

	data, err := json.Marshal(report)
	if err != nil {
		return err
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, data, c.reportTTL)
	pipe.SAdd(ctx, reportKeysSet, key)
	pipe.Expire(ctx, reportKeysSet, c.reportTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateReports removes every cached report using SET-based tracking
func (c *RedisCache) InvalidateReports(ctx context.Context) error {
	keys, err := c.client.SMembers(ctx, reportKeysSet).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	if len(keys) > 0 {
		keys = append(keys, reportKeysSet)
		return c.client.Unlink(ctx, keys...).Err()
	}

	return nil
}

// NopCache satisfies the cache interfaces when Redis is disabled; every read misses
type NopCache struct{}

// GetProduct always misses
func (NopCache) GetProduct(context.Context, string) (*domain.Product, error) {
	return nil, domain.ErrNotFound
}

// SetProduct does nothing
func (NopCache) SetProduct(context.Context, *domain.Product) error { return nil }

// InvalidateProduct does nothing
func (NopCache) InvalidateProduct(context.Context, string) error { return nil }

// GetReport always misses
func (NopCache) GetReport(context.Context, string, string, any) error { return domain.ErrNotFound }

// SetReport does nothing
func (NopCache) SetReport(context.Context, string, string, any) error { return nil }

// InvalidateReports does nothing
func (NopCache) InvalidateReports(context.Context) error { return nil }
