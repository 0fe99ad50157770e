package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kanedev/gold-price-scraper/internal/config"
	"github.com/kanedev/gold-price-scraper/internal/models"
)

// RedisClient is the subset of the Redis client the cache calls (for testing).
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisCache shares the latest record across hosts; expiry is enforced by
// the server.
type RedisCache struct {
	client RedisClient
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(client RedisClient, cfg config.CacheConfig, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{
		client: client,
		key:    cfg.RedisKey,
		ttl:    cfg.TTL,
		logger: logger.With("component", "redis_cache"),
	}
}

func (c *RedisCache) Get(ctx context.Context) (*models.PriceRecord, bool, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache key %s: %w", c.key, err)
	}

	var record models.PriceRecord
	if err := json.Unmarshal(data, &record); err != nil {
		c.logger.Warn("discarding unreadable cache entry", "key", c.key, "error", err)
		return nil, false, nil
	}

	return &record, true, nil
}

func (c *RedisCache) Set(ctx context.Context, record *models.PriceRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", c.key, err)
	}

	return nil
}
