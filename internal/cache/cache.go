package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/kanedev/gold-price-scraper/internal/config"
	"github.com/kanedev/gold-price-scraper/internal/models"
)

// Cache keeps the latest extraction result between runs so closely spaced
// invocations can skip a scrape.
type Cache interface {
	// Get returns the cached record when present and still fresh. A miss is
	// (nil, false, nil); the error is reserved for backend failures.
	Get(ctx context.Context) (*models.PriceRecord, bool, error)
	Set(ctx context.Context, record *models.PriceRecord) error
}

// New builds the cache selected by cfg.Backend.
func New(cfg config.CacheConfig, redisCfg config.RedisConfig, logger *slog.Logger) (Cache, error) {
	switch cfg.Backend {
	case "file":
		return NewFileCache(cfg, logger), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		return NewRedisCache(client, cfg, logger), nil
	case "none", "":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}

// Noop is the disabled cache: every Get misses and every Set is dropped.
type Noop struct{}

func (Noop) Get(context.Context) (*models.PriceRecord, bool, error) { return nil, false, nil }

func (Noop) Set(context.Context, *models.PriceRecord) error { return nil }
