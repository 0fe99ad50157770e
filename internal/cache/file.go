package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kanedev/gold-price-scraper/internal/config"
	"github.com/kanedev/gold-price-scraper/internal/models"
)

// envelope wraps the cached record with its write time; freshness is
// decided on the read side.
type envelope struct {
	CachedAt time.Time           `json:"cached_at"`
	Record   *models.PriceRecord `json:"record"`
}

// FileCache persists the latest record as a small JSON file next to the
// results.
type FileCache struct {
	path   string
	ttl    time.Duration
	logger *slog.Logger
}

func NewFileCache(cfg config.CacheConfig, logger *slog.Logger) *FileCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileCache{
		path:   cfg.FilePath,
		ttl:    cfg.TTL,
		logger: logger.With("component", "file_cache"),
	}
}

func (c *FileCache) Get(_ context.Context) (*models.PriceRecord, bool, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		// A corrupt cache is a miss, not a failure.
		c.logger.Warn("discarding unreadable cache file", "path", c.path, "error", err)
		return nil, false, nil
	}

	if env.Record == nil || time.Since(env.CachedAt) > c.ttl {
		return nil, false, nil
	}

	return env.Record, true, nil
}

func (c *FileCache) Set(_ context.Context, record *models.PriceRecord) error {
	data, err := json.MarshalIndent(envelope{CachedAt: time.Now(), Record: record}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	// Write to temp file first for atomicity
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to rename cache file: %w", err)
	}

	return nil
}
