package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Scraping ScrapingConfig
	Storage  StorageConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	AWS      AWSConfig
	Logging  LoggingConfig
}

// ScrapingConfig carries the extraction heuristics. The marker strings and
// the short-label cap qualify price-table rows; they are tuned to the retail
// page's markup and kept configurable so markup drift is an ops change, not
// a code change.
type ScrapingConfig struct {
	GoldMarker        string
	UnitMarker        string
	ShortLabelMax     int
	MinValidPrice     int
	MaxValidPrice     int
	CoinMinValidPrice int
	CoinMaxValidPrice int
	LinkPatterns      []string
}

type StorageConfig struct {
	Type             string
	ResultDir        string
	FilenameTemplate string
}

type CacheConfig struct {
	Backend  string
	TTL      time.Duration
	FilePath string
	RedisKey string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type AWSConfig struct {
	Region    string
	S3Bucket  string
	KeyPrefix string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Scraping: ScrapingConfig{
			GoldMarker:        getEnvOrDefault("SCRAPING_GOLD_MARKER", "金"),
			UnitMarker:        getEnvOrDefault("SCRAPING_UNIT_MARKER", "g"),
			ShortLabelMax:     getIntOrDefault("SCRAPING_SHORT_LABEL_MAX", 5),
			MinValidPrice:     getIntOrDefault("SCRAPING_MIN_VALID_PRICE", 10000),
			MaxValidPrice:     getIntOrDefault("SCRAPING_MAX_VALID_PRICE", 30000),
			CoinMinValidPrice: getIntOrDefault("SCRAPING_COIN_MIN_VALID_PRICE", 20000),
			CoinMaxValidPrice: getIntOrDefault("SCRAPING_COIN_MAX_VALID_PRICE", 2000000),
			LinkPatterns:      getPatternSliceOrDefault("SCRAPING_LINK_PATTERNS", defaultLinkPatterns()),
		},
		Storage: StorageConfig{
			Type:             getEnvOrDefault("STORAGE_TYPE", "local"),
			ResultDir:        getEnvOrDefault("STORAGE_RESULT_DIR", defaultResultDir()),
			FilenameTemplate: getEnvOrDefault("STORAGE_FILENAME_TEMPLATE", "gold-price-%s.csv"),
		},
		Cache: CacheConfig{
			Backend:  getEnvOrDefault("CACHE_BACKEND", "file"),
			TTL:      getDurationOrDefault("CACHE_TTL", 5*time.Minute),
			FilePath: getEnvOrDefault("CACHE_FILE_PATH", defaultCachePath()),
			RedisKey: getEnvOrDefault("CACHE_REDIS_KEY", "gold:price:latest"),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolOrDefault("DB_ENABLED", false),
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "gold_prices"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Enabled:  getBoolOrDefault("REDIS_ENABLED", false),
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8090"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getStringSliceOrDefault("SERVER_ALLOWED_ORIGINS", []string{"http://localhost:*"}),
		},
		AWS: AWSConfig{
			Region:    getEnvOrDefault("AWS_REGION", "ap-northeast-1"),
			S3Bucket:  getEnvOrDefault("AWS_S3_BUCKET", ""),
			KeyPrefix: getEnvOrDefault("AWS_S3_KEY_PREFIX", "gold-prices/"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraping.GoldMarker == "" {
		return fmt.Errorf("SCRAPING_GOLD_MARKER must not be empty")
	}

	if c.Scraping.ShortLabelMax < 0 {
		return fmt.Errorf("SCRAPING_SHORT_LABEL_MAX must not be negative")
	}

	if c.Scraping.MinValidPrice > c.Scraping.MaxValidPrice {
		return fmt.Errorf("SCRAPING_MIN_VALID_PRICE cannot be greater than SCRAPING_MAX_VALID_PRICE")
	}

	if c.Scraping.CoinMinValidPrice > c.Scraping.CoinMaxValidPrice {
		return fmt.Errorf("SCRAPING_COIN_MIN_VALID_PRICE cannot be greater than SCRAPING_COIN_MAX_VALID_PRICE")
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("STORAGE_TYPE must be local or s3, got %q", c.Storage.Type)
	}

	if c.Storage.ResultDir == "" {
		return fmt.Errorf("STORAGE_RESULT_DIR must not be empty")
	}

	if !strings.Contains(c.Storage.FilenameTemplate, "%s") {
		return fmt.Errorf("STORAGE_FILENAME_TEMPLATE must contain a %%s date placeholder")
	}

	if c.Storage.Type == "s3" && c.AWS.S3Bucket == "" {
		return fmt.Errorf("AWS_S3_BUCKET is required when STORAGE_TYPE is s3")
	}

	switch c.Cache.Backend {
	case "file", "redis", "none":
	default:
		return fmt.Errorf("CACHE_BACKEND must be file, redis or none, got %q", c.Cache.Backend)
	}

	if c.Cache.Backend != "none" && c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}

	if c.Cache.Backend == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("CACHE_BACKEND redis requires REDIS_ENABLED=true")
	}

	if port, err := strconv.Atoi(c.Server.Port); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %q", c.Server.Port)
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required when DB_ENABLED=true")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("DB_NAME is required when DB_ENABLED=true")
		}
	}

	return nil
}

// Lambda packs a read-only filesystem except /tmp, so file outputs move
// there when no explicit override is set.
func runningInLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

func defaultResultDir() string {
	if runningInLambda() {
		return "/tmp/result"
	}
	return "result"
}

func defaultCachePath() string {
	if runningInLambda() {
		return "/tmp/cache/gold_price_cache.json"
	}
	return "cache/gold_price_cache.json"
}

func defaultLinkPatterns() []string {
	return []string{
		"//a[contains(text(), '本日の小売価格')]",
		"//a[contains(text(), '小売価格')]",
		"//a[contains(@href, 'price')]",
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// XPath patterns may contain commas, so they split on ";" instead.
func getPatternSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ";")
	}
	return defaultValue
}
