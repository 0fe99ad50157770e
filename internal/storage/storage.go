package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kanedev/gold-price-scraper/internal/config"
	"github.com/kanedev/gold-price-scraper/internal/models"
)

// Store persists one extraction result per day.
type Store interface {
	// Save writes the record and returns its destination, a file path for
	// local storage or an object key for S3.
	Save(ctx context.Context, record *models.PriceRecord) (string, error)
	// SaveEmpty writes an empty file for a day the extraction failed, so a
	// missing price is distinguishable from a run that never happened.
	SaveEmpty(ctx context.Context, at time.Time) (string, error)
}

// New builds the store selected by cfg.Type.
func New(ctx context.Context, cfg config.StorageConfig, awsCfg config.AWSConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "s3":
		sdkCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(awsCfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return NewS3Storage(s3.NewFromConfig(sdkCfg), cfg, awsCfg, logger), nil
	case "local", "":
		return NewCSVStorage(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// encodeRecord renders the CSV body shared by the local and S3 stores. Rows
// are [date, product_name, price, timestamp]; a missing price is an empty
// field.
func encodeRecord(record *models.PriceRecord) ([]byte, error) {
	if errs := record.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid price record: %s", strings.Join(errs, "; "))
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, p := range record.Products {
		price := ""
		if p.Price != nil {
			price = strconv.Itoa(*p.Price)
		}
		if err := w.Write([]string{record.Date, p.ProductName, price, record.Timestamp}); err != nil {
			return nil, fmt.Errorf("failed to encode CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to encode CSV: %w", err)
	}

	return buf.Bytes(), nil
}

func parsePriceField(text string) *int {
	v, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return nil
	}
	return &v
}
