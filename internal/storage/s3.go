package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kanedev/gold-price-scraper/internal/config"
	"github.com/kanedev/gold-price-scraper/internal/models"
	"github.com/kanedev/gold-price-scraper/internal/timeutil"
)

// S3API is the subset of the S3 client the store calls.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage uploads one CSV object per day under the configured key prefix.
type S3Storage struct {
	client   S3API
	bucket   string
	prefix   string
	template string
	logger   *slog.Logger
}

func NewS3Storage(client S3API, cfg config.StorageConfig, awsCfg config.AWSConfig, logger *slog.Logger) *S3Storage {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Storage{
		client:   client,
		bucket:   awsCfg.S3Bucket,
		prefix:   awsCfg.KeyPrefix,
		template: cfg.FilenameTemplate,
		logger:   logger.With("component", "s3_storage"),
	}
}

func (s *S3Storage) Save(ctx context.Context, record *models.PriceRecord) (string, error) {
	data, err := encodeRecord(record)
	if err != nil {
		return "", err
	}

	key := s.objectKey(record.FileDate)
	if err := s.put(ctx, key, data); err != nil {
		return "", err
	}

	s.logger.Info("price record uploaded", "bucket", s.bucket, "key", key, "products", len(record.Products))
	return key, nil
}

func (s *S3Storage) SaveEmpty(ctx context.Context, at time.Time) (string, error) {
	key := s.objectKey(timeutil.StampAt(at).FileDate)
	if err := s.put(ctx, key, nil); err != nil {
		return "", err
	}

	s.logger.Info("empty result object uploaded", "bucket", s.bucket, "key", key)
	return key, nil
}

func (s *S3Storage) objectKey(fileDate string) string {
	return s.prefix + fmt.Sprintf(s.template, fileDate)
}

func (s *S3Storage) put(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", s.bucket, key, err)
	}

	return nil
}
