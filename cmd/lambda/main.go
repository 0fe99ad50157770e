package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kanedev/gold-price-scraper/internal/cache"
	"github.com/kanedev/gold-price-scraper/internal/config"
	"github.com/kanedev/gold-price-scraper/internal/logger"
	"github.com/kanedev/gold-price-scraper/internal/models"
	"github.com/kanedev/gold-price-scraper/internal/parser"
	"github.com/kanedev/gold-price-scraper/internal/scraper"
	"github.com/kanedev/gold-price-scraper/internal/storage"
)

// Event is the Lambda invocation payload. The document comes either inline
// or as an S3 object reference.
type Event struct {
	HTML         string `json:"html,omitempty"`
	S3Bucket     string `json:"s3_bucket,omitempty"`
	S3Key        string `json:"s3_key,omitempty"`
	MultiProduct bool   `json:"multi_product,omitempty"`
}

// ResponseBody is the JSON-encoded body of the Lambda response.
type ResponseBody struct {
	Success   bool                  `json:"success"`
	Message   string                `json:"message"`
	GoldPrice *int                  `json:"gold_price,omitempty"`
	Products  []models.ProductPrice `json:"products,omitempty"`
	File      string                `json:"file,omitempty"`
	Error     string                `json:"error,omitempty"`
}

// Response mirrors the statusCode/body envelope the previous deployment
// returned.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

type s3Getter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type handler struct {
	svc    *scraper.Service
	s3     s3Getter
	logger *slog.Logger
}

func (h *handler) Handle(ctx context.Context, event Event) (Response, error) {
	html, err := h.document(ctx, event)
	if err != nil {
		h.logger.Error("failed to load document", "error", err)
		return errorResponse("failed to load document", err), nil
	}

	result, err := h.svc.Run(ctx, scraper.StringSource(html))
	if err != nil {
		if errors.Is(err, scraper.ErrPriceNotFound) {
			return errorResponse("gold price not found", err), nil
		}
		h.logger.Error("pipeline failed", "error", err)
		return errorResponse("extraction failed", err), nil
	}

	body := ResponseBody{
		Success:   true,
		Message:   "extraction completed",
		GoldPrice: result.Record.GoldPrice(),
		File:      result.Path,
	}
	if event.MultiProduct {
		body.Products = result.Record.Products
	}

	return jsonResponse(http.StatusOK, body), nil
}

func (h *handler) document(ctx context.Context, event Event) (string, error) {
	if event.HTML != "" {
		return event.HTML, nil
	}
	if event.S3Bucket == "" || event.S3Key == "" {
		return "", fmt.Errorf("event carries neither html nor an s3 object reference")
	}

	out, err := h.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(event.S3Bucket),
		Key:    aws.String(event.S3Key),
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch s3://%s/%s: %w", event.S3Bucket, event.S3Key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read s3 object: %w", err)
	}
	return string(data), nil
}

func jsonResponse(status int, body ResponseBody) Response {
	data, err := json.Marshal(body)
	if err != nil {
		return Response{
			StatusCode: http.StatusInternalServerError,
			Body:       `{"success":false,"message":"failed to encode response"}`,
		}
	}
	return Response{StatusCode: status, Body: string(data)}
}

func errorResponse(message string, err error) Response {
	return jsonResponse(http.StatusInternalServerError, ResponseBody{
		Success: false,
		Message: message,
		Error:   err.Error(),
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	ctx := context.Background()

	store, err := storage.New(ctx, cfg.Storage, cfg.AWS, log)
	if err != nil {
		log.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}

	resultCache, err := cache.New(cfg.Cache, cfg.Redis, log)
	if err != nil {
		log.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}

	sdkCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		log.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	extractor := parser.NewMultiProductExtractor(scraper.OptionsFromConfig(cfg.Scraping), log)
	svc := scraper.NewService(extractor, store, resultCache, log, scraper.ServiceOptions{
		LinkPatterns: cfg.Scraping.LinkPatterns,
	})

	h := &handler{
		svc:    svc,
		s3:     s3.NewFromConfig(sdkCfg),
		logger: log,
	}

	lambda.Start(h.Handle)
}
