package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kanedev/gold-price-scraper/internal/cache"
	"github.com/kanedev/gold-price-scraper/internal/config"
	"github.com/kanedev/gold-price-scraper/internal/models"
	"github.com/kanedev/gold-price-scraper/internal/parser"
	"github.com/kanedev/gold-price-scraper/internal/storage"
)

var (
	// ErrPriceNotFound reports that the document yielded no gold price.
	ErrPriceNotFound = errors.New("gold price not found")
)

// EventPublisher pushes a stored record to downstream consumers.
type EventPublisher interface {
	PublishPriceRecorded(ctx context.Context, record *models.PriceRecord) error
}

// ServiceOptions holds the optional pipeline pieces.
type ServiceOptions struct {
	// Publisher enqueues events after a record is stored. Nil disables
	// eventing.
	Publisher EventPublisher
	// LinkPatterns are the XPath patterns used to locate the price page
	// link on a top page document.
	LinkPatterns []string
}

// Service runs the extraction pipeline: cache check, parse, persist,
// publish.
type Service struct {
	extractor parser.ProductExtractor
	store     storage.Store
	cache     cache.Cache
	publisher EventPublisher
	patterns  []string
	logger    *slog.Logger
}

func NewService(extractor parser.ProductExtractor, store storage.Store, c cache.Cache, logger *slog.Logger, opts ServiceOptions) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		extractor: extractor,
		store:     store,
		cache:     c,
		publisher: opts.Publisher,
		patterns:  opts.LinkPatterns,
		logger:    logger.With("component", "scraper"),
	}
}

// OptionsFromConfig maps the scraping settings onto extractor options.
func OptionsFromConfig(cfg config.ScrapingConfig) parser.Options {
	return parser.Options{
		GoldMarker:        cfg.GoldMarker,
		UnitMarker:        cfg.UnitMarker,
		ShortLabelMax:     cfg.ShortLabelMax,
		MinValidPrice:     cfg.MinValidPrice,
		MaxValidPrice:     cfg.MaxValidPrice,
		CoinMinValidPrice: cfg.CoinMinValidPrice,
		CoinMaxValidPrice: cfg.CoinMaxValidPrice,
	}
}

// Result is the outcome of a pipeline run.
type Result struct {
	Record    *models.PriceRecord
	Path      string
	FromCache bool
}

// Run executes the full pipeline against a document source. A fresh cached
// record short-circuits the run. When no gold price is found an empty
// result file is written and ErrPriceNotFound is returned.
func (s *Service) Run(ctx context.Context, src Source) (*Result, error) {
	if record, ok, err := s.cache.Get(ctx); err != nil {
		s.logger.Warn("cache read failed", "error", err)
	} else if ok {
		s.logger.Info("serving cached record", "date", record.Date)
		return &Result{Record: record, FromCache: true}, nil
	}

	html, err := src.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	record, err := s.ExtractRecord(html)
	if err != nil {
		return nil, err
	}

	if record.GoldPrice() == nil {
		if path, serr := s.store.SaveEmpty(ctx, time.Now()); serr != nil {
			s.logger.Error("failed to save empty result", "error", serr)
		} else {
			s.logger.Warn("no gold price extracted, saved empty result", "path", path)
		}
		return nil, ErrPriceNotFound
	}

	path, err := s.store.Save(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to save record: %w", err)
	}

	if err := s.cache.Set(ctx, record); err != nil {
		s.logger.Warn("cache write failed", "error", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishPriceRecorded(ctx, record); err != nil {
			s.logger.Error("failed to publish price event", "error", err)
		}
	}

	s.logger.Info("price record stored",
		"date", record.Date,
		"gold_price", *record.GoldPrice(),
		"products", len(record.Products),
		"path", path,
	)

	return &Result{Record: record, Path: path}, nil
}

// ExtractRecord parses the document and assembles a dated record of all
// tracked products. The record is returned even when no prices were found;
// callers decide whether that is an error.
func (s *Service) ExtractRecord(html string) (*models.PriceRecord, error) {
	products, err := s.extractor.Extract(html)
	if err != nil {
		return nil, fmt.Errorf("failed to extract products: %w", err)
	}

	record := models.NewPriceRecord(time.Now(), products)

	if record.GoldPrice() == nil {
		if summary, serr := parser.Summarize(html); serr == nil {
			s.logger.Warn("gold price not found in document",
				"title", summary.Title,
				"tables", summary.TableCount,
			)
		}
	}

	return record, nil
}

// DiscoverPriceLink locates the retail price page link in a top page
// document using the configured patterns.
func (s *Service) DiscoverPriceLink(html string) (string, error) {
	return parser.FindPriceLink(html, s.patterns)
}
