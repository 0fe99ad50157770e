package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/kanedev/gold-price-scraper/internal/api"
	"github.com/kanedev/gold-price-scraper/internal/cache"
	"github.com/kanedev/gold-price-scraper/internal/config"
	"github.com/kanedev/gold-price-scraper/internal/database"
	"github.com/kanedev/gold-price-scraper/internal/events"
	"github.com/kanedev/gold-price-scraper/internal/logger"
	"github.com/kanedev/gold-price-scraper/internal/parser"
	"github.com/kanedev/gold-price-scraper/internal/scraper"
	"github.com/kanedev/gold-price-scraper/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage backend
	store, err := storage.New(ctx, cfg.Storage, cfg.AWS, log)
	if err != nil {
		log.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Result cache
	resultCache, err := cache.New(cfg.Cache, cfg.Redis, log)
	if err != nil {
		log.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}

	// Database connection (optional)
	var (
		db        *database.DB
		publisher *events.Publisher
		relay     *database.Relay
	)
	if cfg.Database.Enabled {
		db, err = database.New(ctx, database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.MaxConns,
		})
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.EnsureSchema(ctx); err != nil {
			log.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}

		// Initialize event publisher with database (for transactional outbox)
		publisher = events.NewPublisher(db, log)
	}

	// Redis client and relay for outbox processing
	if db != nil && cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		// Test Redis connection
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}

		relay = database.NewRelay(db, redisClient, log, database.RelayConfig{
			PollInterval: 5 * time.Second,
			BatchSize:    100,
		})
		go func() {
			if err := relay.Start(ctx); err != nil && err != context.Canceled {
				log.Error("relay stopped with error", "error", err)
			}
		}()
	}

	// Extraction pipeline
	opts := scraper.OptionsFromConfig(cfg.Scraping)
	extractor := parser.NewMultiProductExtractor(opts, log)
	gold := parser.NewGoldExtractor(opts)

	var pub scraper.EventPublisher
	if publisher != nil {
		pub = publisher
	}
	svc := scraper.NewService(extractor, store, resultCache, log, scraper.ServiceOptions{
		Publisher:    pub,
		LinkPatterns: cfg.Scraping.LinkPatterns,
	})

	// History comes from the database when enabled, otherwise from local
	// CSV files. The S3 backend keeps no local history.
	var history api.HistoryProvider
	if db != nil {
		history = database.NewPriceRepository(db)
	} else if csvStore, ok := store.(*storage.CSVStorage); ok {
		history = csvStore
	}

	var outboxStats api.OutboxStats
	if relay != nil {
		outboxStats = relay
	}

	// Initialize API handlers
	handlers := api.NewHandlers(svc, gold, history, db, outboxStats, log)

	// Setup Chi router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", handlers.Health)

	// API Routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/extract", handlers.ExtractGoldPrice)
		r.Post("/extract/products", handlers.ExtractProducts)
		r.Post("/links/price-page", handlers.FindPriceLink)
		r.Get("/prices/history", handlers.GetHistory)
	})

	// Start server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
