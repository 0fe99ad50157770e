package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/kanedev/gold-price-scraper/internal/config"
	"github.com/kanedev/gold-price-scraper/internal/logger"
	"github.com/kanedev/gold-price-scraper/internal/report"
	"github.com/kanedev/gold-price-scraper/internal/storage"
	"github.com/kanedev/gold-price-scraper/internal/timeutil"
)

func main() {
	var (
		dir      = flag.String("dir", "", "Result directory override")
		monthArg = flag.String("month", "", "Report month as YYYY-MM (default: current month)")
		out      = flag.String("out", "", "Output file (default: gold-report-<month>.xlsx)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *dir != "" {
		cfg.Storage.ResultDir = *dir
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	month := time.Now()
	if *monthArg != "" {
		month, err = timeutil.ParseMonth(*monthArg)
		if err != nil {
			log.Fatalf("Invalid month %q: %v", *monthArg, err)
		}
	}

	outPath := *out
	if outPath == "" {
		outPath = fmt.Sprintf("gold-report-%s.xlsx", month.Format("2006-01"))
	}

	store := storage.NewCSVStorage(cfg.Storage, logger)
	svc := report.NewService(store, logger)

	data, err := svc.MonthlyXLSX(context.Background(), month)
	if err != nil {
		logger.Error("Failed to build report", "error", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		logger.Error("Failed to write report", "error", err)
		os.Exit(1)
	}

	logger.Info("Report written", "path", outPath, "month", month.Format("2006-01"))
}
