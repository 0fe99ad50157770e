package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/kanedev/gold-price-scraper/internal/config"
	"github.com/kanedev/gold-price-scraper/internal/logger"
	"github.com/kanedev/gold-price-scraper/internal/models"
	"github.com/kanedev/gold-price-scraper/internal/parser"
	"github.com/kanedev/gold-price-scraper/internal/scraper"
	"github.com/kanedev/gold-price-scraper/internal/storage"
)

func main() {
	var (
		htmlPath    = flag.String("html", "", "Rendered HTML document to parse (- for stdin)")
		all         = flag.Bool("all", false, "Extract the full product line-up, not just gold")
		save        = flag.Bool("save", false, "Persist the result to the configured storage")
		storageType = flag.String("storage", "", "Storage backend override: local or s3")
		jsonOut     = flag.Bool("json", false, "Print the result as JSON")
		quiet       = flag.Bool("quiet", false, "Suppress log output below errors")
	)
	flag.Parse()

	if *htmlPath == "" {
		fmt.Fprintln(os.Stderr, "No document to parse. Use -html <path> or -html - for stdin.")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *storageType != "" {
		cfg.Storage.Type = *storageType
	}
	if *quiet {
		cfg.Logging.Level = "error"
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx := context.Background()

	var src scraper.Source
	if *htmlPath == "-" {
		src = scraper.ReaderSource{Reader: os.Stdin}
	} else {
		src = scraper.FileSource{Path: *htmlPath}
	}

	html, err := src.HTML(ctx)
	if err != nil {
		logger.Error("Failed to read document", "error", err)
		os.Exit(1)
	}

	opts := scraper.OptionsFromConfig(cfg.Scraping)

	var record *models.PriceRecord
	if *all {
		extractor := parser.NewMultiProductExtractor(opts, logger)
		products, err := extractor.Extract(html)
		if err != nil {
			logger.Error("Extraction failed", "error", err)
			os.Exit(1)
		}
		record = models.NewPriceRecord(time.Now(), products)
	} else {
		gold := parser.NewGoldExtractor(opts)
		price, err := gold.ExtractPrice(html)
		if err != nil {
			logger.Error("Extraction failed", "error", err)
			os.Exit(1)
		}
		record = models.NewPriceRecord(time.Now(), []models.ProductPrice{
			models.NewProductPrice(models.ProductGold, price),
		})
	}

	if *save {
		store, err := storage.New(ctx, cfg.Storage, cfg.AWS, logger)
		if err != nil {
			logger.Error("Failed to initialize storage", "error", err)
			os.Exit(1)
		}

		if record.GoldPrice() == nil {
			if path, serr := store.SaveEmpty(ctx, time.Now()); serr != nil {
				logger.Error("Failed to save empty result", "error", serr)
			} else {
				logger.Info("Saved empty result", "path", path)
			}
		} else {
			path, err := store.Save(ctx, record)
			if err != nil {
				logger.Error("Failed to save record", "error", err)
				os.Exit(1)
			}
			logger.Info("Saved result", "path", path)
		}
	}

	if err := outputResult(record, *jsonOut); err != nil {
		logger.Error("Failed to output result", "error", err)
	}

	if record.GoldPrice() == nil {
		os.Exit(1)
	}
}

func outputResult(record *models.PriceRecord, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Product", "Price (JPY)", "Status"})

	for _, p := range record.Products {
		if p.Price != nil {
			t.AppendRow(table.Row{p.ProductName, *p.Price, "ok"})
		} else {
			t.AppendRow(table.Row{p.ProductName, "-", "not found"})
		}
	}

	t.SetStyle(table.StyleRounded)
	t.Render()

	fmt.Printf("Date: %s\n", record.Date)
	return nil
}
