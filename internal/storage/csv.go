package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kanedev/gold-price-scraper/internal/config"
	"github.com/kanedev/gold-price-scraper/internal/models"
	"github.com/kanedev/gold-price-scraper/internal/timeutil"
)

// CSVStorage writes one CSV file per day under the result directory.
type CSVStorage struct {
	dir      string
	template string
	logger   *slog.Logger
}

func NewCSVStorage(cfg config.StorageConfig, logger *slog.Logger) *CSVStorage {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVStorage{
		dir:      cfg.ResultDir,
		template: cfg.FilenameTemplate,
		logger:   logger.With("component", "csv_storage"),
	}
}

func (s *CSVStorage) Save(_ context.Context, record *models.PriceRecord) (string, error) {
	data, err := encodeRecord(record)
	if err != nil {
		return "", err
	}

	path := s.filePath(record.FileDate)
	if err := s.writeFile(path, data); err != nil {
		return "", err
	}

	s.logger.Info("price record saved", "path", path, "products", len(record.Products))
	return path, nil
}

func (s *CSVStorage) SaveEmpty(_ context.Context, at time.Time) (string, error) {
	path := s.filePath(timeutil.StampAt(at).FileDate)
	if err := s.writeFile(path, nil); err != nil {
		return "", err
	}

	s.logger.Info("empty result file created", "path", path)
	return path, nil
}

// Read parses one day's file. Rows in the current four-field layout map
// directly; legacy three-field rows [date, price, timestamp] are attributed
// to gold.
func (s *CSVStorage) Read(path string) ([]models.HistoryEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	entries := make([]models.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		switch {
		case len(row) >= 4:
			entries = append(entries, models.HistoryEntry{
				Date:        row[0],
				ProductName: row[1],
				Price:       parsePriceField(row[2]),
				Timestamp:   row[3],
			})
		case len(row) == 3:
			entries = append(entries, models.HistoryEntry{
				Date:        row[0],
				ProductName: models.ProductGold,
				Price:       parsePriceField(row[1]),
				Timestamp:   row[2],
			})
		}
	}

	return entries, nil
}

// History returns rows from the most recent result files, newest file
// first. limit caps the number of files read; zero or negative means all.
func (s *CSVStorage) History(_ context.Context, limit int) ([]models.HistoryEntry, error) {
	pattern := filepath.Join(s.dir, fmt.Sprintf(s.template, "*"))
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list result files: %w", err)
	}

	// File dates are zero-padded, so lexical order is date order.
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}

	entries := make([]models.HistoryEntry, 0, len(files))
	for _, file := range files {
		rows, err := s.Read(file)
		if err != nil {
			s.logger.Warn("skipping unreadable result file", "path", file, "error", err)
			continue
		}
		entries = append(entries, rows...)
	}

	return entries, nil
}

func (s *CSVStorage) filePath(fileDate string) string {
	return filepath.Join(s.dir, fmt.Sprintf(s.template, fileDate))
}

func (s *CSVStorage) writeFile(path string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create result directory: %w", err)
	}

	// Write to temp file first for atomicity
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to rename %s: %w", tmp, err)
	}

	return nil
}
