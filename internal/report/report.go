package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kanedev/gold-price-scraper/internal/models"
)

// Source yields stored price history, newest first. Both the CSV store and
// the database repository satisfy it.
type Source interface {
	History(ctx context.Context, limit int) ([]models.HistoryEntry, error)
}

// Service builds XLSX reports from stored price history.
type Service struct {
	source Source
	logger *slog.Logger
}

func NewService(source Source, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, logger: logger}
}

// Summary aggregates the gold samples of one report period.
type Summary struct {
	Samples int
	Min     int
	Max     int
	Average float64
}

// Summarize computes gold price statistics over the given entries. Entries
// for other products or without a price do not count.
func Summarize(entries []models.HistoryEntry) Summary {
	var s Summary
	var sum int
	for _, e := range entries {
		if e.ProductName != models.ProductGold || e.Price == nil {
			continue
		}
		p := *e.Price
		if s.Samples == 0 || p < s.Min {
			s.Min = p
		}
		if s.Samples == 0 || p > s.Max {
			s.Max = p
		}
		sum += p
		s.Samples++
	}
	if s.Samples > 0 {
		s.Average = float64(sum) / float64(s.Samples)
	}
	return s
}

// MonthlyXLSX returns an XLSX workbook (as bytes) covering every stored
// record of the given month, followed by a gold price summary block.
func (s *Service) MonthlyXLSX(ctx context.Context, month time.Time) ([]byte, error) {
	start := time.Now()

	entries, err := s.source.History(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	prefix := month.Format("2006-01")
	monthly := make([]models.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Date, prefix) {
			monthly = append(monthly, e)
		}
	}

	// History arrives newest first; the report reads top to bottom. The
	// stable sort keeps each day's products in record order.
	sort.SliceStable(monthly, func(i, j int) bool {
		return monthly[i].Date < monthly[j].Date
	})

	f := excelize.NewFile()
	const sheet = "Prices"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	write := func(col, row int, v interface{}) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	headers := []string{"Date", "Product", "Price (JPY)", "Recorded At"}
	for i, h := range headers {
		write(i+1, 1, h)
	}

	row := 2
	for _, e := range monthly {
		write(1, row, e.Date)
		write(2, row, e.ProductName)
		if e.Price != nil {
			write(3, row, *e.Price)
		} else {
			write(3, row, "")
		}
		write(4, row, e.Timestamp)
		row++
	}

	summary := Summarize(monthly)
	row++
	write(1, row, "Samples")
	write(2, row, summary.Samples)
	row++
	write(1, row, "Min")
	write(2, row, summary.Min)
	row++
	write(1, row, "Max")
	write(2, row, summary.Max)
	row++
	write(1, row, "Average")
	write(2, row, summary.Average)

	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "B", 26)
	_ = f.SetColWidth(sheet, "C", "C", 14)
	_ = f.SetColWidth(sheet, "D", "D", 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("report.xlsx.ok",
		"month", prefix,
		"rows", len(monthly),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
