package report

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kanedev/gold-price-scraper/internal/models"
)

func intPtr(v int) *int { return &v }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSource struct {
	entries []models.HistoryEntry
	err     error
}

func (f *fakeSource) History(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func TestSummarize(t *testing.T) {
	entries := []models.HistoryEntry{
		{Date: "2025-07-14", ProductName: models.ProductGold, Price: intPtr(17428)},
		{Date: "2025-07-15", ProductName: models.ProductGold, Price: intPtr(17500)},
		{Date: "2025-07-15", ProductName: models.CoinLabelBase + "(1oz)", Price: intPtr(350000)},
		{Date: "2025-07-16", ProductName: models.ProductGold, Price: nil},
	}

	s := Summarize(entries)

	assert.Equal(t, 2, s.Samples)
	assert.Equal(t, 17428, s.Min)
	assert.Equal(t, 17500, s.Max)
	assert.Equal(t, 17464.0, s.Average)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)

	assert.Equal(t, 0, s.Samples)
	assert.Equal(t, 0, s.Min)
	assert.Equal(t, 0, s.Max)
	assert.Equal(t, 0.0, s.Average)
}

func TestMonthlyXLSX(t *testing.T) {
	source := &fakeSource{entries: []models.HistoryEntry{
		{Date: "2025-07-15", ProductName: models.ProductGold, Price: intPtr(17500), Timestamp: "2025-07-15 09:30:00"},
		{Date: "2025-07-15", ProductName: models.CoinLabelBase + "(1oz)", Price: nil, Timestamp: "2025-07-15 09:30:00"},
		{Date: "2025-07-14", ProductName: models.ProductGold, Price: intPtr(17428), Timestamp: "2025-07-14 09:30:00"},
		{Date: "2025-06-30", ProductName: models.ProductGold, Price: intPtr(17000), Timestamp: "2025-06-30 09:30:00"},
	}}
	svc := NewService(source, testLogger())

	data, err := svc.MonthlyXLSX(context.Background(), time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	cell := func(ref string) string {
		v, err := f.GetCellValue("Prices", ref)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Date", cell("A1"))
	assert.Equal(t, "Product", cell("B1"))

	// Oldest day first; rows from June are filtered out.
	assert.Equal(t, "2025-07-14", cell("A2"))
	assert.Equal(t, models.ProductGold, cell("B2"))
	assert.Equal(t, "17428", cell("C2"))
	assert.Equal(t, "2025-07-15", cell("A3"))
	assert.Equal(t, "17500", cell("C3"))
	assert.Equal(t, models.CoinLabelBase+"(1oz)", cell("B4"))
	assert.Equal(t, "", cell("C4"))
	assert.Equal(t, "", cell("A5"))

	assert.Equal(t, "Samples", cell("A6"))
	assert.Equal(t, "2", cell("B6"))
	assert.Equal(t, "Min", cell("A7"))
	assert.Equal(t, "17428", cell("B7"))
	assert.Equal(t, "Max", cell("A8"))
	assert.Equal(t, "17500", cell("B8"))
	assert.Equal(t, "Average", cell("A9"))
	assert.Equal(t, "17464", cell("B9"))
}

func TestMonthlyXLSX_EmptyMonth(t *testing.T) {
	source := &fakeSource{entries: []models.HistoryEntry{
		{Date: "2025-06-30", ProductName: models.ProductGold, Price: intPtr(17000), Timestamp: "2025-06-30 09:30:00"},
	}}
	svc := NewService(source, testLogger())

	data, err := svc.MonthlyXLSX(context.Background(), time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue("Prices", "A3")
	require.NoError(t, err)
	assert.Equal(t, "Samples", v)
}

func TestMonthlyXLSX_SourceError(t *testing.T) {
	svc := NewService(&fakeSource{err: errors.New("glob failed")}, testLogger())

	_, err := svc.MonthlyXLSX(context.Background(), time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load history")
}
