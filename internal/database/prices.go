package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kanedev/gold-price-scraper/internal/models"
	"github.com/kanedev/gold-price-scraper/internal/timeutil"
)

// PriceRepository persists daily product prices. Each product of a day is
// one row keyed by (price_date, product_name); re-running a day overwrites
// its rows.
type PriceRepository struct {
	db *DB
}

func NewPriceRepository(db *DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// UpsertRecordWithTx writes every product of one record within the caller's
// transaction.
func (r *PriceRepository) UpsertRecordWithTx(ctx context.Context, tx pgx.Tx, record *models.PriceRecord) error {
	date, err := timeutil.ParseDate(record.Date)
	if err != nil {
		return fmt.Errorf("invalid record date %q: %w", record.Date, err)
	}

	recordedAt, err := time.Parse(timeutil.DateTimeLayout, record.Timestamp)
	if err != nil {
		recordedAt = time.Now()
	}

	query := `
		INSERT INTO gold_price (price_date, product_name, price, recorded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (price_date, product_name) DO UPDATE SET
			price = EXCLUDED.price,
			recorded_at = EXCLUDED.recorded_at`

	for _, p := range record.Products {
		if _, err := tx.Exec(ctx, query, date, p.ProductName, p.Price, recordedAt); err != nil {
			return fmt.Errorf("failed to upsert price for %s: %w", p.ProductName, err)
		}
	}

	return nil
}

// UpsertRecord writes the record in its own transaction.
func (r *PriceRepository) UpsertRecord(ctx context.Context, record *models.PriceRecord) error {
	return r.db.Transaction(ctx, func(tx pgx.Tx) error {
		return r.UpsertRecordWithTx(ctx, tx, record)
	})
}

// History returns rows for the most recent days, newest first. days caps
// how many distinct dates are returned; zero or negative falls back to 30.
func (r *PriceRepository) History(ctx context.Context, days int) ([]models.HistoryEntry, error) {
	if days <= 0 {
		days = 30
	}

	query := `
		SELECT price_date, product_name, price, recorded_at
		FROM gold_price
		WHERE price_date IN (
			SELECT DISTINCT price_date FROM gold_price
			ORDER BY price_date DESC
			LIMIT $1
		)
		ORDER BY price_date DESC, product_name ASC`

	rows, err := r.db.Query(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var (
			date       time.Time
			name       string
			price      *int
			recordedAt time.Time
		)
		if err := rows.Scan(&date, &name, &price, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		entries = append(entries, models.HistoryEntry{
			Date:        date.Format(timeutil.DateLayout),
			ProductName: name,
			Price:       price,
			Timestamp:   recordedAt.Format(timeutil.DateTimeLayout),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return entries, nil
}

// GoldOnDate returns the gold price stored for one day, nil when the day is
// missing or was recorded without a price.
func (r *PriceRepository) GoldOnDate(ctx context.Context, date time.Time) (*int, error) {
	var price *int
	err := r.db.QueryRow(ctx,
		"SELECT price FROM gold_price WHERE price_date = $1 AND product_name = $2",
		date, models.ProductGold).Scan(&price)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query gold price: %w", err)
	}

	return price, nil
}
