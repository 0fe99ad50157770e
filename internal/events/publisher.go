package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kanedev/gold-price-scraper/internal/database"
	"github.com/kanedev/gold-price-scraper/internal/models"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypePriceRecorded is published when a day's extraction result
	// has been stored.
	EventTypePriceRecorded EventType = "PRICE_RECORDED"
)

// PriceRecordedPayload is the body of a PRICE_RECORDED event.
type PriceRecordedPayload struct {
	EventID   string                `json:"event_id"`
	EventType string                `json:"event_type"`
	Timestamp time.Time             `json:"timestamp"`
	Date      string                `json:"date"`
	GoldPrice *int                  `json:"gold_price,omitempty"`
	Products  []models.ProductPrice `json:"products"`
	Source    string                `json:"source"`
}

func newPriceRecordedPayload(record *models.PriceRecord) *PriceRecordedPayload {
	return &PriceRecordedPayload{
		EventID:   uuid.New().String(),
		EventType: string(EventTypePriceRecorded),
		Timestamp: time.Now(),
		Date:      record.Date,
		GoldPrice: record.GoldPrice(),
		Products:  record.Products,
		Source:    "scraper",
	}
}

// Publisher stores price records and their events atomically using the
// transactional outbox; the relay ships them to Redis afterwards.
type Publisher struct {
	db     *database.DB
	prices *database.PriceRepository
	outbox *database.OutboxRepository
	logger *slog.Logger
}

func NewPublisher(db *database.DB, logger *slog.Logger) *Publisher {
	return &Publisher{
		db:     db,
		prices: database.NewPriceRepository(db),
		outbox: database.NewOutboxRepository(db),
		logger: logger.With("component", "event_publisher"),
	}
}

// PublishPriceRecorded upserts the record's rows and enqueues the event in
// one transaction, so consumers never see an event for data that was rolled
// back.
func (p *Publisher) PublishPriceRecorded(ctx context.Context, record *models.PriceRecord) error {
	payload := newPriceRecordedPayload(record)

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	outboxEvent := &database.OutboxEvent{
		AggregateType: "price_record",
		AggregateID:   record.Date,
		EventType:     string(EventTypePriceRecorded),
		Payload:       data,
		TargetStream:  database.DefaultTargetStream,
	}

	err = p.db.Transaction(ctx, func(tx pgx.Tx) error {
		if err := p.prices.UpsertRecordWithTx(ctx, tx, record); err != nil {
			return err
		}
		if err := p.outbox.InsertWithTx(ctx, tx, outboxEvent); err != nil {
			return fmt.Errorf("failed to insert outbox event: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("event published to outbox",
		"type", payload.EventType,
		"event_id", payload.EventID,
		"date", record.Date,
		"outbox_id", outboxEvent.ID,
	)

	return nil
}
