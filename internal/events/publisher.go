package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/storefront-scraper/internal/models"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeProductScraped is published for every grid record
	EventTypeProductScraped EventType = "PRODUCT_SCRAPED"
	// EventTypeProductDetailsScraped is published for every product page
	EventTypeProductDetailsScraped EventType = "PRODUCT_DETAILS_SCRAPED"

	source = "storefront-scraper"
)

// RedisClient is the subset of *redis.Client the publisher needs.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// Envelope is the JSON document stored in the stream's data field.
type Envelope struct {
	EventID   string    `json:"event_id"`
	EventType EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	Source    string    `json:"source"`
	Payload   any       `json:"payload"`
}

// Publisher appends scrape results to a Redis stream.
type Publisher struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
	now    func() time.Time
}

func NewPublisher(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
		now:    time.Now,
	}
}

func (p *Publisher) SaveProducts(ctx context.Context, runID string, products []models.SummaryProduct) error {
	for i := range products {
		if err := p.publish(ctx, runID, EventTypeProductScraped, &products[i]); err != nil {
			return err
		}
	}
	p.logger.Info("published products", "count", len(products), "stream", p.stream)
	return nil
}

func (p *Publisher) SaveDetail(ctx context.Context, runID string, product *models.DetailProduct) error {
	return p.publish(ctx, runID, EventTypeProductDetailsScraped, product)
}

func (p *Publisher) publish(ctx context.Context, runID string, eventType EventType, payload any) error {
	envelope := Envelope{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: p.now().UTC(),
		RunID:     runID,
		Source:    source,
		Payload:   payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":       string(data),
			"event_id":   envelope.EventID,
			"event_type": string(eventType),
			"run_id":     runID,
			"timestamp":  fmt.Sprintf("%d", envelope.Timestamp.UnixNano()),
		},
	}

	id, err := p.redis.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Debug("event published", "type", eventType, "event_id", envelope.EventID, "stream_id", id)
	return nil
}
