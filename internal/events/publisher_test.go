package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/storefront-scraper/internal/models"
)

// MockRedisClient is a mock for Redis client
type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	mockArgs := m.Called(ctx, args)
	cmd := redis.NewStringCmd(ctx)
	if err := mockArgs.Error(0); err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal("1234567890-0")
	}
	return cmd
}

func str(s string) *string { return &s }

func TestPublisherSaveDetail(t *testing.T) {
	ctx := context.Background()
	client := &MockRedisClient{}
	publisher := NewPublisher(client, "scraper:events", nil)
	publisher.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	var captured *redis.XAddArgs
	client.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
		return args.Stream == "scraper:events" && args.Values.(map[string]interface{})["event_type"] == "PRODUCT_DETAILS_SCRAPED"
	})).Run(func(args mock.Arguments) {
		captured = args.Get(1).(*redis.XAddArgs)
	}).Return(nil).Once()

	product := &models.DetailProduct{URL: "https://shop.test/p/1", Title: str("Kettle")}
	require.NoError(t, publisher.SaveDetail(ctx, "run-1", product))
	client.AssertExpectations(t)

	values := captured.Values.(map[string]interface{})
	assert.Equal(t, "run-1", values["run_id"])

	var envelope struct {
		EventID   string               `json:"event_id"`
		EventType string               `json:"event_type"`
		Timestamp time.Time            `json:"timestamp"`
		RunID     string               `json:"run_id"`
		Source    string               `json:"source"`
		Payload   models.DetailProduct `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(values["data"].(string)), &envelope))
	assert.NotEmpty(t, envelope.EventID)
	assert.Equal(t, values["event_id"], envelope.EventID)
	assert.Equal(t, "PRODUCT_DETAILS_SCRAPED", envelope.EventType)
	assert.Equal(t, "storefront-scraper", envelope.Source)
	assert.True(t, envelope.Timestamp.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "https://shop.test/p/1", envelope.Payload.URL)
	assert.Equal(t, "Kettle", *envelope.Payload.Title)
}

func TestPublisherSaveProducts(t *testing.T) {
	ctx := context.Background()
	client := &MockRedisClient{}
	publisher := NewPublisher(client, "scraper:events", nil)

	client.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
		return args.Values.(map[string]interface{})["event_type"] == "PRODUCT_SCRAPED"
	})).Return(nil).Times(2)

	products := []models.SummaryProduct{{Title: str("a")}, {Title: str("b")}}
	require.NoError(t, publisher.SaveProducts(ctx, "run-1", products))
	client.AssertExpectations(t)
}

func TestPublisherRedisError(t *testing.T) {
	ctx := context.Background()
	client := &MockRedisClient{}
	publisher := NewPublisher(client, "scraper:events", nil)

	client.On("XAdd", ctx, mock.Anything).Return(errors.New("connection refused")).Once()

	err := publisher.SaveProducts(ctx, "run-1", []models.SummaryProduct{{Title: str("a")}, {Title: str("b")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish to redis")
	client.AssertNumberOfCalls(t, "XAdd", 1)
}
