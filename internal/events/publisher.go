package events

import (
	"context"
	"time"

	redisx "github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/common/redis"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// 事件类型，写入 stream 的 type 字段
const (
	TripStarted         = "trip.started"
	TripEnded           = "trip.ended"
	PastTripAdded       = "past_trip.added"
	ActivityAdded       = "activity.added"
	ConversationCreated = "conversation.created"
	ConversationDeleted = "conversation.deleted"
	MessageAppended     = "message.appended"
	PairingChanged      = "pairing.changed"
)

// Publisher emits domain events after a write has committed.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data any) error
}

// StreamPublisher appends events to a Redis stream.
type StreamPublisher struct {
	client *redis.Client
	stream string
}

func NewStreamPublisher(client *redis.Client, stream string) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream}
}

func (p *StreamPublisher) Publish(ctx context.Context, eventType string, data any) error {
	_, err := redisx.PublishJSONToStream(ctx, p.client, p.stream, eventType, data)
	return err
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

// BestEffort wraps a Publisher so failures are logged and never returned.
// Each publish gets its own short deadline.
type BestEffort struct {
	next    Publisher
	logger  *zap.Logger
	timeout time.Duration
}

func NewBestEffort(next Publisher, logger *zap.Logger) *BestEffort {
	if next == nil {
		next = NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BestEffort{next: next, logger: logger, timeout: time.Second}
}

func (b *BestEffort) Publish(ctx context.Context, eventType string, data any) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	if err := b.next.Publish(ctx, eventType, data); err != nil {
		b.logger.Warn("Failed to publish event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
	return nil
}
