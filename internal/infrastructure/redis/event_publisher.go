package redis

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"

	"numislive/internal/domain"
)

const eventChannel = "listing_events"

// EventPublisherImpl pushes engine events onto the shared redis channel so
// every instance's websocket subscribers see them.
type EventPublisherImpl struct {
	client *redis.Client
}

func NewEventPublisher(client *redis.Client) *EventPublisherImpl {
	return &EventPublisherImpl{client: client}
}

func (r *EventPublisherImpl) PublishEvent(ctx context.Context, event *domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, eventChannel, payload).Err()
}
