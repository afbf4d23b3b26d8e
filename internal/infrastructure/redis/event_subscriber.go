package redis

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"

	"numislive/internal/domain"
	"numislive/pkg/logger"
)

type RedisEventSubscriber struct {
	client *redis.Client
	log    logger.Logger
}

func NewEventSubscriber(client *redis.Client, log logger.Logger) *RedisEventSubscriber {
	return &RedisEventSubscriber{
		client: client,
		log:    log,
	}
}

// SubscribeToEvents blocks, feeding every event on the shared channel to
// handler, until the context is cancelled. A malformed payload or a handler
// error is logged and skipped; fanout is best-effort.
func (r *RedisEventSubscriber) SubscribeToEvents(ctx context.Context, handler domain.EventHandler) error {
	pubsub := r.client.Subscribe(ctx, eventChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	r.log.Info("Subscribed to listing events")

	for {
		select {
		case msg := <-ch:
			var event domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.log.Error("Failed to parse event", "payload", msg.Payload, "error", err)
				continue
			}

			if err := handler(&event); err != nil {
				r.log.Error("Failed to handle event", "type", event.Type,
					"listing_id", event.ListingID, "error", err)
			}

		case <-ctx.Done():
			r.log.Info("Event subscriber stopped")
			return ctx.Err()
		}
	}
}
