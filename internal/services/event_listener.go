package services

import (
	"context"
	"fmt"

	"numislive/internal/domain"
	"numislive/pkg/logger"
)

// EventListener bridges the redis event bus onto websocket subscribers. Every
// instance runs one, so a bid accepted on any instance reaches the watchers
// connected to every other instance.
type EventListener struct {
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewEventListener(connManager domain.ConnectionManager, log logger.Logger) *EventListener {
	return &EventListener{connManager: connManager, log: log}
}

// Start subscribes and blocks until the context is cancelled.
func (l *EventListener) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	l.log.Info("Starting event listener")
	return subscriber.SubscribeToEvents(ctx, l.handleEvent)
}

func (l *EventListener) handleEvent(event *domain.Event) error {
	switch event.Type {
	case domain.EventNewHighestBid:
		return l.connManager.BroadcastToListing(event.ListingID, event)

	case domain.EventListingClosed:
		if err := l.connManager.BroadcastToListing(event.ListingID, event); err != nil {
			l.log.Error("Failed to broadcast close", "listing_id", event.ListingID, "error", err)
		}
		// The room is over; drop its subscribers.
		return l.connManager.CloseAndUnregisterConnections(event.ListingID)

	case domain.EventListingRemoved:
		return l.connManager.BroadcastAll(event)

	case domain.EventBidRemoved:
		return l.connManager.BroadcastToListing(event.ListingID, event)

	default:
		return fmt.Errorf("unknown event type: %s", event.Type)
	}
}
