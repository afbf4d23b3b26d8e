package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	// EventNewHighestBid is fanned out to the listing's channel after an
	// accepted bid.
	EventNewHighestBid EventType = "new_highest_bid"
	// EventListingClosed carries the close outcome: winner (or none) and
	// final price.
	EventListingClosed EventType = "listing_closed"
	// EventListingRemoved goes to the everything channel when an open,
	// un-bid listing is deleted.
	EventListingRemoved EventType = "listing_removed"
	// EventBidRemoved is fanned out when a bid is withdrawn before close.
	EventBidRemoved EventType = "bid_removed"
)

// Event is the fanout payload pushed over the redis bus and onto websocket
// subscribers. Delivery is best-effort and at-most-once; the store, never an
// event, is the system of record.
type Event struct {
	Type      EventType       `json:"type"`
	ListingID string          `json:"listing_id"`
	BidID     string          `json:"bid_id,omitempty"`
	BidderID  string          `json:"bidder_id,omitempty"`
	WinnerID  string          `json:"winner_id,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}
