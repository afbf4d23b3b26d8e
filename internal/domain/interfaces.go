package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository interfaces. The store exclusively owns durable state; services
// mutate it only through these contracts and never cache listing state
// across operations.

type ListingRepository interface {
	CreateListing(ctx context.Context, listing *Listing) error
	GetListing(ctx context.Context, listingID string) (*Listing, error)
	// UpdateCurrentPrice records an accepted bid's price on the listing.
	UpdateCurrentPrice(ctx context.Context, listingID string, price decimal.Decimal) error
	// MarkSold sets the sold flag and clamps the closing time to the actual
	// close instant.
	MarkSold(ctx context.Context, listingID string, closedAt time.Time) error
	// FindExpiredOpen returns listings with sold=false and a closing time at
	// or before the cutoff.
	FindExpiredOpen(ctx context.Context, cutoff time.Time) ([]*Listing, error)
	// ListOpen returns open listings matching an optional case-insensitive
	// title search, paginated.
	ListOpen(ctx context.Context, search string, limit, offset int) ([]*Listing, error)
	DeleteListing(ctx context.Context, listingID string) error
}

type BidRepository interface {
	CreateBid(ctx context.Context, bid *Bid) error
	GetBid(ctx context.Context, bidID string) (*Bid, error)
	// ListBids returns a listing's bids in acceptance order.
	ListBids(ctx context.Context, listingID string) ([]*Bid, error)
	CountBids(ctx context.Context, listingID string) (int, error)
	DeleteBid(ctx context.Context, bidID string) error
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *Comment) error
	// ListComments returns a listing's comments, newest first.
	ListComments(ctx context.Context, listingID string) ([]*Comment, error)
}

type PaymentRepository interface {
	// CreatePayment inserts a payment; the store enforces uniqueness of the
	// external transaction id.
	CreatePayment(ctx context.Context, payment *Payment) error
	GetPaymentByExternalTxn(ctx context.Context, externalTxnID string) (*Payment, error)
	ListPayments(ctx context.Context) ([]*Payment, error)
}

type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*User, error)
}

// Event interfaces
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *Event) error
}

type EventSubscriber interface {
	SubscribeToEvents(ctx context.Context, handler EventHandler) error
}

type EventHandler func(event *Event) error

// Mailer sends the out-of-band winner notification. Fire-and-forget from the
// engine's perspective.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

// ListingStateCache is an advisory view of a listing's closed flag, used to
// gate websocket joins. Mutating services never consult it; the store under
// the per-listing lock is authoritative.
type ListingStateCache interface {
	SetClosed(ctx context.Context, listingID string) error
	IsClosed(ctx context.Context, listingID string) (bool, error)
}

// LeaderElection gates the sweeper so one instance sweeps at a time.
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// WebSocket interfaces
type WebSocketConnection interface {
	Send(message interface{}) error
	Close() error
	UserID() string
	ListingID() string
}

type ConnectionManager interface {
	RegisterConnection(userID, listingID string, conn WebSocketConnection) error
	UnregisterConnection(userID, listingID string) error
	BroadcastToListing(listingID string, message interface{}) error
	// BroadcastAll delivers to every subscriber regardless of listing (the
	// everything channel).
	BroadcastAll(message interface{}) error
	NotifyUser(userID string, message interface{}) error
	CloseAndUnregisterConnections(listingID string) error
}
