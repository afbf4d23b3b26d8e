package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"numislive/internal/domain"
	"numislive/internal/metrics"
	"numislive/pkg/logger"
	"numislive/pkg/utils"
)

// BidService validates and records bids. The price check and the listing's
// price update run under the per-listing lock, so no second bid can slip in
// between them.
type BidService struct {
	listings domain.ListingRepository
	bids     domain.BidRepository
	locks    *ListingLocks
	eventPub domain.EventPublisher
	clock    domain.Clock
	log      logger.Logger
}

func NewBidService(
	listings domain.ListingRepository,
	bids domain.BidRepository,
	locks *ListingLocks,
	eventPub domain.EventPublisher,
	clock domain.Clock,
	log logger.Logger,
) *BidService {
	return &BidService{
		listings: listings,
		bids:     bids,
		locks:    locks,
		eventPub: eventPub,
		clock:    clock,
		log:      log,
	}
}

func (s *BidService) PlaceBid(ctx context.Context, listingID, bidderID string, price decimal.Decimal) (*domain.Bid, error) {
	if listingID == "" || bidderID == "" {
		return nil, fmt.Errorf("place bid: %w: missing listing or bidder id", domain.ErrInvalidInput)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("place bid: %w: non-positive price", domain.ErrInvalidInput)
	}

	unlock := s.locks.Lock(listingID)
	defer unlock()

	listing, err := s.listings.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !listing.Open(now) {
		metrics.BidsRejected.WithLabelValues("listing_closed").Inc()
		return nil, fmt.Errorf("place bid on %s: %w", listingID, domain.ErrListingClosed)
	}

	// Strictly greater: equal prices are rejected.
	if price.Cmp(listing.CurrentPrice) <= 0 {
		metrics.BidsRejected.WithLabelValues("bid_too_low").Inc()
		return nil, fmt.Errorf("place bid on %s: %w: current price is %s",
			listingID, domain.ErrBidTooLow, listing.CurrentPrice)
	}

	bid := &domain.Bid{
		ID:        utils.GenerateID("bid"),
		ListingID: listingID,
		BidderID:  bidderID,
		Price:     price,
		PlacedAt:  now,
	}

	if err := s.bids.CreateBid(ctx, bid); err != nil {
		return nil, fmt.Errorf("record bid on %s: %w", listingID, err)
	}

	if err := s.listings.UpdateCurrentPrice(ctx, listingID, price); err != nil {
		// Roll the bid back so no orphaned row sits above the listing's
		// recorded price and lets a later, lower bid through.
		if delErr := s.bids.DeleteBid(ctx, bid.ID); delErr != nil {
			s.log.Error("Failed to remove bid after price update failure",
				"bid_id", bid.ID, "listing_id", listingID, "error", delErr)
		}
		return nil, fmt.Errorf("update price of %s: %w", listingID, err)
	}

	metrics.BidsAccepted.Inc()
	s.log.Info("Bid accepted", "listing_id", listingID, "bidder_id", bidderID,
		"price", price.String())

	s.publish(&domain.Event{
		Type:      domain.EventNewHighestBid,
		ListingID: listingID,
		BidID:     bid.ID,
		BidderID:  bidderID,
		Price:     price,
		Timestamp: now,
	})

	return bid, nil
}

// DeleteBid withdraws a bid while the parent listing is still open. Only the
// bidder or an admin may withdraw; the listing's current price is not rolled
// back (it records the highest price ever accepted).
func (s *BidService) DeleteBid(ctx context.Context, bidID string, actor domain.Actor) error {
	bid, err := s.bids.GetBid(ctx, bidID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(bid.ListingID)
	defer unlock()

	// Re-read under the lock; the bid may have been withdrawn meanwhile.
	bid, err = s.bids.GetBid(ctx, bidID)
	if err != nil {
		return err
	}

	if !actor.Admin() && actor.ID != bid.BidderID {
		return fmt.Errorf("delete bid %s: %w", bidID, domain.ErrNotAuthorized)
	}

	listing, err := s.listings.GetListing(ctx, bid.ListingID)
	if err != nil {
		return err
	}
	if !listing.Open(s.clock.Now()) {
		return fmt.Errorf("delete bid %s: %w", bidID, domain.ErrListingClosed)
	}

	if err := s.bids.DeleteBid(ctx, bidID); err != nil {
		return err
	}

	s.log.Info("Bid withdrawn", "bid_id", bidID, "listing_id", bid.ListingID)

	s.publish(&domain.Event{
		Type:      domain.EventBidRemoved,
		ListingID: bid.ListingID,
		BidID:     bidID,
		Timestamp: s.clock.Now(),
	})

	return nil
}

// ListBids returns a listing's bids in acceptance order.
func (s *BidService) ListBids(ctx context.Context, listingID string) ([]*domain.Bid, error) {
	if listingID == "" {
		return nil, fmt.Errorf("list bids: %w: empty listing id", domain.ErrInvalidInput)
	}
	if _, err := s.listings.GetListing(ctx, listingID); err != nil {
		return nil, err
	}
	return s.bids.ListBids(ctx, listingID)
}

// publish dispatches a fanout event after the mutation has committed. Send
// failures are logged, never surfaced to the bidder.
func (s *BidService) publish(event *domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.eventPub.PublishEvent(ctx, event); err != nil {
		s.log.Error("Failed to publish event", "type", event.Type,
			"listing_id", event.ListingID, "error", err)
	}
}
