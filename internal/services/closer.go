package services

import (
	"context"
	"fmt"
	"time"

	"numislive/internal/domain"
	"numislive/internal/metrics"
	"numislive/pkg/logger"
)

// Closer finalizes listings. It is the single close path: the expiration
// sweeper and explicit seller/admin closes both land here, so the winner
// selection and its locking exist in exactly one place.
type Closer struct {
	listings   domain.ListingRepository
	bids       domain.BidRepository
	users      domain.UserRepository
	locks      *ListingLocks
	eventPub   domain.EventPublisher
	stateCache domain.ListingStateCache
	mailer     domain.Mailer
	clock      domain.Clock
	log        logger.Logger
}

func NewCloser(
	listings domain.ListingRepository,
	bids domain.BidRepository,
	users domain.UserRepository,
	locks *ListingLocks,
	eventPub domain.EventPublisher,
	stateCache domain.ListingStateCache,
	mailer domain.Mailer,
	clock domain.Clock,
	log logger.Logger,
) *Closer {
	return &Closer{
		listings:   listings,
		bids:       bids,
		users:      users,
		locks:      locks,
		eventPub:   eventPub,
		stateCache: stateCache,
		mailer:     mailer,
		clock:      clock,
		log:        log,
	}
}

// CloseListing transitions a listing from open to closed. Closed is terminal:
// a second invocation returns the existing outcome as a no-op. The state
// mutation commits first; the close event and the winner email are dispatched
// afterwards and their failures never roll back the close.
func (c *Closer) CloseListing(ctx context.Context, listingID string, actor domain.Actor) (*domain.CloseResult, error) {
	unlock := c.locks.Lock(listingID)
	defer unlock()

	listing, err := c.listings.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if !actor.CanManage(listing.SellerID) {
		return nil, fmt.Errorf("close listing %s: %w", listingID, domain.ErrNotAuthorized)
	}

	bids, err := c.bids.ListBids(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("load bids of %s: %w", listingID, err)
	}
	winning := WinningBid(bids)

	// The final price is the winning bid's price, not the listing's current
	// price: the latter records the highest price ever accepted and does not
	// drop when the top bid is withdrawn.
	finalPrice := listing.CurrentPrice
	if winning != nil {
		finalPrice = winning.Price
	}

	if listing.Sold {
		// Idempotent double-close protection.
		result := &domain.CloseResult{
			ListingID:     listingID,
			FinalPrice:    finalPrice,
			ClosedAt:      listing.ClosingTime,
			AlreadyClosed: true,
		}
		if winning != nil {
			result.WinnerID = winning.BidderID
			result.WinningBidID = winning.ID
		}
		return result, nil
	}

	closedAt := c.clock.Now()
	if err := c.listings.MarkSold(ctx, listingID, closedAt); err != nil {
		return nil, fmt.Errorf("mark listing %s sold: %w", listingID, err)
	}

	trigger := "manual"
	if actor.System {
		trigger = "sweep"
	}
	metrics.ListingsClosed.WithLabelValues(trigger).Inc()

	result := &domain.CloseResult{
		ListingID:  listingID,
		FinalPrice: finalPrice,
		ClosedAt:   closedAt,
	}
	if winning != nil {
		result.WinnerID = winning.BidderID
		result.WinningBidID = winning.ID
	}

	c.log.Info("Listing closed", "listing_id", listingID, "trigger", trigger,
		"winner_id", result.WinnerID, "final_price", result.FinalPrice.String())

	c.dispatchClose(listing, winning, result)

	return result, nil
}

// dispatchClose runs the best-effort side effects of a committed close.
func (c *Closer) dispatchClose(listing *domain.Listing, winning *domain.Bid, result *domain.CloseResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	event := &domain.Event{
		Type:      domain.EventListingClosed,
		ListingID: listing.ID,
		WinnerID:  result.WinnerID,
		Price:     result.FinalPrice,
		Timestamp: result.ClosedAt,
	}
	if err := c.eventPub.PublishEvent(ctx, event); err != nil {
		c.log.Error("Failed to publish close event", "listing_id", listing.ID, "error", err)
	}

	if c.stateCache != nil {
		if err := c.stateCache.SetClosed(ctx, listing.ID); err != nil {
			c.log.Error("Failed to cache closed state", "listing_id", listing.ID, "error", err)
		}
	}

	if winning != nil {
		c.notifyWinner(ctx, listing, winning)
	}
}

func (c *Closer) notifyWinner(ctx context.Context, listing *domain.Listing, winning *domain.Bid) {
	if c.mailer == nil {
		return
	}

	winner, err := c.users.GetUser(ctx, winning.BidderID)
	if err != nil {
		c.log.Error("Failed to look up winner", "listing_id", listing.ID,
			"bidder_id", winning.BidderID, "error", err)
		return
	}

	subject := "Congratulations! You won the auction!"
	body := fmt.Sprintf(
		"Dear %s,\n\nCongratulations! You have won the bid for '%s' with %s.\nPlease proceed to payment.\n\nBest regards,\nNumisLive Team\n",
		winner.Username, listing.Title, winning.Price.StringFixed(2))

	if err := c.mailer.SendEmail(winner.Email, subject, body); err != nil {
		c.log.Error("Failed to send winner notification", "listing_id", listing.ID,
			"to", winner.Email, "error", err)
		return
	}

	c.log.Info("Winner notified", "listing_id", listing.ID, "winner_id", winner.ID)
}

// WinningBid selects the maximum-price bid; on equal prices the earliest
// accepted bid keeps the win. Returns nil when there are no bids.
func WinningBid(bids []*domain.Bid) *domain.Bid {
	var winning *domain.Bid
	for _, bid := range bids {
		switch {
		case winning == nil:
			winning = bid
		case bid.Price.GreaterThan(winning.Price):
			winning = bid
		case bid.Price.Equal(winning.Price) && bid.Seq < winning.Seq:
			winning = bid
		}
	}
	return winning
}
