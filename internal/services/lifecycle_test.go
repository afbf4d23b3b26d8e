package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"numislive/internal/domain"
)

// TestFullAuctionLifecycle walks a listing from creation through competing
// bids, expiry by sweep, winner notification and payment reconciliation,
// including a replayed confirmation.
func TestFullAuctionLifecycle(t *testing.T) {
	e := newEngine(testStart)
	e.addUser("alice", "alice", "alice@example.com")
	e.addUser("bob", "bob", "bob@example.com")

	listing, err := e.listings.CreateListing(context.Background(), "seller-1", CreateListingInput{
		Title:         "1909-S VDB Lincoln Cent",
		Description:   "Red-brown, original surfaces",
		StartingPrice: dec("700"),
		DurationHours: 2,
		Year:          1909,
		Country:       "USA",
		Denomination:  "Cent",
		Grade:         "AU-50",
		MintMark:      "S",
	})
	require.NoError(t, err)

	// Competing bids; each must beat the running price.
	_, err = e.bids.PlaceBid(context.Background(), listing.ID, "alice", dec("750"))
	require.NoError(t, err)
	_, err = e.bids.PlaceBid(context.Background(), listing.ID, "bob", dec("800"))
	require.NoError(t, err)
	_, err = e.bids.PlaceBid(context.Background(), listing.ID, "alice", dec("780"))
	require.ErrorIs(t, err, domain.ErrBidTooLow)
	_, err = e.bids.PlaceBid(context.Background(), listing.ID, "alice", dec("850"))
	require.NoError(t, err)

	// Deadline passes; the sweep settles the listing.
	e.clock.Advance(3 * time.Hour)
	sweeper := newTestSweeper(e, nil)
	sweeper.Sweep(context.Background())

	closed, err := e.store.GetListing(context.Background(), listing.ID)
	require.NoError(t, err)
	require.True(t, closed.Sold)

	events := e.publisher.EventsOfType(domain.EventListingClosed)
	require.Len(t, events, 1)
	require.Equal(t, "alice", events[0].WinnerID)
	require.True(t, events[0].Price.Equal(dec("850")))

	sent := e.mailer.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "alice@example.com", sent[0].to)

	// Late bid bounces off the settled listing.
	_, err = e.bids.PlaceBid(context.Background(), listing.ID, "bob", dec("900"))
	require.ErrorIs(t, err, domain.ErrListingClosed)

	// Provider confirms; a network retry replays the same transaction.
	payment, created, err := e.payments.ReconcilePayment(
		context.Background(), listing.ID, "txn-evt-771", "alice", dec("850"))
	require.NoError(t, err)
	require.True(t, created)

	replay, created, err := e.payments.ReconcilePayment(
		context.Background(), listing.ID, "txn-evt-771", "alice", dec("850"))
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, payment.ID, replay.ID)

	all, err := e.payments.ListPayments(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.False(t, all[0].AmountMismatch)
}
