package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"numislive/internal/domain"
)

func TestCloseListing_WinnerIsHighestBid(t *testing.T) {
	e := newEngine(testStart)
	e.addUser("bidder-2", "carol", "carol@example.com")
	listing := e.addListing("seller-1", "5", testStart.Add(time.Hour))

	for _, b := range []struct{ bidder, price string }{
		{"bidder-1", "10"},
		{"bidder-2", "25"},
	} {
		_, err := e.bids.PlaceBid(context.Background(), listing.ID, b.bidder, dec(b.price))
		require.NoError(t, err)
	}
	// A later, lower bid is rejected and must not influence the outcome.
	_, err := e.bids.PlaceBid(context.Background(), listing.ID, "bidder-3", dec("15"))
	require.ErrorIs(t, err, domain.ErrBidTooLow)

	result, err := e.closer.CloseListing(context.Background(), listing.ID, domain.Actor{ID: "seller-1"})
	require.NoError(t, err)
	require.False(t, result.AlreadyClosed)
	require.Equal(t, "bidder-2", result.WinnerID)
	require.True(t, result.FinalPrice.Equal(dec("25")))

	closed, err := e.store.GetListing(context.Background(), listing.ID)
	require.NoError(t, err)
	require.True(t, closed.Sold)
}

func TestCloseListing_NoBids(t *testing.T) {
	e := newEngine(testStart)
	listing := e.addListing("seller-1", "100", testStart.Add(time.Hour))

	result, err := e.closer.CloseListing(context.Background(), listing.ID, domain.Actor{ID: "seller-1"})
	require.NoError(t, err)
	require.Empty(t, result.WinnerID)
	require.True(t, result.FinalPrice.Equal(dec("100")))

	// No winner, no email.
	require.Empty(t, e.mailer.Sent())

	events := e.publisher.EventsOfType(domain.EventListingClosed)
	require.Len(t, events, 1)
	require.Empty(t, events[0].WinnerID)
}

func TestCloseListing_SecondCloseIsNoOp(t *testing.T) {
	e := newEngine(testStart)
	e.addUser("bidder-1", "bob", "bob@example.com")
	listing := e.addListing("seller-1", "5", testStart.Add(time.Hour))

	_, err := e.bids.PlaceBid(context.Background(), listing.ID, "bidder-1", dec("10"))
	require.NoError(t, err)

	first, err := e.closer.CloseListing(context.Background(), listing.ID, domain.Actor{ID: "seller-1"})
	require.NoError(t, err)
	require.False(t, first.AlreadyClosed)

	second, err := e.closer.CloseListing(context.Background(), listing.ID, domain.Actor{ID: "seller-1"})
	require.NoError(t, err)
	require.True(t, second.AlreadyClosed)
	require.Equal(t, first.WinnerID, second.WinnerID)
	require.True(t, first.FinalPrice.Equal(second.FinalPrice))

	// Side effects fired exactly once.
	require.Len(t, e.publisher.EventsOfType(domain.EventListingClosed), 1)
	require.Len(t, e.mailer.Sent(), 1)
}

func TestCloseListing_ConcurrentClosesSettleOnce(t *testing.T) {
	e := newEngine(testStart)
	e.addUser("bidder-1", "bob", "bob@example.com")
	listing := e.addListing("seller-1", "5", testStart.Add(time.Hour))

	_, err := e.bids.PlaceBid(context.Background(), listing.ID, "bidder-1", dec("10"))
	require.NoError(t, err)

	const closers = 20
	results := make([]*domain.CloseResult, closers)
	errs := make([]error, closers)
	var wg sync.WaitGroup
	wg.Add(closers)
	for i := 0; i < closers; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.closer.CloseListing(context.Background(), listing.ID, domain.SystemActor)
		}(i)
	}
	wg.Wait()

	effective := 0
	for i, result := range results {
		require.NoError(t, errs[i])
		require.Equal(t, "bidder-1", result.WinnerID)
		if !result.AlreadyClosed {
			effective++
		}
	}
	require.Equal(t, 1, effective)
	require.Len(t, e.publisher.EventsOfType(domain.EventListingClosed), 1)
	require.Len(t, e.mailer.Sent(), 1)
}

func TestCloseListing_TieGoesToEarliestBid(t *testing.T) {
	// Equal prices cannot arise through PlaceBid, which requires strictly
	// increasing prices, but the selection rule must still hold.
	bids := []*domain.Bid{
		{ID: "b1", BidderID: "u1", Price: dec("50"), Seq: 1},
		{ID: "b2", BidderID: "u2", Price: dec("50"), Seq: 2},
		{ID: "b3", BidderID: "u3", Price: dec("40"), Seq: 3},
	}

	winning := WinningBid(bids)
	require.NotNil(t, winning)
	require.Equal(t, "b1", winning.ID)
}

func TestWinningBid_Empty(t *testing.T) {
	require.Nil(t, WinningBid(nil))
}

func TestCloseListing_WithdrawnTopBidDoesNotSetFinalPrice(t *testing.T) {
	e := newEngine(testStart)
	e.addUser("bidder-1", "bob", "bob@example.com")
	listing := e.addListing("seller-1", "100", testStart.Add(time.Hour))

	_, err := e.bids.PlaceBid(context.Background(), listing.ID, "bidder-1", dec("120"))
	require.NoError(t, err)
	top, err := e.bids.PlaceBid(context.Background(), listing.ID, "bidder-2", dec("150"))
	require.NoError(t, err)

	err = e.bids.DeleteBid(context.Background(), top.ID, domain.Actor{ID: "bidder-2"})
	require.NoError(t, err)

	result, err := e.closer.CloseListing(context.Background(), listing.ID, domain.Actor{ID: "seller-1"})
	require.NoError(t, err)
	require.Equal(t, "bidder-1", result.WinnerID)
	require.True(t, result.FinalPrice.Equal(dec("120")),
		"final price should be the winning bid's price, got %s", result.FinalPrice)

	// The close event and the replayed close carry the same price.
	events := e.publisher.EventsOfType(domain.EventListingClosed)
	require.Len(t, events, 1)
	require.True(t, events[0].Price.Equal(dec("120")))

	replay, err := e.closer.CloseListing(context.Background(), listing.ID, domain.Actor{ID: "seller-1"})
	require.NoError(t, err)
	require.True(t, replay.AlreadyClosed)
	require.True(t, replay.FinalPrice.Equal(dec("120")))
}

func TestCloseListing_Authorization(t *testing.T) {
	tests := []struct {
		name    string
		actor   domain.Actor
		wantErr error
	}{
		{name: "seller", actor: domain.Actor{ID: "seller-1"}},
		{name: "admin", actor: domain.Actor{ID: "ops", Role: domain.RoleAdmin}},
		{name: "system", actor: domain.SystemActor},
		{name: "other user", actor: domain.Actor{ID: "someone-else"}, wantErr: domain.ErrNotAuthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(testStart)
			listing := e.addListing("seller-1", "100", testStart.Add(time.Hour))

			_, err := e.closer.CloseListing(context.Background(), listing.ID, tt.actor)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				listing2, err := e.store.GetListing(context.Background(), listing.ID)
				require.NoError(t, err)
				require.False(t, listing2.Sold)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCloseListing_MailFailureDoesNotFailClose(t *testing.T) {
	e := newEngine(testStart)
	e.addUser("bidder-1", "bob", "bob@example.com")
	e.mailer.failFor["bob@example.com"] = true
	listing := e.addListing("seller-1", "5", testStart.Add(time.Hour))

	_, err := e.bids.PlaceBid(context.Background(), listing.ID, "bidder-1", dec("10"))
	require.NoError(t, err)

	result, err := e.closer.CloseListing(context.Background(), listing.ID, domain.Actor{ID: "seller-1"})
	require.NoError(t, err)
	require.Equal(t, "bidder-1", result.WinnerID)

	closed, err := e.store.GetListing(context.Background(), listing.ID)
	require.NoError(t, err)
	require.True(t, closed.Sold)
}

func TestCloseListing_WinnerEmailContent(t *testing.T) {
	e := newEngine(testStart)
	e.addUser("bidder-1", "bob", "bob@example.com")
	listing := e.addListing("seller-1", "5", testStart.Add(time.Hour))

	_, err := e.bids.PlaceBid(context.Background(), listing.ID, "bidder-1", dec("12.50"))
	require.NoError(t, err)

	_, err = e.closer.CloseListing(context.Background(), listing.ID, domain.Actor{ID: "seller-1"})
	require.NoError(t, err)

	sent := e.mailer.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "bob@example.com", sent[0].to)
	require.Contains(t, sent[0].subject, "won the auction")
	require.Contains(t, sent[0].body, "bob")
	require.Contains(t, sent[0].body, "12.50")
}

func TestCloseListing_MarksStateCache(t *testing.T) {
	e := newEngine(testStart)
	listing := e.addListing("seller-1", "100", testStart.Add(time.Hour))

	_, err := e.closer.CloseListing(context.Background(), listing.ID, domain.Actor{ID: "seller-1"})
	require.NoError(t, err)

	closed, err := e.stateCache.IsClosed(context.Background(), listing.ID)
	require.NoError(t, err)
	require.True(t, closed)
}
