package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"numislive/internal/domain"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedListing(t *testing.T, s *Store, id string, closing time.Time, sold bool) {
	t.Helper()
	err := s.CreateListing(context.Background(), &domain.Listing{
		ID:            id,
		Title:         "Trade Dollar " + id,
		SellerID:      "seller-1",
		StartingPrice: decimal.NewFromInt(10),
		CurrentPrice:  decimal.NewFromInt(10),
		ClosingTime:   closing,
		Sold:          sold,
	})
	require.NoError(t, err)
}

func TestStore_BidSeqIsAcceptanceOrder(t *testing.T) {
	s := NewStore()
	seedListing(t, s, "l1", base.Add(time.Hour), false)

	for _, id := range []string{"b1", "b2", "b3"} {
		err := s.CreateBid(context.Background(), &domain.Bid{
			ID: id, ListingID: "l1", BidderID: "u1", Price: decimal.NewFromInt(20),
		})
		require.NoError(t, err)
	}

	bids, err := s.ListBids(context.Background(), "l1")
	require.NoError(t, err)
	require.Len(t, bids, 3)
	require.Equal(t, "b1", bids[0].ID)
	require.True(t, bids[0].Seq < bids[1].Seq)
	require.True(t, bids[1].Seq < bids[2].Seq)
}

func TestStore_CreateBidRequiresListing(t *testing.T) {
	s := NewStore()

	err := s.CreateBid(context.Background(), &domain.Bid{ID: "b1", ListingID: "nope"})
	require.ErrorIs(t, err, domain.ErrListingNotFound)
}

func TestStore_FindExpiredOpen(t *testing.T) {
	s := NewStore()
	seedListing(t, s, "expired", base.Add(-time.Minute), false)
	seedListing(t, s, "boundary", base, false)
	seedListing(t, s, "future", base.Add(time.Hour), false)
	seedListing(t, s, "already-sold", base.Add(-time.Hour), true)

	expired, err := s.FindExpiredOpen(context.Background(), base)
	require.NoError(t, err)

	ids := make([]string, len(expired))
	for i, l := range expired {
		ids[i] = l.ID
	}
	require.Equal(t, []string{"expired", "boundary"}, ids)
}

func TestStore_MarkSoldClampsClosingTime(t *testing.T) {
	s := NewStore()
	seedListing(t, s, "l1", base.Add(time.Hour), false)

	closedAt := base.Add(10 * time.Minute)
	require.NoError(t, s.MarkSold(context.Background(), "l1", closedAt))

	listing, err := s.GetListing(context.Background(), "l1")
	require.NoError(t, err)
	require.True(t, listing.Sold)
	require.Equal(t, closedAt, listing.ClosingTime)
}

func TestStore_ReadsReturnCopies(t *testing.T) {
	s := NewStore()
	seedListing(t, s, "l1", base.Add(time.Hour), false)

	listing, err := s.GetListing(context.Background(), "l1")
	require.NoError(t, err)
	listing.Title = "mutated"

	again, err := s.GetListing(context.Background(), "l1")
	require.NoError(t, err)
	require.NotEqual(t, "mutated", again.Title)
}

func TestStore_PaymentUniqueness(t *testing.T) {
	s := NewStore()

	payment := &domain.Payment{ID: "p1", ListingID: "l1", ExternalTxnID: "txn-1",
		Amount: decimal.NewFromInt(100), PayerID: "u1"}
	require.NoError(t, s.CreatePayment(context.Background(), payment))

	dup := &domain.Payment{ID: "p2", ListingID: "l1", ExternalTxnID: "txn-1",
		Amount: decimal.NewFromInt(100), PayerID: "u1"}
	require.Error(t, s.CreatePayment(context.Background(), dup))

	found, err := s.GetPaymentByExternalTxn(context.Background(), "txn-1")
	require.NoError(t, err)
	require.Equal(t, "p1", found.ID)

	_, err = s.GetPaymentByExternalTxn(context.Background(), "txn-2")
	require.ErrorIs(t, err, domain.ErrPaymentNotFound)
}

func TestStore_DeleteListingCascades(t *testing.T) {
	s := NewStore()
	seedListing(t, s, "l1", base.Add(time.Hour), false)

	require.NoError(t, s.CreateBid(context.Background(), &domain.Bid{
		ID: "b1", ListingID: "l1", BidderID: "u1", Price: decimal.NewFromInt(20)}))
	require.NoError(t, s.CreateComment(context.Background(), &domain.Comment{
		ID: "c1", ListingID: "l1", AuthorID: "u1", Content: "hi"}))

	require.NoError(t, s.DeleteListing(context.Background(), "l1"))

	_, err := s.GetBid(context.Background(), "b1")
	require.ErrorIs(t, err, domain.ErrBidNotFound)

	comments, err := s.ListComments(context.Background(), "l1")
	require.NoError(t, err)
	require.Empty(t, comments)
}

func TestStore_ListOpenSearchAndPaging(t *testing.T) {
	s := NewStore()
	seedListing(t, s, "a", base.Add(1*time.Hour), false)
	seedListing(t, s, "b", base.Add(2*time.Hour), false)
	seedListing(t, s, "c", base.Add(3*time.Hour), true)

	open, err := s.ListOpen(context.Background(), "", 10, 0)
	require.NoError(t, err)
	require.Len(t, open, 2)
	require.Equal(t, "a", open[0].ID)

	matched, err := s.ListOpen(context.Background(), "trade dollar b", 10, 0)
	require.NoError(t, err)
	require.Len(t, matched, 1)

	page, err := s.ListOpen(context.Background(), "", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "b", page[0].ID)

	beyond, err := s.ListOpen(context.Background(), "", 10, 5)
	require.NoError(t, err)
	require.Empty(t, beyond)
}
