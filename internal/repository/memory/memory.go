// Package memory provides a concurrency-safe in-memory implementation of the
// repository interfaces, used by tests in place of MySQL.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"numislive/internal/domain"
)

type Store struct {
	mu       sync.RWMutex
	listings map[string]*domain.Listing
	bids     map[string]*domain.Bid
	comments map[string][]*domain.Comment // listingID -> comments
	payments map[string]*domain.Payment   // externalTxnID -> payment
	users    map[string]*domain.User
	bidSeq   int64
}

func NewStore() *Store {
	return &Store{
		listings: make(map[string]*domain.Listing),
		bids:     make(map[string]*domain.Bid),
		comments: make(map[string][]*domain.Comment),
		payments: make(map[string]*domain.Payment),
		users:    make(map[string]*domain.User),
	}
}

// --- ListingRepository ---

func (s *Store) CreateListing(_ context.Context, listing *domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *listing
	s.listings[listing.ID] = &cp
	return nil
}

func (s *Store) GetListing(_ context.Context, listingID string) (*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listing, ok := s.listings[listingID]
	if !ok {
		return nil, fmt.Errorf("get listing %s: %w", listingID, domain.ErrListingNotFound)
	}
	cp := *listing
	return &cp, nil
}

func (s *Store) UpdateCurrentPrice(_ context.Context, listingID string, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, ok := s.listings[listingID]
	if !ok {
		return fmt.Errorf("listing %s: %w", listingID, domain.ErrListingNotFound)
	}
	listing.CurrentPrice = price
	listing.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) MarkSold(_ context.Context, listingID string, closedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, ok := s.listings[listingID]
	if !ok {
		return fmt.Errorf("listing %s: %w", listingID, domain.ErrListingNotFound)
	}
	listing.Sold = true
	listing.ClosingTime = closedAt
	listing.UpdatedAt = closedAt
	return nil
}

func (s *Store) FindExpiredOpen(_ context.Context, cutoff time.Time) ([]*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var expired []*domain.Listing
	for _, listing := range s.listings {
		if !listing.Sold && !listing.ClosingTime.After(cutoff) {
			cp := *listing
			expired = append(expired, &cp)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ClosingTime.Before(expired[j].ClosingTime)
	})
	return expired, nil
}

func (s *Store) ListOpen(_ context.Context, search string, limit, offset int) ([]*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var open []*domain.Listing
	for _, listing := range s.listings {
		if listing.Sold {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(listing.Title), strings.ToLower(search)) {
			continue
		}
		cp := *listing
		open = append(open, &cp)
	}
	sort.Slice(open, func(i, j int) bool {
		return open[i].ClosingTime.Before(open[j].ClosingTime)
	})

	if offset >= len(open) {
		return nil, nil
	}
	open = open[offset:]
	if limit > 0 && limit < len(open) {
		open = open[:limit]
	}
	return open, nil
}

func (s *Store) DeleteListing(_ context.Context, listingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[listingID]; !ok {
		return fmt.Errorf("listing %s: %w", listingID, domain.ErrListingNotFound)
	}
	delete(s.listings, listingID)
	delete(s.comments, listingID)
	for id, bid := range s.bids {
		if bid.ListingID == listingID {
			delete(s.bids, id)
		}
	}
	return nil
}

// --- BidRepository ---

func (s *Store) CreateBid(_ context.Context, bid *domain.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[bid.ListingID]; !ok {
		return fmt.Errorf("listing %s: %w", bid.ListingID, domain.ErrListingNotFound)
	}
	s.bidSeq++
	bid.Seq = s.bidSeq
	cp := *bid
	s.bids[bid.ID] = &cp
	return nil
}

func (s *Store) GetBid(_ context.Context, bidID string) (*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bid, ok := s.bids[bidID]
	if !ok {
		return nil, fmt.Errorf("get bid %s: %w", bidID, domain.ErrBidNotFound)
	}
	cp := *bid
	return &cp, nil
}

func (s *Store) ListBids(_ context.Context, listingID string) ([]*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bids []*domain.Bid
	for _, bid := range s.bids {
		if bid.ListingID == listingID {
			cp := *bid
			bids = append(bids, &cp)
		}
	}
	sort.Slice(bids, func(i, j int) bool { return bids[i].Seq < bids[j].Seq })
	return bids, nil
}

func (s *Store) CountBids(_ context.Context, listingID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, bid := range s.bids {
		if bid.ListingID == listingID {
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteBid(_ context.Context, bidID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bids[bidID]; !ok {
		return fmt.Errorf("delete bid %s: %w", bidID, domain.ErrBidNotFound)
	}
	delete(s.bids, bidID)
	return nil
}

// --- CommentRepository ---

func (s *Store) CreateComment(_ context.Context, comment *domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[comment.ListingID]; !ok {
		return fmt.Errorf("listing %s: %w", comment.ListingID, domain.ErrListingNotFound)
	}
	cp := *comment
	s.comments[comment.ListingID] = append(s.comments[comment.ListingID], &cp)
	return nil
}

func (s *Store) ListComments(_ context.Context, listingID string) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comments := make([]*domain.Comment, 0, len(s.comments[listingID]))
	for _, comment := range s.comments[listingID] {
		cp := *comment
		comments = append(comments, &cp)
	}
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
	return comments, nil
}

// --- PaymentRepository ---

func (s *Store) CreatePayment(_ context.Context, payment *domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Mirrors the MySQL unique index on external_txn_id.
	if _, ok := s.payments[payment.ExternalTxnID]; ok {
		return fmt.Errorf("payment for txn %s already recorded", payment.ExternalTxnID)
	}
	cp := *payment
	s.payments[payment.ExternalTxnID] = &cp
	return nil
}

func (s *Store) GetPaymentByExternalTxn(_ context.Context, externalTxnID string) (*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payment, ok := s.payments[externalTxnID]
	if !ok {
		return nil, fmt.Errorf("payment for txn %s: %w", externalTxnID, domain.ErrPaymentNotFound)
	}
	cp := *payment
	return &cp, nil
}

func (s *Store) ListPayments(_ context.Context) ([]*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payments := make([]*domain.Payment, 0, len(s.payments))
	for _, payment := range s.payments {
		cp := *payment
		payments = append(payments, &cp)
	}
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].RecordedAt.After(payments[j].RecordedAt)
	})
	return payments, nil
}

// --- UserRepository ---

func (s *Store) GetUser(_ context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("get user %s: %w", userID, domain.ErrUserNotFound)
	}
	cp := *user
	return &cp, nil
}

// AddUser seeds a user. Intended for tests.
func (s *Store) AddUser(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = &user
}
