package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"numislive/internal/domain"
	"numislive/internal/metrics"
	"numislive/pkg/logger"
	"numislive/pkg/utils"
)

// PaymentService reconciles provider confirmations into at most one payment
// record per external transaction id. Replays of the same confirmation return
// the original record unchanged.
type PaymentService struct {
	listings domain.ListingRepository
	bids     domain.BidRepository
	payments domain.PaymentRepository
	locks    *ListingLocks
	clock    domain.Clock
	log      logger.Logger
}

func NewPaymentService(
	listings domain.ListingRepository,
	bids domain.BidRepository,
	payments domain.PaymentRepository,
	locks *ListingLocks,
	clock domain.Clock,
	log logger.Logger,
) *PaymentService {
	return &PaymentService{
		listings: listings,
		bids:     bids,
		payments: payments,
		locks:    locks,
		clock:    clock,
		log:      log,
	}
}

// ReconcilePayment records a provider confirmation against a sold listing.
// The external transaction id is the idempotency key: the first confirmation
// creates the record, every replay returns it as-is. An amount differing from
// the final price is accepted but flagged for manual review. The bool reports
// whether this call created the record.
func (s *PaymentService) ReconcilePayment(ctx context.Context, listingID, externalTxnID, payerID string, amount decimal.Decimal) (*domain.Payment, bool, error) {
	if listingID == "" || externalTxnID == "" || payerID == "" {
		return nil, false, fmt.Errorf("reconcile payment: %w: missing listing, transaction or payer id", domain.ErrInvalidInput)
	}
	if !amount.IsPositive() {
		return nil, false, fmt.Errorf("reconcile payment: %w: non-positive amount", domain.ErrInvalidInput)
	}

	unlock := s.locks.Lock(listingID)
	defer unlock()

	existing, err := s.payments.GetPaymentByExternalTxn(ctx, externalTxnID)
	if err == nil {
		metrics.DuplicatePayments.Inc()
		s.log.Info("Duplicate payment confirmation, returning existing record",
			"external_txn_id", externalTxnID, "payment_id", existing.ID)
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrPaymentNotFound) {
		return nil, false, fmt.Errorf("look up payment %s: %w", externalTxnID, err)
	}

	listing, err := s.listings.GetListing(ctx, listingID)
	if err != nil {
		return nil, false, err
	}
	if !listing.Sold {
		return nil, false, fmt.Errorf("reconcile payment for %s: %w: listing is not closed", listingID, domain.ErrListingNotEligible)
	}

	bids, err := s.bids.ListBids(ctx, listingID)
	if err != nil {
		return nil, false, fmt.Errorf("load bids of %s: %w", listingID, err)
	}
	winning := WinningBid(bids)
	if winning == nil {
		return nil, false, fmt.Errorf("reconcile payment for %s: %w: listing closed without a winner", listingID, domain.ErrListingNotEligible)
	}
	if payerID != winning.BidderID {
		return nil, false, fmt.Errorf("reconcile payment for %s: %w", listingID, domain.ErrPayerMismatch)
	}

	// Compare against the winning bid's price; the listing's current price
	// may exceed it after a withdrawn top bid.
	mismatch := !amount.Equal(winning.Price)
	if mismatch {
		s.log.Warn("Payment amount differs from winning bid, flagging for review",
			"listing_id", listingID, "external_txn_id", externalTxnID,
			"amount", amount.String(), "winning_price", winning.Price.String())
	}

	payment := &domain.Payment{
		ID:             utils.GenerateID("pay"),
		ListingID:      listingID,
		Amount:         amount,
		PayerID:        payerID,
		ExternalTxnID:  externalTxnID,
		AmountMismatch: mismatch,
		RecordedAt:     s.clock.Now(),
	}

	if err := s.payments.CreatePayment(ctx, payment); err != nil {
		// The unique index may have raced us; if a record now exists for
		// this transaction, that record is the answer.
		if existing, lookupErr := s.payments.GetPaymentByExternalTxn(ctx, externalTxnID); lookupErr == nil {
			metrics.DuplicatePayments.Inc()
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("record payment %s: %w", externalTxnID, err)
	}

	metrics.PaymentsRecorded.Inc()
	s.log.Info("Payment recorded", "payment_id", payment.ID, "listing_id", listingID,
		"external_txn_id", externalTxnID, "amount", amount.String())

	return payment, true, nil
}

// ListPayments returns every recorded payment, for the admin surface.
func (s *PaymentService) ListPayments(ctx context.Context) ([]*domain.Payment, error) {
	return s.payments.ListPayments(ctx)
}
