package domain

import "errors"

// Store-level errors
var (
	ErrListingNotFound = errors.New("listing not found")
	ErrBidNotFound     = errors.New("bid not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrPaymentNotFound = errors.New("payment not found")
)

// Business rule errors
var (
	ErrListingClosed      = errors.New("listing closed")
	ErrBidTooLow          = errors.New("bid not above current price")
	ErrListingHasBids     = errors.New("listing already has bids")
	ErrListingSold        = errors.New("listing already sold")
	ErrListingNotEligible = errors.New("listing not closed with a winner")
	ErrPayerMismatch      = errors.New("payer is not the winning bidder")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrInvalidInput       = errors.New("invalid input")
)
