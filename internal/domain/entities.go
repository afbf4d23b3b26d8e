package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing is an auctionable item. CurrentPrice only moves up, one accepted
// bid at a time, and once Sold is set the listing never reopens.
type Listing struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	SellerID      string          `json:"seller_id"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	ClosingTime   time.Time       `json:"closing_time"`
	Sold          bool            `json:"sold"`
	ImagePath     string          `json:"image_path,omitempty"`

	// Coin catalogue fields. The engine never reads these.
	Year         int    `json:"year"`
	Country      string `json:"country"`
	Denomination string `json:"denomination"`
	Grade        string `json:"grade"`
	MintMark     string `json:"mint_mark,omitempty"`
	Composition  string `json:"composition,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status reports the user-facing state of a listing at a given instant.
func (l *Listing) Status(now time.Time) string {
	if l.Sold {
		return "sold"
	}
	if now.After(l.ClosingTime) {
		return "closed"
	}
	return "active"
}

// Open reports whether the listing can still accept bids at the given instant.
func (l *Listing) Open(now time.Time) bool {
	return !l.Sold && !now.After(l.ClosingTime)
}

// Bid is a priced offer against a listing. Seq is assigned by the store in
// acceptance order and breaks price ties (earliest wins).
type Bid struct {
	ID        string          `json:"id"`
	ListingID string          `json:"listing_id"`
	BidderID  string          `json:"bidder_id"`
	Price     decimal.Decimal `json:"price"`
	Seq       int64           `json:"-"`
	PlacedAt  time.Time       `json:"placed_at"`
}

// Comment is free-form discussion attached to a listing.
type Comment struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listing_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Payment is the durable record of settled funds for a listing. At most one
// exists per external transaction id.
type Payment struct {
	ID             string          `json:"id"`
	ListingID      string          `json:"listing_id"`
	Amount         decimal.Decimal `json:"amount"`
	PayerID        string          `json:"payer_id"`
	ExternalTxnID  string          `json:"external_txn_id"`
	AmountMismatch bool            `json:"amount_mismatch"`
	RecordedAt     time.Time       `json:"recorded_at"`
}

// User is the slice of identity data the engine needs: ownership checks and
// winner email addresses. Credentials live elsewhere.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

const RoleAdmin = "admin"

// Actor identifies who is invoking a mutating operation. The zero System
// value means a human caller whose ID/Role came from verified claims.
type Actor struct {
	ID     string
	Role   string
	System bool
}

// SystemActor is used by the expiration sweeper; the elapsed deadline itself
// is the authorization.
var SystemActor = Actor{System: true}

func (a Actor) Admin() bool {
	return a.Role == RoleAdmin
}

// CanManage reports whether the actor may close or delete a listing owned by
// ownerID.
func (a Actor) CanManage(ownerID string) bool {
	return a.System || a.Admin() || a.ID == ownerID
}

// CloseResult is the outcome of closing a listing. AlreadyClosed marks the
// idempotent no-op path. WinnerID is empty when the listing had no bids.
type CloseResult struct {
	ListingID     string          `json:"listing_id"`
	WinnerID      string          `json:"winner_id,omitempty"`
	WinningBidID  string          `json:"winning_bid_id,omitempty"`
	FinalPrice    decimal.Decimal `json:"final_price"`
	ClosedAt      time.Time       `json:"closed_at"`
	AlreadyClosed bool            `json:"already_closed"`
}
