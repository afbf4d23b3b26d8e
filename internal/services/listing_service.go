package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"numislive/internal/domain"
	"numislive/pkg/logger"
	"numislive/pkg/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListingService owns the listing lifecycle outside of closing: creation,
// browsing, discussion and removal.
type ListingService struct {
	listings domain.ListingRepository
	bids     domain.BidRepository
	comments domain.CommentRepository
	locks    *ListingLocks
	eventPub domain.EventPublisher
	clock    domain.Clock
	log      logger.Logger
}

func NewListingService(
	listings domain.ListingRepository,
	bids domain.BidRepository,
	comments domain.CommentRepository,
	locks *ListingLocks,
	eventPub domain.EventPublisher,
	clock domain.Clock,
	log logger.Logger,
) *ListingService {
	return &ListingService{
		listings: listings,
		bids:     bids,
		comments: comments,
		locks:    locks,
		eventPub: eventPub,
		clock:    clock,
		log:      log,
	}
}

// CreateListingInput carries the seller-supplied fields of a new listing.
// The deadline is expressed as a duration from now.
type CreateListingInput struct {
	Title         string
	Description   string
	StartingPrice decimal.Decimal
	DurationDays  int
	DurationHours int
	ImagePath     string

	Year         int
	Country      string
	Denomination string
	Grade        string
	MintMark     string
	Composition  string
}

func (s *ListingService) CreateListing(ctx context.Context, sellerID string, input CreateListingInput) (*domain.Listing, error) {
	if sellerID == "" {
		return nil, fmt.Errorf("create listing: %w: missing seller id", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("create listing: %w: empty title", domain.ErrInvalidInput)
	}
	if !input.StartingPrice.IsPositive() {
		return nil, fmt.Errorf("create listing: %w: non-positive starting price", domain.ErrInvalidInput)
	}
	duration := time.Duration(input.DurationDays)*24*time.Hour +
		time.Duration(input.DurationHours)*time.Hour
	if duration <= 0 {
		return nil, fmt.Errorf("create listing: %w: non-positive duration", domain.ErrInvalidInput)
	}

	now := s.clock.Now()
	listing := &domain.Listing{
		ID:            utils.GenerateID("listing"),
		Title:         strings.TrimSpace(input.Title),
		Description:   input.Description,
		SellerID:      sellerID,
		StartingPrice: input.StartingPrice,
		CurrentPrice:  input.StartingPrice,
		ClosingTime:   now.Add(duration),
		ImagePath:     input.ImagePath,
		Year:          input.Year,
		Country:       input.Country,
		Denomination:  input.Denomination,
		Grade:         input.Grade,
		MintMark:      input.MintMark,
		Composition:   input.Composition,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.listings.CreateListing(ctx, listing); err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}

	s.log.Info("Listing created", "listing_id", listing.ID, "seller_id", sellerID,
		"closing_time", listing.ClosingTime.Format(time.RFC3339))

	return listing, nil
}

// ListingDetails bundles a listing with its bid history and discussion.
type ListingDetails struct {
	Listing  *domain.Listing   `json:"listing"`
	Status   string            `json:"status"`
	Bids     []*domain.Bid     `json:"bids"`
	Comments []*domain.Comment `json:"comments"`
}

func (s *ListingService) GetListingDetails(ctx context.Context, listingID string) (*ListingDetails, error) {
	listing, err := s.listings.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	bids, err := s.bids.ListBids(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("load bids of %s: %w", listingID, err)
	}

	comments, err := s.comments.ListComments(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("load comments of %s: %w", listingID, err)
	}

	return &ListingDetails{
		Listing:  listing,
		Status:   listing.Status(s.clock.Now()),
		Bids:     bids,
		Comments: comments,
	}, nil
}

// ListOpenListings browses the open marketplace with optional title search.
func (s *ListingService) ListOpenListings(ctx context.Context, search string, page, pageSize int) ([]*domain.Listing, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	offset := (page - 1) * pageSize
	return s.listings.ListOpen(ctx, strings.TrimSpace(search), pageSize, offset)
}

// DeleteListing removes a listing that never attracted a bid. Sold listings
// and listings with bids are immutable history.
func (s *ListingService) DeleteListing(ctx context.Context, listingID string, actor domain.Actor) error {
	unlock := s.locks.Lock(listingID)
	defer unlock()

	listing, err := s.listings.GetListing(ctx, listingID)
	if err != nil {
		return err
	}

	if !actor.CanManage(listing.SellerID) {
		return fmt.Errorf("delete listing %s: %w", listingID, domain.ErrNotAuthorized)
	}
	if listing.Sold {
		return fmt.Errorf("delete listing %s: %w", listingID, domain.ErrListingSold)
	}

	count, err := s.bids.CountBids(ctx, listingID)
	if err != nil {
		return fmt.Errorf("count bids of %s: %w", listingID, err)
	}
	if count > 0 {
		return fmt.Errorf("delete listing %s: %w", listingID, domain.ErrListingHasBids)
	}

	if err := s.listings.DeleteListing(ctx, listingID); err != nil {
		return fmt.Errorf("delete listing %s: %w", listingID, err)
	}

	s.log.Info("Listing deleted", "listing_id", listingID, "actor_id", actor.ID)

	s.publish(&domain.Event{
		Type:      domain.EventListingRemoved,
		ListingID: listingID,
		Timestamp: s.clock.Now(),
	})

	return nil
}

// AddComment attaches a discussion comment to an existing listing.
func (s *ListingService) AddComment(ctx context.Context, listingID, authorID, content string) (*domain.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("add comment: %w: empty content", domain.ErrInvalidInput)
	}
	if authorID == "" {
		return nil, fmt.Errorf("add comment: %w: missing author id", domain.ErrInvalidInput)
	}

	if _, err := s.listings.GetListing(ctx, listingID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		ID:        utils.GenerateID("comment"),
		ListingID: listingID,
		AuthorID:  authorID,
		Content:   strings.TrimSpace(content),
		CreatedAt: s.clock.Now(),
	}

	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("add comment to %s: %w", listingID, err)
	}

	return comment, nil
}

func (s *ListingService) publish(event *domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.eventPub.PublishEvent(ctx, event); err != nil {
		s.log.Error("Failed to publish event", "type", event.Type,
			"listing_id", event.ListingID, "error", err)
	}
}
