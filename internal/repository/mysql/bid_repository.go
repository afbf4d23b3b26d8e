package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"numislive/internal/domain"
)

type MySQLBidRepository struct {
	db *sql.DB
}

func NewMySQLBidRepository(db *sql.DB) *MySQLBidRepository {
	return &MySQLBidRepository{db: db}
}

func (r *MySQLBidRepository) CreateBid(ctx context.Context, bid *domain.Bid) error {
	query := `
        INSERT INTO bids (id, listing_id, bidder_id, price, placed_at)
        VALUES (?, ?, ?, ?, ?)
    `
	res, err := r.db.ExecContext(ctx, query,
		bid.ID, bid.ListingID, bid.BidderID, bid.Price, bid.PlacedAt)
	if err != nil {
		return err
	}

	// seq is AUTO_INCREMENT; report it back so callers see acceptance order.
	seq, err := res.LastInsertId()
	if err == nil {
		bid.Seq = seq
	}
	return nil
}

func (r *MySQLBidRepository) GetBid(ctx context.Context, bidID string) (*domain.Bid, error) {
	query := `
        SELECT id, listing_id, bidder_id, price, seq, placed_at
        FROM bids WHERE id = ?
    `
	var bid domain.Bid
	err := r.db.QueryRowContext(ctx, query, bidID).Scan(
		&bid.ID, &bid.ListingID, &bid.BidderID, &bid.Price, &bid.Seq, &bid.PlacedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get bid %s: %w", bidID, domain.ErrBidNotFound)
		}
		return nil, err
	}
	return &bid, nil
}

func (r *MySQLBidRepository) ListBids(ctx context.Context, listingID string) ([]*domain.Bid, error) {
	query := `
        SELECT id, listing_id, bidder_id, price, seq, placed_at
        FROM bids
        WHERE listing_id = ?
        ORDER BY seq ASC
    `
	rows, err := r.db.QueryContext(ctx, query, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		var bid domain.Bid
		err := rows.Scan(&bid.ID, &bid.ListingID, &bid.BidderID, &bid.Price,
			&bid.Seq, &bid.PlacedAt)
		if err != nil {
			return nil, err
		}
		bids = append(bids, &bid)
	}
	return bids, rows.Err()
}

func (r *MySQLBidRepository) CountBids(ctx context.Context, listingID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bids WHERE listing_id = ?`, listingID).Scan(&count)
	return count, err
}

func (r *MySQLBidRepository) DeleteBid(ctx context.Context, bidID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bids WHERE id = ?`, bidID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("delete bid %s: %w", bidID, domain.ErrBidNotFound)
	}
	return nil
}
