package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"numislive/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

type MySQLListingRepository struct {
	db *sql.DB
}

func NewMySQLListingRepository(db *sql.DB) *MySQLListingRepository {
	return &MySQLListingRepository{db: db}
}

const listingColumns = `id, title, description, seller_id, starting_price, current_price,
       closing_time, sold, image_path, year, country, denomination, grade,
       mint_mark, composition, created_at, updated_at`

func (r *MySQLListingRepository) CreateListing(ctx context.Context, listing *domain.Listing) error {
	query := `
        INSERT INTO listings (` + listingColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		listing.ID, listing.Title, listing.Description, listing.SellerID,
		listing.StartingPrice, listing.CurrentPrice, listing.ClosingTime,
		listing.Sold, listing.ImagePath, listing.Year, listing.Country,
		listing.Denomination, listing.Grade, listing.MintMark,
		listing.Composition, listing.CreatedAt, listing.UpdatedAt)
	return err
}

func (r *MySQLListingRepository) GetListing(ctx context.Context, listingID string) (*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = ?`

	listing, err := scanListing(r.db.QueryRowContext(ctx, query, listingID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get listing %s: %w", listingID, domain.ErrListingNotFound)
		}
		return nil, err
	}
	return listing, nil
}

func (r *MySQLListingRepository) UpdateCurrentPrice(ctx context.Context, listingID string, price decimal.Decimal) error {
	query := `UPDATE listings SET current_price = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, price, time.Now().UTC(), listingID)
	if err != nil {
		return err
	}
	return requireRow(res, listingID)
}

func (r *MySQLListingRepository) MarkSold(ctx context.Context, listingID string, closedAt time.Time) error {
	query := `UPDATE listings SET sold = TRUE, closing_time = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, closedAt, closedAt, listingID)
	if err != nil {
		return err
	}
	return requireRow(res, listingID)
}

func (r *MySQLListingRepository) FindExpiredOpen(ctx context.Context, cutoff time.Time) ([]*domain.Listing, error) {
	query := `
        SELECT ` + listingColumns + `
        FROM listings
        WHERE sold = FALSE AND closing_time <= ?
        ORDER BY closing_time ASC
    `
	return r.queryListings(ctx, query, cutoff)
}

func (r *MySQLListingRepository) ListOpen(ctx context.Context, search string, limit, offset int) ([]*domain.Listing, error) {
	query := `
        SELECT ` + listingColumns + `
        FROM listings
        WHERE sold = FALSE AND (? = '' OR LOWER(title) LIKE LOWER(?))
        ORDER BY closing_time ASC
        LIMIT ? OFFSET ?
    `
	return r.queryListings(ctx, query, search, "%"+search+"%", limit, offset)
}

func (r *MySQLListingRepository) DeleteListing(ctx context.Context, listingID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, listingID)
	if err != nil {
		return err
	}
	return requireRow(res, listingID)
}

func (r *MySQLListingRepository) queryListings(ctx context.Context, query string, args ...interface{}) ([]*domain.Listing, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []*domain.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	return listings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanListing(row rowScanner) (*domain.Listing, error) {
	var listing domain.Listing
	var mintMark, composition sql.NullString

	err := row.Scan(
		&listing.ID, &listing.Title, &listing.Description, &listing.SellerID,
		&listing.StartingPrice, &listing.CurrentPrice, &listing.ClosingTime,
		&listing.Sold, &listing.ImagePath, &listing.Year, &listing.Country,
		&listing.Denomination, &listing.Grade, &mintMark, &composition,
		&listing.CreatedAt, &listing.UpdatedAt)
	if err != nil {
		return nil, err
	}

	listing.MintMark = mintMark.String
	listing.Composition = composition.String
	return &listing, nil
}

func requireRow(res sql.Result, listingID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("listing %s: %w", listingID, domain.ErrListingNotFound)
	}
	return nil
}
