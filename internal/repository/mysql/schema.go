package mysql

import (
	"context"
	"database/sql"
)

// EnsureSchema creates the tables the engine needs if they do not exist.
// The unique index on payments.external_txn_id is the idempotency backstop
// for duplicate gateway confirmations; bids.seq records acceptance order.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id         VARCHAR(64) PRIMARY KEY,
            username   VARCHAR(255) NOT NULL,
            email      VARCHAR(255) NOT NULL,
            role       VARCHAR(32)  NOT NULL DEFAULT 'user'
        )`,
		`CREATE TABLE IF NOT EXISTS listings (
            id             VARCHAR(64) PRIMARY KEY,
            title          VARCHAR(255) NOT NULL,
            description    TEXT NOT NULL,
            seller_id      VARCHAR(64) NOT NULL,
            starting_price DECIMAL(12,2) NOT NULL,
            current_price  DECIMAL(12,2) NOT NULL,
            closing_time   DATETIME(6) NOT NULL,
            sold           BOOLEAN NOT NULL DEFAULT FALSE,
            image_path     VARCHAR(255) NOT NULL DEFAULT '',
            year           INT NOT NULL,
            country        VARCHAR(128) NOT NULL,
            denomination   VARCHAR(128) NOT NULL,
            grade          VARCHAR(64)  NOT NULL,
            mint_mark      VARCHAR(64),
            composition    VARCHAR(128),
            created_at     DATETIME(6) NOT NULL,
            updated_at     DATETIME(6) NOT NULL,
            INDEX idx_listings_open_deadline (sold, closing_time)
        )`,
		`CREATE TABLE IF NOT EXISTS bids (
            seq        BIGINT AUTO_INCREMENT PRIMARY KEY,
            id         VARCHAR(64) NOT NULL UNIQUE,
            listing_id VARCHAR(64) NOT NULL,
            bidder_id  VARCHAR(64) NOT NULL,
            price      DECIMAL(12,2) NOT NULL,
            placed_at  DATETIME(6) NOT NULL,
            INDEX idx_bids_listing (listing_id),
            CONSTRAINT fk_bids_listing FOREIGN KEY (listing_id) REFERENCES listings(id)
                ON DELETE CASCADE
        )`,
		`CREATE TABLE IF NOT EXISTS comments (
            id         VARCHAR(64) PRIMARY KEY,
            listing_id VARCHAR(64) NOT NULL,
            author_id  VARCHAR(64) NOT NULL,
            content    TEXT NOT NULL,
            created_at DATETIME(6) NOT NULL,
            INDEX idx_comments_listing (listing_id),
            CONSTRAINT fk_comments_listing FOREIGN KEY (listing_id) REFERENCES listings(id)
                ON DELETE CASCADE
        )`,
		`CREATE TABLE IF NOT EXISTS payments (
            id              VARCHAR(64) PRIMARY KEY,
            listing_id      VARCHAR(64) NOT NULL,
            amount          DECIMAL(12,2) NOT NULL,
            payer_id        VARCHAR(64) NOT NULL,
            external_txn_id VARCHAR(128) NOT NULL,
            amount_mismatch BOOLEAN NOT NULL DEFAULT FALSE,
            recorded_at     DATETIME(6) NOT NULL,
            UNIQUE INDEX idx_payments_external_txn (external_txn_id),
            INDEX idx_payments_listing (listing_id)
        )`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
