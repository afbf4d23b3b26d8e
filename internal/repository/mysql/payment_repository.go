package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"numislive/internal/domain"
)

type MySQLPaymentRepository struct {
	db *sql.DB
}

func NewMySQLPaymentRepository(db *sql.DB) *MySQLPaymentRepository {
	return &MySQLPaymentRepository{db: db}
}

func (r *MySQLPaymentRepository) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	// external_txn_id carries a UNIQUE constraint; a duplicate confirmation
	// racing past the service-level check fails here and the caller re-reads.
	query := `
        INSERT INTO payments (id, listing_id, amount, payer_id, external_txn_id,
                              amount_mismatch, recorded_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		payment.ID, payment.ListingID, payment.Amount, payment.PayerID,
		payment.ExternalTxnID, payment.AmountMismatch, payment.RecordedAt)
	return err
}

func (r *MySQLPaymentRepository) GetPaymentByExternalTxn(ctx context.Context, externalTxnID string) (*domain.Payment, error) {
	query := `
        SELECT id, listing_id, amount, payer_id, external_txn_id, amount_mismatch, recorded_at
        FROM payments WHERE external_txn_id = ?
    `
	var payment domain.Payment
	err := r.db.QueryRowContext(ctx, query, externalTxnID).Scan(
		&payment.ID, &payment.ListingID, &payment.Amount, &payment.PayerID,
		&payment.ExternalTxnID, &payment.AmountMismatch, &payment.RecordedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("payment for txn %s: %w", externalTxnID, domain.ErrPaymentNotFound)
		}
		return nil, err
	}
	return &payment, nil
}

func (r *MySQLPaymentRepository) ListPayments(ctx context.Context) ([]*domain.Payment, error) {
	query := `
        SELECT id, listing_id, amount, payer_id, external_txn_id, amount_mismatch, recorded_at
        FROM payments
        ORDER BY recorded_at DESC
    `
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		var payment domain.Payment
		err := rows.Scan(&payment.ID, &payment.ListingID, &payment.Amount,
			&payment.PayerID, &payment.ExternalTxnID, &payment.AmountMismatch,
			&payment.RecordedAt)
		if err != nil {
			return nil, err
		}
		payments = append(payments, &payment)
	}
	return payments, rows.Err()
}
