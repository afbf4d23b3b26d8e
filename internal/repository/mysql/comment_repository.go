package mysql

import (
	"context"
	"database/sql"

	"numislive/internal/domain"
)

type MySQLCommentRepository struct {
	db *sql.DB
}

func NewMySQLCommentRepository(db *sql.DB) *MySQLCommentRepository {
	return &MySQLCommentRepository{db: db}
}

func (r *MySQLCommentRepository) CreateComment(ctx context.Context, comment *domain.Comment) error {
	query := `
        INSERT INTO comments (id, listing_id, author_id, content, created_at)
        VALUES (?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		comment.ID, comment.ListingID, comment.AuthorID, comment.Content,
		comment.CreatedAt)
	return err
}

func (r *MySQLCommentRepository) ListComments(ctx context.Context, listingID string) ([]*domain.Comment, error) {
	query := `
        SELECT id, listing_id, author_id, content, created_at
        FROM comments
        WHERE listing_id = ?
        ORDER BY created_at DESC
    `
	rows, err := r.db.QueryContext(ctx, query, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*domain.Comment
	for rows.Next() {
		var comment domain.Comment
		err := rows.Scan(&comment.ID, &comment.ListingID, &comment.AuthorID,
			&comment.Content, &comment.CreatedAt)
		if err != nil {
			return nil, err
		}
		comments = append(comments, &comment)
	}
	return comments, rows.Err()
}
