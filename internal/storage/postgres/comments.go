package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-blog/server/internal/storage"
)

type CommentRepository struct {
	pool *pgxpool.Pool
}

func (r *CommentRepository) Create(ctx context.Context, comment storage.Comment) (storage.Comment, error) {
	const query = `
INSERT INTO comments (id, article_id, author_id, content, created_at)
VALUES ($1, $2::uuid, $3::uuid, $4, $5)
RETURNING created_at`

	row := r.pool.QueryRow(ctx, query, comment.ID, comment.ArticleID, comment.AuthorID, comment.Content, comment.CreatedAt)
	if err := row.Scan(&comment.CreatedAt); err != nil {
		return storage.Comment{}, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

func (r *CommentRepository) FindByID(ctx context.Context, id string) (storage.Comment, error) {
	const query = `
SELECT id, article_id, author_id, content, created_at
FROM comments
WHERE id = $1`

	var comment storage.Comment
	row := r.pool.QueryRow(ctx, query, id)
	if err := row.Scan(&comment.ID, &comment.ArticleID, &comment.AuthorID, &comment.Content, &comment.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Comment{}, storage.ErrNotFound
		}
		return storage.Comment{}, fmt.Errorf("find comment: %w", err)
	}
	return comment, nil
}

func (r *CommentRepository) ListByArticle(ctx context.Context, articleID string) ([]storage.Comment, error) {
	// Comment ids are ULIDs, so ordering by id matches creation order.
	const query = `
SELECT id, article_id, author_id, content, created_at
FROM comments
WHERE article_id = $1::uuid
ORDER BY id`

	rows, err := r.pool.Query(ctx, query, articleID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []storage.Comment
	for rows.Next() {
		var comment storage.Comment
		if err := rows.Scan(&comment.ID, &comment.ArticleID, &comment.AuthorID, &comment.Content, &comment.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
