package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-blog/server/internal/storage"
)

type ArticleRepository struct {
	pool *pgxpool.Pool
}

func (r *ArticleRepository) Create(ctx context.Context, article storage.Article) (storage.Article, error) {
	const query = `
INSERT INTO articles (id, title, content, author_id, created_at, updated_at)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4::uuid, now(), now())
RETURNING id, created_at, updated_at`

	row := r.pool.QueryRow(ctx, query, article.ID, article.Title, article.Content, article.AuthorID)
	if err := row.Scan(&article.ID, &article.CreatedAt, &article.UpdatedAt); err != nil {
		return storage.Article{}, fmt.Errorf("create article: %w", err)
	}
	return article, nil
}

func (r *ArticleRepository) FindByID(ctx context.Context, id string) (storage.Article, error) {
	const query = `
SELECT id, title, content, author_id, created_at, updated_at
FROM articles
WHERE id = $1::uuid`

	var article storage.Article
	row := r.pool.QueryRow(ctx, query, id)
	if err := row.Scan(&article.ID, &article.Title, &article.Content, &article.AuthorID, &article.CreatedAt, &article.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Article{}, storage.ErrNotFound
		}
		return storage.Article{}, fmt.Errorf("find article: %w", err)
	}
	return article, nil
}

func (r *ArticleRepository) List(ctx context.Context) ([]storage.Article, error) {
	const query = `
SELECT id, title, content, author_id, created_at, updated_at
FROM articles
ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var articles []storage.Article
	for rows.Next() {
		var article storage.Article
		if err := rows.Scan(&article.ID, &article.Title, &article.Content, &article.AuthorID, &article.CreatedAt, &article.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

func (r *ArticleRepository) Update(ctx context.Context, article storage.Article) error {
	const query = `
UPDATE articles
SET title = $2, content = $3, updated_at = now()
WHERE id = $1::uuid`

	tag, err := r.pool.Exec(ctx, query, article.ID, article.Title, article.Content)
	if err != nil {
		return fmt.Errorf("update article: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *ArticleRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM articles WHERE id = $1::uuid`, id)
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
