// Package postgres implements the storage contracts on top of pgx. The
// schema is managed outside this repository; these queries assume the
// subjects/roles/subject_roles/articles/comments tables exist.
package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-blog/server/internal/storage"
)

// Repository implements storage.Repository with a PostgreSQL backend.
type Repository struct {
	pool *pgxpool.Pool

	subjects *SubjectRepository
	roles    *RoleRepository
	articles *ArticleRepository
	comments *CommentRepository
}

// NewRepository creates a new PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}

	return &Repository{
		pool:     pool,
		subjects: &SubjectRepository{pool: pool},
		roles:    &RoleRepository{pool: pool},
		articles: &ArticleRepository{pool: pool},
		comments: &CommentRepository{pool: pool},
	}, nil
}

func (r *Repository) Subjects() storage.SubjectRepository { return r.subjects }
func (r *Repository) Roles() storage.RoleRepository       { return r.roles }
func (r *Repository) Articles() storage.ArticleRepository { return r.articles }
func (r *Repository) Comments() storage.CommentRepository { return r.comments }
