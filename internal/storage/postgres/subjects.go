package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-blog/server/internal/storage"
)

type SubjectRepository struct {
	pool *pgxpool.Pool
}

func (r *SubjectRepository) Create(ctx context.Context, subject storage.Subject) (storage.Subject, error) {
	const query = `
INSERT INTO subjects (id, username, email, password_hash, created_at)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, now())
RETURNING id, created_at`

	row := r.pool.QueryRow(ctx, query, subject.ID, subject.Username, subject.Email, subject.PasswordHash)
	if err := row.Scan(&subject.ID, &subject.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return storage.Subject{}, storage.ErrDuplicate
		}
		return storage.Subject{}, fmt.Errorf("create subject: %w", err)
	}

	for _, role := range subject.Roles {
		if err := r.AssignRole(ctx, subject.ID, role.ID); err != nil {
			return storage.Subject{}, err
		}
	}
	return subject, nil
}

func (r *SubjectRepository) FindByID(ctx context.Context, id string) (storage.Subject, error) {
	return r.findBy(ctx, "s.id = $1::uuid", id)
}

func (r *SubjectRepository) FindByEmail(ctx context.Context, email string) (storage.Subject, error) {
	return r.findBy(ctx, "s.email = $1", email)
}

func (r *SubjectRepository) FindByUsername(ctx context.Context, username string) (storage.Subject, error) {
	return r.findBy(ctx, "s.username = $1", username)
}

func (r *SubjectRepository) findBy(ctx context.Context, where string, arg any) (storage.Subject, error) {
	query := `
SELECT s.id, s.username, s.email, s.password_hash, s.created_at
FROM subjects s
WHERE ` + where

	var subject storage.Subject
	row := r.pool.QueryRow(ctx, query, arg)
	if err := row.Scan(&subject.ID, &subject.Username, &subject.Email, &subject.PasswordHash, &subject.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Subject{}, storage.ErrNotFound
		}
		return storage.Subject{}, fmt.Errorf("find subject: %w", err)
	}

	roles, err := r.rolesFor(ctx, subject.ID)
	if err != nil {
		return storage.Subject{}, err
	}
	subject.Roles = roles
	return subject, nil
}

func (r *SubjectRepository) rolesFor(ctx context.Context, subjectID string) ([]storage.Role, error) {
	const query = `
SELECT r.id, r.name, r.permissions
FROM roles r
JOIN subject_roles sr ON sr.role_id = r.id
WHERE sr.subject_id = $1::uuid
ORDER BY r.name`

	rows, err := r.pool.Query(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("load subject roles: %w", err)
	}
	defer rows.Close()

	var roles []storage.Role
	for rows.Next() {
		var role storage.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Permissions); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *SubjectRepository) List(ctx context.Context) ([]storage.Subject, error) {
	const query = `
SELECT id, username, email, password_hash, created_at
FROM subjects
ORDER BY username`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []storage.Subject
	for rows.Next() {
		var subject storage.Subject
		if err := rows.Scan(&subject.ID, &subject.Username, &subject.Email, &subject.PasswordHash, &subject.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range subjects {
		roles, err := r.rolesFor(ctx, subjects[i].ID)
		if err != nil {
			return nil, err
		}
		subjects[i].Roles = roles
	}
	return subjects, nil
}

func (r *SubjectRepository) Update(ctx context.Context, subject storage.Subject) error {
	const query = `
UPDATE subjects
SET username = $2, email = $3,
    password_hash = CASE WHEN $4 = '' THEN password_hash ELSE $4 END
WHERE id = $1::uuid`

	tag, err := r.pool.Exec(ctx, query, subject.ID, subject.Username, subject.Email, subject.PasswordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("update subject: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM subjects WHERE id = $1::uuid`, id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *SubjectRepository) AssignRole(ctx context.Context, subjectID, roleID string) error {
	const query = `
INSERT INTO subject_roles (subject_id, role_id)
VALUES ($1::uuid, $2::uuid)
ON CONFLICT DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, subjectID, roleID); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}
