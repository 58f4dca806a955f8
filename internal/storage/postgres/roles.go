package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-blog/server/internal/storage"
)

type RoleRepository struct {
	pool *pgxpool.Pool
}

func (r *RoleRepository) FindByNames(ctx context.Context, names []string) ([]storage.Role, error) {
	normalized := make([]string, 0, len(names))
	for _, name := range names {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(name)))
	}

	const query = `
SELECT id, name, permissions
FROM roles
WHERE name = ANY($1)
ORDER BY name`

	rows, err := r.pool.Query(ctx, query, normalized)
	if err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
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

// EnsureRole creates the role with an empty permission set on first
// reference. Concurrent callers race benignly on the unique name index.
func (r *RoleRepository) EnsureRole(ctx context.Context, name string) (storage.Role, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return storage.Role{}, fmt.Errorf("role name required")
	}

	const query = `
INSERT INTO roles (id, name, permissions)
VALUES (gen_random_uuid(), $1, '{}')
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id, name, permissions`

	var role storage.Role
	row := r.pool.QueryRow(ctx, query, name)
	if err := row.Scan(&role.ID, &role.Name, &role.Permissions); err != nil {
		return storage.Role{}, fmt.Errorf("ensure role %q: %w", name, err)
	}
	return role, nil
}

func (r *RoleRepository) List(ctx context.Context) ([]storage.Role, error) {
	const query = `SELECT id, name, permissions FROM roles ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
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

func (r *RoleRepository) SetPermissions(ctx context.Context, roleID string, permissions []string) error {
	const query = `UPDATE roles SET permissions = $2 WHERE id = $1::uuid`

	tag, err := r.pool.Exec(ctx, query, roleID, permissions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("set role permissions: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
