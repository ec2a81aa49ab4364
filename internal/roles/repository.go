package roles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-rbac/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roleSelect = `SELECT r.id, r.name, r.is_super_admin, r.created_at,
	(SELECT COUNT(*) FROM users u WHERE u.role_id = r.id)
	FROM roles r`

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	if err := row.Scan(&role.ID, &role.Name, &role.IsSuperAdmin, &role.CreatedAt, &role.UserCount); err != nil {
		return Role{}, db.MapError(err)
	}
	return role, nil
}

// ListRoles returns all roles.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, roleSelect+` ORDER BY r.id`)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()
	roles := []Role{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return roles, nil
}

// GetRole loads one role with its user count.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	return scanRole(r.pool.QueryRow(ctx, roleSelect+` WHERE r.id = $1`, id))
}

// CreateRole inserts a new regular role.
func (r *Repository) CreateRole(ctx context.Context, name string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `INSERT INTO roles (name) VALUES ($1) RETURNING id, name, is_super_admin, created_at`, name).
		Scan(&role.ID, &role.Name, &role.IsSuperAdmin, &role.CreatedAt)
	if err != nil {
		return Role{}, db.MapError(err)
	}
	return role, nil
}

// DeleteRole removes a role by id. Grants cascade; assigned users block the delete.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: role is still assigned to users", shared.ErrConflict)
		}
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
