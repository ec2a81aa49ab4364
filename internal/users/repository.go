package users

import (
	"context"
	"fmt"

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

// ListUsers returns all users.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT u.id, u.username, u.email, u.role_id, r.name, u.status, u.is_root, u.created_at
		FROM users u JOIN roles r ON r.id = u.role_id
		ORDER BY u.id`)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()
	users := []User{}
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.RoleID, &user.RoleName, &user.Status, &user.IsRoot, &user.CreatedAt); err != nil {
			return nil, db.MapError(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return users, nil
}

// UpdateRole points a user at another role.
func (r *Repository) UpdateRole(ctx context.Context, userID, roleID int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET role_id = $2 WHERE id = $1`, userID, roleID)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: role %d does not exist", shared.ErrNotFound, roleID)
		}
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", shared.ErrNotFound, userID)
	}
	return nil
}

// DeleteUser removes a user. The root row is never matched.
func (r *Repository) DeleteUser(ctx context.Context, userID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1 AND NOT is_root`, userID)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", shared.ErrNotFound, userID)
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
