package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-rbac/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// Repository persists grants and field permissions.
type Repository interface {
	IsSuperAdminRole(ctx context.Context, roleID int64) (bool, error)
	HasGrant(ctx context.Context, roleID int64, resource shared.Resource, action shared.Action) (bool, error)
	UpsertGrant(ctx context.Context, grant Grant) error
	DeleteGrant(ctx context.Context, grant Grant) error
	ListGrants(ctx context.Context, roleID int64) ([]Grant, error)
	GetFieldAccess(ctx context.Context, roleID int64, resource shared.Resource, field string) (FieldAccess, bool, error)
	UpsertFieldAccess(ctx context.Context, perm FieldPermission) error
	ListFieldPermissions(ctx context.Context, roleID int64) ([]FieldPermission, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// IsSuperAdminRole reports the role's super-admin flag. Unknown roles yield ErrNotFound.
func (r *PGRepository) IsSuperAdminRole(ctx context.Context, roleID int64) (bool, error) {
	var super bool
	err := r.pool.QueryRow(ctx, `SELECT is_super_admin FROM roles WHERE id = $1`, roleID).Scan(&super)
	if err != nil {
		return false, db.MapError(err)
	}
	return super, nil
}

// HasGrant reports whether a grant row exists.
func (r *PGRepository) HasGrant(ctx context.Context, roleID int64, resource shared.Resource, action shared.Action) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM permissions WHERE role_id = $1 AND resource = $2 AND action = $3
	)`, roleID, string(resource), string(action)).Scan(&exists)
	if err != nil {
		return false, db.MapError(err)
	}
	return exists, nil
}

// UpsertGrant inserts the grant, leaving an existing row untouched.
func (r *PGRepository) UpsertGrant(ctx context.Context, grant Grant) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO permissions (role_id, resource, action)
		VALUES ($1, $2, $3)
		ON CONFLICT (role_id, resource, action) DO NOTHING`,
		grant.RoleID, string(grant.Resource), string(grant.Action))
	return db.MapError(err)
}

// DeleteGrant removes the grant if present.
func (r *PGRepository) DeleteGrant(ctx context.Context, grant Grant) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM permissions WHERE role_id = $1 AND resource = $2 AND action = $3`,
		grant.RoleID, string(grant.Resource), string(grant.Action))
	return db.MapError(err)
}

// ListGrants returns the stored grants of a role.
func (r *PGRepository) ListGrants(ctx context.Context, roleID int64) ([]Grant, error) {
	rows, err := r.pool.Query(ctx, `SELECT resource, action FROM permissions WHERE role_id = $1 ORDER BY resource, action`, roleID)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()
	var grants []Grant
	for rows.Next() {
		var resource, action string
		if err := rows.Scan(&resource, &action); err != nil {
			return nil, db.MapError(err)
		}
		grants = append(grants, Grant{RoleID: roleID, Resource: shared.Resource(resource), Action: shared.Action(action)})
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return grants, nil
}

// GetFieldAccess loads one field permission row. The bool is false when no row exists.
func (r *PGRepository) GetFieldAccess(ctx context.Context, roleID int64, resource shared.Resource, field string) (FieldAccess, bool, error) {
	var access FieldAccess
	err := r.pool.QueryRow(ctx, `SELECT can_view, can_edit FROM field_permissions
		WHERE role_id = $1 AND resource = $2 AND field = $3`,
		roleID, string(resource), field).Scan(&access.CanView, &access.CanEdit)
	if err != nil {
		err = db.MapError(err)
		if errors.Is(err, shared.ErrNotFound) {
			return FieldAccess{}, false, nil
		}
		return FieldAccess{}, false, err
	}
	return access, true, nil
}

// UpsertFieldAccess writes the field permission row.
func (r *PGRepository) UpsertFieldAccess(ctx context.Context, perm FieldPermission) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO field_permissions (role_id, resource, field, can_view, can_edit)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (role_id, resource, field) DO UPDATE SET can_view = EXCLUDED.can_view, can_edit = EXCLUDED.can_edit`,
		perm.RoleID, string(perm.Resource), perm.Field, perm.CanView, perm.CanEdit)
	return db.MapError(err)
}

// ListFieldPermissions returns the stored field permission rows of a role.
func (r *PGRepository) ListFieldPermissions(ctx context.Context, roleID int64) ([]FieldPermission, error) {
	rows, err := r.pool.Query(ctx, `SELECT resource, field, can_view, can_edit FROM field_permissions
		WHERE role_id = $1 ORDER BY resource, field`, roleID)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()
	var perms []FieldPermission
	for rows.Next() {
		perm := FieldPermission{RoleID: roleID}
		var resource string
		if err := rows.Scan(&resource, &perm.Field, &perm.CanView, &perm.CanEdit); err != nil {
			return nil, db.MapError(err)
		}
		perm.Resource = shared.Resource(resource)
		perms = append(perms, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return perms, nil
}

var _ Repository = (*PGRepository)(nil)
