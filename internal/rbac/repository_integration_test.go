//go:build integration

package rbac

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-rbac/internal/platform/db/dbtest"
	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

func insertRole(t *testing.T, pool *pgxpool.Pool, name string, super bool) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO roles (name, is_super_admin) VALUES ($1, $2) RETURNING id`, name, super).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestPGRepositoryGrants(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.NewPool(t)
	svc := NewService(NewRepository(pool), nil, nil)
	admin := insertRole(t, pool, "Admin", true)
	clerk := insertRole(t, pool, "Clerk", false)

	grant := Grant{RoleID: clerk, Resource: shared.ResourceOrders, Action: shared.ActionCreate}
	require.NoError(t, svc.Grant(ctx, grant))
	require.NoError(t, svc.Grant(ctx, grant))

	grants, err := svc.ListGrants(ctx, clerk)
	require.NoError(t, err)
	assert.Equal(t, []Grant{grant}, grants)

	allowed, err := svc.IsAllowed(ctx, clerk, shared.ResourceOrders, shared.ActionCreate)
	require.NoError(t, err)
	assert.True(t, allowed)
	allowed, err = svc.IsAllowed(ctx, clerk, shared.ResourceOrders, shared.ActionDelete)
	require.NoError(t, err)
	assert.False(t, allowed)
	allowed, err = svc.IsAllowed(ctx, admin, shared.ResourceEmployees, shared.ActionDelete)
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, svc.Revoke(ctx, grant))
	require.NoError(t, svc.Revoke(ctx, grant))
	allowed, err = svc.IsAllowed(ctx, clerk, shared.ResourceOrders, shared.ActionCreate)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestPGRepositoryFieldAccess(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.NewPool(t)
	svc := NewService(NewRepository(pool), nil, nil)
	clerk := insertRole(t, pool, "Clerk", false)

	require.NoError(t, svc.Grant(ctx, Grant{RoleID: clerk, Resource: shared.ResourceEmployees, Action: shared.ActionRead}))
	access, err := svc.FieldAccess(ctx, clerk, shared.ResourceEmployees, "salary")
	require.NoError(t, err)
	assert.Equal(t, FieldAccess{}, access)

	perm := FieldPermission{RoleID: clerk, Resource: shared.ResourceEmployees, Field: "salary", FieldAccess: FieldAccess{CanView: true}}
	require.NoError(t, svc.SetFieldAccess(ctx, perm))
	perm.FieldAccess = FieldAccess{CanView: true, CanEdit: true}
	require.NoError(t, svc.SetFieldAccess(ctx, perm))

	access, err = svc.FieldAccess(ctx, clerk, shared.ResourceEmployees, "salary")
	require.NoError(t, err)
	assert.Equal(t, FieldAccess{CanView: true, CanEdit: true}, access)

	_, err = pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, clerk)
	require.NoError(t, err)
	stored, err := NewRepository(pool).ListFieldPermissions(ctx, clerk)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestPGRepositoryUnknownRoleGrantIsNotFound(t *testing.T) {
	pool := dbtest.NewPool(t)
	svc := NewService(NewRepository(pool), nil, nil)

	err := svc.Grant(context.Background(), Grant{RoleID: 999, Resource: shared.ResourceOrders, Action: shared.ActionRead})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
