package roles

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// ===== MOCK REPOSITORY =====

type mockRepository struct {
	roles  map[int64]Role
	nextID int64
}

func newMockRepository() *mockRepository {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &mockRepository{
		roles: map[int64]Role{
			1: {ID: 1, Name: "Admin", IsSuperAdmin: true, UserCount: 1, CreatedAt: now},
			2: {ID: 2, Name: "User", UserCount: 3, CreatedAt: now},
			3: {ID: 3, Name: "Auditor", CreatedAt: now},
		},
		nextID: 4,
	}
}

func (m *mockRepository) ListRoles(_ context.Context) ([]Role, error) {
	out := make([]Role, 0, len(m.roles))
	for _, role := range m.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRepository) GetRole(_ context.Context, id int64) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return role, nil
}

func (m *mockRepository) CreateRole(_ context.Context, name string) (Role, error) {
	for _, role := range m.roles {
		if role.Name == name {
			return Role{}, shared.ErrConflict
		}
	}
	role := Role{ID: m.nextID, Name: name, CreatedAt: time.Now()}
	m.roles[role.ID] = role
	m.nextID++
	return role, nil
}

func (m *mockRepository) DeleteRole(_ context.Context, id int64) error {
	if _, ok := m.roles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.roles, id)
	return nil
}

// ===== TESTS =====

func TestListRoles(t *testing.T) {
	svc := NewService(newMockRepository())

	roles, err := svc.ListRoles(context.Background())
	require.NoError(t, err)
	require.Len(t, roles, 3)
	assert.Equal(t, "Admin", roles[0].Name)
	assert.True(t, roles[0].IsSuperAdmin)
}

func TestCreateRole(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	role, err := svc.CreateRole(context.Background(), "  Manager ")
	require.NoError(t, err)
	assert.Equal(t, "Manager", role.Name)
	assert.False(t, role.IsSuperAdmin)
	assert.Contains(t, repo.roles, role.ID)
}

func TestCreateRoleValidation(t *testing.T) {
	svc := NewService(newMockRepository())

	_, err := svc.CreateRole(context.Background(), "   ")
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateRole(context.Background(), strings.Repeat("x", maxRoleNameLength+1))
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRoleDuplicate(t *testing.T) {
	svc := NewService(newMockRepository())

	_, err := svc.CreateRole(context.Background(), "User")
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestDeleteRole(t *testing.T) {
	tests := []struct {
		name    string
		id      int64
		wantErr error
	}{
		{"super admin role", 1, shared.ErrForbidden},
		{"role in use", 2, shared.ErrConflict},
		{"unknown role", 99, shared.ErrNotFound},
		{"unused role", 3, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepository()
			err := NewService(repo).DeleteRole(context.Background(), tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotContains(t, repo.roles, tt.id)
		})
	}
}
