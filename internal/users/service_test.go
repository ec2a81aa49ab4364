package users

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-rbac/internal/auth"
	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

const (
	rootUserID  int64 = 1
	peerAdminID int64 = 2
	memberID    int64 = 3

	superRoleID  int64 = 1
	memberRoleID int64 = 2
)

// ===== MOCK REPOSITORY =====

type mockRepository struct {
	users map[int64]User
	roles map[int64]string
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users: map[int64]User{
			rootUserID:  {ID: rootUserID, Username: "admin", RoleID: superRoleID, RoleName: "Admin", Status: auth.StatusActive, IsRoot: true},
			peerAdminID: {ID: peerAdminID, Username: "deputy", RoleID: superRoleID, RoleName: "Admin", Status: auth.StatusActive},
			memberID:    {ID: memberID, Username: "rina", RoleID: memberRoleID, RoleName: "User", Status: auth.StatusActive},
		},
		roles: map[int64]string{superRoleID: "Admin", memberRoleID: "User", 3: "Auditor"},
	}
}

func (m *mockRepository) ListUsers(_ context.Context) ([]User, error) {
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRepository) UpdateRole(_ context.Context, userID, roleID int64) error {
	user, ok := m.users[userID]
	if !ok {
		return shared.ErrNotFound
	}
	name, ok := m.roles[roleID]
	if !ok {
		return shared.ErrNotFound
	}
	user.RoleID, user.RoleName = roleID, name
	m.users[userID] = user
	return nil
}

func (m *mockRepository) DeleteUser(_ context.Context, userID int64) error {
	if _, ok := m.users[userID]; !ok {
		return shared.ErrNotFound
	}
	delete(m.users, userID)
	return nil
}

// ===== FAKE PROVISIONER =====

type fakeProvisioner struct {
	registered  []string
	invited     []string
	inviteErr   error
	undelivered bool
}

func (f *fakeProvisioner) RegisterUser(_ context.Context, username, email, _ string, roleID int64) (auth.User, error) {
	f.registered = append(f.registered, username)
	user := auth.User{ID: 10, Username: username, RoleID: roleID, Status: auth.StatusActive}
	if email != "" {
		user.Email = &email
	}
	return user, nil
}

func (f *fakeProvisioner) CreateInvitation(_ context.Context, email string, _ int64) (auth.Invitation, error) {
	if f.inviteErr != nil {
		return auth.Invitation{}, f.inviteErr
	}
	f.invited = append(f.invited, email)
	inv := auth.Invitation{
		UserID:      11,
		Email:       email,
		Token:       "tok",
		AcceptLink:  "http://app/set-password?token=tok",
		DeclineLink: "http://app/decline-invitation?token=tok",
	}
	if f.undelivered {
		inv.DeliveryWarning = "invitation email could not be delivered"
	}
	return inv, nil
}

func newTestService(repo *mockRepository, prov *fakeProvisioner) *Service {
	return NewService(repo, prov, shared.NewRootIdentity(rootUserID), nil)
}

func claimsFor(userID int64) shared.Claims {
	return shared.Claims{UserID: userID, RoleID: superRoleID}
}

// ===== TESTS =====

func TestListUsers(t *testing.T) {
	users, err := newTestService(newMockRepository(), &fakeProvisioner{}).ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.True(t, users[0].IsRoot)
}

func TestCreateUserWithPassword(t *testing.T) {
	prov := &fakeProvisioner{}
	created, err := newTestService(newMockRepository(), prov).CreateUser(context.Background(), NewUserInput{
		Username: "budi",
		Password: "s3cret-pass",
		RoleID:   memberRoleID,
	})
	require.NoError(t, err)
	require.NotNil(t, created.User)
	assert.Nil(t, created.Invitation)
	assert.Equal(t, []string{"budi"}, prov.registered)
	assert.Empty(t, prov.invited)
}

func TestCreateUserInvites(t *testing.T) {
	t.Run("delivered hides links", func(t *testing.T) {
		prov := &fakeProvisioner{}
		created, err := newTestService(newMockRepository(), prov).CreateUser(context.Background(), NewUserInput{
			Email:  "sari@example.com",
			RoleID: memberRoleID,
		})
		require.NoError(t, err)
		require.NotNil(t, created.Invitation)
		assert.Empty(t, created.Invitation.AcceptLink)
		assert.Empty(t, created.Invitation.DeclineLink)
		assert.Equal(t, []string{"sari@example.com"}, prov.invited)
	})

	t.Run("undelivered returns links", func(t *testing.T) {
		prov := &fakeProvisioner{undelivered: true}
		created, err := newTestService(newMockRepository(), prov).CreateUser(context.Background(), NewUserInput{
			Email:  "sari@example.com",
			RoleID: memberRoleID,
		})
		require.NoError(t, err)
		require.NotNil(t, created.Invitation)
		assert.NotEmpty(t, created.Invitation.DeliveryWarning)
		assert.Contains(t, created.Invitation.AcceptLink, "token=tok")
	})

	t.Run("no email", func(t *testing.T) {
		_, err := newTestService(newMockRepository(), &fakeProvisioner{}).CreateUser(context.Background(), NewUserInput{RoleID: memberRoleID})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("already registered", func(t *testing.T) {
		prov := &fakeProvisioner{inviteErr: shared.ErrAlreadyRegistered}
		_, err := newTestService(newMockRepository(), prov).CreateUser(context.Background(), NewUserInput{
			Email:  "rina@example.com",
			RoleID: memberRoleID,
		})
		assert.ErrorIs(t, err, shared.ErrConflict)
	})
}

func TestUpdateRole(t *testing.T) {
	tests := []struct {
		name    string
		caller  int64
		target  int64
		roleID  int64
		wantErr error
	}{
		{"root reassigns member", rootUserID, memberID, 3, nil},
		{"peer super admin refused", peerAdminID, memberID, 3, shared.ErrForbidden},
		{"member refused", memberID, memberID, superRoleID, shared.ErrForbidden},
		{"root cannot be demoted", rootUserID, rootUserID, memberRoleID, shared.ErrForbidden},
		{"unknown user", rootUserID, 99, memberRoleID, shared.ErrNotFound},
		{"unknown role", rootUserID, memberID, 99, shared.ErrNotFound},
		{"missing role", rootUserID, memberID, 0, shared.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepository()
			before := repo.users[tt.target]
			err := newTestService(repo, &fakeProvisioner{}).UpdateRole(context.Background(), claimsFor(tt.caller), tt.target, tt.roleID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, repo.users[tt.target])
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.roleID, repo.users[tt.target].RoleID)
		})
	}
}

func TestDeleteUser(t *testing.T) {
	tests := []struct {
		name    string
		caller  int64
		target  int64
		wantErr error
	}{
		{"root deletes member", rootUserID, memberID, nil},
		{"root deletes peer admin", rootUserID, peerAdminID, nil},
		{"peer super admin refused", peerAdminID, memberID, shared.ErrForbidden},
		{"root cannot delete itself", rootUserID, rootUserID, shared.ErrForbidden},
		{"unknown user", rootUserID, 99, shared.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepository()
			err := newTestService(repo, &fakeProvisioner{}).DeleteUser(context.Background(), claimsFor(tt.caller), tt.target)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotContains(t, repo.users, tt.target)
		})
	}
}

func TestUnresolvedRootRefusesEveryone(t *testing.T) {
	svc := NewService(newMockRepository(), &fakeProvisioner{}, shared.RootIdentity{}, nil)
	err := svc.DeleteUser(context.Background(), claimsFor(0), memberID)
	assert.True(t, errors.Is(err, shared.ErrForbidden))
}
