//go:build integration

package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-rbac/internal/platform/db/dbtest"
	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

func TestPGRepositoryInvitationLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.NewPool(t))

	roleID, err := repo.EnsureRole(ctx, DefaultRoleName, false)
	require.NoError(t, err)

	invitedAt := time.Now()
	userID, err := repo.UpsertInvitation(ctx, InvitationParams{Email: "sari@example.com", RoleID: roleID, Token: "tok-1", InvitedAt: invitedAt})
	require.NoError(t, err)

	t.Run("re-invite overwrites token", func(t *testing.T) {
		again, err := repo.UpsertInvitation(ctx, InvitationParams{Email: "sari@example.com", RoleID: roleID, Token: "tok-2", InvitedAt: invitedAt})
		require.NoError(t, err)
		assert.Equal(t, userID, again)
		assert.ErrorIs(t, repo.RedeemInvitation(ctx, "tok-1", "digest", invitedAt.Add(-time.Hour)), shared.ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		err := repo.RedeemInvitation(ctx, "tok-2", "digest", invitedAt.Add(time.Minute))
		assert.ErrorIs(t, err, shared.ErrInvitationExpired)
	})

	t.Run("redeem once", func(t *testing.T) {
		require.NoError(t, repo.RedeemInvitation(ctx, "tok-2", "digest", invitedAt.Add(-time.Hour)))
		assert.ErrorIs(t, repo.RedeemInvitation(ctx, "tok-2", "digest", invitedAt.Add(-time.Hour)), shared.ErrInvalidToken)

		user, err := repo.FindByUsername(ctx, "sari@example.com")
		require.NoError(t, err)
		assert.Equal(t, StatusActive, user.Status)
		assert.True(t, user.CanAuthenticate())
		assert.Nil(t, user.InvitationToken)
	})

	t.Run("registered identity cannot be invited", func(t *testing.T) {
		_, err := repo.UpsertInvitation(ctx, InvitationParams{Email: "sari@example.com", RoleID: roleID, Token: "tok-3", InvitedAt: invitedAt})
		assert.ErrorIs(t, err, shared.ErrAlreadyRegistered)
	})
}

func TestPGRepositoryDeclineThenReinvite(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.NewPool(t))
	roleID, err := repo.EnsureRole(ctx, DefaultRoleName, false)
	require.NoError(t, err)

	now := time.Now()
	_, err = repo.UpsertInvitation(ctx, InvitationParams{Email: "budi@example.com", RoleID: roleID, Token: "decline-me", InvitedAt: now})
	require.NoError(t, err)

	require.NoError(t, repo.DeclineInvitation(ctx, "decline-me", now.Add(-time.Hour)))
	assert.ErrorIs(t, repo.DeclineInvitation(ctx, "decline-me", now.Add(-time.Hour)), shared.ErrInvalidToken)

	user, err := repo.FindByUsername(ctx, "budi@example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusDeclined, user.Status)

	_, err = repo.UpsertInvitation(ctx, InvitationParams{Email: "budi@example.com", RoleID: roleID, Token: "second-chance", InvitedAt: now})
	require.NoError(t, err)
	user, err = repo.FindByUsername(ctx, "budi@example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, user.Status)
}

func TestPGRepositoryConcurrentRedeemHasOneWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.NewPool(t))
	roleID, err := repo.EnsureRole(ctx, DefaultRoleName, false)
	require.NoError(t, err)

	now := time.Now()
	_, err = repo.UpsertInvitation(ctx, InvitationParams{Email: "race@example.com", RoleID: roleID, Token: "race", InvitedAt: now})
	require.NoError(t, err)

	const racers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		invalid int
	)
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := repo.RedeemInvitation(ctx, "race", "digest", now.Add(-time.Hour))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, shared.ErrInvalidToken):
				invalid++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, invalid)
}

func TestPGRepositoryRootAndDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.NewPool(t))
	adminRole, err := repo.EnsureRole(ctx, AdminRoleName, true)
	require.NoError(t, err)
	again, err := repo.EnsureRole(ctx, AdminRoleName, true)
	require.NoError(t, err)
	assert.Equal(t, adminRole, again)

	_, err = repo.FindRoot(ctx)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	rootID, err := repo.CreateRoot(ctx, shared.RootUsername, "digest", adminRole)
	require.NoError(t, err)
	root, err := repo.FindRoot(ctx)
	require.NoError(t, err)
	assert.Equal(t, rootID, root.ID)

	_, err = repo.CreateUser(ctx, NewUser{Username: shared.RootUsername, Digest: "x", RoleID: adminRole})
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestPGRepositoryCreateRootActivatesPendingAccount(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.NewPool(t)
	repo := NewRepository(pool)
	adminRole, err := repo.EnsureRole(ctx, AdminRoleName, true)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `INSERT INTO users (username, role_id, invitation_token, invited_at, status)
		VALUES ($1, $2, 'stale-token', NOW(), 'Pending')`, shared.RootUsername, adminRole)
	require.NoError(t, err)

	rootID, err := repo.CreateRoot(ctx, shared.RootUsername, "root-digest", adminRole)
	require.NoError(t, err)

	root, err := repo.FindByUsername(ctx, shared.RootUsername)
	require.NoError(t, err)
	assert.Equal(t, rootID, root.ID)
	assert.True(t, root.IsRoot)
	assert.Equal(t, StatusActive, root.Status)
	require.NotNil(t, root.PasswordDigest)
	assert.Equal(t, "root-digest", *root.PasswordDigest)
	assert.Nil(t, root.InvitationToken)

	_, err = repo.CreateRoot(ctx, shared.RootUsername, "other-digest", adminRole)
	require.NoError(t, err)
	root, err = repo.FindByUsername(ctx, shared.RootUsername)
	require.NoError(t, err)
	assert.Equal(t, "root-digest", *root.PasswordDigest)
}
