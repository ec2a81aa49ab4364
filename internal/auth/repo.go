package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-rbac/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (User, error)
	CreateUser(ctx context.Context, user NewUser) (User, error)
	UpsertInvitation(ctx context.Context, params InvitationParams) (int64, error)
	RedeemInvitation(ctx context.Context, token, digest string, notBefore time.Time) error
	DeclineInvitation(ctx context.Context, token string, notBefore time.Time) error
	EnsureRole(ctx context.Context, name string, superAdmin bool) (int64, error)
	FindRoot(ctx context.Context) (User, error)
	CreateRoot(ctx context.Context, username, digest string, roleID int64) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, username, email, password_digest, role_id, status, invitation_token, invited_at, is_root, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	var status string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordDigest, &u.RoleID, &status,
		&u.InvitationToken, &u.InvitedAt, &u.IsRoot, &u.CreatedAt)
	if err != nil {
		return User{}, db.MapError(err)
	}
	u.Status = Status(status)
	return u, nil
}

// FindByUsername fetches a user by username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

// CreateUser inserts an Active user with a password.
func (r *PGRepository) CreateUser(ctx context.Context, user NewUser) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `INSERT INTO users (username, email, password_digest, role_id, status)
		VALUES ($1, $2, $3, $4, 'Active')
		RETURNING `+userColumns, user.Username, user.Email, user.Digest, user.RoleID))
}

// UpsertInvitation creates a Pending user or re-arms an existing Pending/Declined one.
// Identities that already hold a password yield ErrAlreadyRegistered.
func (r *PGRepository) UpsertInvitation(ctx context.Context, params InvitationParams) (int64, error) {
	var userID int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var registered bool
		err := tx.QueryRow(ctx, `SELECT id, password_digest IS NOT NULL FROM users
			WHERE email = $1 OR username = $1
			ORDER BY id LIMIT 1
			FOR UPDATE`, params.Email).Scan(&userID, &registered)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return db.MapError(tx.QueryRow(ctx, `INSERT INTO users (username, email, role_id, invitation_token, invited_at, status)
				VALUES ($1, $1, $2, $3, $4, 'Pending')
				RETURNING id`, params.Email, params.RoleID, params.Token, params.InvitedAt).Scan(&userID))
		case err != nil:
			return db.MapError(err)
		case registered:
			return shared.ErrAlreadyRegistered
		}
		_, err = tx.Exec(ctx, `UPDATE users
			SET invitation_token = $2, role_id = $3, invited_at = $4, status = 'Pending'
			WHERE id = $1`, userID, params.Token, params.RoleID, params.InvitedAt)
		return db.MapError(err)
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// RedeemInvitation atomically swaps a live token for a password digest.
func (r *PGRepository) RedeemInvitation(ctx context.Context, token, digest string, notBefore time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users
		SET password_digest = $2, invitation_token = NULL, invited_at = NULL, status = 'Active'
		WHERE invitation_token = $1 AND status = 'Pending' AND invited_at > $3`, token, digest, notBefore)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	return r.classifyDeadToken(ctx, token)
}

// DeclineInvitation atomically consumes a live token and marks the user Declined.
func (r *PGRepository) DeclineInvitation(ctx context.Context, token string, notBefore time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users
		SET invitation_token = NULL, invited_at = NULL, status = 'Declined'
		WHERE invitation_token = $1 AND status = 'Pending' AND invited_at > $2`, token, notBefore)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	return r.classifyDeadToken(ctx, token)
}

// classifyDeadToken distinguishes an expired invitation from an unknown or consumed token.
func (r *PGRepository) classifyDeadToken(ctx context.Context, token string) error {
	var pending bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM users WHERE invitation_token = $1 AND status = 'Pending'
	)`, token).Scan(&pending)
	if err != nil {
		return db.MapError(err)
	}
	if pending {
		return shared.ErrInvitationExpired
	}
	return shared.ErrInvalidToken
}

// EnsureRole returns the id of the named role, creating it when missing.
func (r *PGRepository) EnsureRole(ctx context.Context, name string, superAdmin bool) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO roles (name, is_super_admin) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, name, superAdmin).Scan(&id)
	if err != nil {
		return 0, db.MapError(err)
	}
	return id, nil
}

// FindRoot loads the root user.
func (r *PGRepository) FindRoot(ctx context.Context) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE is_root`))
}

// CreateRoot inserts the root user, or promotes an existing account with that username. A promoted
// account without a password takes digest and becomes Active.
func (r *PGRepository) CreateRoot(ctx context.Context, username, digest string, roleID int64) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO users (username, password_digest, role_id, status, is_root)
		VALUES ($1, $2, $3, 'Active', TRUE)
		ON CONFLICT (username) DO UPDATE SET is_root = TRUE, role_id = EXCLUDED.role_id,
			password_digest = COALESCE(users.password_digest, EXCLUDED.password_digest),
			status = 'Active', invitation_token = NULL, invited_at = NULL
		RETURNING id`, username, digest, roleID).Scan(&id)
	if err != nil {
		return 0, db.MapError(err)
	}
	return id, nil
}

var _ Repository = (*PGRepository)(nil)
