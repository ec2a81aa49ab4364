package auth

import (
	"context"
	"time"

	"github.com/odyssey-erp/odyssey-rbac/internal/mail"
	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// Status is the activation state of an account.
type Status string

const (
	StatusActive   Status = "Active"
	StatusPending  Status = "Pending"
	StatusDeclined Status = "Declined"
)

// User represents an account in the credential store.
type User struct {
	ID              int64      `json:"id"`
	Username        string     `json:"username"`
	Email           *string    `json:"email,omitempty"`
	PasswordDigest  *string    `json:"-"`
	RoleID          int64      `json:"role_id"`
	Status          Status     `json:"status"`
	InvitationToken *string    `json:"-"`
	InvitedAt       *time.Time `json:"-"`
	IsRoot          bool       `json:"is_root"`
	CreatedAt       time.Time  `json:"created_at"`
}

// CanAuthenticate reports whether the account has a password set.
func (u User) CanAuthenticate() bool {
	return u.PasswordDigest != nil
}

// Session is an issued bearer token.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// Invitation is the outcome of CreateInvitation. DeliveryWarning is set when the
// user row was stored but the invite could not be handed to the mailer.
type Invitation struct {
	UserID          int64  `json:"user_id"`
	Email           string `json:"email"`
	Token           string `json:"-"`
	AcceptLink      string `json:"accept_link,omitempty"`
	DeclineLink     string `json:"decline_link,omitempty"`
	DeliveryWarning string `json:"delivery_warning,omitempty"`
}

// NewUser is the input for direct account creation.
type NewUser struct {
	Username string
	Email    *string
	Digest   string
	RoleID   int64
}

// InvitationParams is the input for storing an invitation.
type InvitationParams struct {
	Email     string
	RoleID    int64
	Token     string
	InvitedAt time.Time
}

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// TokenIssuer signs and verifies session tokens.
type TokenIssuer interface {
	Issue(claims shared.Claims) (string, time.Time, error)
	Verify(token string) (shared.Claims, error)
}

// InviteSender hands an invitation to the mail collaborator.
type InviteSender interface {
	SendInvite(ctx context.Context, inv mail.Invite) error
}

// DeliveryObserver receives invitation delivery outcomes.
type DeliveryObserver interface {
	ObserveInviteDelivery(delivered bool)
}
