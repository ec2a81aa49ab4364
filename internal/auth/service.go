package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-rbac/internal/mail"
	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// Bootstrap role names.
const (
	AdminRoleName   = "Admin"
	DefaultRoleName = "User"
)

const deliveryWarning = "invitation created but email delivery failed; share the accept link manually"

// ServiceConfig tunes the Authenticator.
type ServiceConfig struct {
	InviteBaseURL    string
	InvitationWindow time.Duration
}

// Service wraps authentication and invitation business rules.
type Service struct {
	repo     Repository
	hasher   Hasher
	issuer   TokenIssuer
	sender   InviteSender
	cfg      ServiceConfig
	logger   *slog.Logger
	observer DeliveryObserver

	now    func() time.Time
	tokens func() (string, error)
}

// NewService constructs a new Service.
func NewService(repo Repository, hasher Hasher, issuer TokenIssuer, sender InviteSender, cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.InvitationWindow <= 0 {
		cfg.InvitationWindow = 24 * time.Hour
	}
	cfg.InviteBaseURL = strings.TrimRight(cfg.InviteBaseURL, "/")
	return &Service{
		repo:   repo,
		hasher: hasher,
		issuer: issuer,
		sender: sender,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		tokens: NewInvitationToken,
	}
}

// WithDeliveryObserver attaches an observer for invitation delivery outcomes.
func (s *Service) WithDeliveryObserver(observer DeliveryObserver) *Service {
	s.observer = observer
	return s
}

// Login verifies username/password and issues a session token.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	user, err := s.repo.FindByUsername(ctx, normalizeUsername(username))
	if err != nil {
		return Session{}, err
	}
	if user.Status == StatusDeclined {
		return Session{}, shared.ErrInvalidCredentials
	}
	if !user.CanAuthenticate() {
		return Session{}, shared.ErrPendingActivation
	}
	if !s.hasher.Verify(password, *user.PasswordDigest) {
		return Session{}, shared.ErrInvalidCredentials
	}
	token, expiresAt, err := s.issuer.Issue(shared.Claims{UserID: user.ID, Username: user.Username, RoleID: user.RoleID})
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// VerifyToken validates a session token statelessly.
func (s *Service) VerifyToken(token string) (shared.Claims, error) {
	return s.issuer.Verify(token)
}

// RegisterUser creates an Active account with a password, bypassing the invitation flow.
func (s *Service) RegisterUser(ctx context.Context, username, email, password string, roleID int64) (User, error) {
	email = NormalizeEmail(email)
	username = normalizeUsername(username)
	if username == "" {
		username = email
	}
	if username == "" {
		return User{}, shared.Validationf("username or email required")
	}
	if err := validatePassword(password); err != nil {
		return User{}, err
	}
	if roleID <= 0 {
		return User{}, shared.Validationf("role id required")
	}
	var emailPtr *string
	if email != "" {
		if _, err := netmail.ParseAddress(email); err != nil {
			return User{}, shared.Validationf("invalid email address")
		}
		emailPtr = &email
	}
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return User{}, fmt.Errorf("auth: hash password: %w", err)
	}
	user, err := s.repo.CreateUser(ctx, NewUser{Username: username, Email: emailPtr, Digest: digest, RoleID: roleID})
	if errors.Is(err, shared.ErrConflict) {
		return User{}, shared.ErrAlreadyRegistered
	}
	return user, err
}

// CreateInvitation stores a Pending user (or refreshes an existing Pending/Declined one) and
// hands the invite to the mailer. Delivery failure does not undo the stored invitation.
func (s *Service) CreateInvitation(ctx context.Context, email string, roleID int64) (Invitation, error) {
	email = NormalizeEmail(email)
	if _, err := netmail.ParseAddress(email); err != nil || email == "" {
		return Invitation{}, shared.Validationf("invalid email address")
	}
	if roleID <= 0 {
		return Invitation{}, shared.Validationf("role id required")
	}
	token, err := s.tokens()
	if err != nil {
		return Invitation{}, fmt.Errorf("auth: generate invitation token: %w", err)
	}
	userID, err := s.repo.UpsertInvitation(ctx, InvitationParams{
		Email:     email,
		RoleID:    roleID,
		Token:     token,
		InvitedAt: s.now(),
	})
	if err != nil {
		return Invitation{}, err
	}

	accept, decline := mail.Links(s.cfg.InviteBaseURL, token)
	inv := Invitation{UserID: userID, Email: email, Token: token, AcceptLink: accept, DeclineLink: decline}

	delivered := false
	if s.sender != nil {
		err = s.sender.SendInvite(ctx, mail.Invite{
			To:          email,
			AcceptLink:  accept,
			DeclineLink: decline,
			ExpiresIn:   s.cfg.InvitationWindow,
		})
		if err != nil {
			s.logger.Warn("invitation delivery failed",
				slog.Int64("user_id", userID),
				slog.String("email", email),
				slog.Any("error", err))
		} else {
			delivered = true
		}
	}
	if !delivered {
		inv.DeliveryWarning = deliveryWarning
	}
	if s.observer != nil {
		s.observer.ObserveInviteDelivery(delivered)
	}
	return inv, nil
}

// RedeemInvitation sets the password for a Pending user and consumes the token.
func (s *Service) RedeemInvitation(ctx context.Context, token, password string) error {
	if strings.TrimSpace(token) == "" {
		return shared.ErrInvalidToken
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	return s.repo.RedeemInvitation(ctx, token, digest, s.cutoff())
}

// DeclineInvitation marks a Pending user Declined and consumes the token.
func (s *Service) DeclineInvitation(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return shared.ErrInvalidToken
	}
	return s.repo.DeclineInvitation(ctx, token, s.cutoff())
}

// Bootstrap ensures the Admin and User roles and the root user exist, then returns the root identity.
// adminPassword is only needed when the root user has to be created.
func (s *Service) Bootstrap(ctx context.Context, adminPassword string) (shared.RootIdentity, error) {
	adminRoleID, err := s.repo.EnsureRole(ctx, AdminRoleName, true)
	if err != nil {
		return shared.RootIdentity{}, fmt.Errorf("auth: ensure admin role: %w", err)
	}
	if _, err := s.repo.EnsureRole(ctx, DefaultRoleName, false); err != nil {
		return shared.RootIdentity{}, fmt.Errorf("auth: ensure default role: %w", err)
	}

	root, err := s.repo.FindRoot(ctx)
	if err == nil {
		return shared.NewRootIdentity(root.ID), nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return shared.RootIdentity{}, fmt.Errorf("auth: find root: %w", err)
	}
	if adminPassword == "" {
		return shared.RootIdentity{}, errors.New("auth: root user missing and no bootstrap password configured")
	}
	digest, err := s.hasher.Hash(adminPassword)
	if err != nil {
		return shared.RootIdentity{}, fmt.Errorf("auth: hash password: %w", err)
	}
	rootID, err := s.repo.CreateRoot(ctx, shared.RootUsername, digest, adminRoleID)
	if err != nil {
		return shared.RootIdentity{}, fmt.Errorf("auth: create root: %w", err)
	}
	s.logger.Info("root user created", slog.Int64("user_id", rootID))
	return shared.NewRootIdentity(rootID), nil
}

func (s *Service) cutoff() time.Time {
	return s.now().Add(-s.cfg.InvitationWindow)
}

func validatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return shared.Validationf("password required")
	}
	// bcrypt rejects input past 72 bytes
	if len(password) > 72 {
		return shared.Validationf("password must be at most 72 bytes")
	}
	return nil
}

func normalizeUsername(username string) string {
	username = strings.TrimSpace(username)
	if strings.Contains(username, "@") {
		return NormalizeEmail(username)
	}
	return username
}
