package users

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/odyssey-rbac/internal/auth"
	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	UpdateRole(ctx context.Context, userID, roleID int64) error
	DeleteUser(ctx context.Context, userID int64) error
}

// Provisioner creates accounts, either directly or through an invitation.
type Provisioner interface {
	RegisterUser(ctx context.Context, username, email, password string, roleID int64) (auth.User, error)
	CreateInvitation(ctx context.Context, email string, roleID int64) (auth.Invitation, error)
}

// Service handles user business logic.
type Service struct {
	repo        RepositoryPort
	provisioner Provisioner
	root        shared.RootIdentity
	logger      *slog.Logger
}

// NewService builds Service instance. root is the identity resolved at bootstrap.
func NewService(repo RepositoryPort, provisioner Provisioner, root shared.RootIdentity, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, provisioner: provisioner, root: root, logger: logger}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// CreateUser registers an Active user when a password is supplied, otherwise invites by email.
// Invitation links are only returned when the mail could not be handed off.
func (s *Service) CreateUser(ctx context.Context, in NewUserInput) (Created, error) {
	if in.Password != "" {
		user, err := s.provisioner.RegisterUser(ctx, in.Username, in.Email, in.Password, in.RoleID)
		if err != nil {
			return Created{}, err
		}
		return Created{User: &user}, nil
	}
	if strings.TrimSpace(in.Email) == "" {
		return Created{}, shared.Validationf("email required when no password is given")
	}
	inv, err := s.provisioner.CreateInvitation(ctx, in.Email, in.RoleID)
	if err != nil {
		return Created{}, err
	}
	if inv.DeliveryWarning == "" {
		inv.AcceptLink, inv.DeclineLink = "", ""
	}
	return Created{Invitation: &inv}, nil
}

// UpdateRole reassigns a user's role. Only the root identity may do this, and never to itself.
func (s *Service) UpdateRole(ctx context.Context, caller shared.Claims, userID, roleID int64) error {
	if err := s.requireRoot(caller, userID); err != nil {
		return err
	}
	if roleID <= 0 {
		return shared.Validationf("role id required")
	}
	if err := s.repo.UpdateRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.logger.Info("user role reassigned",
		slog.Int64("user_id", userID),
		slog.Int64("role_id", roleID),
		slog.Int64("by", caller.UserID))
	return nil
}

// DeleteUser permanently removes a user. Only the root identity may do this, and never to itself.
func (s *Service) DeleteUser(ctx context.Context, caller shared.Claims, userID int64) error {
	if err := s.requireRoot(caller, userID); err != nil {
		return err
	}
	if err := s.repo.DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("user deleted", slog.Int64("user_id", userID), slog.Int64("by", caller.UserID))
	return nil
}

func (s *Service) requireRoot(caller shared.Claims, target int64) error {
	if !s.root.Is(caller.UserID) {
		return fmt.Errorf("%w: organisation admin only", shared.ErrForbidden)
	}
	if s.root.Is(target) {
		return fmt.Errorf("%w: the organisation admin cannot be modified", shared.ErrForbidden)
	}
	return nil
}
