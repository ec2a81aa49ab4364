package roles

import (
	"context"
	"fmt"
	"strings"

	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

const maxRoleNameLength = 64

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, name string) (Role, error)
	DeleteRole(ctx context.Context, id int64) error
}

// Service handles role business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// CreateRole inserts a regular role. Names are case-sensitive and unique.
func (s *Service) CreateRole(ctx context.Context, name string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, shared.Validationf("role name required")
	}
	if len(name) > maxRoleNameLength {
		return Role{}, shared.Validationf("role name must be at most %d characters", maxRoleNameLength)
	}
	return s.repo.CreateRole(ctx, name)
}

// DeleteRole removes a role. The super-admin role and roles still held by users cannot be removed.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSuperAdmin {
		return fmt.Errorf("%w: the super-admin role cannot be deleted", shared.ErrForbidden)
	}
	if role.UserCount > 0 {
		return fmt.Errorf("%w: role is assigned to %d user(s)", shared.ErrConflict, role.UserCount)
	}
	return s.repo.DeleteRole(ctx, id)
}
