package rbac

import (
	"context"
	"errors"
	"log/slog"

	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// Service evaluates and manages role grants. Every query reads the store; nothing is cached.
type Service struct {
	repo     Repository
	logger   *slog.Logger
	observer DecisionObserver
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger, observer DecisionObserver) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, observer: observer}
}

// IsSuperAdmin reports whether roleID carries the super-admin flag. Unknown roles are not super-admin.
func (s *Service) IsSuperAdmin(ctx context.Context, roleID int64) (bool, error) {
	super, err := s.repo.IsSuperAdminRole(ctx, roleID)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	return super, err
}

// IsAllowed reports whether roleID may perform action on resource.
// The super-admin role is allowed everything without consulting grants.
func (s *Service) IsAllowed(ctx context.Context, roleID int64, resource shared.Resource, action shared.Action) (bool, error) {
	allowed, err := s.isAllowed(ctx, roleID, resource, action)
	if err != nil {
		return false, err
	}
	if s.observer != nil {
		s.observer.ObserveDecision(string(resource), string(action), allowed)
	}
	return allowed, nil
}

func (s *Service) isAllowed(ctx context.Context, roleID int64, resource shared.Resource, action shared.Action) (bool, error) {
	if (Grant{RoleID: roleID, Resource: resource, Action: action}).validate() != nil {
		return false, nil
	}
	super, err := s.IsSuperAdmin(ctx, roleID)
	if err != nil {
		return false, err
	}
	if super {
		return true, nil
	}
	return s.repo.HasGrant(ctx, roleID, resource, action)
}

// FieldAccess resolves view/edit capability on a single field. Absence of a row is deny.
func (s *Service) FieldAccess(ctx context.Context, roleID int64, resource shared.Resource, field string) (FieldAccess, error) {
	if (FieldPermission{RoleID: roleID, Resource: resource, Field: field}).validate() != nil {
		return FieldAccess{}, nil
	}
	super, err := s.IsSuperAdmin(ctx, roleID)
	if err != nil {
		return FieldAccess{}, err
	}
	if super {
		return FieldAccess{CanView: true, CanEdit: true}, nil
	}
	access, _, err := s.repo.GetFieldAccess(ctx, roleID, resource, field)
	return access, err
}

// FieldMatrix resolves FieldAccess for every declared field of resource.
func (s *Service) FieldMatrix(ctx context.Context, roleID int64, resource shared.Resource) (map[string]FieldAccess, error) {
	schema, ok := shared.LookupResource(string(resource))
	if !ok {
		return nil, shared.ErrNotFound
	}
	perms, err := s.EffectiveFieldPermissions(ctx, roleID)
	if err != nil {
		return nil, err
	}
	matrix := make(map[string]FieldAccess, len(schema.Fields))
	for _, perm := range perms {
		if perm.Resource == resource {
			matrix[perm.Field] = perm.FieldAccess
		}
	}
	return matrix, nil
}

// LockedFields lists the declared fields of resource that roleID holds a stored can_edit=false row
// for. Fields without a row are not locked; the super-admin role has none.
func (s *Service) LockedFields(ctx context.Context, roleID int64, resource shared.Resource) (map[string]bool, error) {
	super, err := s.IsSuperAdmin(ctx, roleID)
	if err != nil || super {
		return nil, err
	}
	stored, err := s.repo.ListFieldPermissions(ctx, roleID)
	if err != nil {
		return nil, err
	}
	locked := make(map[string]bool)
	for _, perm := range stored {
		if perm.Resource == resource && !perm.CanEdit {
			locked[perm.Field] = true
		}
	}
	return locked, nil
}

// Grant idempotently stores a grant.
func (s *Service) Grant(ctx context.Context, grant Grant) error {
	if err := grant.validate(); err != nil {
		return err
	}
	return s.repo.UpsertGrant(ctx, grant)
}

// Revoke idempotently removes a grant. Revoking a missing grant is not an error.
func (s *Service) Revoke(ctx context.Context, grant Grant) error {
	if err := grant.validate(); err != nil {
		return err
	}
	return s.repo.DeleteGrant(ctx, grant)
}

// SetFieldAccess upserts one field permission. canEdit does not imply canView.
func (s *Service) SetFieldAccess(ctx context.Context, perm FieldPermission) error {
	if err := perm.validate(); err != nil {
		return err
	}
	if perm.CanEdit && !perm.CanView {
		s.logger.Warn("field editable but not viewable",
			slog.Int64("role_id", perm.RoleID),
			slog.String("resource", string(perm.Resource)),
			slog.String("field", perm.Field))
	}
	return s.repo.UpsertFieldAccess(ctx, perm)
}

// ListGrants returns the stored grants of a role.
func (s *Service) ListGrants(ctx context.Context, roleID int64) ([]Grant, error) {
	return s.repo.ListGrants(ctx, roleID)
}

// EffectiveGrants returns what roleID may do: every pair for the super-admin role, stored grants otherwise.
func (s *Service) EffectiveGrants(ctx context.Context, roleID int64) ([]Grant, error) {
	super, err := s.IsSuperAdmin(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if !super {
		return s.repo.ListGrants(ctx, roleID)
	}
	var grants []Grant
	for _, schema := range shared.Resources() {
		for _, action := range shared.Actions() {
			grants = append(grants, Grant{RoleID: roleID, Resource: schema.Name, Action: action})
		}
	}
	return grants, nil
}

// ListFieldPermissions returns the full field matrix of a role from stored rows, absent rows as deny.
func (s *Service) ListFieldPermissions(ctx context.Context, roleID int64) ([]FieldPermission, error) {
	stored, err := s.repo.ListFieldPermissions(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return expandMatrix(roleID, stored, FieldAccess{}), nil
}

// EffectiveFieldPermissions is ListFieldPermissions with the super-admin bypass applied.
func (s *Service) EffectiveFieldPermissions(ctx context.Context, roleID int64) ([]FieldPermission, error) {
	super, err := s.IsSuperAdmin(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if super {
		return expandMatrix(roleID, nil, FieldAccess{CanView: true, CanEdit: true}), nil
	}
	return s.ListFieldPermissions(ctx, roleID)
}

func expandMatrix(roleID int64, stored []FieldPermission, fallback FieldAccess) []FieldPermission {
	type key struct {
		resource shared.Resource
		field    string
	}
	index := make(map[key]FieldAccess, len(stored))
	for _, perm := range stored {
		index[key{perm.Resource, perm.Field}] = perm.FieldAccess
	}
	var out []FieldPermission
	for _, schema := range shared.Resources() {
		for _, field := range schema.Fields {
			access, ok := index[key{schema.Name, field.Name}]
			if !ok {
				access = fallback
			}
			out = append(out, FieldPermission{RoleID: roleID, Resource: schema.Name, Field: field.Name, FieldAccess: access})
		}
	}
	return out
}
