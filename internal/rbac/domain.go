package rbac

import "github.com/odyssey-erp/odyssey-rbac/internal/shared"

// Grant is a (role, resource, action) tuple whose existence authorizes the action.
type Grant struct {
	RoleID   int64           `json:"role_id"`
	Resource shared.Resource `json:"resource"`
	Action   shared.Action   `json:"action"`
}

// FieldAccess is the view/edit capability a role holds on one field.
type FieldAccess struct {
	CanView bool `json:"can_view"`
	CanEdit bool `json:"can_edit"`
}

// FieldPermission binds a FieldAccess to a (role, resource, field) tuple.
type FieldPermission struct {
	RoleID   int64           `json:"role_id"`
	Resource shared.Resource `json:"resource"`
	Field    string          `json:"field"`
	FieldAccess
}

// DecisionObserver receives every resource authorization outcome.
type DecisionObserver interface {
	ObserveDecision(resource, action string, allowed bool)
}

func (g Grant) validate() error {
	if g.RoleID <= 0 {
		return shared.Validationf("role id required")
	}
	if _, ok := shared.LookupResource(string(g.Resource)); !ok {
		return shared.Validationf("unknown resource %q", g.Resource)
	}
	if _, ok := shared.ParseAction(string(g.Action)); !ok {
		return shared.Validationf("unknown action %q", g.Action)
	}
	return nil
}

func (p FieldPermission) validate() error {
	if p.RoleID <= 0 {
		return shared.Validationf("role id required")
	}
	schema, ok := shared.LookupResource(string(p.Resource))
	if !ok {
		return shared.Validationf("unknown resource %q", p.Resource)
	}
	if _, ok := schema.Field(p.Field); !ok {
		return shared.Validationf("unknown field %q on %s", p.Field, p.Resource)
	}
	return nil
}
