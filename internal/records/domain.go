// Package records executes CRUD over the guarded business resources.
package records

import (
	"context"

	"github.com/odyssey-erp/odyssey-rbac/internal/rbac"
	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// Reserved record keys set by the store.
const (
	KeyID        = "id"
	KeyCreatedAt = "created_at"
)

// Record is one business row: declared fields, reserved keys and any pass-through extras.
type Record map[string]any

// Values is a coerced write. Columns holds declared fields in their text form; Extra holds
// undeclared keys verbatim.
type Values struct {
	Columns map[string]string
	Extra   map[string]any
}

// Empty reports whether the write touches nothing.
func (v Values) Empty() bool {
	return len(v.Columns) == 0 && len(v.Extra) == 0
}

// Store persists records of any catalog resource.
type Store interface {
	List(ctx context.Context, schema shared.ResourceSchema) ([]Record, error)
	Insert(ctx context.Context, schema shared.ResourceSchema, values Values) (Record, error)
	Update(ctx context.Context, schema shared.ResourceSchema, id int64, values Values) error
	Delete(ctx context.Context, schema shared.ResourceSchema, id int64) error
}

// Authorizer decides resource-level access.
type Authorizer interface {
	IsAllowed(ctx context.Context, roleID int64, resource shared.Resource, action shared.Action) (bool, error)
}

// EditPolicy reports the declared fields a role is explicitly barred from writing.
type EditPolicy interface {
	LockedFields(ctx context.Context, roleID int64, resource shared.Resource) (map[string]bool, error)
}

// FieldPolicy resolves per-field view/edit capability for a role.
type FieldPolicy interface {
	FieldMatrix(ctx context.Context, roleID int64, resource shared.Resource) (map[string]rbac.FieldAccess, error)
}
