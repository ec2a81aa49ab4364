package records

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// Gateway runs CRUD over the closed resource set. Every call is authorized before the store is touched.
type Gateway struct {
	store  Store
	authz  Authorizer
	edits  EditPolicy
	logger *slog.Logger
}

// NewGateway builds a Gateway. edits is optional; when set, writes touching a declared field the
// caller's role is explicitly barred from editing are refused.
func NewGateway(store Store, authz Authorizer, edits EditPolicy, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{store: store, authz: authz, edits: edits, logger: logger}
}

// List returns every row of resource in insertion order.
func (g *Gateway) List(ctx context.Context, caller shared.Claims, resource string) ([]Record, error) {
	schema, err := g.authorize(ctx, caller, resource, shared.ActionRead)
	if err != nil {
		return nil, err
	}
	return g.store.List(ctx, schema)
}

// Create validates the payload against the resource schema and stores a new row.
func (g *Gateway) Create(ctx context.Context, caller shared.Claims, resource string, payload map[string]any) (Record, error) {
	schema, err := g.authorize(ctx, caller, resource, shared.ActionCreate)
	if err != nil {
		return nil, err
	}
	values, err := coerce(schema, payload, false)
	if err != nil {
		return nil, err
	}
	if err := g.checkEditable(ctx, caller, schema, values); err != nil {
		return nil, err
	}
	record, err := g.store.Insert(ctx, schema, values)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("record created",
		slog.String("resource", string(schema.Name)),
		slog.Any("id", record[KeyID]),
		slog.Int64("user_id", caller.UserID))
	return record, nil
}

// Update overwrites only the supplied keys of row id.
func (g *Gateway) Update(ctx context.Context, caller shared.Claims, resource string, id int64, payload map[string]any) error {
	schema, err := g.authorize(ctx, caller, resource, shared.ActionUpdate)
	if err != nil {
		return err
	}
	values, err := coerce(schema, payload, true)
	if err != nil {
		return err
	}
	if err := g.checkEditable(ctx, caller, schema, values); err != nil {
		return err
	}
	return g.store.Update(ctx, schema, id, values)
}

// Delete removes row id permanently.
func (g *Gateway) Delete(ctx context.Context, caller shared.Claims, resource string, id int64) error {
	schema, err := g.authorize(ctx, caller, resource, shared.ActionDelete)
	if err != nil {
		return err
	}
	return g.store.Delete(ctx, schema, id)
}

func (g *Gateway) authorize(ctx context.Context, caller shared.Claims, resource string, action shared.Action) (shared.ResourceSchema, error) {
	schema, ok := shared.LookupResource(resource)
	if !ok {
		return shared.ResourceSchema{}, fmt.Errorf("%w: unknown resource %q", shared.ErrNotFound, resource)
	}
	allowed, err := g.authz.IsAllowed(ctx, caller.RoleID, schema.Name, action)
	if err != nil {
		return shared.ResourceSchema{}, err
	}
	if !allowed {
		return shared.ResourceSchema{}, fmt.Errorf("%w: %s on %s not permitted", shared.ErrForbidden, action, schema.Name)
	}
	return schema, nil
}

func (g *Gateway) checkEditable(ctx context.Context, caller shared.Claims, schema shared.ResourceSchema, values Values) error {
	if g.edits == nil || len(values.Columns) == 0 {
		return nil
	}
	locked, err := g.edits.LockedFields(ctx, caller.RoleID, schema.Name)
	if err != nil {
		return err
	}
	for _, field := range schema.Fields {
		if _, touched := values.Columns[field.Name]; touched && locked[field.Name] {
			return fmt.Errorf("%w: field %s is not editable", shared.ErrForbidden, field.Name)
		}
	}
	return nil
}
