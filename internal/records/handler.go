package records

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-rbac/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-rbac/internal/rbac"
	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// Handler exposes the gateway over /api/data/{resource}.
type Handler struct {
	logger  *slog.Logger
	gateway *Gateway
	fields  FieldPolicy
}

// NewHandler builds a Handler. Listed rows are projected to the fields the caller may view.
func NewHandler(logger *slog.Logger, gateway *Gateway, fields FieldPolicy) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, gateway: gateway, fields: fields}
}

// MountRoutes registers record routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{resource}", h.list)
	r.Post("/{resource}", h.create)
	r.Put("/{resource}/{id}", h.update)
	r.Delete("/{resource}/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	resource := chi.URLParam(r, "resource")
	rows, err := h.gateway.List(r.Context(), caller, resource)
	if err != nil {
		h.fail(w, "list records", err)
		return
	}
	matrix, err := h.fields.FieldMatrix(r.Context(), caller.RoleID, shared.Resource(resource))
	if err != nil {
		h.fail(w, "resolve field access", err)
		return
	}
	schema, _ := shared.LookupResource(resource)
	projected := make([]Record, 0, len(rows))
	for _, row := range rows {
		projected = append(projected, project(schema, matrix, row))
	}
	httpx.JSON(w, http.StatusOK, projected)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	var payload map[string]any
	if err := httpx.DecodeJSON(w, r, &payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	record, err := h.gateway.Create(r.Context(), caller, chi.URLParam(r, "resource"), payload)
	if err != nil {
		h.fail(w, "create record", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var payload map[string]any
	if err := httpx.DecodeJSON(w, r, &payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.gateway.Update(r.Context(), caller, chi.URLParam(r, "resource"), id, payload); err != nil {
		h.fail(w, "update record", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{KeyID: id})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.gateway.Delete(r.Context(), caller, chi.URLParam(r, "resource"), id); err != nil {
		h.fail(w, "delete record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// project keeps reserved keys, extras and the declared fields the role may view.
func project(schema shared.ResourceSchema, matrix map[string]rbac.FieldAccess, row Record) Record {
	out := make(Record, len(row))
	for key, value := range row {
		if _, declared := schema.Field(key); declared && !matrix[key].CanView {
			continue
		}
		out[key] = value
	}
	return out
}

func callerFrom(w http.ResponseWriter, r *http.Request) (shared.Claims, bool) {
	caller, ok := shared.ClaimsFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
	}
	return caller, ok
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validationf("invalid record id")
	}
	return id, nil
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
