package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-rbac/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// Handler exposes grant and field permission endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountAdminRoutes registers grant management routes. Callers must already be restricted to super-admins.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/permissions/{roleID}", h.listGrants)
	r.Post("/permissions", h.grant)
	r.Delete("/permissions", h.revoke)
	r.Get("/field-permissions/{roleID}", h.listFieldPermissions)
	r.Post("/field-permissions", h.setFieldAccess)
}

// MountSelfRoutes registers the caller's own permission listings.
func (h *Handler) MountSelfRoutes(r chi.Router) {
	r.Get("/permissions", h.myGrants)
	r.Get("/field-permissions", h.myFieldPermissions)
}

type grantRequest struct {
	RoleID   int64  `json:"role_id" validate:"required,gt=0"`
	Resource string `json:"resource" validate:"required"`
	Action   string `json:"action" validate:"required"`
}

func (g grantRequest) toGrant() Grant {
	return Grant{RoleID: g.RoleID, Resource: shared.Resource(g.Resource), Action: shared.Action(g.Action)}
}

type fieldAccessRequest struct {
	RoleID   int64  `json:"role_id" validate:"required,gt=0"`
	Resource string `json:"resource" validate:"required"`
	Field    string `json:"field" validate:"required"`
	CanView  bool   `json:"can_view"`
	CanEdit  bool   `json:"can_edit"`
}

func (h *Handler) listGrants(w http.ResponseWriter, r *http.Request) {
	roleID, err := parseRoleID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	grants, err := h.service.ListGrants(r.Context(), roleID)
	if err != nil {
		h.fail(w, "list grants", err)
		return
	}
	httpx.JSON(w, http.StatusOK, nonNil(grants))
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := httpx.Bind(w, r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Grant(r.Context(), req.toGrant()); err != nil {
		h.fail(w, "grant", err)
		return
	}
	httpx.JSON(w, http.StatusOK, req.toGrant())
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := httpx.Bind(w, r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Revoke(r.Context(), req.toGrant()); err != nil {
		h.fail(w, "revoke", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listFieldPermissions(w http.ResponseWriter, r *http.Request) {
	roleID, err := parseRoleID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	perms, err := h.service.ListFieldPermissions(r.Context(), roleID)
	if err != nil {
		h.fail(w, "list field permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, nonNil(perms))
}

func (h *Handler) setFieldAccess(w http.ResponseWriter, r *http.Request) {
	var req fieldAccessRequest
	if err := httpx.Bind(w, r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	perm := FieldPermission{
		RoleID:      req.RoleID,
		Resource:    shared.Resource(req.Resource),
		Field:       req.Field,
		FieldAccess: FieldAccess{CanView: req.CanView, CanEdit: req.CanEdit},
	}
	if err := h.service.SetFieldAccess(r.Context(), perm); err != nil {
		h.fail(w, "set field access", err)
		return
	}
	httpx.JSON(w, http.StatusOK, perm)
}

func (h *Handler) myGrants(w http.ResponseWriter, r *http.Request) {
	claims, ok := shared.ClaimsFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	grants, err := h.service.EffectiveGrants(r.Context(), claims.RoleID)
	if err != nil {
		h.fail(w, "list own grants", err)
		return
	}
	httpx.JSON(w, http.StatusOK, nonNil(grants))
}

func (h *Handler) myFieldPermissions(w http.ResponseWriter, r *http.Request) {
	claims, ok := shared.ClaimsFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	perms, err := h.service.EffectiveFieldPermissions(r.Context(), claims.RoleID)
	if err != nil {
		h.fail(w, "list own field permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, nonNil(perms))
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func parseRoleID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validationf("invalid role id")
	}
	return id, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
