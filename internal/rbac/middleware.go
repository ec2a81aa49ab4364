package rbac

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-rbac/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireSuperAdmin admits only callers whose role carries the super-admin flag.
// It must run after bearer authentication.
func (m Middleware) RequireSuperAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := shared.ClaimsFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			super, err := m.Service.IsSuperAdmin(r.Context(), claims.RoleID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac require super admin", slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			if !super {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
