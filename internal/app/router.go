package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-rbac/internal/auth"
	"github.com/odyssey-erp/odyssey-rbac/internal/observability"
	"github.com/odyssey-erp/odyssey-rbac/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-rbac/internal/rbac"
	"github.com/odyssey-erp/odyssey-rbac/internal/records"
	"github.com/odyssey-erp/odyssey-rbac/internal/roles"
	"github.com/odyssey-erp/odyssey-rbac/internal/users"
	"github.com/odyssey-erp/odyssey-rbac/jobs"
)

// HealthCheck probes one backing service.
type HealthCheck func(ctx context.Context) error

const healthTimeout = 3 * time.Second

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	// Bearer authenticates /api routes other than the public auth endpoints.
	Bearer         func(http.Handler) http.Handler
	RBACMiddleware rbac.Middleware

	AuthHandler    *auth.Handler
	RBACHandler    *rbac.Handler
	RolesHandler   *roles.Handler
	UsersHandler   *users.Handler
	RecordsHandler *records.Handler
	JobHandler     *jobs.Handler

	HealthChecks map[string]HealthCheck
}

// NewRouter constructs the chi.Router with API defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bearer := params.Bearer
	if bearer == nil {
		bearer = denyAll
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", healthHandler(logger, params.HealthChecks))
	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if params.AuthHandler != nil {
				params.AuthHandler.MountRoutes(r)
			}
			r.Group(func(r chi.Router) {
				r.Use(bearer)
				if params.RBACHandler != nil {
					params.RBACHandler.MountSelfRoutes(r)
				}
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(bearer)

			r.Route("/admin", func(r chi.Router) {
				r.Use(params.RBACMiddleware.RequireSuperAdmin())
				if params.RBACHandler != nil {
					params.RBACHandler.MountAdminRoutes(r)
				}
				if params.RolesHandler != nil {
					r.Route("/roles", params.RolesHandler.MountRoutes)
				}
				if params.UsersHandler != nil {
					r.Route("/users", params.UsersHandler.MountRoutes)
				}
				if params.JobHandler != nil {
					r.Route("/jobs", params.JobHandler.MountRoutes)
				}
			})

			if params.RecordsHandler != nil {
				r.Route("/data", params.RecordsHandler.MountRoutes)
			}
		})
	})

	return r
}

func healthHandler(logger *slog.Logger, checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		status := map[string]string{}
		healthy := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn("health check failed", slog.String("check", name), slog.Any("error", err))
				status[name] = "down"
				healthy = false
				continue
			}
			status[name] = "ok"
		}
		if !healthy {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "checks": status})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"status": "ok", "checks": status})
	}
}

func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication not configured")
	})
}
