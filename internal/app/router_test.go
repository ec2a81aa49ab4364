package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-rbac/internal/auth"
	"github.com/odyssey-erp/odyssey-rbac/internal/observability"
	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

type stubVerifier struct{}

func (stubVerifier) VerifyToken(token string) (shared.Claims, error) {
	if token == "good" {
		return shared.Claims{UserID: 1, RoleID: 1}, nil
	}
	return shared.Claims{}, shared.ErrUnauthorized
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHealthz(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]HealthCheck
		status int
		want   string
	}{
		{"all up", map[string]HealthCheck{"postgres": func(context.Context) error { return nil }}, http.StatusOK, "ok"},
		{"redis down", map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		}, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(RouterParams{Logger: quietLogger(), HealthChecks: tt.checks})
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			require.Equal(t, tt.status, rec.Code)

			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.want, body.Status)
			assert.Len(t, body.Checks, len(tt.checks))
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	router := NewRouter(RouterParams{Logger: quietLogger()})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	router := NewRouter(RouterParams{
		Logger: quietLogger(),
		Bearer: auth.RequireBearer(stubVerifier{}),
	})

	for _, path := range []string{"/api/data/orders", "/api/admin/roles", "/api/auth/permissions"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestMissingBearerConfigurationDenies(t *testing.T) {
	router := NewRouter(RouterParams{Logger: quietLogger()})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/data/orders", nil)
	req.Header.Set("Authorization", "Bearer good")
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := NewRouter(RouterParams{Logger: quietLogger(), Metrics: observability.NewMetrics()})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rbac_http_requests_total")
}

func TestInTestModeFollowsEnvironment(t *testing.T) {
	t.Setenv(TestModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(TestModeEnv, "false")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
