package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsRecordsAuthorizationDecisions(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveDecision("orders", "create", true)
	metrics.ObserveDecision("orders", "create", false)
	metrics.ObserveDecision("orders", "create", false)

	body := scrape(t, metrics)
	if !strings.Contains(body, `rbac_authz_decisions_total{action="create",outcome="allow",resource="orders"} 1`) {
		t.Fatalf("expected allow decision, got: %s", body)
	}
	if !strings.Contains(body, `rbac_authz_decisions_total{action="create",outcome="deny",resource="orders"} 2`) {
		t.Fatalf("expected deny decisions, got: %s", body)
	}
}

func TestMetricsRecordsInviteDelivery(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveInviteDelivery(false)

	body := scrape(t, metrics)
	if !strings.Contains(body, `rbac_invite_delivery_total{outcome="failed"} 1`) {
		t.Fatalf("expected failed delivery, got: %s", body)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveDecision("employees", "read", true)
	metrics.ObserveInviteDelivery(true)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics, got %d", rr.Code)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/api/data/{resource}")

	req := httptest.NewRequest(http.MethodGet, "/api/data/orders", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rr.Code)
	}

	metricsBody := scrape(t, metrics)
	if !strings.Contains(metricsBody, `rbac_http_requests_total{code="403",route="/api/data/{resource}"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, `rbac_http_request_duration_seconds_bucket{route="/api/data/{resource}"`) {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}
