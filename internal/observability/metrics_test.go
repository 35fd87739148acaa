package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func Test_Middleware_RecordsRequest(t *testing.T) {
	// given
	metrics := NewMetrics()
	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/api/products/{name}")
	req := httptest.NewRequest(http.MethodPatch, "/api/products/Bolt", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	// when
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	// then
	assert.Equal(t, http.StatusTeapot, rr.Code)
	body := scrape(t, metrics)
	assert.Contains(t, body, `smartstock_proxy_http_requests_total{code="418",method="PATCH",route="/api/products/{name}"} 1`)
	assert.Contains(t, body, `smartstock_proxy_http_request_duration_seconds_bucket{route="/api/products/{name}"`)
}

func Test_Middleware_UnknownRoute(t *testing.T) {
	metrics := NewMetrics()
	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Contains(t, scrape(t, metrics), `smartstock_proxy_http_requests_total{code="200",method="GET",route="unknown"} 1`)
}

func Test_StoreError(t *testing.T) {
	metrics := NewMetrics()

	metrics.StoreError("list")
	metrics.StoreError("list")
	var nilMetrics *Metrics
	nilMetrics.StoreError("list")

	assert.Contains(t, scrape(t, metrics), `smartstock_proxy_store_errors_total{operation="list"} 2`)
}
