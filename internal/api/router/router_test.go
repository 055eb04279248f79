package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/llmwatch/llmwatch/internal/api/handlers"
	"github.com/llmwatch/llmwatch/internal/api/middleware"
	"github.com/llmwatch/llmwatch/internal/config"
	"github.com/llmwatch/llmwatch/internal/testutil"
)

func testRouter(apiKey string) http.Handler {
	cfg := &config.Config{
		Server: config.ServerConfig{
			APIKey:         apiKey,
			AllowedOrigins: []string{"*"},
			RateLimitRPS:   100,
			RateLimitBurst: 100,
		},
	}
	log := testutil.NewTestLogger()
	return New(cfg, log, &Handlers{
		Health: handlers.NewHealthHandler(nil, log),
	})
}

func TestRouterStampsSingleRequestID(t *testing.T) {
	r := testRouter("")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	ids := rec.Header().Values(middleware.RequestIDHeader)
	if len(ids) != 1 {
		t.Fatalf("got %d %s headers (%v), want exactly 1", len(ids), middleware.RequestIDHeader, ids)
	}
	if ids[0] == "" {
		t.Error("request ID header is empty")
	}
}

func TestRouterPreservesCallerRequestID(t *testing.T) {
	r := testRouter("")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(middleware.RequestIDHeader, "caller-supplied")
	r.ServeHTTP(rec, req)

	ids := rec.Header().Values(middleware.RequestIDHeader)
	if len(ids) != 1 || ids[0] != "caller-supplied" {
		t.Errorf("request ID headers = %v, want [caller-supplied]", ids)
	}
}

func TestRouterProtectsAPIRoutes(t *testing.T) {
	r := testRouter("secret")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/anomalies/recent", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", rec.Code)
	}

	// Health probes stay public.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health probe status = %d, want 200", rec.Code)
	}
}
