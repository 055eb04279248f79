package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIKeyAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		configured string
		header     string
		value      string
		wantStatus int
	}{
		{
			name:       "no configured key is a no-op",
			configured: "",
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing key",
			configured: "secret",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong key",
			configured: "secret",
			header:     APIKeyHeader,
			value:      "not-secret",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "matching header key",
			configured: "secret",
			header:     APIKeyHeader,
			value:      "secret",
			wantStatus: http.StatusOK,
		},
		{
			name:       "matching bearer token",
			configured: "secret",
			header:     "Authorization",
			value:      "Bearer secret",
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong bearer token",
			configured: "secret",
			header:     "Authorization",
			value:      "Bearer nope",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := APIKeyAuth(tt.configured)(next)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/anomalies", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
