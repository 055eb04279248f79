package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/llmwatch/llmwatch/internal/pkg/errors"
	"github.com/llmwatch/llmwatch/internal/pkg/utils"
)

// ContextKey is a custom type for context keys
type ContextKey string

// APIKeyHeader is the header checked for the API key
const APIKeyHeader = "X-API-Key"

// APIKeyAuth returns a middleware that requires a matching API key on
// every request, accepted from the X-API-Key header or a Bearer token.
// With an empty configured key the middleware is a no-op, which is the
// local development mode.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			presented := r.Header.Get(APIKeyHeader)
			if presented == "" {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
					presented = strings.TrimPrefix(auth, "Bearer ")
				}
			}

			if presented == "" {
				utils.WriteError(w, errors.Unauthorized("Missing API key"))
				return
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(apiKey)) != 1 {
				utils.WriteError(w, errors.Unauthorized("Invalid API key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
