// Package middleware provides HTTP middleware for the LaTeX Render API.
package middleware

import (
	"net/http"
)

// APIKeyHeader is the request header carrying the shared secret.
const APIKeyHeader = "X-Api-Key"

// APIKey returns middleware that rejects requests whose X-Api-Key header
// does not match the configured secret. An empty configured secret rejects
// every request; there is no open mode.
func APIKey(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" || r.Header.Get(APIKeyHeader) != secret {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error": "unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
