package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AuthMiddleware returns middleware that requires "Authorization: Bearer
// <token>". An empty token disables the protected routes entirely.
func AuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const prefix = "Bearer "
			authHeader := r.Header.Get("Authorization")
			if token == "" || !strings.HasPrefix(authHeader, prefix) {
				Unauthorized(w)
				return
			}
			bearerValue := authHeader[len(prefix):]
			if subtle.ConstantTimeCompare([]byte(bearerValue), []byte(token)) != 1 {
				Unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
