package middleware

import (
	"net/http"

	"github.com/nahankar/shatika/pkg/httputil"
)

// DebugErrors makes error responses carry the underlying cause of 500s.
// Only mount it in development.
func DebugErrors(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(httputil.WithDebug(r.Context())))
		})
	}
}
