package middleware

import (
	"log/slog"
	"net/http"

	"github.com/nahankar/shatika/pkg/logger"
)

// RequestLogger stores base in the request context for logger.FromContext.
// Loggers built by logger.New pick correlation, account and trace ids up
// from the context of each record.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(logger.NewContext(r.Context(), base)))
		})
	}
}
