package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/nahankar/shatika/pkg/httputil"
)

// Recovery turns a handler panic into a 500 envelope. The stack is always
// logged and echoed to the client only in debug mode.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				stack := string(debug.Stack())
				l.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rec),
					slog.String("stack", stack),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)

				errResp := &httputil.ErrorResponse{
					Code:    "INTERNAL_ERROR",
					Message: "an internal error occurred",
				}
				if httputil.DebugFromContext(r.Context()) {
					errResp.Detail = fmt.Sprintf("%v\n%s", rec, stack)
				}
				httputil.WriteJSON(w, http.StatusInternalServerError, httputil.Response{
					Message: errResp.Message,
					Error:   errResp,
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
