package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/nahankar/shatika/pkg/errors"
	"github.com/nahankar/shatika/pkg/httputil"
	"github.com/nahankar/shatika/pkg/logger"
)

type principalKey struct{}

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// Authenticator verifies a bearer token and resolves the account it names.
// Returning an *apperrors.AppError controls the 401 message; any other
// error is reported as an invalid or expired token.
type Authenticator func(ctx context.Context, token string) (*Principal, error)

// Policy decides whether role is one of the allowed roles.
type Policy func(role string, allowed ...string) bool

// Auth requires a valid bearer token. The resolved Principal is stored in
// the request context and the request logger is enriched with its id.
func Auth(authenticate Authenticator, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				httputil.WriteError(w, r, apperrors.Unauthorized("missing or malformed authorization header"), l)
				return
			}

			principal, err := authenticate(r.Context(), token)
			if err != nil {
				var appErr *apperrors.AppError
				if !errors.As(err, &appErr) {
					err = apperrors.Unauthorized("invalid or expired token")
				}
				httputil.WriteError(w, r, err, l)
				return
			}

			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
		})
	}
}

// OptionalAuth attaches the Principal when a bearer token is present and
// lets anonymous requests through. A present but invalid token is a 401.
func OptionalAuth(authenticate Authenticator, l *slog.Logger) func(http.Handler) http.Handler {
	required := Auth(authenticate, l)
	return func(next http.Handler) http.Handler {
		withAuth := required(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			withAuth.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects authenticated callers whose role the policy does not
// allow. It must be mounted after Auth.
func RequireRole(allow Policy, l *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p == nil {
				httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), l)
				return
			}
			if !allow(p.Role, roles...) {
				httputil.WriteError(w, r, apperrors.Forbidden("insufficient permissions"), l)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func withPrincipal(ctx context.Context, p *Principal) context.Context {
	ctx = context.WithValue(ctx, principalKey{}, p)
	return logger.WithAccountID(ctx, p.AccountID)
}

// WithPrincipal stores p in ctx. Intended for tests and internal callers.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return withPrincipal(ctx, p)
}

// PrincipalFromContext returns the authenticated caller, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

// AccountIDFromContext returns the authenticated account id, or "".
func AccountIDFromContext(ctx context.Context) string {
	if p := PrincipalFromContext(ctx); p != nil {
		return p.AccountID
	}
	return ""
}

// RoleFromContext returns the authenticated caller's role, or "".
func RoleFromContext(ctx context.Context) string {
	if p := PrincipalFromContext(ctx); p != nil {
		return p.Role
	}
	return ""
}
