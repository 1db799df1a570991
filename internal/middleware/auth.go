package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"qtportal/internal/auth"
	"qtportal/internal/errors"
	"qtportal/internal/infrastructure"
)

// sessionKey is the context key for the authenticated session.
type sessionKey struct{}

// SessionFromContext returns the authenticated session, if any.
func SessionFromContext(ctx context.Context) (auth.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(auth.Session)
	return s, ok
}

// RequireAuth validates the Bearer session token and stores the session in
// the request context.
func RequireAuth(tokens *auth.TokenService, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			traceID := infrastructure.GetTraceID(ctx)

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				errors.RenderError(w, r,
					errors.E(errors.KindInvalidCredentials, "missing authorization header"), traceID)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				errors.RenderError(w, r,
					errors.E(errors.KindInvalidCredentials, "invalid authorization format, use: Bearer <token>"), traceID)
				return
			}

			session, err := tokens.Verify(parts[1])
			if err != nil {
				logger.WarnContext(ctx, "authentication failed",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				errors.RenderError(w, r, err, traceID)
				return
			}

			ctx = context.WithValue(ctx, sessionKey{}, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects non-admin sessions. It must run after RequireAuth.
func RequireAdmin(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			session, ok := SessionFromContext(ctx)
			if !ok || !session.IsAdmin {
				logger.WarnContext(ctx, "admin access denied",
					"method", r.Method,
					"path", r.URL.Path,
				)
				errors.RenderError(w, r,
					errors.E(errors.KindForbidden, "admin privileges required"),
					infrastructure.GetTraceID(ctx))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
