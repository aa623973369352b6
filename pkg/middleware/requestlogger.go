package middleware

import (
	"log/slog"
	"net/http"

	"github.com/godfreymatagaro/eduability/pkg/logger"
)

// RequestLogger stores a logger enriched with correlation, identity and
// trace fields in the request context. Mount it after RequestLogging,
// Tracing and TrustedIdentity.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if userID := UserIDFromContext(ctx); userID != "" {
				ctx = logger.WithIdentity(ctx, userID, RoleFromContext(ctx))
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
