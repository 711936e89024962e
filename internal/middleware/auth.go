package middleware

import (
	"context"
	"net/http"

	"comprafacil/internal/auth"
	"comprafacil/internal/logger"

	"go.uber.org/zap"
)

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok && id.UserID != ""
}

// AuthMiddleware resolves the acting user and rejects requests without
// one.
func AuthMiddleware(device auth.SessionLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := auth.Resolve(r, device)
			if err != nil {
				if auth.IsUnauthenticated(err) {
					http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
					return
				}
				logger.FromCtx(r.Context()).Error("resolve identity failed", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
