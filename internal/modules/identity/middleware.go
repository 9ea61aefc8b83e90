package identity

import (
	"context"
	"net/http"
	"strings"

	"github.com/chupacabra07-bot/night-campus/internal/modules/core"
)

const bearerPrefix = "Bearer "

// Middleware resolves the Authorization header into the caller's identity.
// Requests without a valid session are rejected before reaching any handler.
func Middleware(store *Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) {
				core.WriteUnauthorized(w, r, nil)
				return
			}

			session, found := store.Resolve(strings.TrimPrefix(header, bearerPrefix))
			if !found {
				core.WriteUnauthorized(w, r, nil)
				return
			}

			ctx := context.WithValue(r.Context(), core.SessionContextKey, core.ContextSession{
				UserID: session.UserID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
