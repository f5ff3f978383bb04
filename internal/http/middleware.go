package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_shop/internal/service"
)

// AuthMiddleware resolves the bearer token to a username and stores it in
// the request context. Handlers read it back with getUserIDFromContext.
func AuthMiddleware(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				respondError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
				return
			}

			username, err := auth.Resolve(r.Context(), token)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "unauthenticated", "invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), "user_id", username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
