package httpapi

import (
	"context"
	"net/http"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/common"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/auth"
)

// AuthCookieName carries the session JWT.
const AuthCookieName = "auth_token"

type ctxKey int

const userIDKey ctxKey = 0

// authenticate resolves the session cookie into a user id and stores it in
// the request context. Requests without a valid token get 401.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(AuthCookieName)
		if err != nil {
			s.writeError(r.Context(), w, common.ErrUnauthorized)
			return
		}

		userID, err := auth.GetUserIDFromToken(cookie.Value, s.secretKey)
		if err != nil {
			s.writeError(r.Context(), w, common.ErrInvalidToken)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userID returns the authenticated user id stored by the middleware.
func userID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
