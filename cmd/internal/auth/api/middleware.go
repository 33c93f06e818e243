package authapi

import (
	"context"
	"net/http"
	"time"

	"notenest/cmd/identity"
	"notenest/cmd/internal/auth/session"
)

type ctxKey int

const userContextKey ctxKey = iota

// UserFrom returns the authenticated user attached by RequireAuth.
func UserFrom(ctx context.Context) (identity.User, bool) {
	u, ok := ctx.Value(userContextKey).(identity.User)
	return u, ok
}

// WithUser attaches a user to the context the way RequireAuth does.
func WithUser(ctx context.Context, u identity.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// RequireAuth is the request-time access gate.
//
// It extracts the access token (cookie, then Authorization header), verifies
// it under the access class, resolves the identity to a live record, and
// attaches the redacted user to the request context. Every failure collapses
// to 401; the response does not reveal whether the token was missing-signature,
// expired, or orphaned, only whether one was present at all.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := accessTokenFromRequest(r)
		if token == "" {
			WriteError(w, http.StatusUnauthorized, "Access token missing")
			return
		}

		claims, err := h.tokens.Verify(token, session.ClassAccess, time.Now().UTC())
		if err != nil {
			WriteError(w, http.StatusUnauthorized, "invalid access token")
			return
		}

		u, err := h.users.GetUserByID(r.Context(), claims.UserID)
		if err != nil {
			WriteError(w, http.StatusUnauthorized, "invalid access token")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
