package auth

import (
	"context"
	"net/http"
	"strings"
)

// ctxKey is unexported so only this package can write the user id.
type ctxKey int

const userIDKey ctxKey = iota

// RequireAuth rejects requests without a valid bearer token and stashes the
// authenticated user id in the request context for the handlers behind it.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		token, ok := strings.CutPrefix(raw, "Bearer ")
		if !ok || token == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="lattice"`)
			respondError(w, http.StatusUnauthorized, "bearer token required")
			return
		}

		userID, err := s.ValidateToken(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="lattice", error="invalid_token"`)
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

// UserIDFromContext returns the user id RequireAuth stored, or "" outside an
// authenticated request.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
