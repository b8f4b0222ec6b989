package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is an unexported type for context keys in this package.
// A package-private key type means only this package can read or write the
// userID value — a plain string key could be shadowed by any other package.
type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth enforces bearer-token authentication on protected routes.
//
// It reads the JWT from the `Authorization: Bearer <token>` header,
// validates it, and stores the userID in the request context.
//
// STATUS SPLIT:
//   - No token at all          → 401 Unauthorized ("Access Denied")
//   - Token present but failing validation (bad signature, expired,
//     wrong issuer) → 403 Forbidden ("Invalid Token")
//
// The split matters to clients: 401 means "authenticate", 403 means "your
// credential is no good — get a new one".
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearerToken(r)
			if !ok {
				http.Error(w, `{"error":"unauthorized","message":"Access Denied"}`, http.StatusUnauthorized)
				return
			}

			userID, err := tokens.Validate(tokenStr)
			if err != nil {
				http.Error(w, `{"error":"forbidden","message":"Invalid Token"}`, http.StatusForbidden)
				return
			}

			// Store userID in context so handlers can read it
			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext retrieves the authenticated user's ID from the request
// context. Returns ("", false) when the request did not pass RequireAuth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// bearerToken extracts the token from the Authorization header.
// Accepts the `Bearer <token>` form only; scheme matching is
// case-insensitive per RFC 7235.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
