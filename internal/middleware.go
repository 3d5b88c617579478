package internal

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Anonimus1221/hbuilds-chat/internal/auth"
)

// Middleware validates the client's JWT, taken from the Authorization header
// or the jwt cookie, and stores the user ID in the request context.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.TokenFromRequest(r)
			if err != nil {
				unauthorized(w, r, err)
				return
			}

			userID, err := auth.ValidateJWT(token, secret)
			if err != nil {
				unauthorized(w, r, err)
				return
			}

			r = r.WithContext(context.WithValue(r.Context(), auth.UserIDKey, userID))
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	slog.DebugContext(r.Context(), "rejected request",
		"path", r.URL.Path,
		"error", err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": "Unauthorized",
	})
}
