package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Anonimus1221/hbuilds-chat/internal/auth"
)

// RefreshToken issues a fresh JWT to an already authenticated user.
func RefreshToken(tokens Tokens) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := auth.GetUserFromContext(r.Context())
		if err != nil {
			writeFailure(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		token, err := issueToken(w, userID, tokens)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to create JWT", "error", err)
			writeFailure(w, r, http.StatusInternalServerError, "Server error")
			return
		}

		writeJSON(w, r, http.StatusOK, struct {
			response
			Token string `json:"token"`
		}{response{Success: true}, token})
	}
}

// issueToken signs a JWT for userID and sets it as the jwt cookie.
func issueToken(w http.ResponseWriter, userID uuid.UUID, tokens Tokens) (string, error) {
	token, err := auth.MakeJWT(userID, tokens.Secret, tokens.Issuer, tokens.Expiry)
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(tokens.Expiry),
		MaxAge:   int(tokens.Expiry.Seconds()),
		Secure:   tokens.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return token, nil
}
