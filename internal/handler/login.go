package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Anonimus1221/hbuilds-chat/internal/auth"
	"github.com/Anonimus1221/hbuilds-chat/internal/model"
)

// Tokens configures the JWTs issued at login.
type Tokens struct {
	Secret string
	Issuer string
	Expiry time.Duration
	// Secure marks the jwt cookie as HTTPS only.
	Secure bool
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	response
	Token string         `json:"token"`
	User  model.Identity `json:"user"`
}

// ServeLogin checks the credentials and returns a JWT in the body and in the
// jwt cookie.
func ServeLogin(db UserStore, tokens Tokens) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeFailure(w, r, http.StatusBadRequest, "Invalid request data")
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		if email == "" || req.Password == "" {
			writeFailure(w, r, http.StatusBadRequest, "Email and password are required")
			return
		}
		if !validEmail(email) {
			writeFailure(w, r, http.StatusBadRequest, "Invalid email")
			return
		}

		user, err := db.GetUserWithPasswordByEmail(ctx, email)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				slog.ErrorContext(ctx, "failed to retrieve user from db", "error", err)
				writeFailure(w, r, http.StatusInternalServerError, "Server error")
				return
			}
			slog.WarnContext(ctx, "failed login", "email", email)
			writeFailure(w, r, http.StatusUnauthorized, "Invalid email or password")
			return
		}

		ok, err := auth.CheckPasswordHash(req.Password, user.HashedPassword)
		if err != nil {
			slog.ErrorContext(ctx, "cannot verify password, hash may be corrupted", "error", err)
			writeFailure(w, r, http.StatusInternalServerError, "Server error")
			return
		}
		if !ok {
			slog.WarnContext(ctx, "failed login", "email", email)
			writeFailure(w, r, http.StatusUnauthorized, "Invalid email or password")
			return
		}

		token, err := issueToken(w, user.UserID.Bytes, tokens)
		if err != nil {
			slog.ErrorContext(ctx, "failed to make JWT", "error", err)
			writeFailure(w, r, http.StatusInternalServerError, "Server error")
			return
		}

		slog.InfoContext(ctx, "user logged in",
			slog.String("username", user.Username))

		writeJSON(w, r, http.StatusOK, loginResponse{
			response: response{Success: true, Message: "Logged in"},
			Token:    token,
			User: model.Identity{
				Name:    user.Username,
				Avatar:  user.ProfilePicture,
				IsAdmin: user.IsAdmin,
			},
		})
	}
}

// ServeLogout clears the jwt cookie.
func ServeLogout(tokens Tokens) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     auth.CookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Secure:   tokens.Secure,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		writeJSON(w, r, http.StatusOK, response{Success: true, Message: "Logged out"})
	}
}
