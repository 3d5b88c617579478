package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/Anonimus1221/hbuilds-chat/internal/auth"
	"github.com/Anonimus1221/hbuilds-chat/internal/database"
)

const (
	minPasswordLength = 6
	minNameLength     = 2
	maxNameLength     = 50

	uniqueViolation = "23505"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	return at > 0 && strings.Contains(email[at:], ".")
}

// validate returns the message of the first failed rule, or "".
func (req *registerRequest) validate() string {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	switch n := utf8.RuneCountInString(req.Name); {
	case req.Email == "" || req.Password == "":
		return "Email and password are required"
	case !validEmail(req.Email):
		return "Invalid email"
	case len(req.Password) < minPasswordLength:
		return "Password must be at least 6 characters"
	case n < minNameLength || n > maxNameLength:
		return "Name must be between 2 and 50 characters"
	}
	return ""
}

// ServeRegister creates an account.
func ServeRegister(db UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeFailure(w, r, http.StatusBadRequest, "Invalid request data")
			return
		}
		if msg := req.validate(); msg != "" {
			writeFailure(w, r, http.StatusBadRequest, msg)
			return
		}

		hashedPw, err := auth.HashPassword(req.Password)
		if err != nil {
			slog.ErrorContext(ctx, "argon2id hash creation failed", "error", err)
			writeFailure(w, r, http.StatusInternalServerError, "Server error")
			return
		}

		user, err := db.CreateUser(ctx, database.CreateUserParams{
			UserID:         pgtype.UUID{Bytes: uuid.New(), Valid: true},
			Username:       req.Name,
			Email:          req.Email,
			HashedPassword: hashedPw,
		})
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				msg := "Email is already registered"
				if strings.Contains(pgErr.ConstraintName, "username") {
					msg = "Name is already taken"
				}
				writeFailure(w, r, http.StatusBadRequest, msg)
				return
			}
			slog.ErrorContext(ctx, "failed to create user entry in database", "error", err)
			writeFailure(w, r, http.StatusInternalServerError, "Server error")
			return
		}

		slog.InfoContext(ctx, "user signed up",
			slog.String("username", user.Username))

		writeJSON(w, r, http.StatusCreated, response{Success: true, Message: "Account created"})
	}
}
