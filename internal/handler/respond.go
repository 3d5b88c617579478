package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/Anonimus1221/hbuilds-chat/internal/database"
)

// UserStore reads and creates accounts.
type UserStore interface {
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	GetUserByID(ctx context.Context, userID pgtype.UUID) (database.User, error)
	GetUserWithPasswordByEmail(ctx context.Context, email string) (database.UserWithPassword, error)
}

// MessageStore reads and purges chat history.
type MessageStore interface {
	ListRecentMessages(ctx context.Context, arg database.ListRecentMessagesParams) ([]database.ChatMessageRow, error)
	DeleteMessagesBefore(ctx context.Context, before pgtype.Timestamptz) (int64, error)
}

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "failed to write response",
			"error", err,
			"path", r.URL.Path)
	}
}

func writeFailure(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, response{Success: false, Message: message})
}
