package handler

import (
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/Anonimus1221/hbuilds-chat/internal/auth"
	"github.com/Anonimus1221/hbuilds-chat/internal/render"
)

// ServeChat renders the recent history as a static HTML transcript from the
// point of view of the authenticated user.
func ServeChat(users UserStore, messages MessageStore, history History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := auth.GetUserFromContext(ctx)
		if err != nil {
			writeFailure(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		user, err := users.GetUserByID(ctx, pgtype.UUID{Bytes: userID, Valid: true})
		if err != nil {
			slog.WarnContext(ctx, "unknown user", "user_id", userID.String(), "error", err)
			writeFailure(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		records, err := history.Recent(ctx, messages)
		if err != nil {
			slog.ErrorContext(ctx, "failed to load messages from database", "error", err)
			http.Error(w, "Could not load messages", http.StatusInternalServerError)
			return
		}

		renderer := render.New(user.Username)
		for _, rec := range records {
			renderer.Render(rec.ChatMessage(), false)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := render.Document("Chat", renderer).Render(ctx, w); err != nil {
			slog.ErrorContext(ctx, "failed to render transcript", "error", err)
		}
	}
}
