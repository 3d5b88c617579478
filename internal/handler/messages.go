package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/Anonimus1221/hbuilds-chat/internal/database"
	"github.com/Anonimus1221/hbuilds-chat/internal/model"
)

// History bounds the chat history that is kept and served.
type History struct {
	Retention time.Duration
	Limit     int
	Now       func() time.Time
}

func (h History) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

// Purge deletes messages older than the retention window.
func (h History) Purge(ctx context.Context, db MessageStore) (int64, error) {
	cutoff := h.now().Add(-h.Retention)
	deleted, err := db.DeleteMessagesBefore(ctx, pgtype.Timestamptz{Time: cutoff, Valid: true})
	if err != nil {
		return 0, fmt.Errorf("failed to purge messages: %w", err)
	}
	if deleted > 0 {
		slog.InfoContext(ctx, "purged old messages", "count", deleted)
	}
	return deleted, nil
}

// Recent purges expired messages and returns the newest ones, oldest first.
func (h History) Recent(ctx context.Context, db MessageStore) ([]model.HistoryRecord, error) {
	if _, err := h.Purge(ctx, db); err != nil {
		return nil, err
	}

	rows, err := db.ListRecentMessages(ctx, database.ListRecentMessagesParams{
		Since: pgtype.Timestamptz{Time: h.now().Add(-h.Retention), Valid: true},
		Limit: int32(h.Limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	records := make([]model.HistoryRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, model.HistoryRecord{
			ID:          row.ID,
			UserName:    row.Username,
			UserPicture: row.ProfilePicture,
			Message:     row.Message,
			CreatedAt:   row.CreatedAt.Time,
		})
	}
	return records, nil
}

// RunPurge purges expired messages every interval until ctx is done.
func (h History) RunPurge(ctx context.Context, db MessageStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := h.Purge(ctx, db); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "scheduled purge failed", "error", err)
			}
		}
	}
}

// ServeMessages returns the recent chat history as JSON.
func ServeMessages(db MessageStore, history History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		records, err := history.Recent(ctx, db)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.ErrorContext(ctx, "failed to load messages from database", "error", err)
			writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": "Could not load messages"})
			return
		}

		writeJSON(w, r, http.StatusOK, records)
	}
}
