package handler

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/Anonimus1221/hbuilds-chat/internal/auth"
	ws "github.com/Anonimus1221/hbuilds-chat/internal/websocket"
)

// ServeWs upgrades an authenticated request to a websocket and registers the
// connection with the hub. An empty origins list accepts any origin.
func ServeWs(h *ws.Hub, users UserStore, origins []string) http.HandlerFunc {
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

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns:     origins,
			InsecureSkipVerify: len(origins) == 0,
		})
		if err != nil {
			slog.WarnContext(ctx, "websocket upgrade failed", "error", err)
			return
		}

		slog.InfoContext(ctx, "upgraded connection", "username", user.Username)

		c := ws.NewClient(conn, user.UserID.Bytes, user.Username, user.ProfilePicture)
		reg := ws.Registration{
			Client: c,
			Done:   make(chan struct{}),
		}

		select {
		case h.Register <- reg:
		case <-ctx.Done():
			conn.CloseNow()
			return
		}
		<-reg.Done

		// The request context is cancelled once the handler returns, so the
		// read loop blocks here.
		go c.WriteMessage(ctx)
		c.ReadMessage(ctx)
	}
}
