package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 10 * time.Second

// ReadMessage forwards envelopes read from the connection to the hub until
// the connection fails.
func (c *Client) ReadMessage(ctx context.Context) {
	defer func() {
		select {
		case c.Hub.Unregister <- c:
		case <-ctx.Done():
		}
		c.conn.CloseNow()
	}()

	for {
		msgType, p, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure &&
				status != websocket.StatusGoingAway &&
				status != -1 {
				slog.WarnContext(ctx, "websocket read failed",
					"error", err,
					"username", c.Username)
			}
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		in := Inbound{Client: c}
		if err := json.Unmarshal(p, &in.Envelope); err != nil {
			in.Err = err
		}

		select {
		case c.Hub.Inbound <- in:
		case <-ctx.Done():
			return
		}
	}
}

// WriteMessage writes queued envelopes to the connection until Send is
// closed.
func (c *Client) WriteMessage(ctx context.Context) {
	for {
		select {
		case env, ok := <-c.Send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, c.conn, env)
			cancel()
			if err != nil {
				slog.WarnContext(ctx, "failed to write event",
					"error", err,
					"event", env.Event,
					"username", c.Username)
				c.conn.CloseNow()
				return
			}

		case <-ctx.Done():
			c.conn.Close(websocket.StatusGoingAway, "context cancelled")
			return
		}
	}
}
