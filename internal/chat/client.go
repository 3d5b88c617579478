package chat

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/Anonimus1221/hbuilds-chat/internal/model"
)

const (
	writeTimeout = 10 * time.Second

	// readLimit bounds a single server frame. Roster snapshots grow with the
	// number of users online.
	readLimit = 1 << 20
)

// Channel is the bidirectional real-time transport to the chat server.
type Channel interface {
	Emit(ctx context.Context, event string, data any) error
	Receive(ctx context.Context) (model.Envelope, error)
	Close() error
}

// Dialer opens a new Channel.
type Dialer func(ctx context.Context) (Channel, error)

// WebsocketURL derives the websocket endpoint from the server base URL.
func WebsocketURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/ws"

	return u.String(), nil
}

// DialWebsocket returns a Dialer connecting to the server at baseURL with the
// given bearer token.
func DialWebsocket(baseURL, token string) Dialer {
	return func(ctx context.Context) (Channel, error) {
		wsURL, err := WebsocketURL(baseURL)
		if err != nil {
			return nil, err
		}

		header := http.Header{}
		if token != "" {
			header.Set("Authorization", "Bearer "+token)
		}

		conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
		if err != nil {
			return nil, fmt.Errorf("failed to dial %s: %w", wsURL, err)
		}
		conn.SetReadLimit(readLimit)

		return &wsChannel{conn: conn}, nil
	}
}

type wsChannel struct {
	conn *websocket.Conn
}

func (c *wsChannel) Emit(ctx context.Context, event string, data any) error {
	env, err := model.NewEnvelope(event, data)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := wsjson.Write(writeCtx, c.conn, env); err != nil {
		return fmt.Errorf("failed to emit %s: %w", event, err)
	}
	return nil
}

func (c *wsChannel) Receive(ctx context.Context) (model.Envelope, error) {
	var env model.Envelope
	if err := wsjson.Read(ctx, c.conn, &env); err != nil {
		return model.Envelope{}, err
	}
	return env, nil
}

func (c *wsChannel) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "client closed")
}
