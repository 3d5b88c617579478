package websocket

import (
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Anonimus1221/hbuilds-chat/internal/model"
)

const (
	sendBuffer = 64

	MaxMessagesPerMinute = 10
	MaxTypingPerMinute   = 30
)

// Client is one websocket connection of an authenticated user. A user may
// hold several connections at once.
type Client struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Username string
	Avatar   string
	conn     *websocket.Conn
	Hub      *Hub
	Send     chan model.Envelope

	// joined is owned by the hub goroutine.
	joined     bool
	messageLim *rate.Limiter
	typingLim  *rate.Limiter
}

func NewClient(conn *websocket.Conn, userID uuid.UUID, username, avatar string) *Client {
	c := &Client{
		ID:       uuid.New(),
		UserID:   userID,
		Username: username,
		Avatar:   avatar,
		conn:     conn,
		Send:     make(chan model.Envelope, sendBuffer),
	}
	c.SetMessageLimiter(MaxMessagesPerMinute, time.Minute)
	c.SetTypingLimiter(MaxTypingPerMinute, time.Minute)
	return c
}

func (c *Client) SetMessageLimiter(requests int, window time.Duration) {
	c.messageLim = rate.NewLimiter(rate.Every(window/time.Duration(requests)), requests)
}

func (c *Client) SetTypingLimiter(requests int, window time.Duration) {
	c.typingLim = rate.NewLimiter(rate.Every(window/time.Duration(requests)), requests)
}
