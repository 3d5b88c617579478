// Package websocket is the chat server: one hub goroutine owns the set of
// connections and every client has its own read and write loop.
package websocket

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/Anonimus1221/hbuilds-chat/internal/broker"
	"github.com/Anonimus1221/hbuilds-chat/internal/database"
	"github.com/Anonimus1221/hbuilds-chat/internal/model"
)

// Error texts sent to clients in error events.
const (
	ErrTextNotJoined     = "Join the chat before sending messages"
	ErrTextEmpty         = "Message cannot be empty"
	ErrTextTooLong       = "Message is too long (max 500 characters)"
	ErrTextRateLimited   = "You are sending messages too fast. Please wait a moment."
	ErrTextNotSaved      = "Could not send message"
	ErrTextUnknownEvent  = "Unknown event"
	ErrTextInvalidFormat = "Invalid message format"
)

// MessageStore persists chat messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, arg database.CreateMessageParams) (database.ChatMessage, error)
}

type Registration struct {
	Client *Client
	Done   chan struct{}
}

// Inbound is an envelope read from a client. Err is set when the frame was
// not a valid envelope.
type Inbound struct {
	Client   *Client
	Envelope model.Envelope
	Err      error
}

// Hub contains functions needed for the app state management.
type Hub struct {
	store      MessageStore
	broker     broker.Broker
	clients    map[*Client]struct{}
	Register   chan Registration
	Unregister chan *Client
	Inbound    chan Inbound
	BrokerMsg  chan model.ChatMessage
	now        func() time.Time
}

// NewHub returns a new instance of Hub.
func NewHub(store MessageStore, b broker.Broker) *Hub {
	return &Hub{
		store:      store,
		broker:     b,
		clients:    make(map[*Client]struct{}),
		Register:   make(chan Registration),
		Unregister: make(chan *Client),
		Inbound:    make(chan Inbound, 1024),
		BrokerMsg:  make(chan model.ChatMessage, 1024),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run manages incoming and outgoing hub traffic until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if err := h.broker.Subscribe(ctx, h.BrokerMsg); err != nil {
		slog.ErrorContext(ctx, "failed to subscribe to broker", "error", err)
	}

	for {
		select {
		case reg := <-h.Register:
			h.clients[reg.Client] = struct{}{}
			reg.Client.Hub = h
			close(reg.Done)

		case client := <-h.Unregister:
			h.remove(ctx, client)

		case in := <-h.Inbound:
			if in.Err != nil {
				slog.DebugContext(ctx, "malformed frame", "error", in.Err, "username", in.Client.Username)
				if _, ok := h.clients[in.Client]; ok {
					h.sendError(ctx, in.Client, ErrTextInvalidFormat)
				}
				continue
			}
			h.handle(ctx, in.Client, in.Envelope)

		case msg := <-h.BrokerMsg:
			env, err := model.NewEnvelope(model.EventNewMessage, msg)
			if err != nil {
				slog.ErrorContext(ctx, "failed to encode message", "error", err)
				continue
			}
			h.broadcast(env, nil)

		case <-ctx.Done():
			slog.InfoContext(ctx, "hub stopped", "reason", ctx.Err())
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}
			return
		}
	}
}

func (h *Hub) remove(ctx context.Context, client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)

	if !client.joined || h.online(client.Username) {
		return
	}

	slog.InfoContext(ctx, "user left", "username", client.Username)
	h.emitAll(ctx, model.EventUserLeft, model.Presence{Username: client.Username}, nil)
	h.emitAll(ctx, model.EventUsersList, h.roster(), nil)
}

func (h *Hub) handle(ctx context.Context, client *Client, env model.Envelope) {
	if _, ok := h.clients[client]; !ok {
		return
	}

	switch env.Event {
	case model.EventJoinChat:
		h.join(ctx, client)

	case model.EventSendMessage:
		h.sendMessage(ctx, client, env)

	case model.EventTyping:
		if !client.joined || !client.typingLim.Allow() {
			return
		}
		h.emitAll(ctx, model.EventTyping, model.Typing{Username: client.Username}, client)

	case model.EventStopTyping:
		if !client.joined {
			return
		}
		h.emitAll(ctx, model.EventStopTyping, model.Typing{Username: client.Username}, client)

	default:
		slog.DebugContext(ctx, "unknown event", "event", env.Event, "username", client.Username)
		h.sendError(ctx, client, ErrTextUnknownEvent)
	}
}

// join marks client as joined. Only the first connection of a name is
// announced to the others; everyone receives the new roster.
func (h *Hub) join(ctx context.Context, client *Client) {
	if client.joined {
		h.emit(ctx, client, model.EventUsersList, h.roster())
		return
	}

	announce := !h.online(client.Username)
	client.joined = true

	if announce {
		slog.InfoContext(ctx, "user joined", "username", client.Username)
		h.emitAll(ctx, model.EventUserJoined, model.Presence{Username: client.Username}, client)
	}
	h.emitAll(ctx, model.EventUsersList, h.roster(), nil)
}

func (h *Hub) sendMessage(ctx context.Context, client *Client, env model.Envelope) {
	if !client.joined {
		h.sendError(ctx, client, ErrTextNotJoined)
		return
	}
	if !client.messageLim.Allow() {
		slog.WarnContext(ctx, "message rate limit exceeded", "username", client.Username)
		h.sendError(ctx, client, ErrTextRateLimited)
		return
	}

	var p model.SendMessage
	if err := env.Decode(&p); err != nil {
		h.sendError(ctx, client, ErrTextInvalidFormat)
		return
	}

	text := strings.TrimSpace(p.Message)
	if utf8.RuneCountInString(text) > model.MaxMessageLength {
		h.sendError(ctx, client, ErrTextTooLong)
		return
	}

	// Stored and broadcast as plain text. Clients escape on render.
	if text == "" {
		h.sendError(ctx, client, ErrTextEmpty)
		return
	}

	created, err := h.store.CreateMessage(ctx, database.CreateMessageParams{
		UserID:    pgtype.UUID{Bytes: client.UserID, Valid: true},
		Message:   text,
		CreatedAt: pgtype.Timestamptz{Time: h.now(), Valid: true},
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to store message",
			"error", err,
			"username", client.Username)
		h.sendError(ctx, client, ErrTextNotSaved)
		return
	}

	msg := model.ChatMessage{
		ID:        created.ID,
		Username:  client.Username,
		UserPhoto: client.Avatar,
		Message:   created.Message,
		Timestamp: created.CreatedAt.Time,
	}
	if err := h.broker.Publish(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "failed to publish message", "error", err)
		h.sendError(ctx, client, ErrTextNotSaved)
	}
}

// online reports whether a joined client with the given name is connected.
func (h *Hub) online(username string) bool {
	for c := range h.clients {
		if c.joined && c.Username == username {
			return true
		}
	}
	return false
}

// roster lists joined users once per name, sorted by name.
func (h *Hub) roster() []model.RosterEntry {
	byName := make(map[string]model.RosterEntry)
	for c := range h.clients {
		if !c.joined {
			continue
		}
		if e, ok := byName[c.Username]; !ok || e.Avatar == "" {
			byName[c.Username] = model.RosterEntry{Name: c.Username, Avatar: c.Avatar}
		}
	}

	users := make([]model.RosterEntry, 0, len(byName))
	for _, e := range byName {
		users = append(users, e)
	}
	slices.SortFunc(users, func(a, b model.RosterEntry) int { return cmp.Compare(a.Name, b.Name) })
	return users
}

func (h *Hub) sendError(ctx context.Context, client *Client, text string) {
	h.emit(ctx, client, model.EventError, model.ErrorEvent{Message: text})
}

func (h *Hub) emit(ctx context.Context, client *Client, event string, v any) {
	env, err := model.NewEnvelope(event, v)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode event", "event", event, "error", err)
		return
	}
	deliver(client, env)
}

// emitAll sends to every joined client except skip.
func (h *Hub) emitAll(ctx context.Context, event string, v any, skip *Client) {
	env, err := model.NewEnvelope(event, v)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode event", "event", event, "error", err)
		return
	}
	h.broadcast(env, skip)
}

func (h *Hub) broadcast(env model.Envelope, skip *Client) {
	for client := range h.clients {
		if client == skip || !client.joined {
			continue
		}
		deliver(client, env)
	}
}

func deliver(client *Client, env model.Envelope) {
	select {
	case client.Send <- env:
	default:
		slog.Warn("skipping event - channel full or client slow",
			"event", env.Event,
			"username", client.Username)
	}
}
