package model

import (
	"encoding/json"
	"fmt"
)

// Channel events. The first group is emitted by clients, the second by the
// server.
const (
	EventJoinChat    = "join_chat"
	EventSendMessage = "send_message"
	EventTyping      = "typing"
	EventStopTyping  = "stop_typing"

	EventNewMessage = "new_message"
	EventUserJoined = "user_joined"
	EventUserLeft   = "user_left"
	EventUsersList  = "users_list"
	EventError      = "error"
)

// Envelope is a single frame on the chat channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope encodes v as the payload of event. A nil v yields an envelope
// without data.
func NewEnvelope(event string, v any) (Envelope, error) {
	env := Envelope{Event: event}
	if v == nil {
		return env, nil
	}

	p, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("could not encode %s payload: %w", event, err)
	}
	env.Data = p

	return env, nil
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s: empty payload", e.Event)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("could not decode %s payload: %w", e.Event, err)
	}
	return nil
}

type JoinChat struct {
	User Identity `json:"user"`
}

type SendMessage struct {
	Message string `json:"message"`
}

// Presence is the payload of user_joined and user_left.
type Presence struct {
	Username string `json:"username"`
}

// Typing is the payload of typing and stop_typing as relayed by the server.
type Typing struct {
	Username string `json:"username"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}
