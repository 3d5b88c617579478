// Package model defines data structure.
package model

import (
	"time"
)

// MaxMessageLength is the longest message, in runes, the chat accepts.
const MaxMessageLength = 500

// ChatMessage represents a message for the chat application,
// used for both broker payloads and websocket communication.
type ChatMessage struct {
	ID        int64     `json:"id,omitempty"`
	Username  string    `json:"username"`
	UserPhoto string    `json:"user_photo,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// HistoryRecord is one entry of the chat history served over REST.
type HistoryRecord struct {
	ID          int64     `json:"id"`
	UserName    string    `json:"user_name"`
	UserPicture string    `json:"user_picture,omitempty"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

// ChatMessage maps a history record into the shape the renderer expects.
func (r HistoryRecord) ChatMessage() ChatMessage {
	return ChatMessage{
		ID:        r.ID,
		Username:  r.UserName,
		UserPhoto: r.UserPicture,
		Message:   r.Message,
		Timestamp: r.CreatedAt,
	}
}

// RosterEntry is a connected chat participant.
type RosterEntry struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Identity is the local user as announced on join.
type Identity struct {
	Name    string `json:"name"`
	Avatar  string `json:"avatar,omitempty"`
	IsAdmin bool   `json:"is_admin,omitempty"`
}
