package chat

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Anonimus1221/hbuilds-chat/internal/model"
)

// Type replaces the compose field with text, as on every input event.
func (s *Session) Type(text string) {
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()

	s.typing.Keystroke()
}

// Draft returns the current compose field.
func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Submit sends the compose field.
func (s *Session) Submit(ctx context.Context) error {
	return s.SendMessage(ctx, s.Draft())
}

// SendMessage emits text as a chat message. The compose field is cleared as
// soon as the message is handed to the channel; the server echo is not
// awaited.
func (s *Session) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > model.MaxMessageLength {
		return ErrMessageTooLong
	}

	if err := s.emit(ctx, model.EventSendMessage, model.SendMessage{Message: text}); err != nil {
		slog.WarnContext(ctx, "failed to send message", "error", err)
		return err
	}

	s.mu.Lock()
	s.draft = ""
	s.sent++
	s.mu.Unlock()

	s.typing.Flush()
	return nil
}

// ClearChat empties the local message list. Only administrators may do so.
func (s *Session) ClearChat() error {
	if !s.cfg.User.IsAdmin {
		s.toaster.Toast("Only administrators can clear the chat")
		return ErrNotAdmin
	}

	s.renderer.Clear()
	s.renderer.System("Chat cleared by an administrator")
	s.toaster.Toast("Chat cleared")
	return nil
}
