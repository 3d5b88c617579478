package chat

import (
	"context"
	"fmt"
	"log/slog"
)

// LoadHistory replaces the message list with the stored history. Records are
// replayed without autoscroll or notifications, followed by a single scroll to
// the end. It returns the number of replayed messages.
func (s *Session) LoadHistory(ctx context.Context) (int, error) {
	s.renderer.Clear()

	records, err := s.history.Messages(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to load chat history", "error", err)
		s.toaster.Toast("Could not load previous messages")
		return 0, fmt.Errorf("could not load chat history: %w", err)
	}

	for _, rec := range records {
		s.renderer.Render(rec.ChatMessage(), false)
	}
	s.renderer.ScrollToEnd()

	s.mu.Lock()
	s.received = len(records)
	s.mu.Unlock()

	slog.InfoContext(ctx, "loaded chat history", "count", len(records))
	return len(records), nil
}
