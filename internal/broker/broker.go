// Package broker fans chat messages out to every server instance.
package broker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Anonimus1221/hbuilds-chat/internal/model"
)

// Broker delivers every published message to every subscriber, the
// publisher's own instance included.
type Broker interface {
	Publish(ctx context.Context, msg model.ChatMessage) error
	Subscribe(ctx context.Context, out chan<- model.ChatMessage) error
}

// Local is an in-process Broker for single instance deployments.
type Local struct {
	mu   sync.Mutex
	subs map[chan<- model.ChatMessage]struct{}
}

func NewLocal() *Local {
	return &Local{subs: make(map[chan<- model.ChatMessage]struct{})}
}

// Publish never blocks; a subscriber whose channel is full misses msg.
func (l *Local) Publish(ctx context.Context, msg model.ChatMessage) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for out := range l.subs {
		select {
		case out <- msg:
		default:
			slog.WarnContext(ctx, "dropping broker message, subscriber is full",
				"message_id", msg.ID)
		}
	}
	return nil
}

// Subscribe registers out until ctx is done.
func (l *Local) Subscribe(ctx context.Context, out chan<- model.ChatMessage) error {
	l.mu.Lock()
	l.subs[out] = struct{}{}
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		delete(l.subs, out)
		l.mu.Unlock()
	}()
	return nil
}
