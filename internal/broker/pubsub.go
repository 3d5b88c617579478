package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Anonimus1221/hbuilds-chat/internal/model"
)

// JetStream shares messages between instances through a NATS stream.
type JetStream struct {
	js     jetstream.JetStream
	stream jetstream.Stream
}

// NewJetStream creates or updates the messages stream.
func NewJetStream(ctx context.Context, js jetstream.JetStream) (*JetStream, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream interface is nil")
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectGlobalRoom},
		MaxBytes: 1 << 30, // 1GB max storage
		MaxAge:   24 * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create/update stream: %w", err)
	}

	return &JetStream{js: js, stream: stream}, nil
}

func (b *JetStream) Publish(ctx context.Context, msg model.ChatMessage) error {
	p, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("could not encode payload to JSON: %w", err)
	}

	pubAck, err := b.js.Publish(ctx,
		SubjectGlobalRoom,
		p,
		jetstream.WithMsgID(uuid.NewString()),
	)
	if err != nil {
		return fmt.Errorf("failed to publish to stream [%s]: %w", SubjectGlobalRoom, err)
	}
	slog.DebugContext(ctx, "published message",
		"username", msg.Username,
		"sequence", pubAck.Sequence)

	return nil
}

// Subscribe starts an ephemeral consumer that delivers messages published
// from now on. It stops when ctx is done.
func (b *JetStream) Subscribe(ctx context.Context, out chan<- model.ChatMessage) error {
	consumer, err := b.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		AckPolicy:         jetstream.AckExplicitPolicy,
		InactiveThreshold: 5 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("failed to create or update consumer: %w", err)
	}

	consumeHandler := func(msg jetstream.Msg) {
		var payload model.ChatMessage

		if err := json.Unmarshal(msg.Data(), &payload); err != nil {
			_ = msg.Term()
			slog.Warn("could not decode payload", "error", err)
			return
		}

		_ = msg.Ack()

		select {
		case out <- payload:
		case <-ctx.Done():
		}
	}

	optErrHandler := jetstream.ConsumeErrHandler(func(cc jetstream.ConsumeContext, err error) {
		slog.Error("consumer error", "error", err)
	})

	consumeCtx, err := consumer.Consume(consumeHandler, optErrHandler)
	if err != nil {
		return fmt.Errorf("failed to start consuming messages: %w", err)
	}

	go func() {
		<-ctx.Done()
		consumeCtx.Drain()
	}()

	return nil
}
