package broker

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anonimus1221/hbuilds-chat/internal/model"
)

func receive(t *testing.T, ch <-chan model.ChatMessage) model.ChatMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for broker message")
		return model.ChatMessage{}
	}
}

func TestLocal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewLocal()
	a, c := make(chan model.ChatMessage, 1), make(chan model.ChatMessage, 1)
	require.NoError(t, b.Subscribe(ctx, a))
	require.NoError(t, b.Subscribe(ctx, c))

	msg := model.ChatMessage{ID: 7, Username: "alice", Message: "hi"}
	require.NoError(t, b.Publish(ctx, msg))

	assert.Equal(t, msg, receive(t, a))
	assert.Equal(t, msg, receive(t, c))

	t.Run("full_subscriber_does_not_block", func(t *testing.T) {
		require.NoError(t, b.Publish(ctx, msg))
		require.NoError(t, b.Publish(ctx, msg))
		assert.Len(t, a, 1)
		<-a
		<-c
	})

	t.Run("unsubscribe_on_cancel", func(t *testing.T) {
		subCtx, subCancel := context.WithCancel(ctx)
		d := make(chan model.ChatMessage, 1)
		require.NoError(t, b.Subscribe(subCtx, d))
		subCancel()

		assert.Eventually(t, func() bool {
			b.mu.Lock()
			defer b.mu.Unlock()
			_, ok := b.subs[d]
			return !ok
		}, time.Second, 10*time.Millisecond)
	})
}

func TestJetStream(t *testing.T) {
	url := os.Getenv("TEST_NATS_URL")
	if url == "" {
		t.Skip("TEST_NATS_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, err := nats.Connect(url, nats.Timeout(5*time.Second))
	require.NoError(t, err)
	defer conn.Close()

	js, err := jetstream.New(conn)
	require.NoError(t, err)

	b, err := NewJetStream(ctx, js)
	require.NoError(t, err)

	out := make(chan model.ChatMessage, 1)
	require.NoError(t, b.Subscribe(ctx, out))

	msg := model.ChatMessage{ID: 1, Username: "alice", Message: "over nats"}
	require.NoError(t, b.Publish(ctx, msg))

	got := receive(t, out)
	assert.Equal(t, msg.Message, got.Message)
	assert.Equal(t, msg.Username, got.Username)
}
