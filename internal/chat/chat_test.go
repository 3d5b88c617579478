package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anonimus1221/hbuilds-chat/internal/api"
	"github.com/Anonimus1221/hbuilds-chat/internal/model"
	"github.com/Anonimus1221/hbuilds-chat/internal/render"
)

type emitted struct {
	event string
	data  any
}

type fakeChannel struct {
	mu      sync.Mutex
	emitted []emitted
	in      chan model.Envelope
	closed  chan struct{}
	once    sync.Once
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		in:     make(chan model.Envelope, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeChannel) Emit(_ context.Context, event string, data any) error {
	select {
	case <-c.closed:
		return errors.New("channel closed")
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitted = append(c.emitted, emitted{event, data})
	return nil
}

func (c *fakeChannel) Receive(ctx context.Context) (model.Envelope, error) {
	select {
	case env, ok := <-c.in:
		if !ok {
			return model.Envelope{}, errors.New("connection reset")
		}
		return env, nil
	case <-c.closed:
		return model.Envelope{}, errors.New("channel closed")
	case <-ctx.Done():
		return model.Envelope{}, ctx.Err()
	}
}

func (c *fakeChannel) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeChannel) events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.emitted))
	for _, e := range c.emitted {
		out = append(out, e.event)
	}
	return out
}

func (c *fakeChannel) count(event string) int {
	n := 0
	for _, e := range c.events() {
		if e == event {
			n++
		}
	}
	return n
}

type effects struct {
	mu            sync.Mutex
	notifications []string
	sounds        []Sound
	toasts        []string
}

func (e *effects) Notify(title, body string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifications = append(e.notifications, title+": "+body)
	return nil
}

func (e *effects) Play(s Sound) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sounds = append(e.sounds, s)
	return nil
}

func (e *effects) Toast(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.toasts = append(e.toasts, msg)
}

func envelope(t *testing.T, event string, v any) model.Envelope {
	t.Helper()
	env, err := model.NewEnvelope(event, v)
	require.NoError(t, err)
	return env
}

func newTestSession(t *testing.T, user model.Identity, opts ...Option) (*Session, *fakeChannel, *effects) {
	t.Helper()

	ch := newFakeChannel()
	fx := &effects{}
	opts = append([]Option{
		WithDialer(func(context.Context) (Channel, error) { return ch, nil }),
		WithNotifier(fx),
		WithSoundPlayer(fx),
		WithToaster(fx),
		WithClock(clock.NewMock()),
	}, opts...)

	s := NewSession(Config{BaseURL: "http://localhost:0", User: user}, opts...)
	require.NoError(t, s.Connect(context.Background()))
	return s, ch, fx
}

func TestConnect(t *testing.T) {
	s, ch, fx := newTestSession(t, model.Identity{Name: "alice"})

	assert.Equal(t, StatusConnected, s.Status())
	assert.Equal(t, []string{model.EventJoinChat}, ch.events())
	assert.Equal(t, model.JoinChat{User: model.Identity{Name: "alice"}}, ch.emitted[0].data)
	assert.Equal(t, []Sound{SoundConnect}, fx.sounds)
}

func TestConnectDialFailure(t *testing.T) {
	s := NewSession(Config{User: model.Identity{Name: "alice"}},
		WithDialer(func(context.Context) (Channel, error) { return nil, errors.New("refused") }))

	err := s.Connect(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StatusDisconnected, s.Status())
}

func TestNewMessage(t *testing.T) {
	long := strings.Repeat("x", 80)

	tests := []struct {
		name       string
		from       string
		notify     bool
		wantNotify []string
		wantSounds []Sound
	}{
		{"from other", "bob", true, []string{"bob: " + strings.Repeat("x", 50)}, []Sound{SoundConnect, SoundMessage}},
		{"own message", "alice", true, nil, []Sound{SoundConnect}},
		{"notifications off", "bob", false, nil, []Sound{SoundConnect}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, fx := newTestSession(t, model.Identity{Name: "alice"})
			s.SetNotifications(tt.notify)

			s.Dispatch(envelope(t, model.EventNewMessage, model.ChatMessage{
				ID:       1,
				Username: tt.from,
				Message:  long,
			}))

			assert.Equal(t, 1, s.Renderer().Len())
			assert.Equal(t, 1, s.Stats().Received)
			assert.Equal(t, tt.wantNotify, fx.notifications)
			assert.Equal(t, tt.wantSounds, fx.sounds)
		})
	}
}

func TestSoundOff(t *testing.T) {
	s, _, fx := newTestSession(t, model.Identity{Name: "alice"})
	s.SetSound(false)

	s.Dispatch(envelope(t, model.EventNewMessage, model.ChatMessage{Username: "bob", Message: "hi"}))

	assert.Len(t, fx.notifications, 1)
	assert.Equal(t, []Sound{SoundConnect}, fx.sounds)
}

func TestRosterSnapshotReplaces(t *testing.T) {
	s, _, _ := newTestSession(t, model.Identity{Name: "alice"})

	s.Dispatch(envelope(t, model.EventUsersList, []model.RosterEntry{{Name: "A"}, {Name: "B"}}))
	assert.Equal(t, 2, s.OnlineCount())

	s.Dispatch(envelope(t, model.EventUserJoined, model.Presence{Username: "C"}))
	assert.Equal(t, 3, s.OnlineCount())
	assert.Equal(t, []string{"A", "B", "C"}, s.Roster())
	assert.Equal(t, 3, s.Renderer().OnlineCount())
	assert.Contains(t, renderDocument(t, s), `<span id="onlineCount">3</span>`)

	s.Dispatch(envelope(t, model.EventUserLeft, model.Presence{Username: "B"}))
	assert.Contains(t, renderDocument(t, s), `<span id="onlineCount">2</span>`)
	assert.Equal(t, []model.RosterEntry{{Name: "A"}, {Name: "C"}}, s.Renderer().Roster())

	s.Dispatch(envelope(t, model.EventUsersList, []model.RosterEntry{{Name: "A"}}))
	assert.Equal(t, 1, s.OnlineCount())
	assert.Equal(t, []model.RosterEntry{{Name: "A"}}, s.Renderer().Roster())
}

func TestPresenceNotices(t *testing.T) {
	s, _, fx := newTestSession(t, model.Identity{Name: "alice"})

	s.Dispatch(envelope(t, model.EventUserJoined, model.Presence{Username: "bob"}))
	s.Dispatch(envelope(t, model.EventUserLeft, model.Presence{Username: "bob"}))

	nodes := s.Renderer().Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "bob joined the chat", nodes[0].Text)
	assert.Equal(t, "bob left the chat", nodes[1].Text)
	assert.Zero(t, s.OnlineCount())
	assert.Equal(t, []Sound{SoundConnect, SoundJoin}, fx.sounds)
}

func TestTypingIndicator(t *testing.T) {
	s, _, _ := newTestSession(t, model.Identity{Name: "alice"})

	s.Dispatch(envelope(t, model.EventTyping, model.Typing{Username: "bob"}))
	s.Dispatch(envelope(t, model.EventTyping, model.Typing{Username: "carol"}))
	assert.Equal(t, "carol", s.Renderer().Typing())

	s.Dispatch(envelope(t, model.EventStopTyping, model.Typing{Username: "bob"}))
	assert.Empty(t, s.Renderer().Typing())
}

func TestServerError(t *testing.T) {
	s, _, fx := newTestSession(t, model.Identity{Name: "alice"})

	s.Dispatch(envelope(t, model.EventError, model.ErrorEvent{Message: "Too many messages"}))
	s.Dispatch(model.Envelope{Event: model.EventNewMessage, Data: json.RawMessage(`{"username":`)})
	s.Dispatch(model.Envelope{Event: "unknown"})

	assert.Equal(t, []string{"Too many messages"}, fx.toasts)
	assert.Zero(t, s.Renderer().Len())
}

func TestSendMessage(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		s, ch, _ := newTestSession(t, model.Identity{Name: "alice"})

		assert.ErrorIs(t, s.SendMessage(context.Background(), "   \n\t"), ErrEmptyMessage)
		assert.ErrorIs(t, s.SendMessage(context.Background(), strings.Repeat("é", model.MaxMessageLength+1)), ErrMessageTooLong)
		assert.NoError(t, s.SendMessage(context.Background(), strings.Repeat("é", model.MaxMessageLength)))
		assert.Equal(t, 1, ch.count(model.EventSendMessage))
	})

	t.Run("sends trimmed text and clears draft", func(t *testing.T) {
		s, ch, _ := newTestSession(t, model.Identity{Name: "alice"})

		s.Type("  hello  ")
		require.NoError(t, s.Submit(context.Background()))

		assert.Equal(t, []string{
			model.EventJoinChat,
			model.EventTyping,
			model.EventSendMessage,
			model.EventStopTyping,
		}, ch.events())
		assert.Equal(t, model.SendMessage{Message: "hello"}, ch.emitted[2].data)
		assert.Empty(t, s.Draft())
		assert.Equal(t, 1, s.Stats().Sent)
	})

	t.Run("not connected keeps draft", func(t *testing.T) {
		s, _, _ := newTestSession(t, model.Identity{Name: "alice"})
		require.NoError(t, s.Close())

		s.Type("hello")
		assert.ErrorIs(t, s.Submit(context.Background()), ErrNotConnected)
		assert.Equal(t, "hello", s.Draft())
		assert.Zero(t, s.Stats().Sent)
	})
}

func TestSendCancelsPendingStopTyping(t *testing.T) {
	mock := clock.NewMock()
	s, ch, _ := newTestSession(t, model.Identity{Name: "alice"}, WithClock(mock))

	s.Type("h")
	mock.Add(300 * time.Millisecond)
	s.Type("hi")
	require.NoError(t, s.Submit(context.Background()))
	assert.Equal(t, 1, ch.count(model.EventStopTyping))

	mock.Add(2 * time.Second)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, ch.count(model.EventStopTyping))
	assert.Equal(t, 2, ch.count(model.EventTyping))
}

func TestTypingStopsAfterQuietPeriod(t *testing.T) {
	mock := clock.NewMock()
	s, ch, _ := newTestSession(t, model.Identity{Name: "alice"}, WithClock(mock))

	s.Type("h")
	s.Type("he")
	s.Type("hey")
	mock.Add(time.Second)

	assert.Eventually(t, func() bool { return ch.count(model.EventStopTyping) == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, ch.count(model.EventTyping))
}

func TestClearChat(t *testing.T) {
	t.Run("non admin", func(t *testing.T) {
		s, _, fx := newTestSession(t, model.Identity{Name: "alice"})
		s.Dispatch(envelope(t, model.EventNewMessage, model.ChatMessage{Username: "bob", Message: "hi"}))

		assert.ErrorIs(t, s.ClearChat(), ErrNotAdmin)
		assert.Equal(t, 1, s.Renderer().Len())
		assert.Len(t, fx.toasts, 1)
	})

	t.Run("admin", func(t *testing.T) {
		s, _, _ := newTestSession(t, model.Identity{Name: "root", IsAdmin: true})
		s.Dispatch(envelope(t, model.EventNewMessage, model.ChatMessage{Username: "bob", Message: "hi"}))

		require.NoError(t, s.ClearChat())
		assert.Zero(t, s.Renderer().Len())
		assert.Len(t, s.Renderer().Nodes(), 1)
	})
}

func TestLoadHistory(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]model.HistoryRecord{
			{ID: 1, UserName: "Bob", Message: "hi", CreatedAt: created},
		})
	}))
	defer srv.Close()

	var scrolls int
	r := render.New("alice", render.WithLocation(time.UTC), render.WithScrollHook(func() { scrolls++ }))
	s, _, fx := newTestSession(t, model.Identity{Name: "alice"},
		WithRenderer(r),
		WithHistory(api.New(srv.URL, "")))

	r.System("stale notice")
	scrolls = 0

	n, err := s.LoadHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	msgs := r.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Bob", msgs[0].Username)
	assert.Equal(t, "10:30", msgs[0].Time)
	assert.Len(t, r.Nodes(), 1)

	assert.Equal(t, 1, scrolls)
	assert.Empty(t, fx.notifications)
	assert.Equal(t, []Sound{SoundConnect}, fx.sounds)
	assert.Equal(t, 1, s.Stats().Received)
}

func TestLoadHistoryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"could not load messages"}`))
	}))
	defer srv.Close()

	s, _, fx := newTestSession(t, model.Identity{Name: "alice"}, WithHistory(api.New(srv.URL, "")))
	s.Dispatch(envelope(t, model.EventNewMessage, model.ChatMessage{Username: "bob", Message: "hi"}))

	_, err := s.LoadHistory(context.Background())
	assert.Error(t, err)
	assert.Zero(t, s.Renderer().Len())
	assert.Equal(t, []string{"Could not load previous messages"}, fx.toasts)
}

func TestRunDispatchesUntilDisconnect(t *testing.T) {
	s, ch, _ := newTestSession(t, model.Identity{Name: "alice"})

	ch.in <- envelope(t, model.EventNewMessage, model.ChatMessage{Username: "bob", Message: "one"})
	ch.in <- envelope(t, model.EventNewMessage, model.ChatMessage{Username: "bob", Message: "two"})
	close(ch.in)

	err := s.Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 2, s.Renderer().Len())
	assert.Equal(t, StatusDisconnected, s.Status())
}

func TestRunReconnects(t *testing.T) {
	first := newFakeChannel()
	second := newFakeChannel()

	var mu sync.Mutex
	dials := 0
	dialer := func(context.Context) (Channel, error) {
		mu.Lock()
		defer mu.Unlock()

		dials++
		switch dials {
		case 1:
			return first, nil
		case 2:
			return nil, errors.New("server restarting")
		default:
			return second, nil
		}
	}

	s := NewSession(Config{
		User:      model.Identity{Name: "alice"},
		Reconnect: ReconnectPolicy{MaxRetries: 5, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
	}, WithDialer(dialer))
	require.NoError(t, s.Connect(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	close(first.in)

	assert.Eventually(t, func() bool {
		return second.count(model.EventJoinChat) == 1 && s.Status() == StatusConnected
	}, time.Second, 5*time.Millisecond)

	second.in <- envelope(t, model.EventNewMessage, model.ChatMessage{Username: "bob", Message: "back"})
	assert.Eventually(t, func() bool { return s.Renderer().Len() == 1 },
		time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		base    string
		want    string
		wantErr bool
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws", false},
		{"https://chat.example.com/", "wss://chat.example.com/ws", false},
		{"https://example.com/hbuilds", "wss://example.com/hbuilds/ws", false},
		{"ftp://example.com", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := WebsocketURL(tt.base)
			if (err != nil) != tt.wantErr {
				t.Fatalf("WebsocketURL() error = %v", err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func renderDocument(t *testing.T, s *Session) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, render.Document("Chat", s.Renderer()).Render(context.Background(), &b))
	return b.String()
}
