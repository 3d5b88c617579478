// Package chat is the client side of the chat: it owns the channel to the
// server, the roster and the session counters, and drives the renderer.
package chat

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sethvargo/go-retry"

	"github.com/Anonimus1221/hbuilds-chat/internal/api"
	"github.com/Anonimus1221/hbuilds-chat/internal/model"
	"github.com/Anonimus1221/hbuilds-chat/internal/render"
	"github.com/Anonimus1221/hbuilds-chat/internal/typing"
)

var (
	ErrNotConnected   = errors.New("chat: not connected")
	ErrEmptyMessage   = errors.New("chat: message is empty")
	ErrMessageTooLong = fmt.Errorf("chat: message is longer than %d characters", model.MaxMessageLength)
	ErrNotAdmin       = errors.New("chat: only administrators can clear the chat")
)

// notificationBodyLen caps the body of desktop notifications, in runes.
const notificationBodyLen = 50

type Status int

const (
	StatusDisconnected Status = iota
	StatusConnected
)

func (s Status) String() string {
	if s == StatusConnected {
		return "connected"
	}
	return "disconnected"
}

// ReconnectPolicy controls reconnection after the channel drops. The zero
// value never reconnects.
type ReconnectPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

type Config struct {
	BaseURL   string
	Token     string
	User      model.Identity
	Reconnect ReconnectPolicy
}

// History fetches the stored chat history, oldest first.
type History interface {
	Messages(ctx context.Context) ([]model.HistoryRecord, error)
}

type Stats struct {
	Received int
	Sent     int
	Online   int
}

type Option func(*Session)

func WithDialer(d Dialer) Option             { return func(s *Session) { s.dial = d } }
func WithHistory(h History) Option           { return func(s *Session) { s.history = h } }
func WithRenderer(r *render.Renderer) Option { return func(s *Session) { s.renderer = r } }
func WithNotifier(n Notifier) Option         { return func(s *Session) { s.notifier = n } }
func WithSoundPlayer(p SoundPlayer) Option   { return func(s *Session) { s.sounds = p } }
func WithToaster(t Toaster) Option           { return func(s *Session) { s.toaster = t } }
func WithClock(c clock.Clock) Option         { return func(s *Session) { s.clock = c } }

// Session is one chat session of the local user. All methods are safe for
// concurrent use.
type Session struct {
	cfg      Config
	dial     Dialer
	history  History
	renderer *render.Renderer
	typing   *typing.Debouncer
	clock    clock.Clock
	notifier Notifier
	sounds   SoundPlayer
	toaster  Toaster

	mu            sync.Mutex
	ch            Channel
	status        Status
	roster        map[string]model.RosterEntry
	received      int
	sent          int
	draft         string
	notifications bool
	sound         bool
}

func NewSession(cfg Config, opts ...Option) *Session {
	s := &Session{
		cfg:           cfg,
		roster:        make(map[string]model.RosterEntry),
		notifications: true,
		sound:         true,
		notifier:      nopEffects{},
		sounds:        nopEffects{},
		toaster:       nopEffects{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.dial == nil {
		s.dial = DialWebsocket(cfg.BaseURL, cfg.Token)
	}
	if s.history == nil {
		s.history = api.New(cfg.BaseURL, cfg.Token)
	}
	if s.renderer == nil {
		s.renderer = render.New(cfg.User.Name)
	}
	s.typing = typing.New(s.clock, typing.DefaultQuiet, s.emitTyping)

	return s
}

// Connect opens the channel and announces the local user.
func (s *Session) Connect(ctx context.Context) error {
	ch, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("could not connect: %w", err)
	}

	if err := ch.Emit(ctx, model.EventJoinChat, model.JoinChat{User: s.cfg.User}); err != nil {
		_ = ch.Close()
		return fmt.Errorf("could not join chat: %w", err)
	}

	s.mu.Lock()
	old := s.ch
	s.ch = ch
	s.status = StatusConnected
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	slog.InfoContext(ctx, "connected to chat", "user", s.cfg.User.Name)
	s.play(SoundConnect)

	return nil
}

// Run reads and dispatches events until ctx is cancelled or the channel
// fails and cannot be re-established.
func (s *Session) Run(ctx context.Context) error {
	for {
		err := s.readLoop(ctx)
		s.onDisconnect(ctx, err)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.cfg.Reconnect.MaxRetries <= 0 {
			return err
		}
		if err := s.reconnect(ctx); err != nil {
			return fmt.Errorf("could not reconnect: %w", err)
		}
	}
}

func (s *Session) readLoop(ctx context.Context) error {
	ch := s.channel()
	if ch == nil {
		return ErrNotConnected
	}

	for {
		env, err := ch.Receive(ctx)
		if err != nil {
			return err
		}
		s.Dispatch(env)
	}
}

func (s *Session) reconnect(ctx context.Context) error {
	p := s.cfg.Reconnect
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}

	b := retry.NewExponential(p.BaseDelay)
	b = retry.WithCappedDuration(p.MaxDelay, b)
	b = retry.WithMaxRetries(uint64(p.MaxRetries), b)

	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := s.Connect(ctx); err != nil {
			slog.WarnContext(ctx, "reconnect attempt failed", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (s *Session) onDisconnect(ctx context.Context, err error) {
	s.mu.Lock()
	ch := s.ch
	s.ch = nil
	s.status = StatusDisconnected
	s.mu.Unlock()

	if ch != nil {
		_ = ch.Close()
	}
	if err != nil && ctx.Err() == nil {
		slog.WarnContext(ctx, "disconnected from chat", "error", err)
	}
}

// Close drops the channel without reconnecting.
func (s *Session) Close() error {
	s.mu.Lock()
	ch := s.ch
	s.ch = nil
	s.status = StatusDisconnected
	s.mu.Unlock()

	if ch == nil {
		return nil
	}
	return ch.Close()
}

// Dispatch handles one event received from the server.
func (s *Session) Dispatch(env model.Envelope) {
	var err error

	switch env.Event {
	case model.EventNewMessage:
		var msg model.ChatMessage
		if err = env.Decode(&msg); err == nil {
			s.onMessage(msg)
		}

	case model.EventUserJoined, model.EventUserLeft:
		var p model.Presence
		if err = env.Decode(&p); err == nil {
			s.onPresence(env.Event == model.EventUserJoined, p.Username)
		}

	case model.EventUsersList:
		var users []model.RosterEntry
		if err = env.Decode(&users); err == nil {
			s.onRoster(users)
		}

	case model.EventTyping:
		var p model.Typing
		if err = env.Decode(&p); err == nil {
			s.renderer.ShowTyping(p.Username)
		}

	case model.EventStopTyping:
		var p model.Typing
		if len(env.Data) > 0 {
			_ = env.Decode(&p)
		}
		s.renderer.HideTyping(p.Username)

	case model.EventError:
		var p model.ErrorEvent
		if err = env.Decode(&p); err == nil {
			slog.Warn("server reported an error", "message", p.Message)
			s.toaster.Toast(p.Message)
		}

	default:
		slog.Debug("ignoring unknown event", "event", env.Event)
	}

	if err != nil {
		slog.Warn("failed to process event", "event", env.Event, "error", err)
	}
}

func (s *Session) onMessage(msg model.ChatMessage) {
	s.renderer.Render(msg, true)

	s.mu.Lock()
	s.received++
	fromOther := msg.Username != s.cfg.User.Name
	notify := fromOther && s.notifications
	s.mu.Unlock()

	if !notify {
		return
	}

	if err := s.notifier.Notify(msg.Username, truncate(msg.Message, notificationBodyLen)); err != nil {
		slog.Debug("notification suppressed", "error", err)
	}
	s.play(SoundMessage)
}

func (s *Session) onPresence(joined bool, username string) {
	s.mu.Lock()
	if joined {
		if _, ok := s.roster[username]; !ok {
			s.roster[username] = model.RosterEntry{Name: username}
		}
	} else {
		delete(s.roster, username)
	}
	users := s.rosterEntries()
	s.mu.Unlock()

	s.renderer.SetRoster(users)
	if joined {
		s.renderer.System(username + " joined the chat")
		s.play(SoundJoin)
		return
	}
	s.renderer.System(username + " left the chat")
}

// onRoster replaces the roster with the server snapshot.
func (s *Session) onRoster(users []model.RosterEntry) {
	roster := make(map[string]model.RosterEntry, len(users))
	for _, u := range users {
		roster[u.Name] = u
	}

	s.mu.Lock()
	s.roster = roster
	entries := s.rosterEntries()
	s.mu.Unlock()

	s.renderer.SetRoster(entries)
}

// rosterEntries returns the roster sorted by name. s.mu must be held.
func (s *Session) rosterEntries() []model.RosterEntry {
	users := make([]model.RosterEntry, 0, len(s.roster))
	for _, u := range s.roster {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b model.RosterEntry) int { return cmp.Compare(a.Name, b.Name) })
	return users
}

func (s *Session) play(snd Sound) {
	s.mu.Lock()
	on := s.sound
	s.mu.Unlock()

	if !on {
		return
	}
	if err := s.sounds.Play(snd); err != nil {
		slog.Debug("sound suppressed", "sound", snd, "error", err)
	}
}

func (s *Session) channel() Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch
}

func (s *Session) emit(ctx context.Context, event string, data any) error {
	ch := s.channel()
	if ch == nil {
		return ErrNotConnected
	}
	return ch.Emit(ctx, event, data)
}

func (s *Session) emitTyping(sig typing.Signal) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := s.emit(ctx, sig.String(), nil); err != nil {
		slog.Debug("could not send typing signal", "signal", sig.String(), "error", err)
	}
}

func (s *Session) SetNotifications(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = on
}

func (s *Session) SetSound(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sound = on
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) OnlineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.roster)
}

// Roster returns the names of the online users, sorted.
func (s *Session) Roster() []string {
	s.mu.Lock()
	names := make([]string, 0, len(s.roster))
	for name := range s.roster {
		names = append(names, name)
	}
	s.mu.Unlock()

	slices.Sort(names)
	return names
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Received: s.received, Sent: s.sent, Online: len(s.roster)}
}

func (s *Session) Renderer() *render.Renderer { return s.renderer }

func (s *Session) User() model.Identity { return s.cfg.User }

func truncate(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n])
}
