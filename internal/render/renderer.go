// Package render turns chat messages into HTML fragments and keeps the
// bounded list of fragments that make up the visible conversation.
package render

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/a-h/templ"

	"github.com/Anonimus1221/hbuilds-chat/internal/model"
)

const (
	// MaxMessages is the number of chat messages kept live.
	MaxMessages = 100

	DefaultAvatar = "/static/image/default-avatar.png"
)

type Kind int

const (
	KindMessage Kind = iota
	KindSystem
)

// Node is one rendered entry of the message list.
type Node struct {
	Kind     Kind
	ID       int64
	Username string
	Avatar   string
	Own      bool
	Time     string
	Text     string // the unformatted message or notice text

	// HTML is safe markup. Message bodies in it come from FormatMessage
	// and every other interpolated value is escaped.
	HTML string
}

type Option func(*Renderer)

// WithLocation sets the time zone used for message time labels.
func WithLocation(loc *time.Location) Option {
	return func(r *Renderer) { r.loc = loc }
}

// WithScrollHook registers fn to be called every time the list scrolls to its
// end.
func WithScrollHook(fn func()) Option {
	return func(r *Renderer) { r.onScroll = fn }
}

// WithInsertHook registers fn to be called with every node appended to the
// list.
func WithInsertHook(fn func(Node)) Option {
	return func(r *Renderer) { r.onInsert = fn }
}

func WithDefaultAvatar(src string) Option {
	return func(r *Renderer) { r.defaultAvatar = src }
}

// Renderer owns the message list. It is safe for concurrent use.
type Renderer struct {
	mu            sync.Mutex
	self          string
	loc           *time.Location
	defaultAvatar string
	timestamps    bool
	nodes         []Node
	messages      int
	typing        string
	roster        []model.RosterEntry
	onScroll      func()
	onInsert      func(Node)
}

// New returns a Renderer for the local user self.
func New(self string, opts ...Option) *Renderer {
	r := &Renderer{
		self:          self,
		loc:           time.Local,
		defaultAvatar: DefaultAvatar,
		timestamps:    true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render appends msg to the list, scrolling to the end when autoscroll is set,
// and evicts the oldest message once more than MaxMessages are live.
func (r *Renderer) Render(msg model.ChatMessage, autoscroll bool) Node {
	r.mu.Lock()

	n := Node{
		Kind:     KindMessage,
		ID:       msg.ID,
		Username: msg.Username,
		Avatar:   avatarURL(msg.UserPhoto, r.defaultAvatar),
		Own:      msg.Username == r.self,
		Text:     msg.Message,
	}
	if r.timestamps {
		n.Time = FormatTime(msg.Timestamp, r.loc)
	}
	n.HTML = renderString(MessageBubble(n, FormatMessage(msg.Message)))

	r.nodes = append(r.nodes, n)
	r.messages++
	if r.messages > MaxMessages {
		r.evictOldest()
	}

	onInsert, onScroll := r.onInsert, r.onScroll
	r.mu.Unlock()

	if onInsert != nil {
		onInsert(n)
	}
	if autoscroll && onScroll != nil {
		onScroll()
	}
	return n
}

// System appends a system-style notice and scrolls to the end.
func (r *Renderer) System(text string) Node {
	n := Node{
		Kind: KindSystem,
		Text: text,
		HTML: renderString(SystemNotice(text)),
	}

	r.mu.Lock()
	r.nodes = append(r.nodes, n)
	onInsert, onScroll := r.onInsert, r.onScroll
	r.mu.Unlock()

	if onInsert != nil {
		onInsert(n)
	}
	if onScroll != nil {
		onScroll()
	}
	return n
}

// evictOldest drops the oldest chat message along with any system notices
// that precede it. r.mu must be held.
func (r *Renderer) evictOldest() {
	for i, n := range r.nodes {
		if n.Kind == KindMessage {
			r.nodes = append(r.nodes[:0:0], r.nodes[i+1:]...)
			r.messages--
			return
		}
	}
}

func (r *Renderer) ScrollToEnd() {
	r.mu.Lock()
	onScroll := r.onScroll
	r.mu.Unlock()

	if onScroll != nil {
		onScroll()
	}
}

// Clear empties the message list and hides the typing row.
func (r *Renderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nodes = nil
	r.messages = 0
	r.typing = ""
}

// Len reports the number of live chat messages.
func (r *Renderer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messages
}

// Nodes returns a copy of the whole list, oldest first.
func (r *Renderer) Nodes() []Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Node(nil), r.nodes...)
}

// Messages returns the live chat messages, oldest first.
func (r *Renderer) Messages() []Node {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Node, 0, r.messages)
	for _, n := range r.nodes {
		if n.Kind == KindMessage {
			out = append(out, n)
		}
	}
	return out
}

// ShowTyping shows the shared typing row for username. Only the latest typer
// is shown.
func (r *Renderer) ShowTyping(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.typing = username
}

// HideTyping hides the typing row, whoever it currently names.
func (r *Renderer) HideTyping(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.typing = ""
}

// Typing returns the name shown on the typing row, or "" when hidden.
func (r *Renderer) Typing() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.typing
}

// SetRoster replaces the displayed online user list with a copy of users.
func (r *Renderer) SetRoster(users []model.RosterEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roster = append([]model.RosterEntry(nil), users...)
}

// OnlineCount is the number shown in the online counter.
func (r *Renderer) OnlineCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.roster)
}

func (r *Renderer) Roster() []model.RosterEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.RosterEntry(nil), r.roster...)
}

// SetTimestamps toggles time labels on messages rendered from now on.
func (r *Renderer) SetTimestamps(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timestamps = on
}

func renderString(c templ.Component) string {
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		slog.Error("failed to render component", "error", err)
	}
	return buf.String()
}
