package render

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/Anonimus1221/hbuilds-chat/internal/model"
)

func avatarURL(src, fallback string) string {
	if src == "" {
		src = fallback
	}
	return string(templ.URL(src))
}

// MessageBubble renders a single chat message. body must already be safe
// markup as produced by FormatMessage.
func MessageBubble(n Node, body string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		class := "message"
		if n.Own {
			class += " own-message"
		}

		_, err := fmt.Fprintf(w,
			`<div class="%s" data-id="%s"><img src="%s" alt="%s" class="message-avatar"><div class="message-content"><div class="message-header"><span class="message-author">%s</span>`,
			class,
			strconv.FormatInt(n.ID, 10),
			templ.EscapeString(n.Avatar),
			templ.EscapeString(n.Username),
			templ.EscapeString(n.Username))
		if err != nil {
			return err
		}

		if n.Time != "" {
			if _, err := fmt.Fprintf(w, `<span class="message-time">%s</span>`, templ.EscapeString(n.Time)); err != nil {
				return err
			}
		}

		_, err = fmt.Fprintf(w, `</div><div class="message-text">%s</div></div></div>`, body)
		return err
	})
}

// SystemNotice renders a centered, system-style line of plain text.
func SystemNotice(text string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="system-message">%s</div>`, templ.EscapeString(text))
		return err
	})
}

func TypingIndicator(username string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="typing-indicator"><span>%s is typing</span><div class="typing-dot"></div><div class="typing-dot"></div><div class="typing-dot"></div></div>`,
			templ.EscapeString(username))
		return err
	})
}

// OnlineUsers renders the online user list and its counter.
func OnlineUsers(users []model.RosterEntry, fallbackAvatar string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<div class="users-list"><span id="onlineCount">%d</span>`, len(users)); err != nil {
			return err
		}
		for _, u := range users {
			_, err := fmt.Fprintf(w,
				`<div class="user-item"><img src="%s" alt="%s"><div class="user-item-info"><div class="user-item-name">%s</div><div class="user-item-status"><span class="status-indicator"></span> Online</div></div></div>`,
				templ.EscapeString(avatarURL(u.Avatar, fallbackAvatar)),
				templ.EscapeString(u.Name),
				templ.EscapeString(u.Name))
			if err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

// Document renders a standalone page with the current message list, roster
// and typing row of r.
func Document(title string, r *Renderer) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		nodes := r.Nodes()
		roster := r.Roster()
		typing := r.Typing()

		if _, err := fmt.Fprintf(w,
			`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>%s</title></head><body><main class="chat">`,
			templ.EscapeString(title)); err != nil {
			return err
		}

		if err := OnlineUsers(roster, r.defaultAvatar).Render(ctx, w); err != nil {
			return err
		}

		if _, err := io.WriteString(w, `<div id="messagesContainer">`); err != nil {
			return err
		}
		for _, n := range nodes {
			if _, err := io.WriteString(w, n.HTML); err != nil {
				return err
			}
		}
		if typing != "" {
			if err := TypingIndicator(typing).Render(ctx, w); err != nil {
				return err
			}
		}

		_, err := io.WriteString(w, `</div></main></body></html>`)
		return err
	})
}
