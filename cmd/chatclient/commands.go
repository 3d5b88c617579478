package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Anonimus1221/hbuilds-chat/internal/chat"
	"github.com/Anonimus1221/hbuilds-chat/internal/render"
)

const help = `commands:
  /who            list online users
  /stats          show session counters
  /sound on|off   toggle the bell
  /notify on|off  toggle notifications
  /clear          clear the chat (administrators)
  /quit           leave`

// formatNode renders a list entry as one terminal line.
func formatNode(n render.Node) string {
	if n.Kind == render.KindSystem {
		return "* " + n.Text
	}

	name := n.Username
	if n.Own {
		name += " (you)"
	}
	if n.Time == "" {
		return fmt.Sprintf("%s: %s", name, n.Text)
	}
	return fmt.Sprintf("[%s] %s: %s", n.Time, name, n.Text)
}

func parseToggle(arg string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", arg)
}

// handleLine runs a slash command or sends line as a message. It reports
// whether the user asked to quit.
func handleLine(ctx context.Context, session *chat.Session, line string, out io.Writer) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")

	switch cmd {
	case "":
		return false

	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Fprintln(out, help)

	case "/who":
		fmt.Fprintf(out, "%d online\n", session.OnlineCount())
		for _, name := range session.Roster() {
			fmt.Fprintf(out, "  %s\n", name)
		}

	case "/stats":
		st := session.Stats()
		fmt.Fprintf(out, "received %d, sent %d, online %d, %s\n", st.Received, st.Sent, st.Online, session.Status())

	case "/sound", "/notify":
		on, err := parseToggle(arg)
		if err != nil {
			log.Warn().Err(err).Msg(cmd)
			return false
		}
		if cmd == "/sound" {
			session.SetSound(on)
		} else {
			session.SetNotifications(on)
		}

	case "/clear":
		if err := session.ClearChat(); err != nil && !errors.Is(err, chat.ErrNotAdmin) {
			log.Warn().Err(err).Msg("clear chat")
		}

	default:
		session.Type(line)
		if err := session.Submit(ctx); err != nil {
			log.Warn().Err(err).Msg("message not sent")
		}
	}

	return false
}
