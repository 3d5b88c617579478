// Command chatclient is a terminal client for the chat server.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Anonimus1221/hbuilds-chat/internal/api"
	"github.com/Anonimus1221/hbuilds-chat/internal/chat"
	"github.com/Anonimus1221/hbuilds-chat/internal/render"
)

var rootCmd = &cobra.Command{
	Use:   "chatclient",
	Short: "Terminal client for the chat server",
	RunE:  runClient,
}

var (
	flagServer     string
	flagEmail      string
	flagPassword   string
	flagTranscript string
	flagNoNotify   bool
	flagNoSound    bool
	flagReconnect  int
	flagDebug      bool
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagServer, "server", envOr("CHAT_SERVER", "http://localhost:8080"), "chat server base URL (env CHAT_SERVER)")
	flags.StringVar(&flagEmail, "email", os.Getenv("CHAT_EMAIL"), "account email (env CHAT_EMAIL)")
	flags.StringVar(&flagPassword, "password", os.Getenv("CHAT_PASSWORD"), "account password (env CHAT_PASSWORD)")
	flags.StringVar(&flagTranscript, "transcript", "", "write an HTML transcript to this file on exit")
	flags.BoolVar(&flagNoNotify, "no-notify", false, "disable notifications for new messages")
	flags.BoolVar(&flagNoSound, "no-sound", false, "disable the terminal bell")
	flags.IntVar(&flagReconnect, "reconnect", 5, "reconnect attempts after the connection drops (0 disables)")
	flags.BoolVar(&flagDebug, "debug", false, "enable debug logging")
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute chat client")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// setupLogging sets the level of both the zerolog logger and the slog default
// used by the chat packages.
func setupLogging(w io.Writer, debug bool) {
	zlevel, slevel := zerolog.InfoLevel, slog.LevelInfo
	if debug {
		zlevel, slevel = zerolog.DebugLevel, slog.LevelDebug
	}
	zerolog.SetGlobalLevel(zlevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slevel})))
}

func runClient(cmd *cobra.Command, args []string) error {
	setupLogging(cmd.ErrOrStderr(), flagDebug)

	if flagEmail == "" || flagPassword == "" {
		return errors.New("--email and --password are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	login, err := api.New(flagServer, "").Login(ctx, flagEmail, flagPassword)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	log.Info().Str("user", login.User.Name).Msg("logged in")

	out := cmd.OutOrStdout()
	renderer := render.New(login.User.Name, render.WithInsertHook(func(n render.Node) {
		fmt.Fprintln(out, formatNode(n))
	}))

	session := chat.NewSession(chat.Config{
		BaseURL: flagServer,
		Token:   login.Token,
		User:    login.User,
		Reconnect: chat.ReconnectPolicy{
			MaxRetries: flagReconnect,
			BaseDelay:  time.Second,
			MaxDelay:   30 * time.Second,
		},
	},
		chat.WithRenderer(renderer),
		chat.WithNotifier(chat.NotifierFunc(func(title, body string) error {
			_, err := fmt.Fprintf(out, "(!) %s: %s\n", title, body)
			return err
		})),
		chat.WithSoundPlayer(chat.SoundPlayerFunc(func(chat.Sound) error {
			_, err := io.WriteString(out, "\a")
			return err
		})),
		chat.WithToaster(chat.ToasterFunc(func(msg string) {
			log.Warn().Msg(msg)
		})),
	)
	session.SetNotifications(!flagNoNotify)
	session.SetSound(!flagNoSound)

	if _, err := session.LoadHistory(ctx); err != nil {
		log.Warn().Err(err).Msg("history unavailable")
	}

	if err := session.Connect(ctx); err != nil {
		return err
	}
	defer session.Close()

	runErr := make(chan error, 1)
	go func() { runErr <- session.Run(ctx) }()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(cmd.InOrStdin())
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	err = loop(ctx, session, lines, runErr, out)

	if flagTranscript != "" {
		if werr := writeTranscript(flagTranscript, renderer); werr != nil {
			log.Error().Err(werr).Str("path", flagTranscript).Msg("write transcript")
		} else {
			log.Info().Str("path", flagTranscript).Msg("transcript written")
		}
	}

	return err
}

func loop(ctx context.Context, session *chat.Session, lines <-chan string, runErr <-chan error, out io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-runErr:
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("connection lost: %w", err)
			}
			return nil

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handleLine(ctx, session, line, out); quit {
				return nil
			}
		}
	}
}

func writeTranscript(path string, renderer *render.Renderer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render.Document("Chat transcript", renderer).Render(context.Background(), f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
