// Command loadtest signs up a batch of users, connects them to the chat and
// has each of them send messages, then reports how many messages arrived.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Anonimus1221/hbuilds-chat/internal/api"
	"github.com/Anonimus1221/hbuilds-chat/internal/chat"
)

var rootCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Drive a chat server with simulated users",
	RunE:  runLoadtest,
}

var (
	flagServer   string
	flagUsers    int
	flagMessages int
	flagInterval time.Duration
	flagPassword string
	flagSettle   time.Duration
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagServer, "server", "http://localhost:8080", "chat server base URL")
	// The server allows 5 logins per minute per IP.
	flags.IntVar(&flagUsers, "users", 5, "number of simulated users")
	flags.IntVar(&flagMessages, "messages", 5, "messages sent by each user")
	// The server allows 10 messages per minute per connection.
	flags.DurationVar(&flagInterval, "interval", 6*time.Second, "delay between messages of one user")
	flags.StringVar(&flagPassword, "password", "loadtest-password", "password of the simulated accounts")
	flags.DurationVar(&flagSettle, "settle", 3*time.Second, "time to wait for deliveries after the last send")
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute loadtest")
	}
}

type result struct {
	sent     int
	received int
	failed   int
}

func runLoadtest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions := make([]*chat.Session, 0, flagUsers)
	defer func() {
		for _, s := range sessions {
			_ = s.Close()
		}
	}()

	for i := range flagUsers {
		s, err := connectUser(ctx, i)
		if err != nil {
			return fmt.Errorf("user %d: %w", i, err)
		}
		sessions = append(sessions, s)
		go func() { _ = s.Run(ctx) }()
	}
	log.Info().Int("users", len(sessions)).Msg("all users connected")

	start := time.Now()
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		res result
	)
	for i, s := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range flagMessages {
				if n > 0 {
					select {
					case <-ctx.Done():
						return
					case <-time.After(flagInterval):
					}
				}

				err := s.SendMessage(ctx, fmt.Sprintf("message %d from user %d", n, i))
				mu.Lock()
				if err != nil {
					res.failed++
					log.Warn().Err(err).Int("user", i).Msg("send failed")
				} else {
					res.sent++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	select {
	case <-ctx.Done():
	case <-time.After(flagSettle):
	}

	for _, s := range sessions {
		res.received += s.Stats().Received
	}
	expected := res.sent * len(sessions)

	log.Info().
		Int("sent", res.sent).
		Int("failed", res.failed).
		Int("received", res.received).
		Int("expected", expected).
		Dur("elapsed", time.Since(start)).
		Msg("done")

	if res.received < expected {
		return fmt.Errorf("%d of %d deliveries missing", expected-res.received, expected)
	}
	return nil
}

// connectUser signs up (or reuses) the i-th account and opens its session.
func connectUser(ctx context.Context, i int) (*chat.Session, error) {
	name := fmt.Sprintf("loadtest-%d", i)
	email := name + "@loadtest.local"

	client := api.New(flagServer, "")
	if err := client.Register(ctx, name, email, flagPassword); err != nil {
		var apiErr *api.Error
		if !errors.As(err, &apiErr) {
			return nil, fmt.Errorf("register: %w", err)
		}
		log.Debug().Err(err).Str("user", name).Msg("register skipped")
	}

	login, err := client.Login(ctx, email, flagPassword)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s := chat.NewSession(chat.Config{BaseURL: flagServer, Token: login.Token, User: login.User})
	s.SetNotifications(false)
	s.SetSound(false)
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}
