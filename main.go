// Package main our entry point.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Anonimus1221/hbuilds-chat/internal/broker"
	"github.com/Anonimus1221/hbuilds-chat/internal/config"
	"github.com/Anonimus1221/hbuilds-chat/internal/database"
	"github.com/Anonimus1221/hbuilds-chat/internal/handler"
	ws "github.com/Anonimus1221/hbuilds-chat/internal/websocket"
)

const purgeInterval = time.Hour

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetOutput(os.Stdout)

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("Starting application...")

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	// Init DB
	log.Println("Initializing Database connection...")

	if cfg.DatabaseURL == "" {
		log.Fatal("DB_URL environment variable is not set")
	}

	dbConn, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("could not connect to the postgresql database: %v", err)
	}

	if err := database.Migrate(dbConn); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	dbQueries := database.New(dbConn)

	// Init broker. NATS is optional; a single instance fans out in process.
	var (
		msgBroker broker.Broker = broker.NewLocal()
		natsConn  *nats.Conn
	)
	if cfg.NATSURL != "" {
		log.Println("Initializing NATS connection...")

		var natsCredentials []nats.Option
		if cfg.NATSCred != "" {
			natsCredentials = append(natsCredentials, nats.UserCredentials(cfg.NATSCred))
		} else if cfg.NATSUser != "" && cfg.NATSPassword != "" {
			natsCredentials = append(natsCredentials, nats.UserInfo(cfg.NATSUser, cfg.NATSPassword))
		}
		natsCredentials = append(natsCredentials, nats.Timeout(5*time.Second))

		natsConn, err = nats.Connect(cfg.NATSURL, natsCredentials...)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}

		js, err := jetstream.New(natsConn)
		if err != nil {
			log.Fatalf("failed to create jetstream instance: %v", err)
		}

		msgBroker, err = broker.NewJetStream(ctx, js)
		if err != nil {
			log.Fatalf("%v", err)
		}
	}

	// hub.Run is our central hub that is always listening for client related events.
	hub := ws.NewHub(dbQueries, msgBroker)
	go hub.Run(ctx)

	history := handler.History{Retention: cfg.HistoryRetention, Limit: cfg.HistoryLimit}
	go history.RunPurge(ctx, dbQueries, purgeInterval)

	loginLimiter, registerLimiter := handler.DefaultLimiters()
	defer loginLimiter.Cancel()
	defer registerLimiter.Cancel()

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       30 * time.Second,
		Handler: handler.Routes(handler.Deps{
			Hub:      hub,
			Users:    dbQueries,
			Messages: dbQueries,
			Health:   dbConn,
			Tokens: handler.Tokens{
				Secret: cfg.JWTSecret,
				Issuer: cfg.JWTIssuer,
				Expiry: cfg.JWTExpiry,
				Secure: cfg.SecureCookies,
			},
			History:         history,
			Origins:         cfg.WSOrigins,
			LoginLimiter:    loginLimiter,
			RegisterLimiter: registerLimiter,
		}),
	}

	go func() {
		log.Printf("Server starting at 0.0.0.0:%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutdown signal received; shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println(err)
	}

	// Drain NATS connection.
	if natsConn != nil {
		if err := natsConn.Drain(); err != nil {
			log.Printf("couldn't drain NATS conn: %+v", err)
		}
	}

	// Close DB connection.
	dbConn.Close()

	log.Println("Server stopped")
}
