package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Anonimus1221/hbuilds-chat/internal"
	ratelimiter "github.com/Anonimus1221/hbuilds-chat/internal/rate_limiter"
	ws "github.com/Anonimus1221/hbuilds-chat/internal/websocket"
)

// Deps are the collaborators of the HTTP routes.
type Deps struct {
	Hub      *ws.Hub
	Users    UserStore
	Messages MessageStore
	Health   Pinger
	Tokens   Tokens
	History  History
	Origins  []string

	LoginLimiter    *ratelimiter.IPRateLimiter
	RegisterLimiter *ratelimiter.IPRateLimiter
}

// DefaultLimiters returns the login (5 per minute) and registration (3 per
// hour) limiters.
func DefaultLimiters() (login, register *ratelimiter.IPRateLimiter) {
	login = ratelimiter.NewIPRateLimiter(5, time.Minute, ratelimiter.CleanupOpts{
		TTL:      10 * time.Minute,
		Interval: time.Minute,
	})
	register = ratelimiter.NewIPRateLimiter(3, time.Hour, ratelimiter.CleanupOpts{
		TTL:      2 * time.Hour,
		Interval: 10 * time.Minute,
	})
	return login, register
}

// Routes builds the server router.
func Routes(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", ServeHealth(d.Health))

	r.Group(func(r chi.Router) {
		if d.LoginLimiter != nil {
			r.Use(d.LoginLimiter.Middleware)
		}
		r.Post("/auth/login", ServeLogin(d.Users, d.Tokens))
	})
	r.Group(func(r chi.Router) {
		if d.RegisterLimiter != nil {
			r.Use(d.RegisterLimiter.Middleware)
		}
		r.Post("/register", ServeRegister(d.Users))
	})
	r.Post("/auth/logout", ServeLogout(d.Tokens))

	r.Group(func(r chi.Router) {
		r.Use(internal.Middleware(d.Tokens.Secret))
		r.Post("/auth/refresh", RefreshToken(d.Tokens))
		r.Get("/api/chat/messages", ServeMessages(d.Messages, d.History))
		r.Get("/chat", ServeChat(d.Users, d.Messages, d.History))
		r.Get("/ws", ServeWs(d.Hub, d.Users, d.Origins))
	})

	return r
}
