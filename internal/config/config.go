// Package config loads server settings from the environment.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	JWTIssuer   string
	JWTExpiry   time.Duration

	// SecureCookies marks the jwt cookie as HTTPS only.
	SecureCookies bool

	NATSURL      string
	NATSCred     string
	NATSUser     string
	NATSPassword string

	// WSOrigins are the origin patterns allowed to open a websocket. Empty
	// accepts any origin.
	WSOrigins []string

	HistoryRetention time.Duration
	HistoryLimit     int
}

// Load reads an optional .env file and then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("failed to load .env file: %+v", err)
	}

	return &Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DB_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTIssuer:        getEnv("JWT_ISS", "hbuilds-chat"),
		JWTExpiry:        getEnvDuration("JWT_EXPIRY", 24*time.Hour),
		SecureCookies:    getEnvBool("SECURE_COOKIES", false),
		NATSURL:          os.Getenv("NATS_URL"),
		NATSCred:         os.Getenv("NATS_CRED"),
		NATSUser:         os.Getenv("NATS_USER"),
		NATSPassword:     os.Getenv("NATS_PASSWORD"),
		WSOrigins:        getEnvList("WS_ORIGINS"),
		HistoryRetention: getEnvDuration("HISTORY_RETENTION", 24*time.Hour),
		HistoryLimit:     getEnvInt("HISTORY_LIMIT", 100),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
