package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_ISS", "")
	t.Setenv("WS_ORIGINS", "example.com, *.example.com,,")
	t.Setenv("HISTORY_RETENTION", "12h")
	t.Setenv("HISTORY_LIMIT", "not-a-number")
	t.Setenv("SECURE_COOKIES", "true")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, "hbuilds-chat", cfg.JWTIssuer)
	assert.Equal(t, []string{"example.com", "*.example.com"}, cfg.WSOrigins)
	assert.Equal(t, 12*time.Hour, cfg.HistoryRetention)
	assert.Equal(t, 100, cfg.HistoryLimit)
	assert.True(t, cfg.SecureCookies)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
}
