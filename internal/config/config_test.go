package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"APP_PORT", "TOKEN_TTL", "REDEEM_PER_MINUTE", "ALLOWED_REDIRECTS", "GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.RedeemPerMinute)
	assert.Empty(t, cfg.AllowedRedirects)
	assert.False(t, cfg.GoogleEnabled())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("TOKEN_TTL", "15m")
	t.Setenv("REDEEM_PER_MINUTE", "3")
	t.Setenv("ALLOWED_REDIRECTS", "http://127.0.0.1:7777/callback, ,https://money42.example/app")
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")

	cfg := LoadConfig()

	assert.Equal(t, "9000", cfg.AppPort)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 3, cfg.RedeemPerMinute)
	assert.Equal(t, []string{"http://127.0.0.1:7777/callback", "https://money42.example/app"}, cfg.AllowedRedirects)
	assert.True(t, cfg.GoogleEnabled())
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "3306", DBName: "money42"}
	assert.Equal(t, "u:p@tcp(db:3306)/money42?parseTime=true", cfg.DSN())
}

func TestLoadConfig_BadNumbersFallBack(t *testing.T) {
	t.Setenv("REDEEM_BURST", "lots")
	t.Setenv("BALANCE_CACHE_TTL", "-5s")

	cfg := LoadConfig()

	assert.Equal(t, 5, cfg.RedeemBurst)
	assert.Equal(t, 60*time.Second, cfg.BalanceCacheTTL)
}
