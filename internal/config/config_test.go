package config_test

import (
	"testing"
	"time"

	"tradepulse/backend/internal/config"

	"gotest.tools/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := config.Load()
	assert.NilError(t, err)

	assert.Equal(t, cfg.Server.Address(), "0.0.0.0:8080")
	assert.Equal(t, cfg.Server.IsDevelopment(), true)
	assert.Equal(t, cfg.Redis.Address(), "localhost:6379")

	assert.Equal(t, cfg.JWT.AccessTokenExpire, 15*time.Minute)
	assert.Equal(t, cfg.JWT.RefreshTokenExpire, 7*24*time.Hour)

	assert.Equal(t, cfg.Engine.APIURL, "http://localhost:8000")
	assert.Equal(t, cfg.Engine.WSURL, "ws://localhost:8000/ws")
	assert.Equal(t, cfg.Engine.RequestTimeout, 15*time.Second)

	assert.Equal(t, cfg.Sync.FeedCap, 50)
	assert.Equal(t, cfg.Sync.BalanceRefreshInterval, 30*time.Second)
	assert.Equal(t, cfg.Sync.FullRefreshInterval, 2*time.Minute)
	assert.Equal(t, cfg.Sync.StatusSampleInterval, 3*time.Second)
	assert.Equal(t, cfg.Sync.ReconnectBaseDelay, 3*time.Second)
	assert.Equal(t, cfg.Sync.ReconnectGrowthFactor, 1.5)
	assert.Equal(t, cfg.Sync.ReconnectMaxAttempts, 5)

	assert.Equal(t, cfg.RateLimit.RequestsPerMinute, 120)
	assert.Equal(t, cfg.RateLimit.SessionRequestsPerMinute, 5)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("SERVER_ENV", "production")
	t.Setenv("SYNC_BALANCE_REFRESH_SECONDS", "45")
	t.Setenv("WS_RECONNECT_BASE_DELAY_MS", "500")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example,http://b.example")

	cfg, err := config.Load()
	assert.NilError(t, err)

	assert.Equal(t, cfg.Server.Port, "9999")
	assert.Equal(t, cfg.Server.IsProduction(), true)
	assert.Equal(t, cfg.Sync.BalanceRefreshInterval, 45*time.Second)
	assert.Equal(t, cfg.Sync.ReconnectBaseDelay, 500*time.Millisecond)
	assert.Equal(t, len(cfg.CORS.AllowedOrigins), 2)
	assert.Equal(t, cfg.CORS.AllowedOrigins[1], "http://b.example")
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := config.Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoad_RejectsBadSyncValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	t.Setenv("SYNC_FEED_CAP", "0")
	_, err := config.Load()
	assert.ErrorContains(t, err, "SYNC_FEED_CAP")

	t.Setenv("SYNC_FEED_CAP", "50")
	t.Setenv("WS_RECONNECT_GROWTH_FACTOR", "0.5")
	_, err = config.Load()
	assert.ErrorContains(t, err, "WS_RECONNECT_GROWTH_FACTOR")
}
