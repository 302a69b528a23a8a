package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("JWT_EXPIRATION", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, time.Hour, cfg.JWTExpiration)
	assert.Equal(t, 256, cfg.WSSendBuffer)
	assert.Equal(t, time.Minute, cfg.PresenceTTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "MONGO")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("NATS_ENABLED", "true")
	t.Setenv("WS_PING_INTERVAL", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://chat.example.com, https://admin.example.com")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, StoreMongo, cfg.StoreBackend)
	assert.True(t, cfg.NATSEnabled)
	assert.Equal(t, 5*time.Second, cfg.WSPingInterval)
	assert.Equal(t, []string{"https://chat.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
	require.NoError(t, cfg.Validate())
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("REDIS_ENABLED", "maybe")
	t.Setenv("RATE_LIMIT_WINDOW", "soon")

	cfg := Load()

	assert.Equal(t, 0, cfg.RedisDB)
	assert.False(t, cfg.RedisEnabled)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
}

func TestValidate(t *testing.T) {
	cfg := &Config{StoreBackend: StoreMongo, JWTSecret: "s", WSSendBuffer: 1}
	assert.ErrorContains(t, cfg.Validate(), "MONGO_URI")

	cfg = &Config{StoreBackend: "postgres", JWTSecret: "s", WSSendBuffer: 1}
	assert.ErrorContains(t, cfg.Validate(), "unknown STORE_BACKEND")

	cfg = &Config{StoreBackend: StoreMemory, JWTSecret: "", WSSendBuffer: 1}
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")

	cfg = &Config{StoreBackend: StoreMemory, JWTSecret: "s", WSSendBuffer: 1, RedisEnabled: true, PresenceTTL: time.Millisecond}
	assert.ErrorContains(t, cfg.Validate(), "PRESENCE_TTL")
}
