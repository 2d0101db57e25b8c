package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("PORT", "")
	t.Setenv("SEND_DELAY", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, time.Second, cfg.SendDelay)
	assert.Equal(t, 2*time.Second, cfg.FormDelay)
	assert.Equal(t, "!fail", cfg.FailMarker)
}

func TestLoadDurationsAndWhitelist(t *testing.T) {
	t.Setenv("SEND_DELAY", "250ms")
	t.Setenv("DEFER_LAG", "not-a-duration")
	t.Setenv("RATE_LIMIT_WHITELIST", " 10.0.0.1, ,192.168.0.0/16 ")

	cfg := Load()
	assert.Equal(t, 250*time.Millisecond, cfg.SendDelay)
	assert.Equal(t, 150*time.Millisecond, cfg.DeferLag)
	assert.Equal(t, []string{"10.0.0.1", "192.168.0.0/16"}, cfg.RateLimitWhitelist)
}

func TestLoadProductionRequiresStores(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "")
	assert.Panics(t, func() { Load() })
}
