package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, "sessionid", cfg.Session.CookieName)
	assert.Equal(t, "/usuarios/login/", cfg.Session.LoginURL)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.False(t, cfg.NATS.Enabled)
	assert.False(t, cfg.Elasticsearch.Enabled)
	assert.Equal(t, 3, cfg.Elasticsearch.MaxRetries)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PAGE_SIZE", "25")
	t.Setenv("SESSION_TTL_HOURS", "2")
	t.Setenv("SESSION_COOKIE_SECURE", "true")
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("NATS_ENABLED", "1")
	t.Setenv("ELASTICSEARCH_TIMEOUT", "5s")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.True(t, cfg.Session.Secure)
	assert.Equal(t, 5432, cfg.Database.Port, "invalid ints fall back to the default")
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Elasticsearch.Timeout)
}
