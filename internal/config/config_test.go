package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_DSN", "host=localhost dbname=crm")
	t.Setenv("SESSION_SECRET", "s3cret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	// empty values fall back to defaults
	for _, k := range []string{"SERVER_PORT", "DB_CONNECT_ATTEMPTS", "SESSION_STORE", "LOG_LEVEL", "ADMIN_USERNAME", "ADMIN_PASSWORD", "METRICS_PORT", "SESSION_SECURE"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 10, cfg.DBConnectAttempts)
	assert.Equal(t, SessionStoreCookie, cfg.SessionStore)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.SeedAdmin())
	assert.Equal(t, "9090", cfg.MetricsPort)
	assert.False(t, cfg.SessionSecure)
}

func TestLoadMetricsAndCookieSettings(t *testing.T) {
	setRequired(t)
	t.Setenv("METRICS_PORT", "off")
	t.Setenv("SESSION_SECURE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.MetricsPort)
	assert.True(t, cfg.SessionSecure)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("DB_CONNECT_ATTEMPTS", "3")
	t.Setenv("SESSION_STORE", " Redis ")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("ADMIN_USERNAME", "root")
	t.Setenv("ADMIN_PASSWORD", "changeme")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, 3, cfg.DBConnectAttempts)
	assert.Equal(t, SessionStoreRedis, cfg.SessionStore)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.True(t, cfg.SeedAdmin())
}

func TestLoadRejectsMissingRequired(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("SESSION_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DSN")
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown store": {"SESSION_STORE": "memcached"},
		"half admin":    {"ADMIN_USERNAME": "root", "ADMIN_PASSWORD": ""},
		"zero attempts": {"DB_CONNECT_ATTEMPTS": "0"},
		"shared port":   {"SERVER_PORT": "8080", "METRICS_PORT": "8080"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
