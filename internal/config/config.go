package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	SessionStoreCookie = "cookie"
	SessionStoreRedis  = "redis"
)

type Config struct {
	DBDSN             string
	DBConnectAttempts int
	ServerPort        string
	MetricsPort       string
	GinMode           string
	LogLevel          string

	SessionSecret string
	SessionStore  string
	SessionSecure bool
	RedisAddr     string
	RedisPassword string

	AdminUsername string
	AdminPassword string
}

// Load reads .env (when present) and the process environment. METRICS_PORT=off disables the
// metrics listener.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("METRICS_PORT", "9090")
	v.SetDefault("SESSION_SECURE", false)
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_CONNECT_ATTEMPTS", 10)
	v.SetDefault("SESSION_STORE", SessionStoreCookie)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.AutomaticEnv()

	cfg := &Config{
		DBDSN:             v.GetString("DB_DSN"),
		DBConnectAttempts: v.GetInt("DB_CONNECT_ATTEMPTS"),
		ServerPort:        v.GetString("SERVER_PORT"),
		MetricsPort:       strings.TrimSpace(v.GetString("METRICS_PORT")),
		GinMode:           v.GetString("GIN_MODE"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		SessionSecret:     v.GetString("SESSION_SECRET"),
		SessionStore:      strings.ToLower(strings.TrimSpace(v.GetString("SESSION_STORE"))),
		SessionSecure:     v.GetBool("SESSION_SECURE"),
		RedisAddr:         v.GetString("REDIS_ADDR"),
		RedisPassword:     v.GetString("REDIS_PASSWORD"),
		AdminUsername:     strings.TrimSpace(v.GetString("ADMIN_USERNAME")),
		AdminPassword:     v.GetString("ADMIN_PASSWORD"),
	}

	if strings.EqualFold(cfg.MetricsPort, "off") {
		cfg.MetricsPort = ""
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.DBDSN == "" {
		errs = append(errs, errors.New("DB_DSN is not set"))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is not set"))
	}
	if c.DBConnectAttempts < 1 {
		errs = append(errs, fmt.Errorf("DB_CONNECT_ATTEMPTS must be positive, got %d", c.DBConnectAttempts))
	}
	switch c.SessionStore {
	case SessionStoreCookie:
	case SessionStoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis session store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore))
	}
	if c.MetricsPort != "" && c.MetricsPort == c.ServerPort {
		errs = append(errs, errors.New("METRICS_PORT must differ from SERVER_PORT"))
	}
	if (c.AdminUsername == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_USERNAME and ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}

// SeedAdmin reports whether an admin account should be ensured at startup.
func (c *Config) SeedAdmin() bool {
	return c.AdminUsername != "" && c.AdminPassword != ""
}
