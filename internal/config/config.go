package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the Ana server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Webhook  WebhookConfig
	Review   ReviewConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// WebhookConfig configures delivery to the Tod endpoint. Token, when set, is
// sent as a bearer Authorization header on every delivery.
type WebhookConfig struct {
	Endpoint string
	Secret   string
	Token    string
	Timeout  time.Duration
	Retries  int
}

type ReviewConfig struct {
	BotLogin string
}

// AuthConfig carries the bcrypt hash API requests must match. An empty hash
// disables authentication.
type AuthConfig struct {
	APITokenHash string
}

var validEnvs = map[string]bool{
	"development": true,
	"production":  true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("ANA_PORT", 8080),
			Env:  envString("ANA_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Webhook: WebhookConfig{
			Endpoint: envString("TOD_WEBHOOK_ENDPOINT", "http://localhost:3001/webhook/ana"),
			Secret:   envString("ANA_WEBHOOK_SECRET", "dev-secret-key"),
			Token:    os.Getenv("TOD_WEBHOOK_TOKEN"),
			Timeout:  envDurationMillis("WEBHOOK_TIMEOUT", 30*time.Second),
			Retries:  envInt("WEBHOOK_RETRIES", 2),
		},
		Review: ReviewConfig{
			BotLogin: envString("ANA_BOT_LOGIN", "cursor"),
		},
		Auth: AuthConfig{
			APITokenHash: os.Getenv("ANA_API_TOKEN_HASH"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if !validEnvs[c.Server.Env] {
		return fmt.Errorf("ANA_ENV must be development or production, got %q", c.Server.Env)
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Webhook.Endpoint == "" {
		return fmt.Errorf("TOD_WEBHOOK_ENDPOINT is required")
	}
	if !strings.HasPrefix(c.Webhook.Endpoint, "http://") && !strings.HasPrefix(c.Webhook.Endpoint, "https://") {
		return fmt.Errorf("TOD_WEBHOOK_ENDPOINT must start with http:// or https://, got %q", c.Webhook.Endpoint)
	}
	if c.Webhook.Retries < 0 {
		return fmt.Errorf("WEBHOOK_RETRIES must not be negative, got %d", c.Webhook.Retries)
	}

	if c.Server.Env == "production" && c.Webhook.Secret == "dev-secret-key" {
		return fmt.Errorf("ANA_WEBHOOK_SECRET must be set in production")
	}

	return nil
}

// IsProduction reports whether the server runs with production behavior,
// notably real HMAC webhook signatures.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// envDurationMillis reads a plain millisecond count, matching how webhook
// timeouts are conventionally configured by callers.
func envDurationMillis(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(ms) * time.Millisecond
}
