package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the app-view
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Webhook  WebhookConfig  `toml:"webhook"`
	Session  SessionConfig  `toml:"session"`
	ATProto  ATProtoConfig  `toml:"atproto"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	ReadTimeout  int    `toml:"read_timeout"`
	WriteTimeout int    `toml:"write_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"ssl_mode"`
}

// WebhookConfig holds ingestion endpoint settings. When Secret is empty
// the endpoint accepts unauthenticated deliveries.
type WebhookConfig struct {
	Secret string `toml:"secret"`
}

// SessionConfig holds local session token settings
type SessionConfig struct {
	JWTSecret       string `toml:"jwt_secret"`
	ExpirationHours int    `toml:"expiration_hours"`
}

// ATProtoConfig holds the remote endpoints the app-view talks to
type ATProtoConfig struct {
	PDSURL     string `toml:"pds_url"`
	BskyAPIURL string `toml:"bsky_api_url"`
}

// Load loads configuration from TOML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.SetDefaults()

	return &config, nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// DatabaseURL returns the PostgreSQL connection URL
func (c *DatabaseConfig) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// SetDefaults sets default values for config
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30
	}
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.User == "" {
		c.Database.User = "postgres"
	}
	if c.Database.Database == "" {
		c.Database.Database = "appview"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Webhook.Secret == "" {
		c.Webhook.Secret = os.Getenv("WEBHOOK_SECRET")
	}
	if c.Session.JWTSecret == "" {
		c.Session.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if c.Session.ExpirationHours == 0 {
		c.Session.ExpirationHours = 24 * 7
	}
	if c.ATProto.PDSURL == "" {
		c.ATProto.PDSURL = "https://bsky.social"
	}
	if c.ATProto.BskyAPIURL == "" {
		c.ATProto.BskyAPIURL = "https://public.api.bsky.app"
	}
}
