package main

import (
	"fmt"
	"net"
	"net/url"

	"github.com/caarlos0/env/v11"
)

// Config is the process-wide database and server configuration, resolved
// once at startup from environment variables.
type Config struct {
	Name     string `env:"DB_NAME" envDefault:"practice_db"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"password123"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"prefer"`

	// Bearer tokens accepted by the HTTP transport. Empty disables auth.
	AllowedTokens []string `env:"MCP_ALLOWED_TOKENS" envSeparator:","`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}
	return cfg, nil
}

// DSN assembles the postgres connection URL. User and password are
// path-escaped so credentials with reserved characters survive.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		url.PathEscape(c.User), url.PathEscape(c.Password),
		net.JoinHostPort(c.Host, c.Port), c.Name, c.SSLMode)
}
