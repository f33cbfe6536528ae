package postgres

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
)

const (
	defaultPort    = 5432
	defaultSSLMode = "prefer"
)

var sslModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Config locates the PostgreSQL rule store
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
}

// Validate fills the port and SSL mode defaults and checks the rest
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("PostgreSQL host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("PostgreSQL database name is required")
	}
	if c.Username == "" {
		return fmt.Errorf("PostgreSQL username is required")
	}
	if c.Port <= 0 {
		c.Port = defaultPort
	}
	if c.SSLMode == "" {
		c.SSLMode = defaultSSLMode
	}
	if !sslModes[c.SSLMode] {
		return fmt.Errorf("PostgreSQL sslmode %q is not supported", c.SSLMode)
	}
	return nil
}

func (c *Config) GetType() string {
	return "postgres"
}

// GetConnectionString returns a postgres:// URL understood by pgx
func (c *Config) GetConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	} else {
		u.User = url.User(c.Username)
	}
	return u.String()
}

// ParseURL reads a postgres:// or postgresql:// URL. pgx checks the syntax
// and parameters; fields it leaves empty take the usual defaults.
func ParseURL(connStr string) (*Config, error) {
	u, err := url.Parse(connStr)
	if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		return nil, fmt.Errorf("invalid PostgreSQL URL: expected postgres://user@host/db")
	}
	if strings.TrimPrefix(u.Path, "/") == "" {
		return nil, fmt.Errorf("invalid PostgreSQL URL: database name is missing")
	}

	parsed, err := pgx.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PostgreSQL URL: %w", err)
	}

	config := &Config{
		Host:     parsed.Host,
		Port:     int(parsed.Port),
		Database: parsed.Database,
		Username: parsed.User,
		Password: parsed.Password,
		SSLMode:  u.Query().Get("sslmode"),
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
