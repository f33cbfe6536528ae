package postgres

import (
	"fmt"
	"strconv"

	"header-rules/internal/storage"
)

type Factory struct{}

func (f *Factory) Create(config storage.StorageConfig) (storage.Store, error) {
	cfg, err := toConfig(config)
	if err != nil {
		return nil, err
	}
	return NewAdapter(cfg)
}

// toConfig accepts a *Config or a GenericConfig. A "url" entry wins over the
// individual fields.
func toConfig(config storage.StorageConfig) (*Config, error) {
	switch c := config.(type) {
	case *Config:
		return c, nil
	case storage.GenericConfig:
		if u := c.String("url"); u != "" {
			return ParseURL(u)
		}
		port, _ := strconv.Atoi(c.String("port"))
		return &Config{
			Host:     c.String("host"),
			Port:     port,
			Database: c.String("database"),
			Username: c.String("username"),
			Password: c.String("password"),
			SSLMode:  c.String("sslmode"),
		}, nil
	default:
		return nil, fmt.Errorf("invalid config type for PostgreSQL storage")
	}
}
