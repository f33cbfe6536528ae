package file

import (
	"fmt"

	"header-rules/internal/storage"
)

type Factory struct{}

func (f *Factory) Create(config storage.StorageConfig) (storage.Store, error) {
	cfg, err := toConfig(config)
	if err != nil {
		return nil, err
	}
	store, err := NewStore(cfg)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func toConfig(config storage.StorageConfig) (*Config, error) {
	switch c := config.(type) {
	case *Config:
		return c, nil
	case storage.GenericConfig:
		return &Config{Path: c.String("path")}, nil
	default:
		return nil, fmt.Errorf("invalid config type for file storage")
	}
}
