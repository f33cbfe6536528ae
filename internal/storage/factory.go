package storage

import (
	"header-rules/internal/config"
)

// NewStorage opens the rule store cfg selects from the backends in registry
func NewStorage(registry *Registry, cfg *config.Config) (Store, error) {
	name, _ := registry.Resolve(cfg.StorageType)

	settings := GenericConfig{"type": name}
	switch name {
	case "file":
		settings["path"] = cfg.SnapshotPath
	case "sqlite":
		settings["path"] = cfg.DatabasePath
	case "postgres":
		settings["url"] = cfg.PostgresURL
		settings["host"] = cfg.PostgresHost
		settings["port"] = cfg.PostgresPort
		settings["database"] = cfg.PostgresDB
		settings["username"] = cfg.PostgresUser
		settings["password"] = cfg.PostgresPassword
		settings["sslmode"] = cfg.PostgresSSLMode
	}

	return registry.Create(name, settings)
}
