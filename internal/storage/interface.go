// Package storage loads the rules, variables and settings a conversion pass
// runs against.
//
// A Store produces a Snapshot: the complete, immutable input of one pass.
// Backends register a StorageFactory with a Registry and are created from a
// StorageConfig:
//
//   - file: a YAML or JSON snapshot document (see storage/file)
//   - sqlite: an embedded SQLite database (see storage/sqlite)
//   - postgres: a PostgreSQL database through the pgx driver (see storage/postgres)
//
// Example usage:
//
//	registry := storage.NewRegistry()
//	registry.Register("sqlite", &sqlite.Factory{})
//
//	store, err := registry.Create("sqlite", storage.GenericConfig{"path": "rules.db"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	snapshot, err := store.LoadSnapshot(ctx)
package storage

import (
	"context"
	"time"

	"header-rules/internal/models"
)

// Store is a read-only source of snapshots
type Store interface {
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
	Health(ctx context.Context) error
	Close() error
}

// Writer is implemented by stores that accept edits
type Writer interface {
	PutRule(ctx context.Context, rule models.Rule) error
	DeleteRule(ctx context.Context, id string) error
	PutVariable(ctx context.Context, v models.Variable) error
	DeleteVariable(ctx context.Context, id string) error
	SetSetting(ctx context.Context, key, value string) error
}

// Snapshot is everything a conversion pass reads. Treat it as immutable.
type Snapshot struct {
	Rules         models.RuleCollection `json:"rules"`
	Variables     []models.Variable     `json:"variables"`
	ActiveProfile string                `json:"activeProfile"`
	Settings      models.Settings       `json:"settings"`
	LoadedAt      time.Time             `json:"loadedAt"`
}

// Context builds the variable context for a pass over the snapshot. An empty
// active falls back to the snapshot's active profile.
func (s *Snapshot) Context(active string, req *models.RequestContext) *models.VariableContext {
	if s == nil {
		return &models.VariableContext{ProfileID: active, Request: req}
	}
	vc := models.GroupVariables(s.Variables)
	vc.ProfileID = active
	if vc.ProfileID == "" {
		vc.ProfileID = s.ActiveProfile
	}
	vc.Request = req
	return vc
}

// StorageConfig is the settings a backend is opened with: either the
// backend's own typed config or a GenericConfig
type StorageConfig interface {
	Validate() error
	GetType() string
}

// StorageFactory opens one backend
type StorageFactory interface {
	Create(config StorageConfig) (Store, error)
}

// GenericConfig is a simple map-based implementation of StorageConfig
type GenericConfig map[string]interface{}

func (gc GenericConfig) Validate() error {
	return nil // backends validate their own typed config
}

func (gc GenericConfig) GetType() string {
	if t, ok := gc["type"].(string); ok {
		return t
	}
	return "unknown"
}

// String returns the string stored under key, or ""
func (gc GenericConfig) String(key string) string {
	s, _ := gc[key].(string)
	return s
}
