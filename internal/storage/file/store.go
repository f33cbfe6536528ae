// Package file stores a snapshot as a single YAML or JSON document.
//
//	activeProfile: dev
//	settings:
//	  maxRules: 5000
//	rules:
//	  - id: api-auth
//	    enabled: true
//	    pattern: {domain: api.example.com}
//	    headers:
//	      - {name: Authorization, value: "Bearer ${token}", operation: set}
//	variables:
//	  - {name: token, value: abc123, scope: global, enabled: true}
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"header-rules/internal/common/errors"
	"header-rules/internal/models"
	"header-rules/internal/storage"
)

// document is the on-disk layout
type document struct {
	ActiveProfile string            `json:"activeProfile,omitempty" yaml:"activeProfile,omitempty"`
	Settings      *models.Settings  `json:"settings,omitempty" yaml:"settings,omitempty"`
	Rules         []models.Rule     `json:"rules" yaml:"rules"`
	Variables     []models.Variable `json:"variables" yaml:"variables"`
}

// orderBase stamps rules that carry no creation time so that they keep
// their document order
var orderBase = time.Unix(0, 0).UTC()

type Store struct {
	config *Config
	mu     sync.Mutex
}

func NewStore(config *Config) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid file storage config: %w", err)
	}
	return &Store{config: config}, nil
}

// Path returns the snapshot document path
func (s *Store) Path() string {
	return s.config.Path
}

func (s *Store) isJSON() bool {
	return strings.EqualFold(filepath.Ext(s.config.Path), ".json")
}

// LoadSnapshot reads the document. A missing document is an empty snapshot.
func (s *Store) LoadSnapshot(ctx context.Context) (*storage.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	return toSnapshot(doc)
}

func (s *Store) Health(ctx context.Context) error {
	dir := filepath.Dir(s.config.Path)
	if _, err := os.Stat(dir); err != nil {
		return errors.StorageError("snapshot directory unavailable", err)
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}

// Save replaces the document with snapshot
func (s *Store) Save(ctx context.Context, snapshot *storage.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := snapshot.Settings
	doc := &document{
		ActiveProfile: snapshot.ActiveProfile,
		Settings:      &settings,
		Rules:         snapshot.Rules.Ordered(),
		Variables:     snapshot.Variables,
	}
	return s.write(doc)
}

func (s *Store) PutRule(ctx context.Context, rule models.Rule) error {
	if rule.ID == "" {
		return errors.ValidationError("rule id is required")
	}
	return s.mutate(func(doc *document) error {
		now := time.Now().UTC()
		rule.UpdatedAt = now
		for i, r := range doc.Rules {
			if r.ID == rule.ID {
				if rule.CreatedAt.IsZero() {
					rule.CreatedAt = r.CreatedAt
				}
				doc.Rules[i] = rule
				return nil
			}
		}
		if rule.CreatedAt.IsZero() {
			rule.CreatedAt = now
		}
		doc.Rules = append(doc.Rules, rule)
		return nil
	})
}

func (s *Store) DeleteRule(ctx context.Context, id string) error {
	return s.mutate(func(doc *document) error {
		for i, r := range doc.Rules {
			if r.ID == id {
				doc.Rules = append(doc.Rules[:i], doc.Rules[i+1:]...)
				return nil
			}
		}
		return errors.NotFoundError("rule")
	})
}

func (s *Store) PutVariable(ctx context.Context, v models.Variable) error {
	if err := v.Validate(); err != nil {
		return errors.ValidationError("invalid variable: " + err.Error())
	}
	v.ID = storage.VariableID(v)
	return s.mutate(func(doc *document) error {
		for i, existing := range doc.Variables {
			if storage.VariableID(existing) == v.ID {
				doc.Variables[i] = v
				return nil
			}
		}
		doc.Variables = append(doc.Variables, v)
		return nil
	})
}

func (s *Store) DeleteVariable(ctx context.Context, id string) error {
	return s.mutate(func(doc *document) error {
		for i, v := range doc.Variables {
			if storage.VariableID(v) == id {
				doc.Variables = append(doc.Variables[:i], doc.Variables[i+1:]...)
				return nil
			}
		}
		return errors.NotFoundError("variable")
	})
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	if err := storage.ValidateSetting(key, value); err != nil {
		return err
	}
	return s.mutate(func(doc *document) error {
		current := models.DefaultSettings()
		if doc.Settings != nil {
			current = doc.Settings.WithDefaults()
		}
		values := storage.SettingsMap(current, doc.ActiveProfile)
		values[key] = value

		settings, active, err := storage.ParseSettings(values)
		if err != nil {
			return err
		}
		doc.Settings = &settings
		doc.ActiveProfile = active
		return nil
	})
}

func (s *Store) mutate(fn func(doc *document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.write(doc)
}

func (s *Store) read() (*document, error) {
	data, err := os.ReadFile(s.config.Path)
	if os.IsNotExist(err) {
		return &document{}, nil
	}
	if err != nil {
		return nil, errors.StorageError("failed to read snapshot", err)
	}

	doc := &document{}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	if s.isJSON() {
		err = json.Unmarshal(data, doc)
	} else {
		err = yaml.Unmarshal(data, doc)
	}
	if err != nil {
		return nil, errors.StorageError("failed to parse snapshot", err)
	}
	return doc, nil
}

func (s *Store) write(doc *document) error {
	var (
		data []byte
		err  error
	)
	if s.isJSON() {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = yaml.Marshal(doc)
	}
	if err != nil {
		return errors.StorageError("failed to encode snapshot", err)
	}

	dir := filepath.Dir(s.config.Path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return errors.StorageError("failed to create temp file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.StorageError("failed to write snapshot", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.StorageError("failed to write snapshot", err)
	}
	if err := os.Rename(tmp.Name(), s.config.Path); err != nil {
		return errors.StorageError("failed to replace snapshot", err)
	}
	return nil
}

func toSnapshot(doc *document) (*storage.Snapshot, error) {
	rules := make(models.RuleCollection, len(doc.Rules))
	for i, r := range doc.Rules {
		if _, dup := rules[r.ID]; dup {
			return nil, errors.ValidationError(fmt.Sprintf("duplicate rule id %q", r.ID))
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = orderBase.Add(time.Duration(i) * time.Microsecond)
		}
		rules[r.ID] = r
	}

	settings := models.DefaultSettings()
	if doc.Settings != nil {
		if err := doc.Settings.Validate(); err != nil {
			return nil, errors.ValidationError("invalid settings: " + err.Error())
		}
		settings = doc.Settings.WithDefaults()
	}

	variables := doc.Variables
	if variables == nil {
		variables = []models.Variable{}
	}

	return &storage.Snapshot{
		Rules:         rules,
		Variables:     variables,
		ActiveProfile: doc.ActiveProfile,
		Settings:      settings,
		LoadedAt:      time.Now(),
	}, nil
}
