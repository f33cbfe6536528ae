// Package platform hands platform rules to the host engine.
//
// The host is always updated with a single atomic replace: every rule id it
// currently holds is removed and the full new rule set is added in the same
// call. There is no incremental patching.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"header-rules/internal/models"
)

// Host is the network filtering engine that enforces platform rules
type Host interface {
	// GetRules returns the dynamic rules the host currently enforces
	GetRules(ctx context.Context) ([]models.PlatformRule, error)
	// UpdateRules applies an update atomically
	UpdateRules(ctx context.Context, update models.RuleUpdate) error
}

// MemoryHost keeps the rule set in memory
type MemoryHost struct {
	mu      sync.RWMutex
	rules   map[int]models.PlatformRule
	updates int
}

// NewMemoryHost creates an empty MemoryHost
func NewMemoryHost() *MemoryHost {
	return &MemoryHost{rules: make(map[int]models.PlatformRule)}
}

func (h *MemoryHost) GetRules(ctx context.Context) ([]models.PlatformRule, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return sortedRules(h.rules), nil
}

func (h *MemoryHost) UpdateRules(ctx context.Context, update models.RuleUpdate) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	next, err := applyUpdate(h.rules, update)
	if err != nil {
		return err
	}
	h.rules = next
	h.updates++
	return nil
}

// Updates returns how many updates have been applied
func (h *MemoryHost) Updates() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.updates
}

// FileHost stores the rule set as a JSON array, for hosts that load their
// rules from disk. Writes go through a temporary file and a rename so a
// reader never sees a partial rule set.
type FileHost struct {
	path string
	mu   sync.Mutex
}

// NewFileHost creates a FileHost writing to path
func NewFileHost(path string) *FileHost {
	return &FileHost{path: path}
}

// Path returns the file the rules are written to
func (h *FileHost) Path() string {
	return h.path
}

func (h *FileHost) GetRules(ctx context.Context) ([]models.PlatformRule, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.read()
}

func (h *FileHost) UpdateRules(ctx context.Context, update models.RuleUpdate) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, err := h.read()
	if err != nil {
		return err
	}
	byID := make(map[int]models.PlatformRule, len(current))
	for _, r := range current {
		byID[r.ID] = r
	}

	next, err := applyUpdate(byID, update)
	if err != nil {
		return err
	}
	return h.write(sortedRules(next))
}

func (h *FileHost) read() ([]models.PlatformRule, error) {
	data, err := os.ReadFile(h.path)
	if os.IsNotExist(err) {
		return []models.PlatformRule{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	var rules []models.PlatformRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}
	return rules, nil
}

func (h *FileHost) write(rules []models.PlatformRule) error {
	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}

	dir := filepath.Dir(h.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create rules directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".rules-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write rules: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write rules: %w", err)
	}
	if err := os.Rename(tmp.Name(), h.path); err != nil {
		return fmt.Errorf("failed to replace rules file: %w", err)
	}
	return nil
}

// applyUpdate returns current with update applied. Adding an id that is
// still present after the removals is an error, as it is for the host.
func applyUpdate(current map[int]models.PlatformRule, update models.RuleUpdate) (map[int]models.PlatformRule, error) {
	next := make(map[int]models.PlatformRule, len(current))
	for id, r := range current {
		next[id] = r
	}
	for _, id := range update.RemoveRuleIDs {
		delete(next, id)
	}
	for _, r := range update.AddRules {
		if r.ID <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidRuleID, r.ID)
		}
		if _, exists := next[r.ID]; exists {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateRuleID, r.ID)
		}
		next[r.ID] = r
	}
	return next, nil
}

func sortedRules(rules map[int]models.PlatformRule) []models.PlatformRule {
	out := make([]models.PlatformRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
