package platform

import (
	"context"
	"errors"
	"fmt"

	"header-rules/internal/common/logging"
	"header-rules/internal/models"
)

var (
	// ErrInvalidRuleID is returned for a rule id that is not a positive integer
	ErrInvalidRuleID = errors.New("invalid platform rule id")
	// ErrDuplicateRuleID is returned when an update adds an id the host already has
	ErrDuplicateRuleID = errors.New("duplicate platform rule id")
)

// Syncer replaces the host's rule set
type Syncer struct {
	host   Host
	logger logging.Logger
}

// NewSyncer creates a Syncer for host
func NewSyncer(host Host, logger logging.Logger) *Syncer {
	if logger == nil {
		logger = logging.Component("platform")
	}
	return &Syncer{host: host, logger: logger}
}

// Host returns the host the syncer writes to
func (s *Syncer) Host() Host {
	return s.host
}

// Apply replaces every rule the host holds with rules in one update
func (s *Syncer) Apply(ctx context.Context, rules []models.PlatformRule) (models.RuleUpdate, error) {
	existing, err := s.host.GetRules(ctx)
	if err != nil {
		return models.RuleUpdate{}, fmt.Errorf("failed to read host rules: %w", err)
	}

	update := models.RuleUpdate{
		RemoveRuleIDs: make([]int, 0, len(existing)),
		AddRules:      rules,
	}
	if update.AddRules == nil {
		update.AddRules = []models.PlatformRule{}
	}
	for _, r := range existing {
		update.RemoveRuleIDs = append(update.RemoveRuleIDs, r.ID)
	}

	if err := s.host.UpdateRules(ctx, update); err != nil {
		return update, fmt.Errorf("failed to update host rules: %w", err)
	}

	s.logger.Info("Host rules replaced",
		logging.Int("removed", len(update.RemoveRuleIDs)),
		logging.Int("added", len(update.AddRules)),
	)
	return update, nil
}
