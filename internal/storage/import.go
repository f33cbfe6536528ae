package storage

import (
	"context"
	"fmt"
	"sort"

	"header-rules/internal/models"
)

// Import writes every rule, variable and setting of snapshot into w. Rules are
// written in insertion order so their CreatedAt ordering survives.
func Import(ctx context.Context, w Writer, snapshot *Snapshot) error {
	if snapshot == nil {
		return nil
	}

	for _, rule := range snapshot.Rules.Ordered() {
		if err := w.PutRule(ctx, rule); err != nil {
			return fmt.Errorf("failed to import rule %s: %w", rule.ID, err)
		}
	}
	for _, v := range snapshot.Variables {
		if err := w.PutVariable(ctx, v); err != nil {
			return fmt.Errorf("failed to import variable %s: %w", v.Name, err)
		}
	}

	settings := SettingsMap(snapshot.Settings.WithDefaults(), snapshot.ActiveProfile)
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.SetSetting(ctx, k, settings[k]); err != nil {
			return fmt.Errorf("failed to import setting %s: %w", k, err)
		}
	}
	return nil
}

// VariableID returns v.ID, or a stable id derived from its scope and owner
func VariableID(v models.Variable) string {
	if v.ID != "" {
		return v.ID
	}
	owner := v.ProfileID
	if v.Scope == models.ScopeRule {
		owner = v.RuleID
	}
	if owner == "" {
		return fmt.Sprintf("%s:%s", v.Scope, v.Name)
	}
	return fmt.Sprintf("%s:%s:%s", v.Scope, owner, v.Name)
}
