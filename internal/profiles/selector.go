// Package profiles decides which rules apply under the active profile.
//
// Assignment is exact-match. The unassigned pseudo-profile sees only rules
// without a profile, and a named profile sees only its own rules. The two
// views are never combined.
package profiles

import (
	"strings"

	"header-rules/internal/models"
)

// Unassigned is the pseudo-profile holding rules without a profile
const Unassigned = "unassigned"

// Normalize maps an empty or blank profile id to Unassigned
func Normalize(active string) string {
	active = strings.TrimSpace(active)
	if active == "" {
		return Unassigned
	}
	return active
}

// IsUnassigned reports whether active selects the unassigned view
func IsUnassigned(active string) bool {
	return Normalize(active) == Unassigned
}

// Applies reports whether rule is selected under active. Disabled rules never
// apply.
func Applies(rule models.Rule, active string) bool {
	if !rule.Enabled {
		return false
	}
	if IsUnassigned(active) {
		return rule.ProfileID == ""
	}
	return rule.ProfileID == Normalize(active)
}

// Select returns the enabled rules of the active profile in collection order
func Select(rules models.RuleCollection, active string) []models.Rule {
	selected := make([]models.Rule, 0, len(rules))
	for _, rule := range rules.Ordered() {
		if Applies(rule, active) {
			selected = append(selected, rule)
		}
	}
	return selected
}

// Profiles lists the distinct profile ids referenced by rules, in collection
// order. Unassigned is included when at least one rule has no profile.
func Profiles(rules models.RuleCollection) []string {
	seen := make(map[string]bool)
	var out []string
	for _, rule := range rules.Ordered() {
		id := Normalize(rule.ProfileID)
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
