package profiles

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"header-rules/internal/models"
)

var base = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func rule(id, profile string, enabled bool, age int) models.Rule {
	return models.Rule{
		ID:        id,
		Enabled:   enabled,
		ProfileID: profile,
		Pattern:   models.URLPattern{Domain: "example.com"},
		CreatedAt: base.Add(time.Duration(age) * time.Minute),
	}
}

func ids(rules []models.Rule) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.ID)
	}
	return out
}

func TestSelect_NamedProfile(t *testing.T) {
	rules := models.NewRuleCollection(
		rule("dev-rule", "dev", true, 1),
		rule("prod-rule", "prod", true, 2),
	)

	assert.Equal(t, []string{"dev-rule"}, ids(Select(rules, "dev")))
	assert.Equal(t, []string{"prod-rule"}, ids(Select(rules, "prod")))
}

func TestSelect_Unassigned(t *testing.T) {
	rules := models.NewRuleCollection(rule("free", "", true, 1))

	assert.Equal(t, []string{"free"}, ids(Select(rules, Unassigned)))
	assert.Equal(t, []string{"free"}, ids(Select(rules, "")))
	assert.Empty(t, Select(rules, "dev"), "unassigned rules are not a fallback for named profiles")
}

func TestSelect_ViewsAreExclusive(t *testing.T) {
	rules := models.NewRuleCollection(
		rule("a", "", true, 1),
		rule("b", "dev", true, 2),
		rule("c", "", false, 3),
		rule("d", "dev", false, 4),
		rule("e", "prod", true, 5),
	)

	tests := []struct {
		active string
		want   []string
	}{
		{Unassigned, []string{"a"}},
		{"dev", []string{"b"}},
		{"prod", []string{"e"}},
		{"staging", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.active, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Select(rules, tt.active)))
		})
	}
}

func TestSelect_CollectionOrder(t *testing.T) {
	rules := models.NewRuleCollection(
		rule("third", "dev", true, 3),
		rule("first", "dev", true, 1),
		rule("second", "dev", true, 2),
	)

	assert.Equal(t, []string{"first", "second", "third"}, ids(Select(rules, "dev")))
}

func TestProfiles(t *testing.T) {
	rules := models.NewRuleCollection(
		rule("a", "dev", true, 1),
		rule("b", "", true, 2),
		rule("c", "dev", false, 3),
		rule("d", "prod", true, 4),
	)

	assert.Equal(t, []string{"dev", Unassigned, "prod"}, Profiles(rules))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, Unassigned, Normalize(""))
	assert.Equal(t, Unassigned, Normalize("  "))
	assert.Equal(t, "dev", Normalize(" dev "))
	assert.True(t, IsUnassigned(Unassigned))
	assert.False(t, IsUnassigned("dev"))
}
