package platform

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"header-rules/internal/common/logging"
	"header-rules/internal/models"
)

func platformRules(ids ...int) []models.PlatformRule {
	out := make([]models.PlatformRule, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.PlatformRule{
			ID:       id,
			Priority: 1,
			Condition: models.PlatformCondition{
				URLFilter:     "*://example.com/*",
				ResourceTypes: []string{"main_frame"},
			},
			Action: models.PlatformAction{
				Type:           models.ActionModifyHeaders,
				RequestHeaders: []models.PlatformHeader{{Header: "X-Id", Operation: "set", Value: "v"}},
			},
		})
	}
	return out
}

func ruleIDs(rules []models.PlatformRule) []int {
	out := make([]int, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.ID)
	}
	return out
}

func TestSyncer_ReplacesAll(t *testing.T) {
	ctx := context.Background()

	hosts := map[string]Host{
		"memory": NewMemoryHost(),
		"file":   NewFileHost(filepath.Join(t.TempDir(), "out", "rules.json")),
	}

	for name, host := range hosts {
		t.Run(name, func(t *testing.T) {
			s := NewSyncer(host, logging.NewNopLogger())

			update, err := s.Apply(ctx, platformRules(1, 2, 3))
			require.NoError(t, err)
			assert.Empty(t, update.RemoveRuleIDs)

			update, err = s.Apply(ctx, platformRules(1, 2))
			require.NoError(t, err)
			assert.ElementsMatch(t, []int{1, 2, 3}, update.RemoveRuleIDs)

			got, err := host.GetRules(ctx)
			require.NoError(t, err)
			assert.Equal(t, []int{1, 2}, ruleIDs(got))

			update, err = s.Apply(ctx, nil)
			require.NoError(t, err)
			assert.NotNil(t, update.AddRules)

			got, err = host.GetRules(ctx)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestMemoryHost_RejectsBadUpdates(t *testing.T) {
	ctx := context.Background()
	host := NewMemoryHost()
	require.NoError(t, host.UpdateRules(ctx, models.RuleUpdate{AddRules: platformRules(1)}))

	err := host.UpdateRules(ctx, models.RuleUpdate{AddRules: platformRules(1)})
	assert.True(t, errors.Is(err, ErrDuplicateRuleID))

	err = host.UpdateRules(ctx, models.RuleUpdate{AddRules: platformRules(0)})
	assert.True(t, errors.Is(err, ErrInvalidRuleID))

	// a failed update leaves the rule set untouched
	got, _ := host.GetRules(ctx)
	assert.Equal(t, []int{1}, ruleIDs(got))
	assert.Equal(t, 1, host.Updates())
}

func TestFileHost_WritesHostShape(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rules.json")
	host := NewFileHost(path)

	_, err := NewSyncer(host, logging.NewNopLogger()).Apply(ctx, platformRules(2, 1))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 2)
	assert.Equal(t, float64(1), raw[0]["id"])
	assert.Equal(t, "modifyHeaders", raw[0]["action"].(map[string]interface{})["type"])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestFileHost_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewSyncer(NewFileHost(path), logging.NewNopLogger()).Apply(context.Background(), platformRules(1))
	assert.Error(t, err)
}
