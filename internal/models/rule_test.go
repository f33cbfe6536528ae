package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleCollection_Ordered(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rc := NewRuleCollection(
		Rule{ID: "c", CreatedAt: base.Add(2 * time.Minute)},
		Rule{ID: "b", CreatedAt: base},
		Rule{ID: "a", CreatedAt: base},
		Rule{ID: "d", CreatedAt: base.Add(time.Minute)},
	)

	var ids []string
	for _, r := range rc.Ordered() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a", "b", "d", "c"}, ids)
}

func TestRule_EffectivePriority(t *testing.T) {
	assert.Equal(t, 1, Rule{}.EffectivePriority())
	assert.Equal(t, 1, Rule{Priority: -3}.EffectivePriority())
	assert.Equal(t, 7, Rule{Priority: 7}.EffectivePriority())
}

func TestHeaderEntry_TargetOrDefault(t *testing.T) {
	assert.Equal(t, TargetRequest, HeaderEntry{}.TargetOrDefault())
	assert.Equal(t, TargetResponse, HeaderEntry{Target: TargetResponse}.TargetOrDefault())
}

func TestRule_Validate(t *testing.T) {
	valid := Rule{
		ID:      "r1",
		Pattern: URLPattern{Domain: "example.com"},
		Headers: []HeaderEntry{
			{Name: "X-Env", Value: "dev", Operation: OperationSet},
			{Name: "Cookie", Operation: OperationRemove},
		},
	}
	require.NoError(t, valid.Validate())

	t.Run("missing domain", func(t *testing.T) {
		r := valid
		r.Pattern = URLPattern{}
		assert.Error(t, r.Validate())
	})

	t.Run("set without value", func(t *testing.T) {
		r := valid
		r.Headers = []HeaderEntry{{Name: "X-Env", Operation: OperationSet}}
		assert.Error(t, r.Validate())
	})

	t.Run("bad header name", func(t *testing.T) {
		r := valid
		r.Headers = []HeaderEntry{{Name: "X_Env", Value: "1", Operation: OperationSet}}
		assert.Error(t, r.Validate())
	})

	t.Run("unknown operation", func(t *testing.T) {
		r := valid
		r.Headers = []HeaderEntry{{Name: "X-Env", Value: "1", Operation: "rewrite"}}
		assert.Error(t, r.Validate())
	})
}

func TestPlatformRule_JSONShape(t *testing.T) {
	rule := PlatformRule{
		ID:       1,
		Priority: 1,
		Condition: PlatformCondition{
			URLFilter:     "*://example.com/api/*",
			ResourceTypes: []string{"xmlhttprequest"},
		},
		Action: PlatformAction{
			Type: ActionModifyHeaders,
			RequestHeaders: []PlatformHeader{
				{Header: "X-Env", Operation: OperationSet, Value: "dev"},
				{Header: "Cookie", Operation: OperationRemove},
			},
		},
	}

	data, err := json.Marshal(rule)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": 1,
		"priority": 1,
		"condition": {"urlFilter": "*://example.com/api/*", "resourceTypes": ["xmlhttprequest"]},
		"action": {
			"type": "modifyHeaders",
			"requestHeaders": [
				{"header": "X-Env", "operation": "set", "value": "dev"},
				{"header": "Cookie", "operation": "remove"}
			]
		}
	}`, string(data))
}

func TestSettings(t *testing.T) {
	s := Settings{}.WithDefaults()
	assert.Equal(t, DefaultMaxRules, s.MaxRules)
	assert.Equal(t, FailOpen, s.UnknownConditionPolicy)
	assert.Equal(t, 1, s.ResolutionPasses)
	require.NoError(t, s.Validate())

	r := Rule{ResourceTypes: []string{"script"}}
	assert.Equal(t, []string{"script"}, s.ResourceTypesFor(r))
	assert.Equal(t, DefaultResourceTypes, s.ResourceTypesFor(Rule{}))

	s.DefaultResourceTypes = []string{"main_frame"}
	assert.Equal(t, []string{"main_frame"}, s.ResourceTypesFor(Rule{}))

	bad := Settings{UnknownConditionPolicy: "maybe"}
	assert.Error(t, bad.Validate())
}
