package routing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"header-rules/internal/common/logging"
	"header-rules/internal/common/templates"
	"header-rules/internal/models"
)

func newTestProcessor() *Processor {
	logger := logging.NewNopLogger()
	return NewProcessor(
		templates.NewResolver(&templates.ResolverConfig{Logger: logger}),
		NewEvaluator(models.FailOpen, logger),
		logger,
	)
}

func analysisRules() models.RuleCollection {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return models.NewRuleCollection(
		models.Rule{
			ID:        "broad",
			Name:      "Broad",
			Enabled:   true,
			ProfileID: "dev",
			Pattern:   models.URLPattern{Domain: "*.example.com", Path: "/*"},
			Headers:   []models.HeaderEntry{{Name: "X-Env", Value: "dev", Operation: models.OperationSet}},
			CreatedAt: created,
		},
		models.Rule{
			ID:        "specific",
			Name:      "Specific",
			Enabled:   true,
			ProfileID: "dev",
			Priority:  5,
			Pattern:   models.URLPattern{Domain: "api.example.com", Path: "/v1/*"},
			Headers: []models.HeaderEntry{
				{Name: "Authorization", Value: "Bearer ${token}", Operation: models.OperationSet},
				{Name: "Cookie", Operation: models.OperationRemove},
				{Name: "X-Missing", Value: "${nope}", Operation: models.OperationSet, Target: models.TargetResponse},
			},
			CreatedAt: created.Add(time.Minute),
		},
		models.Rule{
			ID:         "post-only",
			Enabled:    true,
			ProfileID:  "dev",
			Pattern:    models.URLPattern{Domain: "api.example.com"},
			Conditions: []models.RuleCondition{{Type: "requestMethod", Operator: "equals", Value: "POST"}},
			Headers:    []models.HeaderEntry{{Name: "X-Post", Value: "1", Operation: models.OperationSet}},
			CreatedAt:  created.Add(2 * time.Minute),
		},
		models.Rule{
			ID:        "prod",
			Enabled:   true,
			ProfileID: "prod",
			Pattern:   models.URLPattern{Domain: "api.example.com"},
			Headers:   []models.HeaderEntry{{Name: "X-Prod", Value: "1", Operation: models.OperationSet}},
			CreatedAt: created.Add(3 * time.Minute),
		},
	)
}

func TestProcessor_Analyze(t *testing.T) {
	p := newTestProcessor()
	vc := &models.VariableContext{
		Global: []models.Variable{{Name: "token", Value: "abc123", Scope: models.ScopeGlobal, Enabled: true}},
	}

	result := p.Analyze(context.Background(), AnalyzeRequest{URL: "https://api.example.com/v1/users"}, analysisRules(), "dev", vc)

	assert.Equal(t, "GET", result.Method)
	require.Len(t, result.MatchedRules, 2)
	assert.Equal(t, "specific", result.MatchedRules[0].RuleID)
	assert.Equal(t, 5, result.MatchedRules[0].Priority)
	assert.Equal(t, "broad", result.MatchedRules[1].RuleID)
	assert.Equal(t, 1, result.MatchedRules[1].Priority)
	assert.Greater(t, result.MatchedRules[0].MatchScore, result.MatchedRules[1].MatchScore)

	require.Len(t, result.HeaderModifications, 4)
	auth := result.HeaderModifications[0]
	assert.Equal(t, "Authorization", auth.Header)
	assert.Equal(t, "Bearer abc123", auth.Value)
	assert.Equal(t, "Bearer ${token}", auth.OriginalValue)
	assert.True(t, auth.Resolved)

	cookie := result.HeaderModifications[1]
	assert.Equal(t, models.OperationRemove, cookie.Operation)
	assert.Empty(t, cookie.Value)

	missing := result.HeaderModifications[2]
	assert.Equal(t, models.TargetResponse, missing.Target)
	assert.Equal(t, "${nope}", missing.Value)
	assert.False(t, missing.Resolved)

	assert.Equal(t, "broad", result.HeaderModifications[3].RuleID)
}

func TestProcessor_AnalyzeConditions(t *testing.T) {
	p := newTestProcessor()

	result := p.Analyze(context.Background(), AnalyzeRequest{URL: "https://api.example.com/v2", Method: "post"}, analysisRules(), "dev", nil)

	var ids []string
	for _, m := range result.MatchedRules {
		ids = append(ids, m.RuleID)
	}
	assert.Equal(t, "POST", result.Method)
	assert.ElementsMatch(t, []string{"broad", "post-only"}, ids)
}

func TestProcessor_AnalyzeProfileIsolation(t *testing.T) {
	p := newTestProcessor()

	result := p.Analyze(context.Background(), AnalyzeRequest{URL: "https://api.example.com/"}, analysisRules(), "prod", nil)

	require.Len(t, result.MatchedRules, 1)
	assert.Equal(t, "prod", result.MatchedRules[0].RuleID)

	none := p.Analyze(context.Background(), AnalyzeRequest{URL: "https://api.example.com/"}, analysisRules(), "unassigned", nil)
	assert.Empty(t, none.MatchedRules)
	assert.NotNil(t, none.HeaderModifications)
}

func TestProcessor_AnalyzeRequestBuiltins(t *testing.T) {
	p := newTestProcessor()
	rules := models.NewRuleCollection(models.Rule{
		ID:      "echo",
		Enabled: true,
		Pattern: models.URLPattern{Domain: "example.com"},
		Headers: []models.HeaderEntry{{Name: "X-Origin", Value: "${request.domain}${request.path}", Operation: models.OperationSet}},
	})

	result := p.Analyze(context.Background(), AnalyzeRequest{URL: "https://example.com/a/b"}, rules, "", nil)

	require.Len(t, result.HeaderModifications, 1)
	assert.Equal(t, "example.com/a/b", result.HeaderModifications[0].Value)
}

func TestProcessor_AnalyzeMalformedURL(t *testing.T) {
	p := newTestProcessor()

	result := p.Analyze(context.Background(), AnalyzeRequest{URL: "::not a url"}, analysisRules(), "dev", nil)

	assert.Empty(t, result.MatchedRules)
}

func TestProcessor_AnalyzeSkipsHeadersTheHostRejects(t *testing.T) {
	p := newTestProcessor()
	rules := models.NewRuleCollection(models.Rule{
		ID:      "mixed",
		Enabled: true,
		Pattern: models.URLPattern{Domain: "example.com"},
		Headers: []models.HeaderEntry{
			{Name: "Bad Header", Value: "x", Operation: models.OperationSet},
			{Name: "X-Empty", Operation: models.OperationAppend},
			{Name: "X-Odd", Value: "x", Operation: "replace"},
			{Name: "X-Where", Value: "x", Target: "both"},
			{Name: "X-Ok", Value: "1"},
		},
	})

	result := p.Analyze(context.Background(), AnalyzeRequest{URL: "https://example.com/"}, rules, "", nil)

	require.Len(t, result.MatchedRules, 1)
	require.Len(t, result.HeaderModifications, 1)
	ok := result.HeaderModifications[0]
	assert.Equal(t, "X-Ok", ok.Header)
	assert.Equal(t, models.OperationSet, ok.Operation)
	assert.Equal(t, models.TargetRequest, ok.Target)
}

func TestProcessor_AnalyzeUnknownConditionPolicy(t *testing.T) {
	rules := models.NewRuleCollection(models.Rule{
		ID:         "cookie-gated",
		Enabled:    true,
		Pattern:    models.URLPattern{Domain: "example.com"},
		Conditions: []models.RuleCondition{{Type: "cookie", Operator: "exists", Value: "session"}},
		Headers:    []models.HeaderEntry{{Name: "X-Gated", Value: "1", Operation: models.OperationSet}},
	})
	req := AnalyzeRequest{URL: "https://example.com/"}
	logger := logging.NewNopLogger()

	open := NewProcessor(nil, NewEvaluator(models.FailOpen, logger), logger)
	assert.Len(t, open.Analyze(context.Background(), req, rules, "", nil).MatchedRules, 1)

	closed := NewProcessor(nil, NewEvaluator(models.FailClosed, logger), logger)
	result := closed.Analyze(context.Background(), req, rules, "", nil)
	assert.Empty(t, result.MatchedRules)
	assert.Empty(t, result.HeaderModifications)
}
