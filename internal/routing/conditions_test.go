package routing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"header-rules/internal/common/logging"
	"header-rules/internal/models"
)

func testRequest() *models.RequestContext {
	return &models.RequestContext{
		URL:    "https://api.example.com/v1/users?page=2",
		Method: "POST",
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer abc",
		},
	}
}

func TestEvaluator_Evaluate(t *testing.T) {
	e := NewEvaluator(models.FailOpen, logging.NewNopLogger())
	req := testRequest()

	tests := []struct {
		name string
		cond models.RuleCondition
		want bool
	}{
		{"method equals", models.RuleCondition{Type: "requestMethod", Operator: "equals", Value: "post"}, true},
		{"method equals mismatch", models.RuleCondition{Type: "requestMethod", Operator: "equals", Value: "GET"}, false},
		{"method contains", models.RuleCondition{Type: "requestMethod", Operator: "contains", Value: "OS"}, true},
		{"method alias", models.RuleCondition{Type: "method", Operator: "eq", Value: "POST"}, true},
		{"header exists", models.RuleCondition{Type: "header", Operator: "exists", Header: "content-type"}, true},
		{"header missing", models.RuleCondition{Type: "header", Operator: "exists", Header: "X-Trace"}, false},
		{"header equals", models.RuleCondition{Type: "header", Operator: "equals", Header: "Content-Type", Value: "application/json"}, true},
		{"header contains", models.RuleCondition{Type: "header", Operator: "contains", Header: "Authorization", Value: "Bearer"}, true},
		{"header regex", models.RuleCondition{Type: "header", Operator: "regex", Header: "Authorization", Value: `^Bearer \w+$`}, true},
		{"absent header compare", models.RuleCondition{Type: "header", Operator: "equals", Header: "X-Trace", Value: ""}, false},
		{"url contains", models.RuleCondition{Type: "url", Operator: "contains", Value: "/v1/"}, true},
		{"url regex", models.RuleCondition{Type: "url", Operator: "regex", Value: `page=\d+`}, true},
		{"url regex mismatch", models.RuleCondition{Type: "url", Operator: "regex", Value: `^http://`}, false},
		{"url startsWith", models.RuleCondition{Type: "url", Operator: "startsWith", Value: "https://api."}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(tt.cond, req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluator_UnknownTypePolicy(t *testing.T) {
	cond := models.RuleCondition{Type: "cookie", Operator: "exists", Value: "session"}
	req := testRequest()

	open, err := NewEvaluator("", logging.NewNopLogger()).Evaluate(cond, req)
	assert.True(t, open, "unknown condition types pass by default")
	assert.True(t, errors.Is(err, ErrUnsupportedConditionType))

	closed, err := NewEvaluator(models.FailClosed, logging.NewNopLogger()).Evaluate(cond, req)
	assert.False(t, closed)
	assert.True(t, errors.Is(err, ErrUnsupportedConditionType))
}

func TestEvaluator_InvalidConditions(t *testing.T) {
	e := NewEvaluator(models.FailOpen, logging.NewNopLogger())
	req := testRequest()

	tests := []struct {
		name    string
		cond    models.RuleCondition
		wantErr error
	}{
		{"unknown operator", models.RuleCondition{Type: "url", Operator: "endsWith", Value: "2"}, ErrUnsupportedOperator},
		{"operator not valid for type", models.RuleCondition{Type: "requestMethod", Operator: "regex", Value: "P.*"}, ErrUnsupportedOperator},
		{"bad regex", models.RuleCondition{Type: "url", Operator: "regex", Value: "("}, ErrInvalidCondition},
		{"header without name", models.RuleCondition{Type: "header", Operator: "exists"}, ErrInvalidCondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(tt.cond, req)
			assert.False(t, got)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestEvaluator_EvaluateAll(t *testing.T) {
	e := NewEvaluator(models.FailOpen, logging.NewNopLogger())
	req := testRequest()

	assert.True(t, e.EvaluateAll(nil, req))

	both := []models.RuleCondition{
		{Type: "requestMethod", Operator: "equals", Value: "POST"},
		{Type: "url", Operator: "contains", Value: "users"},
	}
	assert.True(t, e.EvaluateAll(both, req))

	oneFails := append(both, models.RuleCondition{Type: "header", Operator: "exists", Header: "X-Missing"})
	assert.False(t, e.EvaluateAll(oneFails, req))

	withUnknown := append(both, models.RuleCondition{Type: "geo", Operator: "equals", Value: "EU"})
	assert.True(t, e.EvaluateAll(withUnknown, req))
}

func TestEvaluator_NilRequest(t *testing.T) {
	e := NewEvaluator(models.FailOpen, logging.NewNopLogger())

	got, err := e.Evaluate(models.RuleCondition{Type: "header", Operator: "exists", Header: "X"}, nil)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestSupportedConditionTypes(t *testing.T) {
	assert.ElementsMatch(t, []string{"requestMethod", "header", "url"}, SupportedConditionTypes())
}
