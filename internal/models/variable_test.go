package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariableContext_LookupPrecedence(t *testing.T) {
	vc := &VariableContext{
		System:  []Variable{{Name: "env", Value: "system", Scope: ScopeSystem, Enabled: true}},
		Global:  []Variable{{Name: "env", Value: "global", Scope: ScopeGlobal, Enabled: true}},
		Profile: []Variable{{Name: "env", Value: "profile", Scope: ScopeProfile, Enabled: true}},
		Rule:    []Variable{{Name: "env", Value: "rule", Scope: ScopeRule, Enabled: true}},
	}
	assert.Equal(t, "rule", vc.Lookup()["env"])

	vc.Rule = nil
	assert.Equal(t, "profile", vc.Lookup()["env"])

	vc.Profile = nil
	assert.Equal(t, "global", vc.Lookup()["env"])

	vc.Global = nil
	assert.Equal(t, "system", vc.Lookup()["env"])
}

func TestVariableContext_LookupSkipsDisabledAndForeignOwners(t *testing.T) {
	vc := &VariableContext{
		ProfileID: "dev",
		RuleID:    "r1",
		Global:    []Variable{{Name: "token", Value: "global", Scope: ScopeGlobal, Enabled: true}},
		Profile: []Variable{
			{Name: "token", Value: "prod-token", Scope: ScopeProfile, Enabled: true, ProfileID: "prod"},
			{Name: "region", Value: "eu", Scope: ScopeProfile, Enabled: false},
		},
		Rule: []Variable{
			{Name: "token", Value: "other-rule", Scope: ScopeRule, Enabled: true, RuleID: "r2"},
		},
	}

	lookup := vc.Lookup()
	assert.Equal(t, "global", lookup["token"])
	_, ok := lookup["region"]
	assert.False(t, ok)
	assert.Equal(t, "dev", lookup["profile.id"])

	lookup = vc.ForRule("r2").Lookup()
	assert.Equal(t, "other-rule", lookup["token"])
}

func TestVariableContext_RequestBuiltins(t *testing.T) {
	vc := &VariableContext{
		Request: &RequestContext{URL: "https://api.example.com/v1/users?x=1", Method: "GET"},
	}
	lookup := vc.Lookup()
	assert.Equal(t, "https://api.example.com/v1/users?x=1", lookup["request.url"])
	assert.Equal(t, "GET", lookup["request.method"])
	assert.Equal(t, "api.example.com", lookup["request.domain"])
	assert.Equal(t, "/v1/users", lookup["request.path"])
}

func TestVariableContext_ForRuleDoesNotMutate(t *testing.T) {
	vc := &VariableContext{RuleID: "a"}
	derived := vc.ForRule("b")
	assert.Equal(t, "a", vc.RuleID)
	assert.Equal(t, "b", derived.RuleID)

	var nilCtx *VariableContext
	assert.Equal(t, "c", nilCtx.ForRule("c").RuleID)
	assert.Empty(t, nilCtx.Lookup())
}

func TestRequestContext_Header(t *testing.T) {
	req := &RequestContext{Headers: map[string]string{"Content-Type": "application/json"}}

	v, ok := req.Header("content-type")
	assert.True(t, ok)
	assert.Equal(t, "application/json", v)

	_, ok = req.Header("Accept")
	assert.False(t, ok)
}

func TestGroupVariables(t *testing.T) {
	vc := GroupVariables([]Variable{
		{Name: "a", Scope: ScopeSystem},
		{Name: "b", Scope: ScopeGlobal},
		{Name: "c", Scope: ScopeProfile},
		{Name: "d", Scope: ScopeRule},
		{Name: "e", Scope: "weird"},
	})
	assert.Len(t, vc.System, 1)
	assert.Len(t, vc.Global, 2)
	assert.Len(t, vc.Profile, 1)
	assert.Len(t, vc.Rule, 1)
}
