package models

import (
	"net/url"
	"strings"
	"time"
)

// VariableScope orders where a variable was defined. Higher scopes win.
type VariableScope string

const (
	ScopeSystem  VariableScope = "system"
	ScopeGlobal  VariableScope = "global"
	ScopeProfile VariableScope = "profile"
	ScopeRule    VariableScope = "rule"
)

// Rank returns the precedence of the scope; unknown scopes rank lowest
func (s VariableScope) Rank() int {
	switch s {
	case ScopeSystem:
		return 1
	case ScopeGlobal:
		return 2
	case ScopeProfile:
		return 3
	case ScopeRule:
		return 4
	default:
		return 0
	}
}

// Variable is a named value usable from header templates
type Variable struct {
	ID        string        `json:"id" yaml:"id"`
	Name      string        `json:"name" yaml:"name" validate:"required"`
	Value     string        `json:"value" yaml:"value"`
	Scope     VariableScope `json:"scope" yaml:"scope" validate:"oneof=system global profile rule"`
	Enabled   bool          `json:"enabled" yaml:"enabled"`
	ProfileID string        `json:"profileId,omitempty" yaml:"profileId,omitempty"` // owner of a profile variable
	RuleID    string        `json:"ruleId,omitempty" yaml:"ruleId,omitempty"`       // owner of a rule variable
}

// RequestContext is the request a resolution or analysis is performed for
type RequestContext struct {
	URL       string            `json:"url"`
	Method    string            `json:"method,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Domain returns the host part of the request URL, or ""
func (r *RequestContext) Domain() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Path returns the path of the request URL, or ""
func (r *RequestContext) Path() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return u.Path
}

// Header looks a request header up case-insensitively
func (r *RequestContext) Header(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	if v, ok := r.Headers[name]; ok {
		return v, true
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// VariableContext is the immutable input of one resolution: the variables of
// every scope plus the request, profile and rule being resolved for. Build a
// fresh one per conversion pass.
type VariableContext struct {
	System    []Variable      `json:"system,omitempty"`
	Global    []Variable      `json:"global,omitempty"`
	Profile   []Variable      `json:"profile,omitempty"`
	Rule      []Variable      `json:"rule,omitempty"`
	Request   *RequestContext `json:"request,omitempty"`
	ProfileID string          `json:"profileId,omitempty"`
	RuleID    string          `json:"ruleId,omitempty"`
}

// ForRule returns a shallow copy scoped to ruleID
func (vc *VariableContext) ForRule(ruleID string) *VariableContext {
	if vc == nil {
		return &VariableContext{RuleID: ruleID}
	}
	cp := *vc
	cp.RuleID = ruleID
	return &cp
}

// Lookup merges all applicable variables, lowest scope first, so that a name
// defined in several scopes resolves to the most specific one.
func (vc *VariableContext) Lookup() map[string]string {
	merged := make(map[string]string)
	if vc == nil {
		return merged
	}

	if vc.Request != nil {
		merged["request.url"] = vc.Request.URL
		merged["request.method"] = vc.Request.Method
		merged["request.domain"] = vc.Request.Domain()
		merged["request.path"] = vc.Request.Path()
	}
	if vc.ProfileID != "" {
		merged["profile.id"] = vc.ProfileID
	}

	layers := [][]Variable{vc.System, vc.Global, vc.Profile, vc.Rule}
	for _, layer := range layers {
		for _, v := range layer {
			if !vc.applies(v) {
				continue
			}
			merged[v.Name] = v.Value
		}
	}
	return merged
}

func (vc *VariableContext) applies(v Variable) bool {
	if !v.Enabled || v.Name == "" {
		return false
	}
	if v.Scope == ScopeProfile && v.ProfileID != "" && v.ProfileID != vc.ProfileID {
		return false
	}
	if v.Scope == ScopeRule && v.RuleID != "" && v.RuleID != vc.RuleID {
		return false
	}
	return true
}

// GroupVariables sorts a flat variable list into a context by scope.
// Variables with an unknown scope are treated as global.
func GroupVariables(vars []Variable) *VariableContext {
	vc := &VariableContext{}
	for _, v := range vars {
		switch v.Scope {
		case ScopeSystem:
			vc.System = append(vc.System, v)
		case ScopeProfile:
			vc.Profile = append(vc.Profile, v)
		case ScopeRule:
			vc.Rule = append(vc.Rule, v)
		default:
			vc.Global = append(vc.Global, v)
		}
	}
	return vc
}
