package models

import (
	"sort"
	"time"
)

// Header operations understood by the host engine
const (
	OperationSet    = "set"
	OperationAppend = "append"
	OperationRemove = "remove"
)

// Header targets
const (
	TargetRequest  = "request"
	TargetResponse = "response"
)

// Rule is a user-authored header modification rule
type Rule struct {
	ID            string          `json:"id" yaml:"id" validate:"required"`
	Name          string          `json:"name" yaml:"name"`
	Enabled       bool            `json:"enabled" yaml:"enabled"`
	ProfileID     string          `json:"profileId,omitempty" yaml:"profileId,omitempty"` // empty means unassigned
	Pattern       URLPattern      `json:"pattern" yaml:"pattern"`
	Headers       []HeaderEntry   `json:"headers" yaml:"headers" validate:"dive"`
	Conditions    []RuleCondition `json:"conditions,omitempty" yaml:"conditions,omitempty" validate:"dive"`
	Priority      int             `json:"priority,omitempty" yaml:"priority,omitempty" validate:"gte=0"`
	ResourceTypes []string        `json:"resourceTypes,omitempty" yaml:"resourceTypes,omitempty"`
	CreatedAt     time.Time       `json:"createdAt" yaml:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt" yaml:"updatedAt"`
}

// URLPattern describes which URLs a rule applies to. Every part except the
// domain is optional and all of them accept * wildcards.
type URLPattern struct {
	Protocol string `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	Domain   string `json:"domain" yaml:"domain" validate:"required"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	Port     string `json:"port,omitempty" yaml:"port,omitempty"`
	Query    string `json:"query,omitempty" yaml:"query,omitempty"`
}

// HeaderEntry is a single header modification. Value may contain templates.
type HeaderEntry struct {
	Name      string `json:"name" yaml:"name" validate:"required,header_name"`
	Value     string `json:"value,omitempty" yaml:"value,omitempty" validate:"required_unless=Operation remove"`
	Operation string `json:"operation" yaml:"operation" validate:"oneof=set append remove"`
	Target    string `json:"target,omitempty" yaml:"target,omitempty" validate:"omitempty,oneof=request response"`
}

// TargetOrDefault returns the header target, defaulting to request
func (h HeaderEntry) TargetOrDefault() string {
	if h.Target == "" {
		return TargetRequest
	}
	return h.Target
}

// RuleCondition is an auxiliary predicate evaluated against a request.
// All conditions of a rule must hold.
type RuleCondition struct {
	Type     string `json:"type" yaml:"type" validate:"required"`
	Operator string `json:"operator" yaml:"operator"`
	Value    string `json:"value,omitempty" yaml:"value,omitempty"`
	Header   string `json:"header,omitempty" yaml:"header,omitempty"` // header name for header conditions
}

// RuleCollection maps rule ids to rules
type RuleCollection map[string]Rule

// NewRuleCollection builds a collection from a slice. Later duplicates win.
func NewRuleCollection(rules ...Rule) RuleCollection {
	rc := make(RuleCollection, len(rules))
	for _, r := range rules {
		rc[r.ID] = r
	}
	return rc
}

// Ordered returns the rules in insertion order: oldest CreatedAt first, ties
// broken by id.
func (rc RuleCollection) Ordered() []Rule {
	out := make([]Rule, 0, len(rc))
	for _, r := range rc {
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// EffectivePriority returns the rule priority, defaulting to 1
func (r Rule) EffectivePriority() int {
	if r.Priority <= 0 {
		return 1
	}
	return r.Priority
}
