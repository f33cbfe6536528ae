package models

import "time"

// AnalysisResult is the diagnostic output of the rule processor
type AnalysisResult struct {
	URL                 string               `json:"url"`
	Method              string               `json:"method"`
	MatchedRules        []MatchedRule        `json:"matchedRules"`
	HeaderModifications []HeaderModification `json:"headerModifications"`
	ExecutionTime       float64              `json:"executionTime"` // milliseconds
	Timestamp           time.Time            `json:"timestamp"`
}

// MatchedRule is a rule that matched the analysed request
type MatchedRule struct {
	RuleID        string  `json:"ruleId"`
	RuleName      string  `json:"ruleName"`
	MatchScore    float64 `json:"matchScore"`
	ExecutionTime float64 `json:"executionTime"` // milliseconds
	Priority      int     `json:"priority"`
}

// HeaderModification is a header change a matched rule would apply
type HeaderModification struct {
	RuleID        string `json:"ruleId"`
	Header        string `json:"header"`
	Operation     string `json:"operation"`
	Target        string `json:"target"`
	Value         string `json:"value,omitempty"`
	OriginalValue string `json:"originalValue,omitempty"`
	Resolved      bool   `json:"resolved"`
}

// ConversionSummary describes one conversion pass
type ConversionSummary struct {
	ActiveProfile string        `json:"activeProfile"`
	Selected      int           `json:"selected"`  // rules of the active profile
	Emitted       int           `json:"emitted"`   // platform rules produced
	Dropped       int           `json:"dropped"`   // rules without a valid header or not matching
	Failed        int           `json:"failed"`    // rules that errored
	Truncated     int           `json:"truncated"` // rules cut by the rule budget
	Duration      time.Duration `json:"duration"`
}

// RuleFailure is a rule that could not be converted
type RuleFailure struct {
	RuleID string `json:"ruleId"`
	Error  string `json:"error"`
	Err    error  `json:"-"`
}

// SyncReport describes one conversion pass and the host update it produced
type SyncReport struct {
	ID        string            `json:"id"`
	Trigger   string            `json:"trigger"` // startup, file, schedule or api
	StartedAt time.Time         `json:"startedAt"`
	Summary   ConversionSummary `json:"summary"`
	Warnings  []string          `json:"warnings"`
	Failures  []RuleFailure     `json:"failures"`
	Removed   int               `json:"removed"`
	Added     int               `json:"added"`
}
