package models

// ActionModifyHeaders is the only action type this engine emits
const ActionModifyHeaders = "modifyHeaders"

// DefaultResourceTypes is used when neither the rule nor the settings name any
var DefaultResourceTypes = []string{
	"main_frame",
	"sub_frame",
	"stylesheet",
	"script",
	"image",
	"font",
	"object",
	"xmlhttprequest",
	"ping",
	"csp_report",
	"media",
	"websocket",
	"other",
}

// PlatformRule is the declarative rule handed to the host engine. The JSON
// shape is dictated by the host and must not change.
type PlatformRule struct {
	ID        int               `json:"id"`
	Priority  int               `json:"priority"`
	Condition PlatformCondition `json:"condition"`
	Action    PlatformAction    `json:"action"`
}

// PlatformCondition selects the requests a platform rule applies to
type PlatformCondition struct {
	URLFilter     string   `json:"urlFilter"`
	ResourceTypes []string `json:"resourceTypes"`
}

// PlatformAction is the header modification a platform rule performs
type PlatformAction struct {
	Type            string           `json:"type"`
	RequestHeaders  []PlatformHeader `json:"requestHeaders,omitempty"`
	ResponseHeaders []PlatformHeader `json:"responseHeaders,omitempty"`
}

// PlatformHeader is one resolved header operation
type PlatformHeader struct {
	Header    string `json:"header"`
	Operation string `json:"operation"`
	Value     string `json:"value,omitempty"`
}

// RuleUpdate is an atomic replace of the host's dynamic rule set
type RuleUpdate struct {
	RemoveRuleIDs []int          `json:"removeRuleIds"`
	AddRules      []PlatformRule `json:"addRules"`
}
