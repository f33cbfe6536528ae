package models

// Policies for condition types the evaluator does not know
const (
	FailOpen   = "fail_open"
	FailClosed = "fail_closed"
)

// DefaultMaxRules is the dynamic rule budget of the host engine
const DefaultMaxRules = 5000

// Settings tune a conversion pass
type Settings struct {
	MaxRules               int      `json:"maxRules" yaml:"maxRules" validate:"gte=0"`
	DefaultResourceTypes   []string `json:"defaultResourceTypes,omitempty" yaml:"defaultResourceTypes,omitempty"`
	SortByPriority         bool     `json:"sortByPriority" yaml:"sortByPriority"`
	UnknownConditionPolicy string   `json:"unknownConditionPolicy,omitempty" yaml:"unknownConditionPolicy,omitempty" validate:"omitempty,oneof=fail_open fail_closed"`
	ResolutionPasses       int      `json:"resolutionPasses" yaml:"resolutionPasses" validate:"gte=0,lte=5"` // extra template passes, 0 means 1
}

// DefaultSettings returns the settings used when the store has none
func DefaultSettings() Settings {
	return Settings{
		MaxRules:               DefaultMaxRules,
		UnknownConditionPolicy: FailOpen,
		ResolutionPasses:       1,
	}
}

// WithDefaults fills zero values from DefaultSettings
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	if s.MaxRules <= 0 {
		s.MaxRules = d.MaxRules
	}
	if s.UnknownConditionPolicy == "" {
		s.UnknownConditionPolicy = d.UnknownConditionPolicy
	}
	if s.ResolutionPasses <= 0 {
		s.ResolutionPasses = d.ResolutionPasses
	}
	return s
}

// ResourceTypesFor returns the resource types a platform rule for r should carry
func (s Settings) ResourceTypesFor(r Rule) []string {
	if len(r.ResourceTypes) > 0 {
		return r.ResourceTypes
	}
	if len(s.DefaultResourceTypes) > 0 {
		return s.DefaultResourceTypes
	}
	return DefaultResourceTypes
}
