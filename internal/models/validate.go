package models

import "header-rules/internal/common/validation"

// Validate checks the rule against its struct tags
func (r Rule) Validate() error {
	return validation.Default().ValidateStruct(r)
}

// Validate checks the variable against its struct tags
func (v Variable) Validate() error {
	return validation.Default().ValidateStruct(v)
}

// Validate checks the settings against their struct tags
func (s Settings) Validate() error {
	return validation.Default().ValidateStruct(s)
}
