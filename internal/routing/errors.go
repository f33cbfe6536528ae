package routing

import "errors"

var (
	// ErrInvalidPattern is returned when a URL pattern cannot be used for matching
	ErrInvalidPattern = errors.New("invalid url pattern")

	// ErrInvalidURL is returned when a request URL cannot be parsed
	ErrInvalidURL = errors.New("invalid url")

	// ErrUnsupportedOperator is returned when a condition uses an operator its type does not support
	ErrUnsupportedOperator = errors.New("unsupported operator")

	// ErrUnsupportedConditionType is returned when a condition type is unknown
	ErrUnsupportedConditionType = errors.New("unsupported condition type")

	// ErrInvalidCondition is returned when a condition is missing required data
	ErrInvalidCondition = errors.New("invalid rule condition")

	// ErrInvalidHeader is returned for a header entry the host would reject
	ErrInvalidHeader = errors.New("invalid header")
)
