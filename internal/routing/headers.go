package routing

import (
	"fmt"
	"strings"

	"header-rules/internal/common/validation"
	"header-rules/internal/models"
)

// HeaderAction is a header entry in the form the host accepts
type HeaderAction struct {
	Name      string
	Operation string
	Target    string
}

// CheckHeader normalises h and reports whether the host would accept it.
// An empty operation means set and an empty target means request. Set and
// append need a value; remove ignores it.
func CheckHeader(h models.HeaderEntry) (HeaderAction, error) {
	if !validation.IsValidHeaderName(h.Name) {
		return HeaderAction{}, fmt.Errorf("%w: invalid header name %q", ErrInvalidHeader, h.Name)
	}

	target := strings.ToLower(h.TargetOrDefault())
	if target != models.TargetRequest && target != models.TargetResponse {
		return HeaderAction{}, fmt.Errorf("%w: header %s has unknown target %q", ErrInvalidHeader, h.Name, h.Target)
	}

	operation := strings.ToLower(strings.TrimSpace(h.Operation))
	if operation == "" {
		operation = models.OperationSet
	}

	switch operation {
	case models.OperationRemove:
	case models.OperationSet, models.OperationAppend:
		if h.Value == "" {
			return HeaderAction{}, fmt.Errorf("%w: header %s needs a value for %s", ErrInvalidHeader, h.Name, operation)
		}
	default:
		return HeaderAction{}, fmt.Errorf("%w: header %s has unknown operation %q", ErrInvalidHeader, h.Name, h.Operation)
	}

	return HeaderAction{Name: h.Name, Operation: operation, Target: target}, nil
}
