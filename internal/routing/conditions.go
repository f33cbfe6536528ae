package routing

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"header-rules/internal/common/logging"
	"header-rules/internal/models"
)

// Condition types
const (
	ConditionRequestMethod = "requestMethod"
	ConditionHeader        = "header"
	ConditionURL           = "url"
)

// Operators
const (
	OperatorEquals     = "equals"
	OperatorContains   = "contains"
	OperatorRegex      = "regex"
	OperatorExists     = "exists"
	OperatorStartsWith = "startsWith"
)

var operatorAliases = map[string]string{
	"eq":          OperatorEquals,
	"equal":       OperatorEquals,
	"starts_with": OperatorStartsWith,
	"matches":     OperatorRegex,
}

var conditionAliases = map[string]string{
	"method": ConditionRequestMethod,
}

// supportedOperators lists what each condition type accepts
var supportedOperators = map[string][]string{
	ConditionRequestMethod: {OperatorEquals, OperatorContains},
	ConditionHeader:        {OperatorExists, OperatorEquals, OperatorContains, OperatorRegex},
	ConditionURL:           {OperatorContains, OperatorRegex, OperatorEquals, OperatorStartsWith},
}

// Evaluator checks rule conditions against a request. All conditions of a
// rule are ANDed. It is safe for concurrent use.
type Evaluator struct {
	// unknownPolicy decides the outcome of condition types the evaluator
	// does not understand
	unknownPolicy string
	regexCache    map[string]*regexp.Regexp
	mu            sync.RWMutex
	logger        logging.Logger
}

// NewEvaluator creates an evaluator. An empty policy means fail open.
func NewEvaluator(unknownPolicy string, logger logging.Logger) *Evaluator {
	if unknownPolicy == "" {
		unknownPolicy = models.FailOpen
	}
	if logger == nil {
		logger = logging.Component("conditions")
	}
	return &Evaluator{
		unknownPolicy: unknownPolicy,
		regexCache:    make(map[string]*regexp.Regexp),
		logger:        logger,
	}
}

// FailsClosed reports whether unknown condition types evaluate to false
func (e *Evaluator) FailsClosed() bool {
	return e.unknownPolicy == models.FailClosed
}

// UnknownConditionTypes returns the distinct condition types in conditions
// that no evaluator understands, in order of appearance
func UnknownConditionTypes(conditions []models.RuleCondition) []string {
	var unknown []string
	for _, cond := range conditions {
		if _, known := supportedOperators[normalizeConditionType(cond.Type)]; !known && !SliceContains(unknown, cond.Type) {
			unknown = append(unknown, cond.Type)
		}
	}
	return unknown
}

// EvaluateAll reports whether every condition holds for req. An empty list
// always holds.
func (e *Evaluator) EvaluateAll(conditions []models.RuleCondition, req *models.RequestContext) bool {
	for i := range conditions {
		ok, err := e.Evaluate(conditions[i], req)
		if err != nil {
			e.logger.Debug("Condition evaluation failed",
				logging.String("type", conditions[i].Type),
				logging.String("operator", conditions[i].Operator),
				logging.Err(err),
			)
		}
		if !ok {
			return false
		}
	}
	return true
}

// Evaluate checks a single condition. Unknown condition types follow the
// evaluator's policy. Unsupported operators and invalid regular expressions
// evaluate to false and are reported through the error.
func (e *Evaluator) Evaluate(cond models.RuleCondition, req *models.RequestContext) (bool, error) {
	condType := normalizeConditionType(cond.Type)
	operator := normalizeOperator(cond.Operator)

	allowed, known := supportedOperators[condType]
	if !known {
		return e.unknownPolicy != models.FailClosed, fmt.Errorf("%w: %s", ErrUnsupportedConditionType, cond.Type)
	}
	if !SliceContains(allowed, operator) {
		return false, fmt.Errorf("%w: %s for %s", ErrUnsupportedOperator, cond.Operator, condType)
	}

	if req == nil {
		req = &models.RequestContext{}
	}

	switch condType {
	case ConditionRequestMethod:
		return e.compare(operator, req.Method, cond.Value, true)

	case ConditionHeader:
		if cond.Header == "" {
			return false, fmt.Errorf("%w: header condition requires a header name", ErrInvalidCondition)
		}
		value, present := req.Header(cond.Header)
		if operator == OperatorExists {
			return present, nil
		}
		if !present {
			return false, nil
		}
		return e.compare(operator, value, cond.Value, false)

	default: // ConditionURL
		return e.compare(operator, req.URL, cond.Value, false)
	}
}

func (e *Evaluator) compare(operator, actual, expected string, foldCase bool) (bool, error) {
	switch operator {
	case OperatorEquals:
		if foldCase {
			return strings.EqualFold(actual, expected), nil
		}
		return actual == expected, nil

	case OperatorContains:
		if foldCase {
			return strings.Contains(strings.ToUpper(actual), strings.ToUpper(expected)), nil
		}
		return strings.Contains(actual, expected), nil

	case OperatorStartsWith:
		return strings.HasPrefix(actual, expected), nil

	case OperatorRegex:
		re, err := e.regex(expected)
		if err != nil {
			return false, err
		}
		return re.MatchString(actual), nil

	default:
		return false, fmt.Errorf("%w: %s", ErrUnsupportedOperator, operator)
	}
}

func (e *Evaluator) regex(pattern string) (*regexp.Regexp, error) {
	e.mu.RLock()
	re, ok := e.regexCache[pattern]
	e.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid regex %q: %v", ErrInvalidCondition, pattern, err)
	}

	e.mu.Lock()
	e.regexCache[pattern] = re
	e.mu.Unlock()
	return re, nil
}

// SupportedConditionTypes returns the condition types the evaluator understands
func SupportedConditionTypes() []string {
	return []string{ConditionRequestMethod, ConditionHeader, ConditionURL}
}

func normalizeConditionType(t string) string {
	if alias, ok := conditionAliases[t]; ok {
		return alias
	}
	return t
}

func normalizeOperator(op string) string {
	if alias, ok := operatorAliases[op]; ok {
		return alias
	}
	return op
}
