package routing

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"header-rules/internal/models"
)

// Part weights. They sum to 1 so a fully matching pattern scores 1.
const (
	WeightProtocol = 0.1
	WeightDomain   = 0.4
	WeightPath     = 0.3
	WeightPort     = 0.1
	WeightQuery    = 0.1
)

const (
	// wildcardPenalty is subtracted from a part's score for every * it uses
	wildcardPenalty = 0.3
	// minWildcardScore is the floor of a wildcard match
	minWildcardScore = 0.3
	// queryContainsScore is the score of a query matched by containment
	queryContainsScore = 0.7
)

// MatchedParts records which parts of the pattern matched the URL
type MatchedParts struct {
	Protocol bool `json:"protocol"`
	Domain   bool `json:"domain"`
	Path     bool `json:"path"`
	Port     bool `json:"port"`
	Query    bool `json:"query"`
}

// PatternMatch is the outcome of scoring a URL against a pattern
type PatternMatch struct {
	Matches bool         `json:"matches"`
	Score   float64      `json:"score"`
	Parts   MatchedParts `json:"matchedParts"`
}

var noMatch = PatternMatch{}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
}

// MatchURL scores rawURL against pattern. Any constrained part that does not
// match, an unparsable URL or a pattern without a domain yields no match with
// score 0.
func MatchURL(rawURL string, pattern models.URLPattern) PatternMatch {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return noMatch
	}
	if strings.TrimSpace(pattern.Domain) == "" {
		return noMatch
	}

	var result PatternMatch

	score, ok := matchProtocol(u.Scheme, pattern.Protocol)
	if !ok {
		return noMatch
	}
	result.Score += WeightProtocol * score
	result.Parts.Protocol = true

	score, ok = matchWildcard(strings.ToLower(u.Hostname()), strings.ToLower(pattern.Domain))
	if !ok {
		return noMatch
	}
	result.Score += WeightDomain * score
	result.Parts.Domain = true

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	score, ok = matchWildcard(path, pattern.Path)
	if !ok {
		return noMatch
	}
	result.Score += WeightPath * score
	result.Parts.Path = true

	port := u.Port()
	if port == "" {
		port = defaultPorts[strings.ToLower(u.Scheme)]
	}
	score, ok = matchWildcard(port, pattern.Port)
	if !ok {
		return noMatch
	}
	result.Score += WeightPort * score
	result.Parts.Port = true

	score, ok = matchQuery(u.RawQuery, pattern.Query)
	if !ok {
		return noMatch
	}
	result.Score += WeightQuery * score
	result.Parts.Query = true

	result.Matches = true
	if result.Score > 1 {
		result.Score = 1
	}
	return result
}

// ValidatePattern reports shape errors that make a pattern unusable
func ValidatePattern(pattern models.URLPattern) error {
	if strings.TrimSpace(pattern.Domain) == "" {
		return fmt.Errorf("%w: domain is required", ErrInvalidPattern)
	}
	switch normalizeProtocol(pattern.Protocol) {
	case "", "*", "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("%w: unsupported protocol %q", ErrInvalidPattern, pattern.Protocol)
	}
	for _, part := range []string{pattern.Domain, pattern.Path, pattern.Port} {
		if strings.ContainsAny(part, " \t\n") {
			return fmt.Errorf("%w: whitespace in %q", ErrInvalidPattern, part)
		}
	}
	if pattern.Path != "" && pattern.Path != "*" && !strings.HasPrefix(pattern.Path, "/") {
		return fmt.Errorf("%w: path %q must start with /", ErrInvalidPattern, pattern.Path)
	}
	return nil
}

// unconstrained reports whether a pattern part places no restriction
func unconstrained(part string) bool {
	part = strings.TrimSpace(part)
	return part == "" || part == "*"
}

func normalizeProtocol(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	p = strings.TrimSuffix(p, "://")
	return strings.TrimSuffix(p, ":")
}

func matchProtocol(scheme, pattern string) (float64, bool) {
	if unconstrained(pattern) {
		return 1, true
	}
	return 1, strings.EqualFold(scheme, normalizeProtocol(pattern))
}

// matchWildcard matches value against an anchored wildcard pattern. A literal
// pattern scores 1; every * lowers the score down to minWildcardScore.
func matchWildcard(value, pattern string) (float64, bool) {
	if unconstrained(pattern) {
		return 1, true
	}
	wildcards := strings.Count(pattern, "*")
	if wildcards == 0 {
		return 1, value == pattern
	}
	re, err := compileWildcard(pattern)
	if err != nil || !re.MatchString(value) {
		return 0, false
	}
	return wildcardScore(wildcards), true
}

func matchQuery(rawQuery, pattern string) (float64, bool) {
	if unconstrained(pattern) {
		return 1, true
	}
	pattern = strings.TrimPrefix(pattern, "?")
	if strings.Contains(pattern, "*") {
		return matchWildcard(rawQuery, pattern)
	}
	if rawQuery == pattern {
		return 1, true
	}
	if strings.Contains(rawQuery, pattern) {
		return queryContainsScore, true
	}
	return 0, false
}

func wildcardScore(wildcards int) float64 {
	score := 1 - wildcardPenalty*float64(wildcards)
	if score < minWildcardScore {
		return minWildcardScore
	}
	return score
}

var wildcardCache sync.Map // pattern -> *regexp.Regexp

// compileWildcard turns a * pattern into an anchored regular expression,
// escaping every other character
func compileWildcard(pattern string) (*regexp.Regexp, error) {
	if cached, ok := wildcardCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}

	segments := strings.Split(pattern, "*")
	for i, seg := range segments {
		segments[i] = regexp.QuoteMeta(seg)
	}
	re, err := regexp.Compile("^" + strings.Join(segments, ".*") + "$")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}

	wildcardCache.Store(pattern, re)
	return re, nil
}
