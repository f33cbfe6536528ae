// Package converter turns the rules of the active profile into the
// declarative platform rules the host engine enforces.
//
// A conversion pass never fails as a whole. Each rule is converted in
// isolation: a rule that errors (or panics) is skipped and reported, a header
// with an invalid name is skipped with a warning, a rule left without headers
// is dropped, and output beyond the rule budget is truncated from the tail.
package converter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"header-rules/internal/common/cache"
	"header-rules/internal/common/errors"
	"header-rules/internal/common/logging"
	"header-rules/internal/common/templates"
	"header-rules/internal/models"
	"header-rules/internal/profiles"
	"header-rules/internal/routing"
)

// Config wires a Converter. Every field is optional.
type Config struct {
	// Resolver overrides the template resolver. When nil a resolver is built
	// per Settings.ResolutionPasses.
	Resolver *templates.Resolver
	// Cache keeps resolved values across passes
	Cache    cache.Cache
	CacheTTL time.Duration

	Analytics Analytics
	Monitor   PerformanceMonitor
	Logger    logging.Logger
}

// Input is the immutable snapshot a pass converts
type Input struct {
	Rules         models.RuleCollection
	ActiveProfile string
	Variables     *models.VariableContext
	Settings      models.Settings
}

// Result is the outcome of a conversion pass
type Result struct {
	Rules    []models.PlatformRule    `json:"rules"`
	Warnings []string                 `json:"warnings"`
	Errors   []models.RuleFailure     `json:"errors"`
	Summary  models.ConversionSummary `json:"summary"`
}

// Converter converts rules into platform rules. It is safe for concurrent use.
type Converter struct {
	resolver  *templates.Resolver
	resolvers map[int]*templates.Resolver
	mu        sync.Mutex

	evaluators map[string]*routing.Evaluator

	cache     cache.Cache
	cacheTTL  time.Duration
	analytics Analytics
	monitor   PerformanceMonitor
	logger    logging.Logger
}

// New creates a converter
func New(cfg Config) *Converter {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Component("converter")
	}
	c := &Converter{
		resolver:  cfg.Resolver,
		resolvers: make(map[int]*templates.Resolver),
		evaluators: map[string]*routing.Evaluator{
			models.FailOpen:   routing.NewEvaluator(models.FailOpen, logger),
			models.FailClosed: routing.NewEvaluator(models.FailClosed, logger),
		},
		cache:     cfg.Cache,
		cacheTTL:  cfg.CacheTTL,
		analytics: cfg.Analytics,
		monitor:   cfg.Monitor,
		logger:    logger,
	}
	if c.analytics == nil {
		c.analytics = noopAnalytics{}
	}
	if c.monitor == nil {
		c.monitor = noopMonitor{}
	}
	return c
}

// pass holds the state of one Convert call
type pass struct {
	settings  models.Settings
	resolver  *templates.Resolver
	evaluator *routing.Evaluator
	memo      map[string]string
	warnings  []string
}

func (p *pass) warn(format string, args ...interface{}) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

// ruleScope is the per-rule view of the variable context
type ruleScope struct {
	rule        models.Rule
	vc          *models.VariableContext
	fingerprint string
}

func (s *ruleScope) variablesFingerprint() string {
	if s.fingerprint == "" {
		s.fingerprint = cache.Fingerprint(s.vc.Lookup())
	}
	return s.fingerprint
}

// Convert runs a conversion pass. It never returns nil and never fails as a
// whole; problems are reported in Result.Warnings and Result.Errors.
func (c *Converter) Convert(ctx context.Context, in Input) *Result {
	start := time.Now()
	settings := in.Settings.WithDefaults()
	active := profiles.Normalize(in.ActiveProfile)

	result := &Result{
		Rules:    []models.PlatformRule{},
		Warnings: []string{},
		Errors:   []models.RuleFailure{},
	}
	p := &pass{
		settings:  settings,
		resolver:  c.resolverFor(settings.ResolutionPasses),
		evaluator: c.evaluatorFor(settings.UnknownConditionPolicy),
		memo:      make(map[string]string),
	}

	selected := profiles.Select(in.Rules, active)
	if settings.SortByPriority {
		sort.SliceStable(selected, func(i, j int) bool {
			return selected[i].EffectivePriority() > selected[j].EffectivePriority()
		})
	}
	summary := models.ConversionSummary{ActiveProfile: active, Selected: len(selected)}

	base := models.VariableContext{}
	if in.Variables != nil {
		base = *in.Variables
	}
	if base.ProfileID == "" {
		base.ProfileID = active
	}

	logger := c.logger.WithContext(logging.ContextWithProfileID(ctx, active))

	for _, rule := range selected {
		if err := ctx.Err(); err != nil {
			p.warn("conversion cancelled after %d of %d rules", len(result.Rules), len(selected))
			logger.Warn("Conversion cancelled", logging.Err(err))
			break
		}

		ruleStart := time.Now()
		scope := &ruleScope{rule: rule, vc: base.ForRule(rule.ID)}
		platformRule, err := c.convertRule(ctx, p, scope)
		c.monitor.RecordRuleConversion(rule.ID, time.Since(ruleStart))

		switch {
		case err != nil:
			summary.Failed++
			result.Errors = append(result.Errors, models.RuleFailure{RuleID: rule.ID, Error: err.Error(), Err: err})
			c.analytics.RecordConversionFailure(ctx, rule.ID, err)
			logger.Error("Rule conversion failed", err, logging.String("rule_id", rule.ID))

		case platformRule == nil:
			summary.Dropped++

		default:
			platformRule.ID = len(result.Rules) + 1
			result.Rules = append(result.Rules, *platformRule)
			c.analytics.RecordConversionSuccess(ctx, rule.ID,
				len(platformRule.Action.RequestHeaders)+len(platformRule.Action.ResponseHeaders))
		}
	}

	if len(result.Rules) > settings.MaxRules {
		capErr := errors.CapacityError(settings.MaxRules, len(result.Rules))
		summary.Truncated = len(result.Rules) - settings.MaxRules
		result.Rules = result.Rules[:settings.MaxRules]
		p.warn("%s; dropped the last %d", capErr.Message, summary.Truncated)
		logger.Warn("Platform rules truncated to the rule budget",
			logging.Int("limit", settings.MaxRules),
			logging.Int("truncated", summary.Truncated),
		)
	}

	result.Warnings = append(result.Warnings, p.warnings...)
	summary.Emitted = len(result.Rules)
	summary.Duration = time.Since(start)
	result.Summary = summary
	c.monitor.RecordPass(summary)

	logger.Info("Conversion pass complete",
		logging.Int("selected", summary.Selected),
		logging.Int("emitted", summary.Emitted),
		logging.Int("dropped", summary.Dropped),
		logging.Int("failed", summary.Failed),
		logging.Duration("duration", summary.Duration),
	)
	return result
}

// convertRule converts a single rule. A nil rule with a nil error means the
// rule was dropped.
func (c *Converter) convertRule(ctx context.Context, p *pass, scope *ruleScope) (pr *models.PlatformRule, err error) {
	rule := scope.rule
	defer func() {
		if r := recover(); r != nil {
			pr = nil
			err = errors.RuleError(rule.ID, "conversion panicked", fmt.Errorf("%v", r))
		}
	}()

	if err := routing.ValidatePattern(rule.Pattern); err != nil {
		return nil, errors.RuleError(rule.ID, "invalid url pattern", err)
	}

	// with a request in the context, only rules that would apply to it are emitted
	if req := scope.vc.Request; req != nil {
		if !routing.MatchURL(req.URL, rule.Pattern).Matches || !p.evaluator.EvaluateAll(rule.Conditions, req) {
			c.logger.Debug("Rule does not apply to request",
				logging.String("rule_id", rule.ID),
				logging.String("url", req.URL),
			)
			return nil, nil
		}
	} else if p.evaluator.FailsClosed() {
		// the host cannot check these conditions
		if unknown := routing.UnknownConditionTypes(rule.Conditions); len(unknown) > 0 {
			p.warn("rule %s dropped: unknown condition types %v under %s", rule.ID, unknown, models.FailClosed)
			c.logger.Warn("Rule dropped for unknown condition types",
				logging.String("rule_id", rule.ID),
				logging.Strings("types", unknown),
			)
			return nil, nil
		}
	}

	action := models.PlatformAction{Type: models.ActionModifyHeaders}
	for _, h := range rule.Headers {
		header, target, ok := c.convertHeader(ctx, p, scope, h)
		if !ok {
			continue
		}
		if target == models.TargetResponse {
			action.ResponseHeaders = append(action.ResponseHeaders, header)
		} else {
			action.RequestHeaders = append(action.RequestHeaders, header)
		}
	}

	if len(action.RequestHeaders) == 0 && len(action.ResponseHeaders) == 0 {
		p.warn("rule %s dropped: no valid headers", rule.ID)
		c.logger.Warn("Rule dropped without valid headers", logging.String("rule_id", rule.ID))
		return nil, nil
	}

	return &models.PlatformRule{
		Priority: rule.EffectivePriority(),
		Condition: models.PlatformCondition{
			URLFilter:     URLFilter(rule.Pattern),
			ResourceTypes: p.settings.ResourceTypesFor(rule),
		},
		Action: action,
	}, nil
}

func (c *Converter) convertHeader(ctx context.Context, p *pass, scope *ruleScope, h models.HeaderEntry) (models.PlatformHeader, string, bool) {
	action, err := routing.CheckHeader(h)
	if err != nil {
		p.warn("rule %s: %v", scope.rule.ID, err)
		return models.PlatformHeader{}, "", false
	}

	header := models.PlatformHeader{Header: action.Name, Operation: action.Operation}
	if action.Operation != models.OperationRemove {
		header.Value = h.Value
		if templates.HasTemplate(h.Value) {
			header.Value = c.resolve(ctx, p, scope, action.Target, h)
		}
	}
	return header, action.Target, true
}

// resolve expands a templated header value. Identical templates are resolved
// once per pass; non-volatile results are also kept in the external cache.
// On failure the original template is used.
func (c *Converter) resolve(ctx context.Context, p *pass, scope *ruleScope, target string, h models.HeaderEntry) string {
	ruleID := scope.rule.ID
	memoKey := strings.Join([]string{ruleID, target, h.Name, h.Value}, "\x00")
	if v, ok := p.memo[memoKey]; ok {
		return v
	}

	var cacheKey string
	if c.cache != nil {
		cacheKey = cache.Key(scope.variablesFingerprint(), strconv.Itoa(p.settings.ResolutionPasses), ruleID, target, h.Name, h.Value)
		if v, ok := c.cache.Get(ctx, cacheKey); ok {
			p.memo[memoKey] = v
			return v
		}
	}

	res := p.resolver.Resolve(ctx, h.Value, scope.vc)
	if !res.Success {
		reason := res.Error
		if reason == "" {
			reason = "unresolved variables " + strings.Join(res.UnresolvedVariables, ", ")
		}
		p.warn("rule %s: header %s: %s", ruleID, h.Name, reason)
		c.logger.Warn("Header template not fully resolved",
			logging.String("rule_id", ruleID),
			logging.String("header", h.Name),
			logging.Strings("unresolved", res.UnresolvedVariables),
			logging.String("error", res.Error),
		)
	} else if c.cache != nil && !res.Volatile {
		if err := c.cache.Set(ctx, cacheKey, res.Value, c.cacheTTL); err != nil {
			c.logger.Debug("Failed to cache resolved header", logging.Err(err))
		}
	}

	p.memo[memoKey] = res.Value
	return res.Value
}

// Resolver returns the resolver a pass with the given extra-pass budget uses
func (c *Converter) Resolver(passes int) *templates.Resolver {
	return c.resolverFor(passes)
}

// Evaluator returns the condition evaluator for an unknown-condition policy
func (c *Converter) Evaluator(policy string) *routing.Evaluator {
	return c.evaluatorFor(policy)
}

func (c *Converter) resolverFor(passes int) *templates.Resolver {
	if c.resolver != nil {
		return c.resolver
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.resolvers[passes]
	if !ok {
		r = templates.NewResolver(&templates.ResolverConfig{ExtraPasses: passes, Logger: c.logger})
		c.resolvers[passes] = r
	}
	return r
}

func (c *Converter) evaluatorFor(policy string) *routing.Evaluator {
	if e, ok := c.evaluators[policy]; ok {
		return e
	}
	return c.evaluators[models.FailOpen]
}
