package routing

import (
	"context"
	"sort"
	"strings"
	"time"

	"header-rules/internal/common/logging"
	"header-rules/internal/common/templates"
	"header-rules/internal/models"
	"header-rules/internal/profiles"
)

// AnalyzeRequest is the request a rule analysis is performed for
type AnalyzeRequest struct {
	URL     string            `json:"url" validate:"required"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Processor runs the same selection and matching as a conversion pass but,
// instead of emitting platform rules, reports what would happen to a single
// request. It is used by diagnostics tooling.
type Processor struct {
	resolver  *templates.Resolver
	evaluator *Evaluator
	logger    logging.Logger
	now       func() time.Time
}

// NewProcessor creates a processor. Nil arguments get defaults.
func NewProcessor(resolver *templates.Resolver, evaluator *Evaluator, logger logging.Logger) *Processor {
	if logger == nil {
		logger = logging.Component("processor")
	}
	if resolver == nil {
		resolver = templates.NewResolver(&templates.ResolverConfig{Logger: logger})
	}
	if evaluator == nil {
		evaluator = NewEvaluator(models.FailOpen, logger)
	}
	return &Processor{
		resolver:  resolver,
		evaluator: evaluator,
		logger:    logger,
		now:       time.Now,
	}
}

// RequestContext converts an analyze request into the context used by
// conditions and template built-ins. The method defaults to GET.
func (r AnalyzeRequest) RequestContext(now time.Time) *models.RequestContext {
	method := strings.ToUpper(strings.TrimSpace(r.Method))
	if method == "" {
		method = "GET"
	}
	return &models.RequestContext{
		URL:       r.URL,
		Method:    method,
		Headers:   r.Headers,
		Timestamp: now,
	}
}

// MatchRule scores rule against req. A rule matches when its pattern matches
// the URL and all of its conditions hold.
func (p *Processor) MatchRule(rule models.Rule, req *models.RequestContext) (PatternMatch, bool) {
	match := MatchURL(req.URL, rule.Pattern)
	if !match.Matches {
		return match, false
	}
	if !p.evaluator.EvaluateAll(rule.Conditions, req) {
		return match, false
	}
	return match, true
}

// Analyze reports which rules of the active profile match req and the header
// modifications they would apply. Matched rules are ordered by score, highest
// first; ties keep collection order.
func (p *Processor) Analyze(ctx context.Context, req AnalyzeRequest, rules models.RuleCollection, active string, vc *models.VariableContext) *models.AnalysisResult {
	start := time.Now()
	reqCtx := req.RequestContext(p.now())

	result := &models.AnalysisResult{
		URL:                 req.URL,
		Method:              reqCtx.Method,
		MatchedRules:        []models.MatchedRule{},
		HeaderModifications: []models.HeaderModification{},
		Timestamp:           reqCtx.Timestamp,
	}
	defer func() {
		result.ExecutionTime = Milliseconds(time.Since(start))
	}()

	base := models.VariableContext{}
	if vc != nil {
		base = *vc
	}
	base.Request = reqCtx
	base.ProfileID = CoalesceString(base.ProfileID, active)

	modsByRule := make(map[string][]models.HeaderModification)

	for _, rule := range profiles.Select(rules, active) {
		if ctx.Err() != nil {
			p.logger.Warn("Analysis cancelled", logging.String("url", req.URL), logging.Err(ctx.Err()))
			break
		}

		ruleStart := time.Now()
		match, ok := p.MatchRule(rule, reqCtx)
		if !ok {
			continue
		}

		modsByRule[rule.ID] = p.headerModifications(ctx, rule, base.ForRule(rule.ID))
		result.MatchedRules = append(result.MatchedRules, models.MatchedRule{
			RuleID:        rule.ID,
			RuleName:      rule.Name,
			MatchScore:    match.Score,
			ExecutionTime: Milliseconds(time.Since(ruleStart)),
			Priority:      rule.EffectivePriority(),
		})
	}

	sort.SliceStable(result.MatchedRules, func(i, j int) bool {
		return result.MatchedRules[i].MatchScore > result.MatchedRules[j].MatchScore
	})
	for _, matched := range result.MatchedRules {
		result.HeaderModifications = append(result.HeaderModifications, modsByRule[matched.RuleID]...)
	}

	p.logger.Debug("Analyzed request",
		logging.String("url", req.URL),
		logging.String("profile", active),
		logging.Int("matched", len(result.MatchedRules)),
	)
	return result
}

// headerModifications lists what rule would do to the request. Headers the
// host would reject are left out, as a conversion pass leaves them out.
func (p *Processor) headerModifications(ctx context.Context, rule models.Rule, vc *models.VariableContext) []models.HeaderModification {
	mods := make([]models.HeaderModification, 0, len(rule.Headers))
	for _, h := range rule.Headers {
		action, err := CheckHeader(h)
		if err != nil {
			p.logger.Debug("Skipping header the host would reject",
				logging.String("rule_id", rule.ID),
				logging.Err(err),
			)
			continue
		}

		mod := models.HeaderModification{
			RuleID:    rule.ID,
			Header:    action.Name,
			Operation: action.Operation,
			Target:    action.Target,
			Resolved:  true,
		}
		if action.Operation != models.OperationRemove {
			mod.Value = h.Value
			if templates.HasTemplate(h.Value) {
				res := p.resolver.Resolve(ctx, h.Value, vc)
				mod.Value = res.Value
				mod.OriginalValue = h.Value
				mod.Resolved = res.Success
			}
		}
		mods = append(mods, mod)
	}
	return mods
}
