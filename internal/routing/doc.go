// Package routing decides which header rules apply to a request.
//
// # Overview
//
// Matching happens in two steps:
//
//   - MatchURL scores a request URL against a rule's URL pattern
//   - Evaluator checks the rule's extra conditions (method, header, url)
//
// A rule applies when its pattern matches and every condition holds. The
// Processor combines both for the diagnostics API: it reports every matching
// rule with its score and the header modifications it would make, with
// template values resolved against the active variables. Headers that
// CheckHeader rejects are left out on both paths.
//
// # Pattern scoring
//
// A pattern has five parts. Each part contributes its weight times a part
// score in [0, 1]:
//
//	protocol 0.1   domain 0.4   path 0.3   port 0.1   query 0.1
//
// Empty and bare "*" parts are unconstrained and always score full weight.
// Literal parts score 1 on an exact match. Protocol and domain ignore case;
// path and query are compared as written. Wildcard parts lose wildcardPenalty
// per "*" and never drop below minWildcardScore, so "api.example.com" outranks
// "*.example.com" for the same URL. A query part matched by containment scores
// queryContainsScore.
//
// A constrained part that does not match makes the whole pattern miss with
// score 0. An unparsable URL or a pattern without a domain also misses.
//
// # Conditions
//
// Condition types and the operators they accept:
//
//	requestMethod  equals, contains
//	header         exists, equals, contains, regex
//	url            contains, regex, equals, startsWith
//
// Method and header comparisons ignore case. Condition types the evaluator
// does not know are decided by the unknown-condition policy, which fails open
// unless configured otherwise. Known types with an unsupported operator never
// hold.
//
// # Usage
//
//	evaluator := routing.NewEvaluator(settings.UnknownConditionPolicy, nil)
//	processor := routing.NewProcessor(resolver, evaluator, nil)
//
//	match := routing.MatchURL("https://api.example.com/v1/users", models.URLPattern{
//		Domain: "api.example.com",
//		Path:   "/v1/*",
//	})
//	// match.Matches == true, match.Score ≈ 0.91
//
//	result := processor.Analyze(ctx, routing.AnalyzeRequest{URL: u}, rules, active, vars)
package routing
