package handlers

import (
	"net/http"
	"strings"
	"time"

	"header-rules/internal/routing"
)

// HealthCheck reports storage and Redis reachability
// @Summary Health check
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	components := h.service.Health(r.Context())

	status, code := "healthy", http.StatusOK
	for _, v := range components {
		if v != "ok" {
			status, code = "unhealthy", http.StatusServiceUnavailable
			break
		}
	}

	writeJSON(w, code, map[string]interface{}{
		"status":     status,
		"components": components,
		"time":       time.Now().UTC(),
	})
}

// GetPlatformRules returns the rules the host currently enforces
// @Summary Current platform rules
// @Router /api/platform-rules [get]
func (h *Handlers) GetPlatformRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.service.PlatformRules(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

// TriggerSync runs a conversion pass and replaces the host's rules
// @Summary Run a sync
// @Success 200 {object} models.SyncReport
// @Failure 409 {object} ErrorResponse "Another sync holds the lock"
// @Router /api/sync [post]
func (h *Handlers) TriggerSync(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Sync(r.Context(), "api")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetLastSync returns the most recent sync report
// @Router /api/sync/last [get]
func (h *Handlers) GetLastSync(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.LastSync(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// AnalyzeRequest reports which rules match a request and what they would do
// @Summary Analyze a request
// @Accept json
// @Param request body routing.AnalyzeRequest true "Request to analyze"
// @Success 200 {object} models.AnalysisResult
// @Router /api/analyze [post]
func (h *Handlers) AnalyzeRequest(w http.ResponseWriter, r *http.Request) {
	var req routing.AnalyzeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ResolveRequest is the body of POST /api/resolve. URL, Method and Headers
// describe an optional request for the request built-ins.
type ResolveRequest struct {
	Template string            `json:"template" validate:"required"`
	Profile  string            `json:"profile,omitempty"`
	URL      string            `json:"url,omitempty"`
	Method   string            `json:"method,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
}

// ResolveTemplate expands a template against the stored variables
// @Summary Resolve a template
// @Accept json
// @Param request body ResolveRequest true "Template to resolve"
// @Success 200 {object} templates.Result
// @Router /api/resolve [post]
func (h *Handlers) ResolveTemplate(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	analyze := routing.AnalyzeRequest{URL: req.URL, Method: req.Method, Headers: req.Headers}
	reqCtx := analyze.RequestContext(time.Now())
	if strings.TrimSpace(req.URL) == "" {
		reqCtx = nil
	}

	result, err := h.service.Resolve(r.Context(), req.Template, req.Profile, reqCtx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetStats returns the conversion counters of this instance
// @Router /api/stats [get]
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		http.Error(w, "Statistics not enabled", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, h.stats.Stats())
}

// Metrics serves the Prometheus registry
func (h *Handlers) Metrics() http.Handler {
	if h.metrics == nil {
		return http.NotFoundHandler()
	}
	return h.metrics
}
