// Package handlers exposes the engine's diagnostics over HTTP: the current
// platform rules, on-demand syncs, request analysis and template resolution.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"header-rules/internal/analytics"
	"header-rules/internal/common/errors"
	"header-rules/internal/common/logging"
	"header-rules/internal/common/templates"
	"header-rules/internal/common/validation"
	"header-rules/internal/models"
	"header-rules/internal/routing"
)

// Service is the engine surface the handlers need
type Service interface {
	Sync(ctx context.Context, trigger string) (*models.SyncReport, error)
	LastSync(ctx context.Context) (*models.SyncReport, error)
	PlatformRules(ctx context.Context) ([]models.PlatformRule, error)
	Analyze(ctx context.Context, req routing.AnalyzeRequest) (*models.AnalysisResult, error)
	Resolve(ctx context.Context, template, profile string, req *models.RequestContext) (*templates.Result, error)
	Health(ctx context.Context) map[string]string
}

// StatsSource reports conversion counters
type StatsSource interface {
	Stats() analytics.Stats
}

type Handlers struct {
	service   Service
	stats     StatsSource
	metrics   http.Handler
	validator *validation.CentralizedValidator
	logger    logging.Logger
}

// New creates the handlers. stats and metrics may be nil.
func New(service Service, stats StatsSource, metrics http.Handler) *Handlers {
	return &Handlers{
		service:   service,
		stats:     stats,
		metrics:   metrics,
		validator: validation.Default(),
		logger:    logging.Component("handlers"),
	}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string            `json:"error"`
	Type    string            `json:"type"`
	Details []string          `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps an error type to the HTTP status it is reported with
func statusFor(errType errors.ErrorType) int {
	switch errType {
	case errors.ErrTypeValidation, errors.ErrTypePattern:
		return http.StatusBadRequest
	case errors.ErrTypeNotFound:
		return http.StatusNotFound
	case errors.ErrTypeConflict:
		return http.StatusConflict
	case errors.ErrTypeStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	errType := errors.GetType(err)
	status := statusFor(errType)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", err,
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
		)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Type: string(errType)})
}

// decodeAndValidate reads a JSON body into dst and runs struct validation
func (h *Handlers) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "invalid JSON: " + err.Error(),
			Type:  string(errors.ErrTypeValidation),
		})
		return false
	}
	if fieldErrs := h.validator.Errors(dst); len(fieldErrs) > 0 {
		details := make([]string, len(fieldErrs))
		for i, fe := range fieldErrs {
			details[i] = fe.Message
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "request validation failed",
			Type:    string(errors.ErrTypeValidation),
			Details: details,
		})
		return false
	}
	return true
}
