package analytics

import (
	"context"
	"sync"
	"time"

	"header-rules/internal/common/logging"
	"header-rules/internal/models"
)

// Recorder receives conversion outcomes and timings
type Recorder interface {
	RecordConversionSuccess(ctx context.Context, ruleID string, headers int)
	RecordConversionFailure(ctx context.Context, ruleID string, err error)
	RecordRuleConversion(ruleID string, duration time.Duration)
	RecordPass(summary models.ConversionSummary)
}

// LogRecorder logs conversion outcomes
type LogRecorder struct {
	logger logging.Logger
}

// NewLogRecorder creates a LogRecorder. A nil logger uses the global one.
func NewLogRecorder(logger logging.Logger) *LogRecorder {
	if logger == nil {
		logger = logging.Component("analytics")
	}
	return &LogRecorder{logger: logger}
}

func (l *LogRecorder) RecordConversionSuccess(ctx context.Context, ruleID string, headers int) {
	l.logger.WithContext(ctx).Debug("Rule converted",
		logging.String("rule_id", ruleID),
		logging.Int("headers", headers),
	)
}

func (l *LogRecorder) RecordConversionFailure(ctx context.Context, ruleID string, err error) {
	l.logger.WithContext(ctx).Warn("Rule conversion failed",
		logging.String("rule_id", ruleID),
		logging.Err(err),
	)
}

func (l *LogRecorder) RecordRuleConversion(ruleID string, duration time.Duration) {
	l.logger.Debug("Rule conversion timing",
		logging.String("rule_id", ruleID),
		logging.Duration("duration", duration),
	)
}

func (l *LogRecorder) RecordPass(summary models.ConversionSummary) {
	l.logger.Info("Conversion pass recorded",
		logging.String("profile", summary.ActiveProfile),
		logging.Int("emitted", summary.Emitted),
		logging.Int("failed", summary.Failed),
		logging.Duration("duration", summary.Duration),
	)
}

// Stats is a snapshot of in-process counters
type Stats struct {
	Successes    int64                     `json:"successes"`
	Failures     int64                     `json:"failures"`
	Passes       int64                     `json:"passes"`
	LastPass     *models.ConversionSummary `json:"lastPass,omitempty"`
	LastFailures map[string]string         `json:"lastFailures,omitempty"` // rule id -> error
	RuleTimings  map[string]float64        `json:"ruleTimings,omitempty"`  // rule id -> last duration in ms
}

// MemoryRecorder keeps counters in memory. It is safe for concurrent use.
type MemoryRecorder struct {
	mu    sync.RWMutex
	stats Stats
}

// NewMemoryRecorder creates an empty MemoryRecorder
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		stats: Stats{
			LastFailures: make(map[string]string),
			RuleTimings:  make(map[string]float64),
		},
	}
}

func (m *MemoryRecorder) RecordConversionSuccess(_ context.Context, ruleID string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Successes++
	delete(m.stats.LastFailures, ruleID)
}

func (m *MemoryRecorder) RecordConversionFailure(_ context.Context, ruleID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Failures++
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	m.stats.LastFailures[ruleID] = msg
}

func (m *MemoryRecorder) RecordRuleConversion(ruleID string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.RuleTimings[ruleID] = float64(duration) / float64(time.Millisecond)
}

func (m *MemoryRecorder) RecordPass(summary models.ConversionSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Passes++
	m.stats.LastPass = &summary
}

// Stats returns a copy of the counters
func (m *MemoryRecorder) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.stats
	out.LastFailures = make(map[string]string, len(m.stats.LastFailures))
	for k, v := range m.stats.LastFailures {
		out.LastFailures[k] = v
	}
	out.RuleTimings = make(map[string]float64, len(m.stats.RuleTimings))
	for k, v := range m.stats.RuleTimings {
		out.RuleTimings[k] = v
	}
	if m.stats.LastPass != nil {
		last := *m.stats.LastPass
		out.LastPass = &last
	}
	return out
}

// Multi forwards every call to all of its recorders
type Multi []Recorder

func (m Multi) RecordConversionSuccess(ctx context.Context, ruleID string, headers int) {
	for _, r := range m {
		r.RecordConversionSuccess(ctx, ruleID, headers)
	}
}

func (m Multi) RecordConversionFailure(ctx context.Context, ruleID string, err error) {
	for _, r := range m {
		r.RecordConversionFailure(ctx, ruleID, err)
	}
}

func (m Multi) RecordRuleConversion(ruleID string, duration time.Duration) {
	for _, r := range m {
		r.RecordRuleConversion(ruleID, duration)
	}
}

func (m Multi) RecordPass(summary models.ConversionSummary) {
	for _, r := range m {
		r.RecordPass(summary)
	}
}
