package converter

import (
	"context"
	"time"

	"header-rules/internal/models"
)

// Analytics receives the outcome of every rule conversion
type Analytics interface {
	RecordConversionSuccess(ctx context.Context, ruleID string, headers int)
	RecordConversionFailure(ctx context.Context, ruleID string, err error)
}

// PerformanceMonitor receives conversion timings
type PerformanceMonitor interface {
	RecordRuleConversion(ruleID string, duration time.Duration)
	RecordPass(summary models.ConversionSummary)
}

type noopAnalytics struct{}

func (noopAnalytics) RecordConversionSuccess(context.Context, string, int)   {}
func (noopAnalytics) RecordConversionFailure(context.Context, string, error) {}

type noopMonitor struct{}

func (noopMonitor) RecordRuleConversion(string, time.Duration) {}
func (noopMonitor) RecordPass(models.ConversionSummary)        {}
