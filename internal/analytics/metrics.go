package analytics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"header-rules/internal/models"
)

// Metrics tracks conversion metrics in Prometheus.
//
// Metrics:
//   - <ns>_rule_conversions_total: rule conversions by outcome
//   - <ns>_rule_conversion_duration_seconds: per-rule conversion duration
//   - <ns>_conversion_pass_duration_seconds: duration of a whole pass
//   - <ns>_platform_rules: platform rules emitted by the last pass
//   - <ns>_rules_truncated_total: rules cut by the rule budget
type Metrics struct {
	registry *prometheus.Registry

	conversionsTotal *prometheus.CounterVec
	ruleDuration     *prometheus.HistogramVec
	passDuration     prometheus.Histogram
	platformRules    *prometheus.GaugeVec
	truncatedTotal   prometheus.Counter
}

// NewMetrics creates and registers conversion metrics. A nil registry gets
// a fresh one.
func NewMetrics(namespace string, registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: registry,

		conversionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_conversions_total",
				Help:      "Total number of rule conversions by outcome",
			},
			[]string{"outcome"},
		),

		ruleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rule_conversion_duration_seconds",
				Help:      "Duration of converting a single rule in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 15), // 10µs to 160ms
			},
			[]string{"rule_id"},
		),

		passDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "conversion_pass_duration_seconds",
				Help:      "Duration of a conversion pass in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15),
			},
		),

		platformRules: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "platform_rules",
				Help:      "Number of platform rules emitted by the last pass",
			},
			[]string{"profile"},
		),

		truncatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rules_truncated_total",
				Help:      "Total number of rules dropped by the rule budget",
			},
		),
	}

	registry.MustRegister(
		m.conversionsTotal,
		m.ruleDuration,
		m.passDuration,
		m.platformRules,
		m.truncatedTotal,
	)

	return m
}

func (m *Metrics) RecordConversionSuccess(context.Context, string, int) {
	m.conversionsTotal.WithLabelValues("success").Inc()
}

func (m *Metrics) RecordConversionFailure(context.Context, string, error) {
	m.conversionsTotal.WithLabelValues("failure").Inc()
}

func (m *Metrics) RecordRuleConversion(ruleID string, duration time.Duration) {
	m.ruleDuration.WithLabelValues(ruleID).Observe(duration.Seconds())
}

func (m *Metrics) RecordPass(summary models.ConversionSummary) {
	m.passDuration.Observe(summary.Duration.Seconds())
	m.platformRules.Reset()
	m.platformRules.WithLabelValues(summary.ActiveProfile).Set(float64(summary.Emitted))
	m.truncatedTotal.Add(float64(summary.Truncated))
}

// Registry returns the registry the metrics are registered with
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
