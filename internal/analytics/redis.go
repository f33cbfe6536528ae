package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"header-rules/internal/circuitbreaker"
	"header-rules/internal/common/logging"
	"header-rules/internal/models"
	"header-rules/internal/redis"
)

const (
	// DefaultChannel is the pub/sub channel conversion events are published on
	DefaultChannel = "header-rules:events"
	// DefaultCountersKey is the hash holding shared counters
	DefaultCountersKey = "header-rules:analytics"

	redisTimeout = 2 * time.Second
)

// Event types
const (
	EventConversionFailure = "conversion_failure"
	EventConversionPass    = "conversion_pass"
)

// Event is the message published for every pass and failure
type Event struct {
	ID        string                    `json:"id"`
	Type      string                    `json:"type"`
	Timestamp time.Time                 `json:"timestamp"`
	RuleID    string                    `json:"ruleId,omitempty"`
	Error     string                    `json:"error,omitempty"`
	Summary   *models.ConversionSummary `json:"summary,omitempty"`
}

// RedisRecorder keeps counters in a Redis hash and publishes events. Redis
// errors are logged and otherwise ignored; after repeated failures a circuit
// breaker skips Redis until it recovers.
type RedisRecorder struct {
	client      *redis.Client
	breaker     *circuitbreaker.Breaker
	channel     string
	countersKey string
	logger      logging.Logger
	now         func() time.Time
}

// NewRedisRecorder creates a RedisRecorder. Empty names get defaults.
func NewRedisRecorder(client *redis.Client, channel, countersKey string, logger logging.Logger) *RedisRecorder {
	if channel == "" {
		channel = DefaultChannel
	}
	if countersKey == "" {
		countersKey = DefaultCountersKey
	}
	if logger == nil {
		logger = logging.Component("analytics")
	}
	return &RedisRecorder{
		client:      client,
		breaker:     circuitbreaker.New("analytics-redis", circuitbreaker.DefaultConfig(), logger),
		channel:     channel,
		countersKey: countersKey,
		logger:      logger,
		now:         time.Now,
	}
}

func (r *RedisRecorder) RecordConversionSuccess(ctx context.Context, _ string, headers int) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	r.increment(ctx, map[string]int64{"success": 1, "headers": int64(headers)})
}

func (r *RedisRecorder) RecordConversionFailure(ctx context.Context, ruleID string, err error) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	r.increment(ctx, map[string]int64{"failure": 1})

	event := r.newEvent(EventConversionFailure)
	event.RuleID = ruleID
	if err != nil {
		event.Error = err.Error()
	}
	r.publish(ctx, event)
}

// RecordRuleConversion is a no-op; per-rule timings belong to Metrics
func (r *RedisRecorder) RecordRuleConversion(string, time.Duration) {}

func (r *RedisRecorder) RecordPass(summary models.ConversionSummary) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	r.increment(ctx, map[string]int64{"passes": 1, "truncated": int64(summary.Truncated)})

	event := r.newEvent(EventConversionPass)
	event.Summary = &summary
	r.publish(ctx, event)
}

// Counters reads the shared counters back
func (r *RedisRecorder) Counters(ctx context.Context) (map[string]int64, error) {
	return r.client.Counters(ctx, r.countersKey)
}

func (r *RedisRecorder) newEvent(eventType string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: r.now().UTC(),
	}
}

// Breaker returns the breaker guarding Redis calls
func (r *RedisRecorder) Breaker() *circuitbreaker.Breaker {
	return r.breaker
}

func (r *RedisRecorder) increment(ctx context.Context, deltas map[string]int64) {
	err := r.breaker.Execute(ctx, func() error {
		return r.client.IncrementCounters(ctx, r.countersKey, deltas)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return
	}
	if err != nil {
		r.logger.Warn("Failed to update analytics counters", logging.Err(err))
	}
}

func (r *RedisRecorder) publish(ctx context.Context, event Event) {
	err := r.breaker.Execute(ctx, func() error {
		return r.client.Publish(ctx, r.channel, event)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return
	}
	if err != nil {
		r.logger.Warn("Failed to publish analytics event",
			logging.String("type", event.Type),
			logging.Err(err),
		)
	}
}
