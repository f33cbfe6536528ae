package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"header-rules/internal/common/logging"
)

// Scheduler runs a periodic resync on a standard five-field cron spec, for
// example "*/15 * * * *".
type Scheduler struct {
	spec    string
	job     func(ctx context.Context) error
	cron    *cron.Cron
	mu      sync.Mutex
	logger  logging.Logger
	running bool
}

// NewScheduler creates a scheduler running job on spec
func NewScheduler(spec string, job func(ctx context.Context) error, logger logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Component("scheduler")
	}
	return &Scheduler{
		spec:   spec,
		job:    job,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start registers the job and starts the cron loop. The scheduler stops when
// ctx is cancelled. An empty spec does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.spec == "" {
		s.logger.Info("Resync schedule not configured, skipping scheduler")
		return nil
	}
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if _, err := cron.ParseStandard(s.spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.spec, err)
	}
	if _, err := s.cron.AddFunc(s.spec, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule resync: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("Resync scheduler started", logging.String("schedule", s.spec))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	start := time.Now()
	if err := s.job(ctx); err != nil {
		s.logger.Error("Scheduled resync failed", err)
		return
	}
	s.logger.Debug("Scheduled resync completed", logging.Duration("duration", time.Since(start)))
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
	}
}

// IsRunning reports whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled resync, or nil when nothing is scheduled
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
