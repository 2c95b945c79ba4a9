package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the pruner unattended on a cron schedule.
type Scheduler struct {
	pruner *Pruner
	logger *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewScheduler creates a scheduler driving pruner.
func NewScheduler(pruner *Pruner) *Scheduler {
	return &Scheduler{
		pruner: pruner,
		logger: slog.Default().With("component", "evidence.scheduler"),
	}
}

// Start schedules pruning per the pruner's PruneSchedule ("0 3 * * *" runs
// daily at 03:00). An empty schedule leaves the scheduler off. Cancelling
// ctx stops it.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec := s.pruner.config.PruneSchedule
	if spec == "" {
		s.logger.Info("no prune schedule configured, pruning is manual only")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() { s.prune(ctx) }); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", spec, err)
	}
	c.Start()

	s.cron = c
	s.running = true
	s.logger.Info("retention schedule active",
		"schedule", spec,
		"retention_days", s.pruner.config.RetentionDays)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) prune(ctx context.Context) {
	deleted, err := s.pruner.Prune(ctx)
	if err != nil {
		s.logger.Error("scheduled prune failed", "error", err)
		return
	}
	s.logger.Info("scheduled prune finished", "deleted", deleted)
}

// Stop halts the schedule and waits for an in-flight prune to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("retention schedule stopped")
}

// IsRunning reports whether a schedule is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled prune, or nil when no schedule is
// active.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.cron == nil {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
