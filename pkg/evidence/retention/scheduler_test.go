package retention

import (
	"context"
	"testing"

	"minos-hq/minos/pkg/evidence/storage"
)

func TestSchedulerStartStop(t *testing.T) {
	pruner := NewPruner(storage.NewMemoryStorage(), &Config{
		RetentionDays: 30,
		PruneSchedule: "0 3 * * *",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pruner.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !pruner.scheduler.IsRunning() {
		t.Error("scheduler not running after Start")
	}
	if pruner.NextPruning() == nil {
		t.Error("NextPruning returned nil while running")
	}

	pruner.Stop()
	if pruner.scheduler.IsRunning() {
		t.Error("scheduler still running after Stop")
	}
}

func TestSchedulerEmptySchedule(t *testing.T) {
	pruner := NewPruner(storage.NewMemoryStorage(), &Config{
		RetentionDays: 30,
		PruneSchedule: "",
	})

	if err := pruner.Start(context.Background()); err != nil {
		t.Fatalf("Start with empty schedule: %v", err)
	}
	if pruner.scheduler.IsRunning() {
		t.Error("scheduler running despite empty schedule")
	}
}

func TestSchedulerInvalidSchedule(t *testing.T) {
	pruner := NewPruner(storage.NewMemoryStorage(), &Config{
		RetentionDays: 30,
		PruneSchedule: "not a cron expression",
	})

	if err := pruner.Start(context.Background()); err == nil {
		t.Error("Start accepted an invalid cron expression")
		pruner.Stop()
	}
}
