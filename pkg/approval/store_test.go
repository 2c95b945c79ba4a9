package approval

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tickets.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func newTicket(id, traceID string, risk int) *Ticket {
	return &Ticket{
		ID:        id,
		TraceID:   traceID,
		Reason:    "risk 120 >= threshold 100",
		RiskScore: risk,
		Surface:   "S-O",
		Action:    "jira_create",
		Requester: "analyst_123",
		State:     StatePending,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestStoreCreateGet(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := newTicket("tk-1", "tr-1", 120)
			if err := store.Create(ctx, want); err != nil {
				t.Fatalf("Create: %v", err)
			}

			got, err := store.Get(ctx, "tk-1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.TraceID != "tr-1" || got.State != StatePending || got.RiskScore != 120 {
				t.Errorf("Get = %+v", got)
			}

			_, err = store.Get(ctx, "missing")
			var notFound *TicketNotFoundError
			if !errors.As(err, &notFound) {
				t.Errorf("Get(missing) error = %v, want TicketNotFoundError", err)
			}
		})
	}
}

func TestStoreResolveExactlyOnce(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.Create(ctx, newTicket("tk-1", "tr-1", 120)); err != nil {
				t.Fatalf("Create: %v", err)
			}

			res := Resolution{
				Decision:   DecisionApprove,
				Actor:      "compliance_lead",
				Rationale:  "reviewed, acceptable",
				ResolvedAt: time.Now().UTC().Truncate(time.Second),
			}
			got, err := store.Resolve(ctx, "tk-1", res)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got.State != StateApproved {
				t.Errorf("state = %q, want APPROVED", got.State)
			}
			if got.Resolution == nil || got.Resolution.Actor != "compliance_lead" {
				t.Errorf("resolution = %+v", got.Resolution)
			}

			// Second attempt must fail regardless of decision.
			_, err = store.Resolve(ctx, "tk-1", Resolution{Decision: DecisionDeny, Actor: "other"})
			var already *TicketAlreadyResolvedError
			if !errors.As(err, &already) {
				t.Fatalf("second Resolve error = %v, want TicketAlreadyResolvedError", err)
			}
			if already.State != StateApproved {
				t.Errorf("error state = %q, want APPROVED", already.State)
			}

			_, err = store.Resolve(ctx, "ghost", res)
			var notFound *TicketNotFoundError
			if !errors.As(err, &notFound) {
				t.Errorf("Resolve(ghost) error = %v, want TicketNotFoundError", err)
			}
		})
	}
}

func TestStoreResolveDeny(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.Create(ctx, newTicket("tk-2", "tr-2", 50)); err != nil {
				t.Fatalf("Create: %v", err)
			}
			got, err := store.Resolve(ctx, "tk-2", Resolution{Decision: DecisionDeny, Actor: "reviewer"})
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got.State != StateDenied {
				t.Errorf("state = %q, want DENIED", got.State)
			}
		})
	}
}

func TestStorePendingOrderedByRisk(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, tk := range []*Ticket{
				newTicket("low", "tr-a", 30),
				newTicket("high", "tr-b", 150),
				newTicket("mid", "tr-c", 90),
			} {
				if err := store.Create(ctx, tk); err != nil {
					t.Fatalf("Create: %v", err)
				}
			}
			if _, err := store.Resolve(ctx, "mid", Resolution{Decision: DecisionApprove, Actor: "x"}); err != nil {
				t.Fatalf("Resolve: %v", err)
			}

			pending, err := store.Pending(ctx)
			if err != nil {
				t.Fatalf("Pending: %v", err)
			}
			if len(pending) != 2 {
				t.Fatalf("pending = %d tickets, want 2", len(pending))
			}
			if pending[0].ID != "high" || pending[1].ID != "low" {
				t.Errorf("pending order = %s, %s; want high, low", pending[0].ID, pending[1].ID)
			}
		})
	}
}

func TestStoreConcurrentResolutionSingleWinner(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.Create(ctx, newTicket("tk-race", "tr-race", 10)); err != nil {
				t.Fatalf("Create: %v", err)
			}

			const attempts = 8
			var wg sync.WaitGroup
			errs := make([]error, attempts)
			for i := 0; i < attempts; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = store.Resolve(ctx, "tk-race", Resolution{Decision: DecisionApprove, Actor: "racer"})
				}(i)
			}
			wg.Wait()

			wins := 0
			for _, err := range errs {
				if err == nil {
					wins++
				}
			}
			if wins != 1 {
				t.Errorf("%d resolution attempts succeeded, want exactly 1", wins)
			}
		})
	}
}
