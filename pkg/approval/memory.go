package approval

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory ticket store for tests and single-process
// deployments without persistence requirements.
type MemoryStore struct {
	mu      sync.RWMutex
	tickets map[string]*Ticket
}

// NewMemoryStore creates an empty in-memory ticket store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tickets: make(map[string]*Ticket)}
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, t *Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tickets[t.ID] = &cp
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, &TicketNotFoundError{ID: id}
	}
	cp := *t
	return &cp, nil
}

// Resolve implements Store. The mutex makes the check-then-set atomic, so a
// ticket resolves exactly once even under concurrent attempts.
func (s *MemoryStore) Resolve(ctx context.Context, id string, res Resolution) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, &TicketNotFoundError{ID: id}
	}
	if t.Resolved() {
		return nil, &TicketAlreadyResolvedError{ID: id, State: t.State}
	}

	if res.Decision == DecisionApprove {
		t.State = StateApproved
	} else {
		t.State = StateDenied
	}
	r := res
	t.Resolution = &r

	cp := *t
	return &cp, nil
}

// Pending implements Store.
func (s *MemoryStore) Pending(ctx context.Context) ([]*Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Ticket
	for _, t := range s.tickets {
		if !t.Resolved() {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RiskScore != out[j].RiskScore {
			return out[i].RiskScore > out[j].RiskScore
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
