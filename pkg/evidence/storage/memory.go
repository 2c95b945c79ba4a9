package storage

import (
	"context"
	"sort"
	"sync"

	"minos-hq/minos/pkg/evidence"
)

// MemoryStorage implements the Storage interface with an in-memory map. It
// backs tests and ephemeral simulate-only deployments; sealed evidence that
// must survive a restart belongs in SQLiteStorage.
type MemoryStorage struct {
	records map[string]*evidence.TraceRecord
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*evidence.TraceRecord),
	}
}

// Store persists a trace record. Duplicate trace IDs are rejected.
func (s *MemoryStorage) Store(ctx context.Context, record *evidence.TraceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return &evidence.DuplicateError{ID: record.ID}
	}
	recordCopy := *record
	s.records[record.ID] = &recordCopy
	return nil
}

// Get returns the record for a trace ID.
func (s *MemoryStorage) Get(ctx context.Context, id string) (*evidence.TraceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, &evidence.NotFoundError{ID: id}
	}
	recordCopy := *record
	return &recordCopy, nil
}

// Query retrieves trace records matching the query filters.
func (s *MemoryStorage) Query(ctx context.Context, query *evidence.Query) ([]*evidence.TraceRecord, error) {
	if err := query.Validate(); err != nil {
		return nil, evidence.NewQueryError(query, err)
	}

	s.mu.RLock()
	var results []*evidence.TraceRecord
	for _, record := range s.records {
		if query.Matches(record) {
			recordCopy := *record
			results = append(results, &recordCopy)
		}
	}
	s.mu.RUnlock()

	sortRecords(results, query)
	return paginate(results, query), nil
}

// QueryStream streams matching records. Both channels close when the query
// completes or errors.
func (s *MemoryStorage) QueryStream(ctx context.Context, query *evidence.Query) (<-chan *evidence.TraceRecord, <-chan error, error) {
	if err := query.Validate(); err != nil {
		return nil, nil, evidence.NewQueryError(query, err)
	}

	recordsCh := make(chan *evidence.TraceRecord, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		records, err := s.Query(ctx, query)
		if err != nil {
			errCh <- err
			return
		}
		for _, record := range records {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, query *evidence.Query) (int64, error) {
	if err := query.Validate(); err != nil {
		return 0, evidence.NewQueryError(query, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if query.Matches(record) {
			count++
		}
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *MemoryStorage) Delete(ctx context.Context, query *evidence.Query) (int64, error) {
	if err := query.Validate(); err != nil {
		return 0, evidence.NewQueryError(query, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if query.Matches(record) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close releases resources held by the storage backend.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*evidence.TraceRecord)
	return nil
}

// Size returns the number of records in storage (for testing).
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func sortRecords(records []*evidence.TraceRecord, query *evidence.Query) {
	asc := query.SortOrder == "asc"
	byRisk := query.SortBy == "risk_score"
	sort.Slice(records, func(i, j int) bool {
		var less bool
		if byRisk {
			if records[i].RiskScore != records[j].RiskScore {
				less = records[i].RiskScore < records[j].RiskScore
			} else {
				less = records[i].ID < records[j].ID
			}
		} else {
			if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
				less = records[i].CreatedAt.Before(records[j].CreatedAt)
			} else {
				less = records[i].ID < records[j].ID
			}
		}
		if asc {
			return less
		}
		return !less
	})
}

func paginate(records []*evidence.TraceRecord, query *evidence.Query) []*evidence.TraceRecord {
	start := query.Offset
	if start > len(records) {
		return []*evidence.TraceRecord{}
	}
	end := len(records)
	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}
	if start+limit < end {
		end = start + limit
	}
	return records[start:end]
}
