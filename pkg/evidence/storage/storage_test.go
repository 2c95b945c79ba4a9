package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"minos-hq/minos/pkg/evidence"
)

func testBackends(t *testing.T) map[string]evidence.Storage {
	t.Helper()
	sqlite, err := NewSQLiteStorage(&SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "evidence.db"),
	})
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]evidence.Storage{
		"memory": NewMemoryStorage(),
		"sqlite": sqlite,
	}
}

func testRecord(id string, created time.Time) *evidence.TraceRecord {
	return &evidence.TraceRecord{
		ID:            id,
		RequestID:     "req-" + id,
		SessionID:     "sess-1",
		ActorID:       "analyst_123",
		Surface:       "S-O",
		Intent:        "document-read",
		Action:        "sharepoint_read",
		State:         "sealed",
		Decision:      "ALLOW",
		Resolution:    "auto",
		RiskScore:     80,
		PolicyHash:    "abc123",
		PolicyVersion: "2026.08",
		Exportable:    true,
		CreatedAt:     created,
		SealedAt:      created.Add(5 * time.Millisecond),
		Trace:         []byte(`{"id":"` + id + `"}`),
	}
}

func TestStoreAndGet(t *testing.T) {
	for name, backend := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC().Truncate(time.Second)

			want := testRecord("tr-1", now)
			if err := backend.Store(ctx, want); err != nil {
				t.Fatalf("Store: %v", err)
			}

			got, err := backend.Get(ctx, "tr-1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.ActorID != want.ActorID || got.Decision != want.Decision ||
				got.RiskScore != want.RiskScore || got.PolicyHash != want.PolicyHash {
				t.Errorf("Get = %+v", got)
			}
			if string(got.Trace) != string(want.Trace) {
				t.Errorf("trace document = %s, want %s", got.Trace, want.Trace)
			}

			_, err = backend.Get(ctx, "missing")
			var notFound *evidence.NotFoundError
			if !errors.As(err, &notFound) {
				t.Errorf("Get(missing) error = %v, want NotFoundError", err)
			}
		})
	}
}

func TestStoreRejectsDuplicate(t *testing.T) {
	for name, backend := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			record := testRecord("tr-dup", time.Now().UTC())
			if err := backend.Store(ctx, record); err != nil {
				t.Fatalf("Store: %v", err)
			}

			err := backend.Store(ctx, record)
			var dup *evidence.DuplicateError
			if !errors.As(err, &dup) {
				t.Errorf("duplicate Store error = %v, want DuplicateError", err)
			}
		})
	}
}

func TestQueryFilters(t *testing.T) {
	for name, backend := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

			allow := testRecord("tr-allow", base)
			deny := testRecord("tr-deny", base.Add(time.Hour))
			deny.Decision = "DENY"
			deny.State = "halted"
			deny.ActorID = "agent_9"
			deny.Surface = "U-O"
			deny.RiskScore = 200
			deny.Exportable = false

			for _, r := range []*evidence.TraceRecord{allow, deny} {
				if err := backend.Store(ctx, r); err != nil {
					t.Fatalf("Store: %v", err)
				}
			}

			cases := map[string]struct {
				query *evidence.Query
				want  []string
			}{
				"by decision": {&evidence.Query{Decision: "DENY"}, []string{"tr-deny"}},
				"by actor":    {&evidence.Query{ActorID: "analyst_123"}, []string{"tr-allow"}},
				"by surface":  {&evidence.Query{Surface: "U-O"}, []string{"tr-deny"}},
				"by min risk": {&evidence.Query{MinRisk: intPtr(100)}, []string{"tr-deny"}},
				"by time window": {&evidence.Query{
					StartTime: timePtr(base.Add(30 * time.Minute)),
				}, []string{"tr-deny"}},
				"all sorted desc": {&evidence.Query{}, []string{"tr-deny", "tr-allow"}},
			}

			for cname, tc := range cases {
				t.Run(cname, func(t *testing.T) {
					got, err := backend.Query(ctx, tc.query)
					if err != nil {
						t.Fatalf("Query: %v", err)
					}
					if len(got) != len(tc.want) {
						t.Fatalf("got %d records, want %d", len(got), len(tc.want))
					}
					for i, id := range tc.want {
						if got[i].ID != id {
							t.Errorf("record %d = %s, want %s", i, got[i].ID, id)
						}
					}
				})
			}
		})
	}
}

func TestQueryValidation(t *testing.T) {
	for name, backend := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := backend.Query(context.Background(), &evidence.Query{Limit: -1})
			var qerr *evidence.QueryError
			if !errors.As(err, &qerr) {
				t.Errorf("Query error = %v, want QueryError", err)
			}
		})
	}
}

func TestCountAndDelete(t *testing.T) {
	for name, backend := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
			for i := 0; i < 5; i++ {
				r := testRecord(fmt.Sprintf("tr-%d", i), base.Add(time.Duration(i)*time.Hour))
				if err := backend.Store(ctx, r); err != nil {
					t.Fatalf("Store: %v", err)
				}
			}

			count, err := backend.Count(ctx, &evidence.Query{})
			if err != nil {
				t.Fatalf("Count: %v", err)
			}
			if count != 5 {
				t.Errorf("count = %d, want 5", count)
			}

			cutoff := base.Add(150 * time.Minute)
			deleted, err := backend.Delete(ctx, &evidence.Query{EndTime: &cutoff})
			if err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if deleted != 3 {
				t.Errorf("deleted = %d, want 3", deleted)
			}

			count, err = backend.Count(ctx, &evidence.Query{})
			if err != nil {
				t.Fatalf("Count: %v", err)
			}
			if count != 2 {
				t.Errorf("count after delete = %d, want 2", count)
			}
		})
	}
}

func TestQueryStream(t *testing.T) {
	for name, backend := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
			for i := 0; i < 20; i++ {
				r := testRecord(fmt.Sprintf("tr-%02d", i), base.Add(time.Duration(i)*time.Minute))
				if err := backend.Store(ctx, r); err != nil {
					t.Fatalf("Store: %v", err)
				}
			}

			recordsCh, errCh, err := backend.QueryStream(ctx, &evidence.Query{Limit: 50})
			if err != nil {
				t.Fatalf("QueryStream: %v", err)
			}

			var streamed int
			for range recordsCh {
				streamed++
			}
			if err := <-errCh; err != nil {
				t.Fatalf("stream error: %v", err)
			}
			if streamed != 20 {
				t.Errorf("streamed %d records, want 20", streamed)
			}
		})
	}
}

func TestQueryPagination(t *testing.T) {
	for name, backend := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
			for i := 0; i < 10; i++ {
				r := testRecord(fmt.Sprintf("tr-%02d", i), base.Add(time.Duration(i)*time.Minute))
				if err := backend.Store(ctx, r); err != nil {
					t.Fatalf("Store: %v", err)
				}
			}

			page, err := backend.Query(ctx, &evidence.Query{
				Limit:     3,
				Offset:    3,
				SortBy:    "created_at",
				SortOrder: "asc",
			})
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(page) != 3 {
				t.Fatalf("page size = %d, want 3", len(page))
			}
			if page[0].ID != "tr-03" || page[2].ID != "tr-05" {
				t.Errorf("page = %s..%s, want tr-03..tr-05", page[0].ID, page[2].ID)
			}
		})
	}
}

func intPtr(v int) *int              { return &v }
func timePtr(v time.Time) *time.Time { return &v }
