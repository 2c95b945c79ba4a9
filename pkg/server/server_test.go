package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"minos-hq/minos/pkg/approval"
	"minos-hq/minos/pkg/config"
	"minos-hq/minos/pkg/evidence"
	"minos-hq/minos/pkg/evidence/export"
	"minos-hq/minos/pkg/evidence/recorder"
	"minos-hq/minos/pkg/evidence/storage"
	"minos-hq/minos/pkg/pipeline"
	"minos-hq/minos/pkg/policy"
	"minos-hq/minos/pkg/telemetry/health"
)

const testPolicy = `{
	"version": "2026.08",
	"intents": [
		{"name": "document-read", "actions": ["sharepoint_read"], "keywords": ["read", "document"]},
		{"name": "external-data-share", "actions": ["email_send"], "keywords": ["share externally"]}
	],
	"gates": {
		"data-classification": {
			"rules": [
				{"id": "R-PII-001", "gate": "data-classification", "action": "flag", "weight": 80,
				 "match": {"sensitivity": {"kind": "pii", "min_severity": "medium"}}},
				{"id": "R-EXT-001", "gate": "data-classification", "action": "flag", "weight": 40,
				 "match": {"intent": "external-data-share"}}
			]
		}
	},
	"pillars": {"dignity": true, "hope": true, "agency": true},
	"risk": {"threshold": 100}
}`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testServer wires an in-memory stack behind a started httptest server.
type testServer struct {
	url       string
	engine    *pipeline.Engine
	storage   evidence.Storage
	approvals approval.Store
	rec       *recorder.Recorder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	snap, err := policy.Parse([]byte(testPolicy), "test")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	store := policy.NewStore(quietLogger())
	store.Activate(snap)

	approvals := approval.NewMemoryStore()
	traceStore := storage.NewMemoryStorage()
	rec, err := recorder.New(traceStore, &recorder.Config{Enabled: true, WriteTimeout: time.Second}, quietLogger())
	if err != nil {
		t.Fatalf("recorder.New: %v", err)
	}
	t.Cleanup(func() { rec.Close() })

	engine, err := pipeline.NewEngine(store, nil, nil, nil, approvals, rec, nil, nil, quietLogger())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	checker := health.New(time.Second)
	checker.Register("policy", func(ctx context.Context) error {
		if store.Active() == nil {
			return fmt.Errorf("no active policy")
		}
		return nil
	})

	cfg := &config.ServerConfig{
		ListenAddress:   "127.0.0.1:0",
		ShutdownTimeout: time.Second,
	}
	srv, err := New(cfg, Dependencies{
		Engine:    engine,
		Policies:  store,
		Approvals: approvals,
		Storage:   traceStore,
		Export: config.ExportConfig{
			CSVIncludeHeader: true,
			MaxExportSize:    1000,
			PacketGenerator:  "minos-test",
		},
		Health: checker,
		Logger: quietLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	return &testServer{
		url:       hs.URL,
		engine:    engine,
		storage:   traceStore,
		approvals: approvals,
		rec:       rec,
	}
}

func (ts *testServer) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(ts.url+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (ts *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.url + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// waitForRecords polls storage until n records exist. Seals are written by
// the recorder's background worker.
func (ts *testServer) waitForRecords(t *testing.T, n int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		count, err := ts.storage.Count(context.Background(), &evidence.Query{})
		if err != nil {
			t.Fatalf("Count: %v", err)
		}
		if count >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("storage never reached %d records", n)
}

// evaluate posts one request and returns the trace.
func (ts *testServer) evaluate(t *testing.T, req pipeline.Request) *pipeline.Trace {
	t.Helper()
	resp := ts.post(t, "/v1/evaluate", req)
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("evaluate status = %d, body %s", resp.StatusCode, body)
	}
	tr := decodeBody[*pipeline.Trace](t, resp)
	return tr
}

func TestEvaluateEndpoint(t *testing.T) {
	ts := newTestServer(t)

	tr := ts.evaluate(t, pipeline.Request{
		Actor:   pipeline.Actor{ID: "analyst_1", Roles: []string{"analyst"}},
		Surface: "S-O",
		Action:  "sharepoint_read",
		Content: "read the quarterly document",
	})

	if tr.Verdict == nil || tr.Verdict.Decision != pipeline.DecisionAllow {
		t.Fatalf("verdict = %+v, want ALLOW", tr.Verdict)
	}
	if tr.State != pipeline.StateSealed {
		t.Errorf("state = %q, want sealed", tr.State)
	}
}

func TestEvaluateRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.url+"/v1/evaluate", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestTraceLookup(t *testing.T) {
	ts := newTestServer(t)

	tr := ts.evaluate(t, pipeline.Request{
		Actor:   pipeline.Actor{ID: "analyst_1"},
		Surface: "S-O",
		Action:  "sharepoint_read",
	})
	ts.waitForRecords(t, 1)

	resp := ts.get(t, "/v1/traces/"+tr.ID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	record := decodeBody[*evidence.TraceRecord](t, resp)
	if record.ID != tr.ID || record.Decision != "ALLOW" {
		t.Errorf("record = %+v", record)
	}
}

func TestTraceLookupNotFound(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get(t, "/v1/traces/no-such-trace")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestTraceQueryFilters(t *testing.T) {
	ts := newTestServer(t)

	ts.evaluate(t, pipeline.Request{Actor: pipeline.Actor{ID: "a1"}, Surface: "S-O", Action: "sharepoint_read"})
	ts.evaluate(t, pipeline.Request{Actor: pipeline.Actor{ID: "a2"}, Surface: "U-I", Action: "sharepoint_read"})
	ts.waitForRecords(t, 2)

	resp := ts.get(t, "/v1/traces?actor_id=a1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	list := decodeBody[traceListResponse](t, resp)
	if list.Count != 1 || list.Records[0].ActorID != "a1" {
		t.Errorf("filtered list = %+v", list)
	}
}

func TestTraceQueryRejectsBadParams(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{
		"/v1/traces?start_time=yesterday",
		"/v1/traces?min_risk=high",
		"/v1/traces?sort_by=color",
		"/v1/traces?limit=-1",
	} {
		resp := ts.get(t, path)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", path, resp.StatusCode)
		}
	}
}

func TestApprovalFlow(t *testing.T) {
	ts := newTestServer(t)

	tr := ts.evaluate(t, pipeline.Request{
		Actor:   pipeline.Actor{ID: "analyst_1"},
		Surface: "S-O",
		Action:  "email_send",
		Content: "share externally, cc jane.doe@example.com",
	})
	if tr.State != pipeline.StateEscalated {
		t.Fatalf("state = %q, want escalated", tr.State)
	}

	resp := ts.get(t, "/v1/approvals")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list approvals status = %d", resp.StatusCode)
	}
	tickets := decodeBody[[]*approval.Ticket](t, resp)
	if len(tickets) != 1 || tickets[0].ID != tr.TicketID {
		t.Fatalf("pending tickets = %+v", tickets)
	}

	resp = ts.post(t, "/v1/approvals/"+tr.TicketID+"/resolve", resolveRequest{
		Decision: "approve", Actor: "compliance_lead", Rationale: "reviewed",
	})
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("resolve status = %d, body %s", resp.StatusCode, body)
	}
	resolved := decodeBody[*pipeline.Trace](t, resp)
	if resolved.Verdict.Decision != pipeline.DecisionAllow ||
		resolved.Verdict.Resolution != pipeline.ResolutionHumanApproved {
		t.Errorf("verdict = %+v, want ALLOW/human-approved", resolved.Verdict)
	}

	// Second resolution conflicts.
	resp = ts.post(t, "/v1/approvals/"+tr.TicketID+"/resolve", resolveRequest{
		Decision: "deny", Actor: "other",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second resolve status = %d, want 409", resp.StatusCode)
	}
}

func TestResolveValidation(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.post(t, "/v1/approvals/no-such-ticket/resolve", resolveRequest{
		Decision: "approve", Actor: "reviewer",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown ticket status = %d, want 404", resp.StatusCode)
	}

	resp = ts.post(t, "/v1/approvals/x/resolve", resolveRequest{Decision: "maybe", Actor: "reviewer"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad decision status = %d, want 400", resp.StatusCode)
	}

	resp = ts.post(t, "/v1/approvals/x/resolve", resolveRequest{Decision: "approve"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing actor status = %d, want 400", resp.StatusCode)
	}
}

func TestExportPacket(t *testing.T) {
	ts := newTestServer(t)

	ts.evaluate(t, pipeline.Request{Actor: pipeline.Actor{ID: "a1"}, Surface: "S-O", Action: "sharepoint_read"})
	ts.evaluate(t, pipeline.Request{Actor: pipeline.Actor{ID: "a2"}, Surface: "S-O", Action: "sharepoint_read"})
	ts.waitForRecords(t, 2)

	resp := ts.get(t, "/v1/evidence/export?format=packet")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	packet := decodeBody[*export.Packet](t, resp)
	if packet.RecordCount != 2 {
		t.Errorf("record count = %d, want 2", packet.RecordCount)
	}
	ok, err := export.Verify(packet)
	if err != nil || !ok {
		t.Errorf("packet verification = %v, %v", ok, err)
	}

	// The active policy document travels with the packet for offline
	// re-verification.
	if len(packet.PolicyHashes) != 1 {
		t.Fatalf("policy hashes = %v, want 1", packet.PolicyHashes)
	}
	if _, ok := packet.Policies[packet.PolicyHashes[0]]; !ok {
		t.Errorf("packet missing policy document for %s", packet.PolicyHashes[0])
	}
}

func TestExportCSV(t *testing.T) {
	ts := newTestServer(t)

	ts.evaluate(t, pipeline.Request{Actor: pipeline.Actor{ID: "a1"}, Surface: "S-O", Action: "sharepoint_read"})
	ts.waitForRecords(t, 1)

	resp := ts.get(t, "/v1/evidence/export?format=csv")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %q, want text/csv", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "a1") {
		t.Errorf("csv body missing record: %s", body)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get(t, "/v1/evidence/export?format=xml")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get(t, "/healthz")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}

	resp = ts.get(t, "/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz status = %d, want 200", resp.StatusCode)
	}
	status := decodeBody[health.Status](t, resp)
	if status.Status != "ready" {
		t.Errorf("readiness = %q, want ready", status.Status)
	}
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t)

	req, _ := http.NewRequest("GET", ts.url+"/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "req-42" {
		t.Errorf("X-Request-ID = %q, want req-42", got)
	}

	resp = ts.get(t, "/healthz")
	resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("generated X-Request-ID missing")
	}
}
