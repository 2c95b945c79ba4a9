package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"minos-hq/minos/pkg/approval"
	"minos-hq/minos/pkg/evidence"
	"minos-hq/minos/pkg/evidence/export"
	"minos-hq/minos/pkg/pipeline"
	"minos-hq/minos/pkg/telemetry/logging"
)

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

// traceListResponse wraps a trace query result.
type traceListResponse struct {
	Count   int                     `json:"count"`
	Records []*evidence.TraceRecord `json:"records"`
}

// resolveRequest is the body of POST /v1/approvals/{id}/resolve.
type resolveRequest struct {
	Decision  string `json:"decision"`
	Actor     string `json:"actor"`
	Rationale string `json:"rationale,omitempty"`
}

// handleEvaluate runs the gate pipeline over one governed request.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if req.Mode == "" {
		req.Mode = s.deps.DefaultMode
	}

	ctx := r.Context()
	if req.Actor.ID != "" {
		ctx = logging.WithActorID(ctx, req.Actor.ID)
	}

	trace, err := s.deps.Engine.Evaluate(ctx, req)
	if err != nil {
		// Evaluate only errors on engine misuse, which for the API means
		// the service has no active policy yet.
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, trace)
}

// handleListTraces queries sealed trace records.
func (s *Server) handleListTraces(w http.ResponseWriter, r *http.Request) {
	if s.deps.Storage == nil {
		writeError(w, http.StatusNotImplemented, "evidence storage is disabled")
		return
	}

	query, err := parseTraceQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := s.deps.Storage.Query(r.Context(), query)
	if err != nil {
		s.logger.Error("trace query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "trace query failed")
		return
	}
	writeJSON(w, http.StatusOK, traceListResponse{Count: len(records), Records: records})
}

// handleGetTrace returns one trace record by ID.
func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	if s.deps.Storage == nil {
		writeError(w, http.StatusNotImplemented, "evidence storage is disabled")
		return
	}

	id := r.PathValue("id")
	record, err := s.deps.Storage.Get(r.Context(), id)
	if err != nil {
		var notFound *evidence.NotFoundError
		if errors.As(err, &notFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("trace lookup failed", "trace_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "trace lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// handleListApprovals returns pending approval tickets, highest risk first.
func (s *Server) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	tickets, err := s.deps.Approvals.Pending(r.Context())
	if err != nil {
		s.logger.Error("pending ticket query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "pending ticket query failed")
		return
	}
	if tickets == nil {
		tickets = []*approval.Ticket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}

// handleResolveApproval applies a human decision to a pending ticket and
// returns the finished trace.
func (s *Server) handleResolveApproval(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Actor == "" {
		writeError(w, http.StatusBadRequest, "actor is required")
		return
	}

	var decision approval.Decision
	switch req.Decision {
	case string(approval.DecisionApprove):
		decision = approval.DecisionApprove
	case string(approval.DecisionDeny):
		decision = approval.DecisionDeny
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decision must be %q or %q", approval.DecisionApprove, approval.DecisionDeny))
		return
	}

	trace, err := s.deps.Engine.ResolveEscalation(r.Context(), id, decision, req.Actor, req.Rationale)
	if err != nil {
		var notFound *approval.TicketNotFoundError
		var resolved *approval.TicketAlreadyResolvedError
		switch {
		case errors.As(err, &notFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.As(err, &resolved):
			writeError(w, http.StatusConflict, err.Error())
		default:
			s.logger.Error("escalation resolution failed", "ticket_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "escalation resolution failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, trace)
}

// handleExport streams matching trace records in the requested format.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Storage == nil {
		writeError(w, http.StatusNotImplemented, "evidence storage is disabled")
		return
	}

	params := r.URL.Query()
	query, err := parseTraceQuery(params)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	format := params.Get("format")
	if format == "" {
		format = "json"
	}
	var exporter evidence.Exporter
	var contentType string
	switch format {
	case "json":
		exporter = export.NewJSONExporter(s.deps.Export.JSONPretty)
		contentType = "application/json"
	case "csv":
		exporter = export.NewCSVExporter(s.deps.Export.CSVIncludeHeader)
		contentType = "text/csv"
	case "packet":
		builder := export.NewPacketBuilder(s.deps.Export.PacketGenerator)
		builder.Resolver = s.resolvePolicy
		exporter = builder
		contentType = "application/json"
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown export format %q", format))
		return
	}

	count, err := s.deps.Storage.Count(r.Context(), query)
	if err != nil {
		s.logger.Error("export count failed", "error", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	if max := s.deps.Export.MaxExportSize; max > 0 && count > int64(max) {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("export matches %d records, limit is %d; narrow the query", count, max))
		return
	}
	if query.Limit == 0 {
		query.Limit = int(count)
	}

	records, err := s.deps.Storage.Query(r.Context(), query)
	if err != nil {
		s.logger.Error("export query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "traces."+extensionFor(format)))
	if err := exporter.Export(r.Context(), records, w); err != nil {
		// Headers are gone; all we can do is log.
		s.logger.Error("export write failed", "format", format, "error", err)
	}
}

// resolvePolicy serves the active snapshot's canonical document to packet
// exports. Traces bound to superseded snapshots keep their hash in the
// packet without a document.
func (s *Server) resolvePolicy(hash string) ([]byte, bool) {
	if s.deps.Policies == nil {
		return nil, false
	}
	snap := s.deps.Policies.Active()
	if snap == nil || snap.Hash() != hash {
		return nil, false
	}
	return snap.Canonical(), true
}

// handleLiveness reports process liveness.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Health.Liveness(r.Context()))
}

// handleReadiness reports aggregated component readiness.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	status := s.deps.Health.Readiness(r.Context())
	code := http.StatusOK
	if status.Status != "ready" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// parseTraceQuery builds an evidence query from URL parameters.
func parseTraceQuery(params url.Values) (*evidence.Query, error) {
	query := &evidence.Query{
		ActorID:    params.Get("actor_id"),
		SessionID:  params.Get("session_id"),
		Surface:    params.Get("surface"),
		Intent:     params.Get("intent"),
		Action:     params.Get("action"),
		State:      params.Get("state"),
		Decision:   params.Get("decision"),
		Resolution: params.Get("resolution"),
		PolicyHash: params.Get("policy_hash"),
		TicketID:   params.Get("ticket_id"),
		SortBy:     params.Get("sort_by"),
		SortOrder:  params.Get("sort_order"),
	}

	for name, dst := range map[string]**time.Time{
		"start_time": &query.StartTime,
		"end_time":   &query.EndTime,
	} {
		if raw := params.Get(name); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, fmt.Errorf("invalid %s %q: must be RFC 3339", name, raw)
			}
			*dst = &t
		}
	}
	for name, dst := range map[string]**int{
		"min_risk": &query.MinRisk,
		"max_risk": &query.MaxRisk,
	} {
		if raw := params.Get(name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid %s %q", name, raw)
			}
			*dst = &n
		}
	}
	for name, dst := range map[string]*int{
		"limit":  &query.Limit,
		"offset": &query.Offset,
	} {
		if raw := params.Get(name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid %s %q", name, raw)
			}
			*dst = n
		}
	}
	if raw := params.Get("exportable"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid exportable %q", raw)
		}
		query.Exportable = &b
	}

	if err := query.Validate(); err != nil {
		return nil, err
	}
	return query, nil
}

func extensionFor(format string) string {
	if format == "csv" {
		return "csv"
	}
	return "json"
}

// writeJSON writes a JSON response with the given status code. Encoding
// errors after the header is written cannot be reported to the client.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Error: message})
}
