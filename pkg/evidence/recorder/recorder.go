package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"minos-hq/minos/pkg/evidence"
	"minos-hq/minos/pkg/pipeline"
)

// Config contains configuration for the evidence recorder.
type Config struct {
	// Enabled enables evidence recording. A disabled recorder accepts and
	// discards every seal.
	Enabled bool

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout is the timeout for writing a record to storage.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// RetainContent keeps raw request content and payload in the stored
	// trace document. Off by default: the evidence section already carries
	// the request digest, and raw content may contain the very PII the
	// pipeline flagged.
	RetainContent bool
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder validates terminal traces and writes them to storage
// asynchronously. It implements the pipeline's Recorder interface.
type Recorder struct {
	storage    evidence.Storage
	config     *Config
	recordChan chan *evidence.TraceRecord
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger
}

// New creates an evidence recorder over the given storage backend and starts
// its background writer.
func New(storage evidence.Storage, config *Config, logger *slog.Logger) (*Recorder, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = 1000
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *evidence.TraceRecord, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     logger.With("component", "evidence.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("evidence recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
		"enabled", config.Enabled,
	)

	return r, nil
}

// Seal validates a terminal trace and enqueues its record for storage. It
// returns immediately; storage writes happen on the background worker.
func (r *Recorder) Seal(ctx context.Context, t *pipeline.Trace) error {
	if !r.config.Enabled {
		return nil
	}

	if err := ValidateTerminal(t); err != nil {
		return evidence.NewRecorderError(t.ID, err)
	}

	record, err := r.buildRecord(t)
	if err != nil {
		return evidence.NewRecorderError(t.ID, err)
	}

	select {
	case r.recordChan <- record:
		return nil
	case <-r.done:
		r.logger.Warn("recorder shutting down, dropping record", "trace_id", t.ID)
		return evidence.NewRecorderError(t.ID, context.Canceled)
	default:
		r.logger.Error("evidence channel full, dropping record",
			"trace_id", t.ID,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return evidence.NewRecorderError(t.ID, fmt.Errorf("record buffer full"))
	}
}

// Flush blocks until every enqueued record has been handed to storage or the
// context expires. Intended for tests and orderly shutdown.
func (r *Recorder) Flush(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		if len(r.recordChan) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close drains the channel and stops the background writer. Safe to call
// more than once.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
		r.logger.Info("evidence recorder shut down")
	})
	return nil
}

// worker drains the record channel into storage until shutdown.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					return
				}
			}
		}
	}
}

// writeRecord writes one record to storage.
func (r *Recorder) writeRecord(record *evidence.TraceRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store trace record",
			"trace_id", record.ID,
			"error", err,
		)
		return
	}

	r.logger.Info("evidence recorded",
		"trace_id", record.ID,
		"decision", record.Decision,
		"state", record.State,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// buildRecord flattens a terminal trace into its stored form.
func (r *Recorder) buildRecord(t *pipeline.Trace) (*evidence.TraceRecord, error) {
	stored := t
	if !r.config.RetainContent {
		stored = ScrubContent(t)
	}

	doc, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trace: %w", err)
	}

	record := &evidence.TraceRecord{
		ID:            t.ID,
		RequestID:     t.Request.ID,
		SessionID:     t.Request.SessionID,
		ActorID:       t.Request.Actor.ID,
		Surface:       t.Surface.String(),
		Intent:        t.Intent,
		Action:        t.Request.Action,
		State:         string(t.State),
		RiskScore:     t.Verdict.RiskScore,
		Decision:      string(t.Verdict.Decision),
		Resolution:    string(t.Verdict.Resolution),
		Simulated:     t.Verdict.Simulated,
		PolicyHash:    t.PolicyHash,
		PolicyVersion: t.PolicyVersion,
		TicketID:      t.TicketID,
		Exportable:    t.Exportable,
		CreatedAt:     t.CreatedAt,
		SealedAt:      t.SealedAt,
		Trace:         doc,
	}
	return record, nil
}

// ValidateTerminal checks that a trace is complete enough to store: a
// contiguous gate run starting at gate 1, a resolved verdict, and evidence
// capture on sealed traces.
func ValidateTerminal(t *pipeline.Trace) error {
	if t == nil {
		return &evidence.IncompleteTraceError{Reason: "trace is nil"}
	}

	switch t.State {
	case pipeline.StateSealed, pipeline.StateHalted:
	default:
		return &evidence.IncompleteTraceError{TraceID: t.ID,
			Reason: fmt.Sprintf("state %q is not terminal", t.State)}
	}

	if len(t.Results) == 0 {
		return &evidence.IncompleteTraceError{TraceID: t.ID, Reason: "no gate results"}
	}
	for i, gr := range t.Results {
		if gr.Gate != i+1 {
			return &evidence.IncompleteTraceError{TraceID: t.ID,
				Reason: fmt.Sprintf("gate results not contiguous: position %d holds gate %d", i, gr.Gate)}
		}
	}

	if t.Verdict == nil {
		return &evidence.IncompleteTraceError{TraceID: t.ID, Reason: "no verdict"}
	}
	if t.Verdict.Decision == pipeline.DecisionEscalate {
		return &evidence.IncompleteTraceError{TraceID: t.ID, Reason: "escalation not resolved"}
	}

	if t.State == pipeline.StateSealed {
		if len(t.Results) != 8 {
			return &evidence.IncompleteTraceError{TraceID: t.ID,
				Reason: fmt.Sprintf("sealed trace has %d gate results, want 8", len(t.Results))}
		}
		if t.Evidence == nil {
			return &evidence.IncompleteTraceError{TraceID: t.ID, Reason: "sealed trace has no evidence section"}
		}
	} else if len(t.Results) >= 8 {
		return &evidence.IncompleteTraceError{TraceID: t.ID,
			Reason: "halted trace ran all gates"}
	}

	return nil
}
