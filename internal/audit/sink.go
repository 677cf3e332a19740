package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"varsityhub/internal/integrity"
)

// Sink stamps and persists audit entries. Persistence failures are logged to
// the operational channel and counted, never surfaced to the caller: a
// successful health data read must still return data even when the audit
// store is down. That availability-over-strict-auditability trade-off is
// deliberate and must be preserved.
type Sink struct {
	store   Store
	stamper *integrity.Stamper
	logger  *slog.Logger
	dropped interface{ Inc() }
}

// Option configures a Sink.
type Option func(*Sink)

// WithLogger sets the operational logger for append failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) { s.logger = logger }
}

// WithDroppedCounter wires a counter incremented whenever an entry is lost.
// A prometheus.Counter satisfies it.
func WithDroppedCounter(c interface{ Inc() }) Option {
	return func(s *Sink) { s.dropped = c }
}

// NewSink builds a Sink over the given store and stamper.
func NewSink(store Store, stamper *integrity.Stamper, opts ...Option) *Sink {
	s := &Sink{
		store:   store,
		stamper: stamper,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append assigns the entry its identity and integrity hash and writes it
// through. It returns the completed entry for callers that echo the hash
// prefix; it never returns an error.
func (s *Sink) Append(ctx context.Context, e Entry) Entry {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	hash, err := s.stamper.Stamp(e.Fields())
	if err != nil {
		// Only reachable when key resolution failed, which main treats as
		// fatal at startup; log and keep the primary operation alive.
		s.drop(ctx, e, err)
		return e
	}
	e.IntegrityHash = hash

	if err := s.store.Append(ctx, e); err != nil {
		s.drop(ctx, e, err)
	}
	return e
}

// Query returns entries matching the filter, for compliance reporting.
func (s *Sink) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	return s.store.Query(ctx, filter)
}

// Verify recomputes an entry's integrity hash and reports whether the stored
// fields still match it.
func (s *Sink) Verify(e Entry) (bool, error) {
	return s.stamper.Verify(e.Fields(), e.IntegrityHash)
}

// VerifyRange sweeps the entries matching filter and returns those whose
// stored fields no longer match their integrity hash.
func (s *Sink) VerifyRange(ctx context.Context, filter Filter) ([]Entry, error) {
	entries, err := s.store.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	var tampered []Entry
	for _, e := range entries {
		ok, err := s.stamper.Verify(e.Fields(), e.IntegrityHash)
		if err != nil {
			return nil, err
		}
		if !ok {
			tampered = append(tampered, e)
		}
	}
	return tampered, nil
}

func (s *Sink) drop(ctx context.Context, e Entry, err error) {
	if s.dropped != nil {
		s.dropped.Inc()
	}
	s.logger.ErrorContext(ctx, "audit entry dropped",
		"error", err,
		"actor_id", e.ActorID,
		"action_type", e.ActionType,
		"resource_type", e.ResourceType,
	)
}
