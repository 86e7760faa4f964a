package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/roviton/dispatch-api/internal/api/metrics"
	"github.com/roviton/dispatch-api/internal/core/domain"
	"github.com/roviton/dispatch-api/internal/core/ports"
)

// DedupChecker abstracts the idempotency store (Redis).
type DedupChecker interface {
	IsDuplicate(ctx context.Context, reference, status string, ts time.Time) (bool, error)
	Mark(ctx context.Context, reference, status string, ts time.Time) error
}

type eventService struct {
	loadRepo  ports.LoadRepository
	eventRepo ports.EventRepository
	dedup     DedupChecker
	log       zerolog.Logger
}

// NewEventService returns an EventService implementation.
func NewEventService(
	loadRepo ports.LoadRepository,
	eventRepo ports.EventRepository,
	dedup DedupChecker,
	log zerolog.Logger,
) ports.EventService {
	return &eventService{
		loadRepo:  loadRepo,
		eventRepo: eventRepo,
		dedup:     dedup,
		log:       log,
	}
}

// Process validates, deduplicates, and persists a single load event.
func (s *eventService) Process(ctx context.Context, in ports.LoadEventInput) error {
	started := time.Now()
	newStatus := domain.LoadStatus(in.Status)

	// 1. Idempotency check — silently skip duplicates.
	isDup, err := s.dedup.IsDuplicate(ctx, in.ReferenceNumber, in.Status, in.Timestamp)
	if err != nil {
		s.log.Warn().Err(err).Str("reference", in.ReferenceNumber).Msg("dedup check failed, processing anyway")
	} else if isDup {
		metrics.EventsDedupTotal.WithLabelValues("hit").Inc()
		s.log.Debug().Str("reference", in.ReferenceNumber).Str("status", in.Status).Msg("duplicate event skipped")
		return nil
	}
	metrics.EventsDedupTotal.WithLabelValues("miss").Inc()

	// 2. Find the load (no org filter — events come from the driver app).
	load, err := s.loadRepo.FindByReference(ctx, in.ReferenceNumber, "")
	if err != nil {
		metrics.EventsErrorsTotal.WithLabelValues("load_not_found").Inc()
		return fmt.Errorf("process event: %w", err)
	}

	// 3. Validate state machine transition.
	if !load.Status.CanTransitionTo(newStatus) {
		metrics.EventsErrorsTotal.WithLabelValues("invalid_transition").Inc()
		return fmt.Errorf("process event: %w (from %s to %s)", domain.ErrInvalidTransition, load.Status, newStatus)
	}

	// 4. Mark as processed before writing (prevents duplicate processing on retry).
	if markErr := s.dedup.Mark(ctx, in.ReferenceNumber, in.Status, in.Timestamp); markErr != nil {
		s.log.Warn().Err(markErr).Str("reference", in.ReferenceNumber).Msg("failed to set dedup key")
	}

	// 5. Atomically update load status + history.
	if err := s.eventRepo.UpdateLoadStatus(ctx, in.ReferenceNumber, newStatus, in.Timestamp, in.Source); err != nil {
		metrics.EventsErrorsTotal.WithLabelValues("update_failed").Inc()
		return fmt.Errorf("process event: update status: %w", err)
	}

	// 6. Insert into audit trail (non-fatal on failure).
	auditEvent := &domain.LoadEvent{
		ReferenceNumber: in.ReferenceNumber,
		Status:          newStatus,
		Timestamp:       in.Timestamp,
		Source:          in.Source,
		Notes:           in.Notes,
	}
	if err := s.eventRepo.InsertEvent(ctx, auditEvent); err != nil {
		s.log.Warn().Err(err).Str("reference", in.ReferenceNumber).Msg("failed to insert audit event")
	}

	metrics.EventsProcessedTotal.WithLabelValues(in.Status, in.Source).Inc()
	metrics.EventProcessingDuration.WithLabelValues(in.Status).Observe(time.Since(started).Seconds())

	s.log.Info().
		Str("reference", in.ReferenceNumber).
		Str("status", in.Status).
		Str("source", in.Source).
		Msg("event processed")

	return nil
}
