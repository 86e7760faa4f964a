package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/roviton/dispatch-api/internal/core/domain"
	"github.com/roviton/dispatch-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubEventRepo struct {
	updateErr error
	insertErr error
	updated   []string // reference numbers updated
	inserted  []*domain.LoadEvent
}

func (r *stubEventRepo) UpdateLoadStatus(_ context.Context, reference string, _ domain.LoadStatus, _ time.Time, _ string) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updated = append(r.updated, reference)
	return nil
}

func (r *stubEventRepo) InsertEvent(_ context.Context, e *domain.LoadEvent) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, e)
	return nil
}

type stubDedup struct {
	dupResult bool
	dupErr    error
	markErr   error
	marked    []string
}

func (d *stubDedup) IsDuplicate(_ context.Context, reference, status string, _ time.Time) (bool, error) {
	return d.dupResult, d.dupErr
}

func (d *stubDedup) Mark(_ context.Context, reference, status string, _ time.Time) error {
	if d.markErr != nil {
		return d.markErr
	}
	d.marked = append(d.marked, reference+":"+status)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newEventSvc(loadRepo *stubLoadRepo, eventRepo *stubEventRepo, dedup *stubDedup) ports.EventService {
	return NewEventService(loadRepo, eventRepo, dedup, zerolog.Nop())
}

func seededRepo(reference, orgID string, status domain.LoadStatus) *stubLoadRepo {
	repo := newStubLoadRepo()
	now := time.Now().UTC()
	repo.loads[reference] = &domain.Load{
		ReferenceNumber: reference,
		OrganizationID:  orgID,
		Status:          status,
		CreatedAt:       now,
		StatusHistory:   []domain.LoadStatusEntry{{Status: status, Timestamp: now}},
	}
	return repo
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestEventService_Process_HappyPath(t *testing.T) {
	repo := seededRepo("RVT-AABBCCDD", "org-1", domain.LoadAssigned)
	evRepo := &stubEventRepo{}
	dedup := &stubDedup{}

	svc := newEventSvc(repo, evRepo, dedup)
	err := svc.Process(context.Background(), ports.LoadEventInput{
		ReferenceNumber: "RVT-AABBCCDD",
		Status:          "picked_up",
		Timestamp:       time.Now(),
		Source:          "driver_app",
	})

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(evRepo.updated) != 1 || evRepo.updated[0] != "RVT-AABBCCDD" {
		t.Fatalf("expected one status update, got %v", evRepo.updated)
	}
	if len(evRepo.inserted) != 1 {
		t.Fatalf("expected one audit event, got %d", len(evRepo.inserted))
	}
	if len(dedup.marked) != 1 || dedup.marked[0] != "RVT-AABBCCDD:picked_up" {
		t.Fatalf("expected dedup mark, got %v", dedup.marked)
	}
}

func TestEventService_Process_DuplicateSkipped(t *testing.T) {
	repo := seededRepo("RVT-AABBCCDD", "org-1", domain.LoadAssigned)
	evRepo := &stubEventRepo{}
	dedup := &stubDedup{dupResult: true}

	svc := newEventSvc(repo, evRepo, dedup)
	err := svc.Process(context.Background(), ports.LoadEventInput{
		ReferenceNumber: "RVT-AABBCCDD",
		Status:          "picked_up",
		Timestamp:       time.Now(),
		Source:          "driver_app",
	})

	if err != nil {
		t.Fatalf("duplicate must be dropped silently, got: %v", err)
	}
	if len(evRepo.updated) != 0 {
		t.Fatalf("duplicate must not update status, got %v", evRepo.updated)
	}
	if len(evRepo.inserted) != 0 {
		t.Fatalf("duplicate must not insert audit events")
	}
}

func TestEventService_Process_DedupErrorProcessesAnyway(t *testing.T) {
	repo := seededRepo("RVT-AABBCCDD", "org-1", domain.LoadPickedUp)
	evRepo := &stubEventRepo{}
	dedup := &stubDedup{dupErr: errors.New("redis down")}

	svc := newEventSvc(repo, evRepo, dedup)
	err := svc.Process(context.Background(), ports.LoadEventInput{
		ReferenceNumber: "RVT-AABBCCDD",
		Status:          "in_transit",
		Timestamp:       time.Now(),
		Source:          "driver_app",
	})

	if err != nil {
		t.Fatalf("dedup failure must not block processing, got: %v", err)
	}
	if len(evRepo.updated) != 1 {
		t.Fatalf("expected status update despite dedup error")
	}
}

func TestEventService_Process_UnknownLoad(t *testing.T) {
	svc := newEventSvc(newStubLoadRepo(), &stubEventRepo{}, &stubDedup{})
	err := svc.Process(context.Background(), ports.LoadEventInput{
		ReferenceNumber: "RVT-MISSING1",
		Status:          "picked_up",
		Timestamp:       time.Now(),
		Source:          "driver_app",
	})
	if !errors.Is(err, domain.ErrLoadNotFound) {
		t.Fatalf("expected ErrLoadNotFound, got %v", err)
	}
}

func TestEventService_Process_InvalidTransition(t *testing.T) {
	repo := seededRepo("RVT-AABBCCDD", "org-1", domain.LoadDelivered)
	evRepo := &stubEventRepo{}

	svc := newEventSvc(repo, evRepo, &stubDedup{})
	err := svc.Process(context.Background(), ports.LoadEventInput{
		ReferenceNumber: "RVT-AABBCCDD",
		Status:          "picked_up",
		Timestamp:       time.Now(),
		Source:          "driver_app",
	})

	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if len(evRepo.updated) != 0 {
		t.Fatalf("invalid transition must not update status")
	}
}

func TestEventService_Process_UpdateFailure(t *testing.T) {
	repo := seededRepo("RVT-AABBCCDD", "org-1", domain.LoadInTransit)
	evRepo := &stubEventRepo{updateErr: errors.New("write timeout")}

	svc := newEventSvc(repo, evRepo, &stubDedup{})
	err := svc.Process(context.Background(), ports.LoadEventInput{
		ReferenceNumber: "RVT-AABBCCDD",
		Status:          "delivered",
		Timestamp:       time.Now(),
		Source:          "driver_app",
	})

	if err == nil {
		t.Fatalf("expected error when status update fails")
	}
}

func TestEventService_Process_AuditInsertFailureIsNonFatal(t *testing.T) {
	repo := seededRepo("RVT-AABBCCDD", "org-1", domain.LoadInTransit)
	evRepo := &stubEventRepo{insertErr: errors.New("audit collection gone")}

	svc := newEventSvc(repo, evRepo, &stubDedup{})
	err := svc.Process(context.Background(), ports.LoadEventInput{
		ReferenceNumber: "RVT-AABBCCDD",
		Status:          "delivered",
		Timestamp:       time.Now(),
		Source:          "driver_app",
	})

	if err != nil {
		t.Fatalf("audit insert failure must be non-fatal, got: %v", err)
	}
	if len(evRepo.updated) != 1 {
		t.Fatalf("expected status update to have happened")
	}
}
