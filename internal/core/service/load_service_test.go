package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/roviton/dispatch-api/internal/core/domain"
	"github.com/roviton/dispatch-api/internal/core/ports"
)

type stubLoadRepo struct {
	loads      map[string]*domain.Load
	lastFilter ports.ListLoadsFilter
	listErr    error
}

func newStubLoadRepo() *stubLoadRepo {
	return &stubLoadRepo{loads: make(map[string]*domain.Load)}
}

func (r *stubLoadRepo) Create(_ context.Context, l *domain.Load) error {
	if _, exists := r.loads[l.ReferenceNumber]; exists {
		return domain.ErrDuplicateLoad
	}
	clone := *l
	r.loads[l.ReferenceNumber] = &clone
	return nil
}

func (r *stubLoadRepo) FindByReference(_ context.Context, reference, orgID string) (*domain.Load, error) {
	l, ok := r.loads[reference]
	if !ok {
		return nil, domain.ErrLoadNotFound
	}
	if orgID != "" && l.OrganizationID != orgID {
		return nil, domain.ErrLoadNotFound
	}
	clone := *l
	return &clone, nil
}

func (r *stubLoadRepo) FindByIdempotencyKey(_ context.Context, key string) (*domain.Load, error) {
	for _, l := range r.loads {
		if l.IdempotencyKey == key {
			clone := *l
			return &clone, nil
		}
	}
	return nil, domain.ErrLoadNotFound
}

func (r *stubLoadRepo) List(_ context.Context, filter ports.ListLoadsFilter) ([]*domain.Load, int64, error) {
	r.lastFilter = filter
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	var out []*domain.Load
	for _, l := range r.loads {
		clone := *l
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

func (r *stubLoadRepo) AssignDriver(_ context.Context, reference, driverID string, ts time.Time) error {
	l, ok := r.loads[reference]
	if !ok {
		return domain.ErrLoadNotFound
	}
	l.DriverID = driverID
	l.Status = domain.LoadAssigned
	l.StatusHistory = append(l.StatusHistory, domain.LoadStatusEntry{Status: domain.LoadAssigned, Timestamp: ts})
	return nil
}

func validCreateInput() ports.CreateLoadInput {
	return ports.CreateLoadInput{
		OrganizationID: "org-1",
		CustomerName:   "Acme Produce",
		Origin:         ports.StopInput{Address: "1 Dock St", City: "Fresno", State: "CA", ZipCode: "93650"},
		Destination:    ports.StopInput{Address: "9 Market Rd", City: "Dallas", State: "TX", ZipCode: "75201"},
		Equipment:      "reefer",
		RateAmount:     2400,
		RateCurrency:   "USD",
		PickupDate:     time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
		DeliveryDate:   time.Date(2026, 9, 3, 17, 0, 0, 0, time.UTC),
	}
}

func TestLoadService_CreateLoad_Success(t *testing.T) {
	repo := newStubLoadRepo()
	svc := NewLoadService(repo, zerolog.Nop())

	caller := ports.Caller{UserID: "u1", Role: domain.RoleDispatcher}
	result, err := svc.CreateLoad(context.Background(), caller, validCreateInput())
	if err != nil {
		t.Fatalf("CreateLoad returned error: %v", err)
	}
	if !strings.HasPrefix(result.ReferenceNumber, "RVT-") {
		t.Fatalf("unexpected reference format: %s", result.ReferenceNumber)
	}
	if result.Status != string(domain.LoadCreated) {
		t.Fatalf("new load must start in created, got %s", result.Status)
	}

	stored := repo.loads[result.ReferenceNumber]
	if stored == nil {
		t.Fatalf("load not persisted")
	}
	if len(stored.StatusHistory) != 1 || stored.StatusHistory[0].Status != domain.LoadCreated {
		t.Fatalf("expected seeded status history, got %+v", stored.StatusHistory)
	}
}

func TestLoadService_CreateLoad_CustomerScopedToOwnOrg(t *testing.T) {
	repo := newStubLoadRepo()
	svc := NewLoadService(repo, zerolog.Nop())

	input := validCreateInput()
	input.OrganizationID = "org-other"
	caller := ports.Caller{UserID: "u2", Role: domain.RoleCustomer, OrganizationID: "org-mine"}

	result, err := svc.CreateLoad(context.Background(), caller, input)
	if err != nil {
		t.Fatalf("CreateLoad returned error: %v", err)
	}
	if repo.loads[result.ReferenceNumber].OrganizationID != "org-mine" {
		t.Fatalf("customer load must land in the caller's organization")
	}
}

func TestLoadService_CreateLoad_DriverForbidden(t *testing.T) {
	svc := NewLoadService(newStubLoadRepo(), zerolog.Nop())

	caller := ports.Caller{UserID: "d1", Role: domain.RoleDriver}
	if _, err := svc.CreateLoad(context.Background(), caller, validCreateInput()); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestLoadService_CreateLoad_IdempotentReplay(t *testing.T) {
	repo := newStubLoadRepo()
	svc := NewLoadService(repo, zerolog.Nop())

	input := validCreateInput()
	input.IdempotencyKey = "idem-123"
	caller := ports.Caller{UserID: "u1", Role: domain.RoleAdmin}

	first, err := svc.CreateLoad(context.Background(), caller, input)
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	second, err := svc.CreateLoad(context.Background(), caller, input)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !second.AlreadyExisted {
		t.Fatalf("replay must be flagged AlreadyExisted")
	}
	if second.ReferenceNumber != first.ReferenceNumber {
		t.Fatalf("replay returned a different load: %s != %s", second.ReferenceNumber, first.ReferenceNumber)
	}
	if len(repo.loads) != 1 {
		t.Fatalf("replay must not create a second load, have %d", len(repo.loads))
	}
}

func TestLoadService_GetLoad_RoleScoping(t *testing.T) {
	repo := newStubLoadRepo()
	repo.loads["RVT-AAAA0001"] = &domain.Load{
		ReferenceNumber: "RVT-AAAA0001",
		OrganizationID:  "org-1",
		DriverID:        "driver-1",
		Status:          domain.LoadAssigned,
	}
	svc := NewLoadService(repo, zerolog.Nop())

	// Customer in another org cannot see it.
	otherOrg := ports.Caller{UserID: "c1", Role: domain.RoleCustomer, OrganizationID: "org-2"}
	if _, err := svc.GetLoad(context.Background(), otherOrg, "RVT-AAAA0001"); !errors.Is(err, domain.ErrLoadNotFound) {
		t.Fatalf("expected ErrLoadNotFound for foreign org, got %v", err)
	}

	// The owning org's customer can.
	owner := ports.Caller{UserID: "c2", Role: domain.RoleCustomer, OrganizationID: "org-1"}
	if _, err := svc.GetLoad(context.Background(), owner, "RVT-AAAA0001"); err != nil {
		t.Fatalf("owning customer should see the load: %v", err)
	}

	// A driver not assigned to the load cannot see it.
	stranger := ports.Caller{UserID: "driver-2", Role: domain.RoleDriver}
	if _, err := svc.GetLoad(context.Background(), stranger, "RVT-AAAA0001"); !errors.Is(err, domain.ErrLoadNotFound) {
		t.Fatalf("expected ErrLoadNotFound for unassigned driver, got %v", err)
	}

	// The assigned driver can.
	assigned := ports.Caller{UserID: "driver-1", Role: domain.RoleDriver}
	detail, err := svc.GetLoad(context.Background(), assigned, "RVT-AAAA0001")
	if err != nil {
		t.Fatalf("assigned driver should see the load: %v", err)
	}
	if detail.DriverID != "driver-1" {
		t.Fatalf("unexpected driver on detail: %s", detail.DriverID)
	}
}

func TestLoadService_ListLoads_FilterByRole(t *testing.T) {
	repo := newStubLoadRepo()
	svc := NewLoadService(repo, zerolog.Nop())

	cases := []struct {
		name    string
		caller  ports.Caller
		wantOrg string
		wantDrv string
	}{
		{"admin unrestricted", ports.Caller{UserID: "a", Role: domain.RoleAdmin}, "", ""},
		{"dispatcher unrestricted", ports.Caller{UserID: "d", Role: domain.RoleDispatcher}, "", ""},
		{"customer org scoped", ports.Caller{UserID: "c", Role: domain.RoleCustomer, OrganizationID: "org-9"}, "org-9", ""},
		{"driver assignment scoped", ports.Caller{UserID: "drv-7", Role: domain.RoleDriver}, "", "drv-7"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.ListLoads(context.Background(), ports.ListLoadsInput{Caller: tc.caller}); err != nil {
				t.Fatalf("ListLoads failed: %v", err)
			}
			if repo.lastFilter.OrganizationID != tc.wantOrg {
				t.Fatalf("org filter = %q, want %q", repo.lastFilter.OrganizationID, tc.wantOrg)
			}
			if repo.lastFilter.DriverID != tc.wantDrv {
				t.Fatalf("driver filter = %q, want %q", repo.lastFilter.DriverID, tc.wantDrv)
			}
		})
	}

	if _, err := svc.ListLoads(context.Background(), ports.ListLoadsInput{Caller: ports.Caller{Role: "ghost"}}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for unknown role, got %v", err)
	}
}

func TestLoadService_ListLoads_PaginationClamps(t *testing.T) {
	repo := newStubLoadRepo()
	svc := NewLoadService(repo, zerolog.Nop())

	caller := ports.Caller{UserID: "a", Role: domain.RoleAdmin}
	if _, err := svc.ListLoads(context.Background(), ports.ListLoadsInput{Caller: caller, Page: -3, Limit: 5000}); err != nil {
		t.Fatalf("ListLoads failed: %v", err)
	}
	if repo.lastFilter.Page != 1 {
		t.Fatalf("page = %d, want 1", repo.lastFilter.Page)
	}
	if repo.lastFilter.Limit != maxPageSize {
		t.Fatalf("limit = %d, want %d", repo.lastFilter.Limit, maxPageSize)
	}
}

func TestLoadService_AssignDriver(t *testing.T) {
	repo := newStubLoadRepo()
	repo.loads["RVT-BBBB0002"] = &domain.Load{
		ReferenceNumber: "RVT-BBBB0002",
		OrganizationID:  "org-1",
		Status:          domain.LoadCreated,
	}
	svc := NewLoadService(repo, zerolog.Nop())

	customer := ports.Caller{UserID: "c", Role: domain.RoleCustomer, OrganizationID: "org-1"}
	if err := svc.AssignDriver(context.Background(), customer, "RVT-BBBB0002", "drv-1"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for customer, got %v", err)
	}

	dispatcher := ports.Caller{UserID: "d", Role: domain.RoleDispatcher}
	if err := svc.AssignDriver(context.Background(), dispatcher, "RVT-BBBB0002", ""); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for empty driver, got %v", err)
	}

	if err := svc.AssignDriver(context.Background(), dispatcher, "RVT-BBBB0002", "drv-1"); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if got := repo.loads["RVT-BBBB0002"]; got.DriverID != "drv-1" || got.Status != domain.LoadAssigned {
		t.Fatalf("assignment not applied: %+v", got)
	}

	// Already delivered loads cannot be reassigned.
	repo.loads["RVT-BBBB0002"].Status = domain.LoadDelivered
	if err := svc.AssignDriver(context.Background(), dispatcher, "RVT-BBBB0002", "drv-2"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from delivered, got %v", err)
	}
}
