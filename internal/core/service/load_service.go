package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/roviton/dispatch-api/internal/core/domain"
	"github.com/roviton/dispatch-api/internal/core/ports"
)

const maxPageSize = 100

// LoadService implements freight load use-cases with role-scoped access:
// customers see their own organization, drivers see their own assignments,
// admins and dispatchers see everything.
type LoadService struct {
	repo   ports.LoadRepository
	logger zerolog.Logger
}

func NewLoadService(repo ports.LoadRepository, logger zerolog.Logger) *LoadService {
	return &LoadService{repo: repo, logger: logger}
}

var _ ports.LoadService = (*LoadService)(nil)

// CreateLoad creates a new load. If an idempotency key is provided and
// already seen, the previously created load is returned with no side
// effects.
func (s *LoadService) CreateLoad(ctx context.Context, caller ports.Caller, input ports.CreateLoadInput) (*ports.LoadResult, error) {
	switch caller.Role {
	case domain.RoleAdmin, domain.RoleDispatcher, domain.RoleCustomer:
	default:
		return nil, domain.ErrForbidden
	}
	// Customers always create inside their own organization.
	if caller.Role == domain.RoleCustomer {
		input.OrganizationID = caller.OrganizationID
	}

	if input.IdempotencyKey != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, input.IdempotencyKey)
		if err == nil && existing != nil {
			s.logger.Info().Str("idempotency_key", input.IdempotencyKey).Str("reference", existing.ReferenceNumber).Msg("idempotent replay")
			return &ports.LoadResult{
				ReferenceNumber: existing.ReferenceNumber,
				Status:          string(existing.Status),
				CreatedAt:       existing.CreatedAt,
				AlreadyExisted:  true,
			}, nil
		}
	}

	now := time.Now().UTC()
	load := &domain.Load{
		ReferenceNumber: generateReferenceNumber(),
		OrganizationID:  input.OrganizationID,
		CustomerName:    input.CustomerName,
		Origin:          toStop(input.Origin),
		Destination:     toStop(input.Destination),
		Equipment:       input.Equipment,
		RateAmount:      input.RateAmount,
		RateCurrency:    input.RateCurrency,
		Status:          domain.LoadCreated,
		PickupDate:      input.PickupDate,
		DeliveryDate:    input.DeliveryDate,
		CreatedAt:       now,
		IdempotencyKey:  input.IdempotencyKey,
		StatusHistory: []domain.LoadStatusEntry{
			{Status: domain.LoadCreated, Timestamp: now},
		},
	}

	if err := s.repo.Create(ctx, load); err != nil {
		s.logger.Error().Err(err).Msg("failed to create load")
		return nil, err
	}

	s.logger.Info().Str("reference", load.ReferenceNumber).Str("org_id", load.OrganizationID).Msg("load created")

	return &ports.LoadResult{
		ReferenceNumber: load.ReferenceNumber,
		Status:          string(load.Status),
		CreatedAt:       load.CreatedAt,
	}, nil
}

// GetLoad returns the full view of a single load, scoped by role.
func (s *LoadService) GetLoad(ctx context.Context, caller ports.Caller, reference string) (*ports.LoadDetail, error) {
	orgFilter := ""
	if caller.Role == domain.RoleCustomer {
		orgFilter = caller.OrganizationID
	}

	load, err := s.repo.FindByReference(ctx, reference, orgFilter)
	if err != nil {
		return nil, err
	}
	// Drivers only see loads assigned to them.
	if caller.Role == domain.RoleDriver && load.DriverID != caller.UserID {
		return nil, domain.ErrLoadNotFound
	}

	detail := &ports.LoadDetail{
		ReferenceNumber: load.ReferenceNumber,
		Status:          string(load.Status),
		CustomerName:    load.CustomerName,
		DriverID:        load.DriverID,
		Origin:          fromStop(load.Origin),
		Destination:     fromStop(load.Destination),
		Equipment:       load.Equipment,
		RateAmount:      load.RateAmount,
		RateCurrency:    load.RateCurrency,
		PickupDate:      load.PickupDate,
		DeliveryDate:    load.DeliveryDate,
		CreatedAt:       load.CreatedAt,
	}
	for _, entry := range load.StatusHistory {
		detail.StatusHistory = append(detail.StatusHistory, ports.LoadStatusItem{
			Status:    string(entry.Status),
			Timestamp: entry.Timestamp,
			Notes:     entry.Notes,
		})
	}
	return detail, nil
}

// ListLoads returns a role-scoped page of loads.
func (s *LoadService) ListLoads(ctx context.Context, input ports.ListLoadsInput) (*ports.ListLoadsResult, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	limit := input.Limit
	if limit < 1 {
		limit = 20
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	filter := ports.ListLoadsFilter{
		Status:    input.Status,
		Equipment: input.Equipment,
		Search:    input.Search,
		DateFrom:  input.DateFrom,
		DateTo:    input.DateTo,
		Page:      page,
		Limit:     limit,
	}
	switch input.Caller.Role {
	case domain.RoleAdmin, domain.RoleDispatcher:
		// unrestricted
	case domain.RoleCustomer:
		filter.OrganizationID = input.Caller.OrganizationID
	case domain.RoleDriver:
		filter.DriverID = input.Caller.UserID
	default:
		return nil, domain.ErrForbidden
	}

	loads, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := &ports.ListLoadsResult{
		Items:      make([]ports.LoadSummary, 0, len(loads)),
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}
	for _, l := range loads {
		result.Items = append(result.Items, ports.LoadSummary{
			ReferenceNumber: l.ReferenceNumber,
			Status:          string(l.Status),
			CustomerName:    l.CustomerName,
			DriverID:        l.DriverID,
			Equipment:       l.Equipment,
			Origin:          fromStop(l.Origin),
			Destination:     fromStop(l.Destination),
			RateAmount:      l.RateAmount,
			PickupDate:      l.PickupDate,
			DeliveryDate:    l.DeliveryDate,
		})
	}
	return result, nil
}

// AssignDriver moves a created load to assigned with the given driver.
// Dispatcher/admin only.
func (s *LoadService) AssignDriver(ctx context.Context, caller ports.Caller, reference, driverID string) error {
	if caller.Role != domain.RoleAdmin && caller.Role != domain.RoleDispatcher {
		return domain.ErrForbidden
	}
	if driverID == "" {
		return fmt.Errorf("assign driver: %w", domain.ErrInvalidTransition)
	}

	load, err := s.repo.FindByReference(ctx, reference, "")
	if err != nil {
		return err
	}
	if !load.Status.CanTransitionTo(domain.LoadAssigned) {
		return fmt.Errorf("assign driver: %w (from %s)", domain.ErrInvalidTransition, load.Status)
	}

	if err := s.repo.AssignDriver(ctx, reference, driverID, time.Now().UTC()); err != nil {
		return err
	}
	s.logger.Info().Str("reference", reference).Str("driver_id", driverID).Msg("driver assigned")
	return nil
}

// generateReferenceNumber returns a unique load reference in the format
// RVT-XXXXXXXX.
func generateReferenceNumber() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// fallback: use current nanoseconds
		return fmt.Sprintf("RVT-%08X", time.Now().UnixNano()&0xFFFFFFFF)
	}
	return fmt.Sprintf("RVT-%08X", b)
}

func toStop(in ports.StopInput) domain.Stop {
	return domain.Stop{Address: in.Address, City: in.City, State: in.State, ZipCode: in.ZipCode}
}

func fromStop(s domain.Stop) ports.StopInput {
	return ports.StopInput{Address: s.Address, City: s.City, State: s.State, ZipCode: s.ZipCode}
}
