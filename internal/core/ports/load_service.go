package ports

import (
	"context"
	"time"

	"github.com/roviton/dispatch-api/internal/core/domain"
)

// StopInput holds a pickup or delivery location.
type StopInput struct {
	Address string
	City    string
	State   string
	ZipCode string
}

// CreateLoadInput carries all data needed to create a new load.
type CreateLoadInput struct {
	CustomerName   string
	Origin         StopInput
	Destination    StopInput
	Equipment      string
	RateAmount     float64
	RateCurrency   string
	PickupDate     time.Time
	DeliveryDate   time.Time
	OrganizationID string
	IdempotencyKey string
}

// LoadResult is returned by the service after creating a load.
type LoadResult struct {
	ReferenceNumber string
	Status          string
	CreatedAt       time.Time
	// AlreadyExisted is true when the Idempotency-Key matched an existing load.
	AlreadyExisted bool
}

// Caller identifies the authenticated principal for RBAC decisions.
type Caller struct {
	UserID         string
	Role           domain.Role
	OrganizationID string
}

// LoadStatusItem is a single entry in the load's status history.
type LoadStatusItem struct {
	Status    string
	Timestamp time.Time
	Notes     string
}

// LoadDetail is the full load view returned by GetLoad.
type LoadDetail struct {
	ReferenceNumber string
	Status          string
	CustomerName    string
	DriverID        string
	Origin          StopInput
	Destination     StopInput
	Equipment       string
	RateAmount      float64
	RateCurrency    string
	PickupDate      time.Time
	DeliveryDate    time.Time
	CreatedAt       time.Time
	StatusHistory   []LoadStatusItem
}

// ListLoadsInput carries all parameters for the list endpoint.
type ListLoadsInput struct {
	Caller    Caller
	Status    string
	Equipment string
	Search    string
	DateFrom  time.Time
	DateTo    time.Time
	Page      int
	Limit     int
}

// LoadSummary is the lightweight view used in list responses.
type LoadSummary struct {
	ReferenceNumber string
	Status          string
	CustomerName    string
	DriverID        string
	Equipment       string
	Origin          StopInput
	Destination     StopInput
	RateAmount      float64
	PickupDate      time.Time
	DeliveryDate    time.Time
}

// ListLoadsResult is returned by ListLoads.
type ListLoadsResult struct {
	Items      []LoadSummary
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// LoadService defines use-case operations for loads.
type LoadService interface {
	CreateLoad(ctx context.Context, caller Caller, input CreateLoadInput) (*LoadResult, error)
	GetLoad(ctx context.Context, caller Caller, reference string) (*LoadDetail, error)
	ListLoads(ctx context.Context, input ListLoadsInput) (*ListLoadsResult, error)
	AssignDriver(ctx context.Context, caller Caller, reference, driverID string) error
}
