package ports

import (
	"context"
	"time"

	"github.com/roviton/dispatch-api/internal/core/domain"
)

// ListLoadsFilter carries all query parameters for listing loads.
// OrganizationID and DriverID scoping is always decided by the service
// layer from the caller's role, never by the transport layer.
type ListLoadsFilter struct {
	OrganizationID string    // empty = no filter (admin/dispatcher)
	DriverID       string    // non-empty = scoped to a driver's assignments
	Status         string    // optional: filter by load status
	Equipment      string    // optional: filter by equipment type
	Search         string    // optional: partial match on reference_number or customer_name
	DateFrom       time.Time // optional: pickup_date >= DateFrom
	DateTo         time.Time // optional: pickup_date <= DateTo
	Page           int       // 1-based
	Limit          int       // max rows per page (capped at 100 by service)
}

// LoadRepository defines persistence operations for loads.
type LoadRepository interface {
	Create(ctx context.Context, l *domain.Load) error
	// FindByReference retrieves a load by reference number. When orgID is
	// non-empty, the query is additionally filtered by organization_id.
	FindByReference(ctx context.Context, reference string, orgID string) (*domain.Load, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.Load, error)
	// List returns a page of loads matching filter and the total count.
	List(ctx context.Context, filter ListLoadsFilter) ([]*domain.Load, int64, error)
	// AssignDriver sets the driver and moves the load to assigned.
	AssignDriver(ctx context.Context, reference, driverID string, ts time.Time) error
}
