package ports

import (
	"context"
	"time"

	"github.com/roviton/dispatch-api/internal/core/domain"
)

// EventRepository handles event persistence and atomic load status updates.
type EventRepository interface {
	// UpdateLoadStatus atomically sets the load's new status and appends a
	// history entry. The source string is stored as the entry notes.
	UpdateLoadStatus(
		ctx context.Context,
		reference string,
		status domain.LoadStatus,
		ts time.Time,
		source string,
	) error

	// InsertEvent persists an event to the load_events audit collection.
	InsertEvent(ctx context.Context, event *domain.LoadEvent) error
}
