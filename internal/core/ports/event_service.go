package ports

import (
	"context"
	"time"
)

// LoadEventInput is the DTO passed from the transport layer to EventService.
type LoadEventInput struct {
	ReferenceNumber string
	Status          string
	Timestamp       time.Time
	Source          string
	Notes           string
}

// EventService processes incoming load tracking events.
type EventService interface {
	Process(ctx context.Context, event LoadEventInput) error
}
