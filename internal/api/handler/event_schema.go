package handler

import (
	"time"

	"github.com/roviton/dispatch-api/internal/core/ports"
)

// loadEventRequest is the payload the driver app posts for status updates.
type loadEventRequest struct {
	ReferenceNumber string    `json:"reference_number" validate:"required"`
	Status          string    `json:"status" validate:"required,oneof=assigned picked_up in_transit delivered cancelled"`
	Timestamp       time.Time `json:"timestamp" validate:"required"`
	Source          string    `json:"source" validate:"required"`
	Notes           string    `json:"notes,omitempty"`
}

func toEventInput(req loadEventRequest) ports.LoadEventInput {
	return ports.LoadEventInput{
		ReferenceNumber: req.ReferenceNumber,
		Status:          req.Status,
		Timestamp:       req.Timestamp,
		Source:          req.Source,
		Notes:           req.Notes,
	}
}
