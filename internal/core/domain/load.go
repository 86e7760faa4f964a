package domain

import (
	"errors"
	"time"
)

// LoadStatus represents the lifecycle state of a freight load.
type LoadStatus string

const (
	LoadCreated   LoadStatus = "created"
	LoadAssigned  LoadStatus = "assigned"
	LoadPickedUp  LoadStatus = "picked_up"
	LoadInTransit LoadStatus = "in_transit"
	LoadDelivered LoadStatus = "delivered"
	LoadCancelled LoadStatus = "cancelled"
)

// validLoadTransitions defines the allowed state machine transitions.
var validLoadTransitions = map[LoadStatus][]LoadStatus{
	LoadCreated:   {LoadAssigned, LoadCancelled},
	LoadAssigned:  {LoadPickedUp, LoadCancelled},
	LoadPickedUp:  {LoadInTransit, LoadCancelled},
	LoadInTransit: {LoadDelivered},
}

var ErrInvalidTransition = errors.New("invalid status transition")
var ErrLoadNotFound = errors.New("load not found")
var ErrDuplicateLoad = errors.New("load already exists")

// CanTransitionTo reports whether a transition from the current status to
// next is valid.
func (s LoadStatus) CanTransitionTo(next LoadStatus) bool {
	for _, allowed := range validLoadTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Stop represents a pickup or delivery location.
type Stop struct {
	Address string `json:"address" bson:"address"`
	City    string `json:"city" bson:"city"`
	State   string `json:"state" bson:"state"`
	ZipCode string `json:"zip_code" bson:"zip_code"`
}

// LoadStatusEntry records a single status transition on a load.
type LoadStatusEntry struct {
	Status    LoadStatus `json:"status" bson:"status"`
	Timestamp time.Time  `json:"timestamp" bson:"timestamp"`
	Notes     string     `json:"notes,omitempty" bson:"notes,omitempty"`
}

// Load is the core aggregate root of the dispatch domain.
type Load struct {
	ID              string            `json:"id" bson:"_id,omitempty"`
	ReferenceNumber string            `json:"reference_number" bson:"reference_number"`
	OrganizationID  string            `json:"organization_id" bson:"organization_id"`
	CustomerName    string            `json:"customer_name" bson:"customer_name"`
	DriverID        string            `json:"driver_id,omitempty" bson:"driver_id,omitempty"`
	Origin          Stop              `json:"origin" bson:"origin"`
	Destination     Stop              `json:"destination" bson:"destination"`
	Equipment       string            `json:"equipment" bson:"equipment"`
	RateAmount      float64           `json:"rate_amount" bson:"rate_amount"`
	RateCurrency    string            `json:"rate_currency" bson:"rate_currency"`
	Status          LoadStatus        `json:"status" bson:"status"`
	PickupDate      time.Time         `json:"pickup_date" bson:"pickup_date"`
	DeliveryDate    time.Time         `json:"delivery_date" bson:"delivery_date"`
	CreatedAt       time.Time         `json:"created_at" bson:"created_at"`
	IdempotencyKey  string            `json:"idempotency_key,omitempty" bson:"idempotency_key,omitempty"`
	StatusHistory   []LoadStatusEntry `json:"status_history" bson:"status_history"`
}
