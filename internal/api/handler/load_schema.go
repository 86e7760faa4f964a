package handler

import "time"

// stopRequest holds a pickup or delivery location.
type stopRequest struct {
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	ZipCode string `json:"zip_code" validate:"required"`
}

// createLoadRequest is the POST /v1/loads payload.
type createLoadRequest struct {
	CustomerName   string      `json:"customer_name" validate:"required"`
	Origin         stopRequest `json:"origin" validate:"required"`
	Destination    stopRequest `json:"destination" validate:"required"`
	Equipment      string      `json:"equipment" validate:"required,oneof=dry_van reefer flatbed step_deck power_only"`
	RateAmount     float64     `json:"rate_amount" validate:"required,gt=0"`
	RateCurrency   string      `json:"rate_currency" validate:"required,oneof=USD CAD MXN"`
	PickupDate     time.Time   `json:"pickup_date" validate:"required"`
	DeliveryDate   time.Time   `json:"delivery_date" validate:"required"`
	OrganizationID string      `json:"organization_id,omitempty"`
}

type createLoadResponse struct {
	ReferenceNumber string    `json:"reference_number"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

type assignDriverRequest struct {
	DriverID string `json:"driver_id" validate:"required"`
}

type loadStatusItemResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
}

type loadDetailResponse struct {
	ReferenceNumber string                   `json:"reference_number"`
	Status          string                   `json:"status"`
	CustomerName    string                   `json:"customer_name"`
	DriverID        string                   `json:"driver_id,omitempty"`
	Origin          stopRequest              `json:"origin"`
	Destination     stopRequest              `json:"destination"`
	Equipment       string                   `json:"equipment"`
	RateAmount      float64                  `json:"rate_amount"`
	RateCurrency    string                   `json:"rate_currency"`
	PickupDate      time.Time                `json:"pickup_date"`
	DeliveryDate    time.Time                `json:"delivery_date"`
	CreatedAt       time.Time                `json:"created_at"`
	StatusHistory   []loadStatusItemResponse `json:"status_history"`
}

type loadSummaryResponse struct {
	ReferenceNumber string      `json:"reference_number"`
	Status          string      `json:"status"`
	CustomerName    string      `json:"customer_name"`
	DriverID        string      `json:"driver_id,omitempty"`
	Equipment       string      `json:"equipment"`
	Origin          stopRequest `json:"origin"`
	Destination     stopRequest `json:"destination"`
	RateAmount      float64     `json:"rate_amount"`
	PickupDate      time.Time   `json:"pickup_date"`
	DeliveryDate    time.Time   `json:"delivery_date"`
}

type listLoadsResponse struct {
	Items      []loadSummaryResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	Limit      int                   `json:"limit"`
	TotalPages int                   `json:"total_pages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type acceptedResponse struct {
	Message string `json:"message"`
}
