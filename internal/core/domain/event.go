package domain

import "time"

// LoadEvent represents a status update for a load received from an external
// source, typically the driver mobile app.
type LoadEvent struct {
	ReferenceNumber string
	Status          LoadStatus
	Timestamp       time.Time
	Source          string
	Notes           string
}
