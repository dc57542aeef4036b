package models

import (
	"time"

	"github.com/google/uuid"
)

// Sighting is a single anonymous observation of a beacon. Immutable once
// written. The reporter token is a per-report pseudonym, never an account id.
type Sighting struct {
	ID            int64     `json:"id"`
	DeviceID      uuid.UUID `json:"device_id"`
	ReporterToken string    `json:"-"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Accuracy      float64   `json:"accuracy"`
	ObservedAt    time.Time `json:"observed_at"`
	ReceivedAt    time.Time `json:"received_at"`
}
