package models

import (
	"time"

	"github.com/google/uuid"
)

// Device is a tracked asset broadcasting its id as a beacon. Exactly one
// account owns it at a time; ownership changes only through an approved
// transfer request.
type Device struct {
	ID             uuid.UUID  `json:"id"`
	OwnerAccountID uuid.UUID  `json:"owner_account_id"`
	Name           string     `json:"name"`
	RegisteredAt   time.Time  `json:"registered_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}
