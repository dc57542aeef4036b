package models

import (
	"time"

	"github.com/google/uuid"
)

type TransferStatus string

const (
	TransferPending  TransferStatus = "pending"
	TransferApproved TransferStatus = "approved"
	TransferRejected TransferStatus = "rejected"
)

// Terminal reports whether the status admits no further transitions.
func (s TransferStatus) Terminal() bool {
	return s == TransferApproved || s == TransferRejected
}

type TransferRequest struct {
	ID            uuid.UUID      `json:"id"`
	DeviceID      uuid.UUID      `json:"device_id"`
	FromAccountID uuid.UUID      `json:"from_account_id"`
	ToAccountID   uuid.UUID      `json:"to_account_id"`
	Status        TransferStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	ResolvedAt    *time.Time     `json:"resolved_at,omitempty"`
}
