package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is an authenticated login session backing a JWT.
type Session struct {
	ID        string    `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
