package models

import (
	"time"

	"github.com/google/uuid"
)

type ChatRole string

const (
	RoleOwner  ChatRole = "owner"
	RoleFinder ChatRole = "finder"
)

// Valid reports whether the role is one of the two session roles.
func (r ChatRole) Valid() bool {
	return r == RoleOwner || r == RoleFinder
}

// Other returns the opposite role.
func (r ChatRole) Other() ChatRole {
	if r == RoleOwner {
		return RoleFinder
	}
	return RoleOwner
}

// ChatSession pairs an owner and a finder around a device. Participants are
// known to each other only by per-session pseudonyms.
type ChatSession struct {
	ID              uuid.UUID `json:"id"`
	DeviceID        uuid.UUID `json:"device_id"`
	OwnerPseudonym  string    `json:"owner_pseudonym,omitempty"`
	FinderPseudonym string    `json:"finder_pseudonym,omitempty"`
	Closed          bool      `json:"closed"`
	CreatedAt       time.Time `json:"created_at"`
}

// Pseudonym returns the pseudonym claimed for the given role, if any.
func (s *ChatSession) Pseudonym(role ChatRole) string {
	if role == RoleOwner {
		return s.OwnerPseudonym
	}
	return s.FinderPseudonym
}

type ChatMessage struct {
	SenderRole ChatRole  `json:"sender_role"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sent_at"`
}
