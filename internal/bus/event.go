package bus

import (
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/beacontrace/internal/models"
)

// Event kinds. Subscribers filter by namespace prefix, e.g. "chat." receives
// both chat kinds.
const (
	KindChatMessage = "chat.message"
	KindChatClosed  = "chat.closed"
	KindSighting    = "sighting.reported"
)

// Event is a domain event published on the in-process bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// ChatEvent is the payload for chat.* events.
type ChatEvent struct {
	SessionID uuid.UUID
	Role      models.ChatRole
	Text      string
}

// SightingEvent is the payload for sighting.reported events.
type SightingEvent struct {
	DeviceID   uuid.UUID
	ObservedAt time.Time
}
