package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/beacontrace/internal/models"
)

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
}

type DeviceRepository interface {
	Create(ctx context.Context, device *models.Device) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Device, error)
	GetDevicesByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Device, error)
	Rename(ctx context.Context, id uuid.UUID, name string) error
}

type SightingRepository interface {
	Append(ctx context.Context, sighting *models.Sighting) error
	Latest(ctx context.Context, deviceID uuid.UUID) (*models.Sighting, error)
	Since(ctx context.Context, deviceID uuid.UUID, cutoff time.Time, afterObservedAt time.Time, afterID int64, limit int) ([]*models.Sighting, error)
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

type TransferRepository interface {
	Create(ctx context.Context, request *models.TransferRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.TransferRequest, error)
	// Approve flips a pending request to approved and reassigns device
	// ownership in the same transaction.
	Approve(ctx context.Context, id uuid.UUID) (*models.TransferRequest, error)
	// Reject flips a pending request to rejected. Terminal requests are
	// returned as-is.
	Reject(ctx context.Context, id uuid.UUID) (*models.TransferRequest, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteAllForAccount(ctx context.Context, accountID uuid.UUID) error
}

type VerificationCodeRepository interface {
	Store(ctx context.Context, requestID uuid.UUID, code string, ttl time.Duration) error
	Get(ctx context.Context, requestID uuid.UUID) (string, error)
	Consume(ctx context.Context, requestID uuid.UUID) error
}

type ChatRepository interface {
	// CreateSession atomically binds a new session to the device. If another
	// session already holds the device, that session is returned with
	// created=false.
	CreateSession(ctx context.Context, deviceID uuid.UUID) (session *models.ChatSession, created bool, err error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*models.ChatSession, error)
	// ClaimRole atomically claims a role with a pseudonym. Returns false if
	// the role is already held.
	ClaimRole(ctx context.Context, sessionID uuid.UUID, role models.ChatRole, pseudonym string) (bool, error)
	AppendMessage(ctx context.Context, sessionID uuid.UUID, msg *models.ChatMessage) error
	Messages(ctx context.Context, sessionID uuid.UUID) ([]models.ChatMessage, error)
	// Close marks the session closed. Returns true only on the transition.
	Close(ctx context.Context, sessionID uuid.UUID) (bool, error)
	// ReleaseDevice unbinds the device from sessionID so a fresh session can
	// be opened. The delete is conditional: if the device has already been
	// rebound to another session, the binding is left untouched.
	ReleaseDevice(ctx context.Context, deviceID, sessionID uuid.UUID) error
}
