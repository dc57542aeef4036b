package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/beacontrace/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	chatSessionPrefix = "chat:session:"
	chatDevicePrefix  = "chat:device:"
)

// RedisChatRepository stores relay sessions in Redis. Role claims and the
// device-to-session binding use SETNX so racing parties resolve atomically.
type RedisChatRepository struct {
	client *redis.Client
}

func NewRedisChatRepository(client *redis.Client) *RedisChatRepository {
	return &RedisChatRepository{client: client}
}

// sessionRecord is the immutable core stored at the session key. Roles and
// the closed marker live in separate keys so they can be claimed atomically.
type sessionRecord struct {
	ID        uuid.UUID `json:"id"`
	DeviceID  uuid.UUID `json:"device_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *RedisChatRepository) CreateSession(ctx context.Context, deviceID uuid.UUID) (*models.ChatSession, bool, error) {
	record := sessionRecord{
		ID:        uuid.New(),
		DeviceID:  deviceID,
		CreatedAt: time.Now(),
	}
	jsonData, err := json.Marshal(record)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal session: %w", err)
	}

	// Write the session record first, then bind the device to it. A loser of
	// the SETNX race reads the winner's record, which is already in place.
	sessionKey := chatSessionPrefix + record.ID.String()
	if err := r.client.Set(ctx, sessionKey, jsonData, 0).Err(); err != nil {
		return nil, false, fmt.Errorf("failed to set session record: %w", err)
	}

	deviceKey := chatDeviceKey(deviceID)
	claimed, err := r.client.SetNX(ctx, deviceKey, record.ID.String(), 0).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to bind device session: %w", err)
	}

	if claimed {
		return &models.ChatSession{
			ID:        record.ID,
			DeviceID:  record.DeviceID,
			CreatedAt: record.CreatedAt,
		}, true, nil
	}

	// Lost the race: discard the orphan record and return the winner's session.
	_ = r.client.Del(ctx, sessionKey).Err()

	existingID, err := r.client.Get(ctx, deviceKey).Result()
	if err == redis.Nil {
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get device session: %w", err)
	}

	sessionID, err := uuid.Parse(existingID)
	if err != nil {
		return nil, false, fmt.Errorf("corrupt device session binding: %w", err)
	}

	session, err := r.GetSession(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	return session, false, nil
}

func (r *RedisChatRepository) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.ChatSession, error) {
	jsonData, err := r.client.Get(ctx, chatSessionPrefix+sessionID.String()).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var record sessionRecord
	if err := json.Unmarshal([]byte(jsonData), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	// One round trip for both role claims and the closed marker
	values, err := r.client.MGet(ctx,
		chatRoleKey(sessionID, models.RoleOwner),
		chatRoleKey(sessionID, models.RoleFinder),
		chatClosedKey(sessionID),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session state: %w", err)
	}

	session := &models.ChatSession{
		ID:        record.ID,
		DeviceID:  record.DeviceID,
		CreatedAt: record.CreatedAt,
	}
	if v, ok := values[0].(string); ok {
		session.OwnerPseudonym = v
	}
	if v, ok := values[1].(string); ok {
		session.FinderPseudonym = v
	}
	session.Closed = values[2] != nil

	return session, nil
}

func (r *RedisChatRepository) ClaimRole(ctx context.Context, sessionID uuid.UUID, role models.ChatRole, pseudonym string) (bool, error) {
	claimed, err := r.client.SetNX(ctx, chatRoleKey(sessionID, role), pseudonym, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim role: %w", err)
	}
	return claimed, nil
}

func (r *RedisChatRepository) AppendMessage(ctx context.Context, sessionID uuid.UUID, msg *models.ChatMessage) error {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	// RPUSH preserves arrival order for the session's lifetime
	err = r.client.RPush(ctx, chatMessagesKey(sessionID), jsonData).Err()
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (r *RedisChatRepository) Messages(ctx context.Context, sessionID uuid.UUID) ([]models.ChatMessage, error) {
	items, err := r.client.LRange(ctx, chatMessagesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	messages := make([]models.ChatMessage, 0, len(items))
	for _, item := range items {
		var msg models.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (r *RedisChatRepository) Close(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	transitioned, err := r.client.SetNX(ctx, chatClosedKey(sessionID), "1", 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to close session: %w", err)
	}
	return transitioned, nil
}

// releaseDeviceScript deletes the device binding only while it still points
// at the session being released. A binding already claimed by a newer session
// must survive a late release from the old one.
var releaseDeviceScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func (r *RedisChatRepository) ReleaseDevice(ctx context.Context, deviceID, sessionID uuid.UUID) error {
	err := releaseDeviceScript.Run(ctx, r.client, []string{chatDeviceKey(deviceID)}, sessionID.String()).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release device session: %w", err)
	}
	return nil
}

func chatDeviceKey(deviceID uuid.UUID) string {
	return chatDevicePrefix + deviceID.String()
}

func chatRoleKey(sessionID uuid.UUID, role models.ChatRole) string {
	return fmt.Sprintf("%s%s:role:%s", chatSessionPrefix, sessionID, role)
}

func chatClosedKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("%s%s:closed", chatSessionPrefix, sessionID)
}

func chatMessagesKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("%s%s:messages", chatSessionPrefix, sessionID)
}
