package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/beacontrace/internal/bus"
	"github.com/prudhvinik1/beacontrace/internal/models"
	"github.com/prudhvinik1/beacontrace/internal/repositories"
	"go.uber.org/zap"
)

var (
	ErrSessionFull   = errors.New("chat session role already taken")
	ErrSessionClosed = errors.New("chat session closed")
)

// RelayService pairs a device's owner and finder in an anonymous chat
// session. Parties see each other only as per-session pseudonyms.
type RelayService struct {
	chatRepo repositories.ChatRepository
	events   *bus.Bus
	logger   *zap.Logger
}

func NewRelayService(chatRepo repositories.ChatRepository, events *bus.Bus, logger *zap.Logger) *RelayService {
	return &RelayService{
		chatRepo: chatRepo,
		events:   events,
		logger:   logger,
	}
}

// OpenSession creates the device's session if none exists, or joins the
// existing one in the requested role. The role claim is atomic: of two
// concurrent finders, one joins and the other gets ErrSessionFull. Returns
// the session and the pseudonym issued to the caller.
func (s *RelayService) OpenSession(ctx context.Context, deviceID uuid.UUID, role models.ChatRole) (*models.ChatSession, string, error) {
	if !role.Valid() {
		return nil, "", repositories.ErrNotFound
	}

	session, _, err := s.chatRepo.CreateSession(ctx, deviceID)
	if err != nil {
		return nil, "", err
	}

	// A closed session no longer holds the device; replace it.
	if session.Closed {
		if err := s.chatRepo.ReleaseDevice(ctx, deviceID, session.ID); err != nil {
			return nil, "", err
		}
		session, _, err = s.chatRepo.CreateSession(ctx, deviceID)
		if err != nil {
			return nil, "", err
		}
		if session.Closed {
			return nil, "", ErrSessionClosed
		}
	}

	pseudonym := uuid.New().String()
	claimed, err := s.chatRepo.ClaimRole(ctx, session.ID, role, pseudonym)
	if err != nil {
		return nil, "", err
	}
	if !claimed {
		return nil, "", ErrSessionFull
	}

	// Re-read so the caller sees both role claims
	session, err = s.chatRepo.GetSession(ctx, session.ID)
	if err != nil {
		return nil, "", err
	}
	return session, pseudonym, nil
}

// SendMessage appends a message in arrival order. Both sides may send at any
// time; there is no turn-taking. Fails with ErrSessionClosed once either
// party has closed the session.
func (s *RelayService) SendMessage(ctx context.Context, sessionID uuid.UUID, role models.ChatRole, text string) (*models.ChatMessage, error) {
	session, err := s.chatRepo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Closed {
		return nil, ErrSessionClosed
	}
	if session.Pseudonym(role) == "" {
		return nil, ErrForbidden
	}

	msg := &models.ChatMessage{
		SenderRole: role,
		Text:       text,
		SentAt:     time.Now(),
	}
	if err := s.chatRepo.AppendMessage(ctx, sessionID, msg); err != nil {
		return nil, err
	}

	s.events.Publish(bus.Event{
		Kind:      bus.KindChatMessage,
		Timestamp: time.Now(),
		Payload:   bus.ChatEvent{SessionID: sessionID, Role: role, Text: text},
	})

	return msg, nil
}

// Messages returns the session transcript in arrival order.
func (s *RelayService) Messages(ctx context.Context, sessionID uuid.UUID) ([]models.ChatMessage, error) {
	if _, err := s.chatRepo.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.chatRepo.Messages(ctx, sessionID)
}

// CloseSession marks the session closed and frees the device for a future
// session. Closing an already-closed session is a no-op: the other party
// observes exactly one close.
func (s *RelayService) CloseSession(ctx context.Context, sessionID uuid.UUID, role models.ChatRole) error {
	session, err := s.chatRepo.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Pseudonym(role) == "" {
		return ErrForbidden
	}

	transitioned, err := s.chatRepo.Close(ctx, sessionID)
	if err != nil {
		return err
	}
	if !transitioned {
		return nil
	}

	if err := s.chatRepo.ReleaseDevice(ctx, session.DeviceID, sessionID); err != nil {
		s.logger.Warn("failed to release device session binding",
			zap.String("device_id", session.DeviceID.String()),
			zap.Error(err),
		)
	}

	s.events.Publish(bus.Event{
		Kind:      bus.KindChatClosed,
		Timestamp: time.Now(),
		Payload:   bus.ChatEvent{SessionID: sessionID, Role: role},
	})
	return nil
}
