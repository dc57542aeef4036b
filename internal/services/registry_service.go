package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/beacontrace/internal/models"
	"github.com/prudhvinik1/beacontrace/internal/repositories"
	"go.uber.org/zap"
)

var (
	ErrForbidden   = errors.New("caller lacks authority over this entity")
	ErrInvalidCode = errors.New("invalid verification code")
	ErrExpired     = errors.New("verification code expired")
)

const verificationCodeDigits = 6

// RegistryService owns device registration and the verified ownership
// transfer flow.
type RegistryService struct {
	accountRepo  repositories.AccountRepository
	deviceRepo   repositories.DeviceRepository
	transferRepo repositories.TransferRepository
	codeRepo     repositories.VerificationCodeRepository
	notifier     Notifier
	codeTTL      time.Duration
	logger       *zap.Logger
}

func NewRegistryService(
	accountRepo repositories.AccountRepository,
	deviceRepo repositories.DeviceRepository,
	transferRepo repositories.TransferRepository,
	codeRepo repositories.VerificationCodeRepository,
	notifier Notifier,
	codeTTL time.Duration,
	logger *zap.Logger,
) *RegistryService {
	return &RegistryService{
		accountRepo:  accountRepo,
		deviceRepo:   deviceRepo,
		transferRepo: transferRepo,
		codeRepo:     codeRepo,
		notifier:     notifier,
		codeTTL:      codeTTL,
		logger:       logger,
	}
}

// RegisterDevice binds a new device to the owning account. A zero deviceID
// lets the registry allocate a fresh globally-unique id; supplying an id that
// already exists fails with repositories.ErrConflict.
func (s *RegistryService) RegisterDevice(ctx context.Context, ownerAccountID, deviceID uuid.UUID, name string) (*models.Device, error) {
	device := &models.Device{
		ID:             deviceID,
		OwnerAccountID: ownerAccountID,
		Name:           name,
	}
	if err := s.deviceRepo.Create(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

func (s *RegistryService) GetDevice(ctx context.Context, deviceID uuid.UUID) (*models.Device, error) {
	return s.deviceRepo.GetByID(ctx, deviceID)
}

func (s *RegistryService) ListDevicesForAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Device, error) {
	return s.deviceRepo.GetDevicesByAccountID(ctx, accountID)
}

// RenameDevice updates the owner-facing label. Only the current owner may
// rename.
func (s *RegistryService) RenameDevice(ctx context.Context, deviceID, callerAccountID uuid.UUID, name string) (*models.Device, error) {
	device, err := s.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if device.OwnerAccountID != callerAccountID {
		return nil, ErrForbidden
	}

	if err := s.deviceRepo.Rename(ctx, deviceID, name); err != nil {
		return nil, err
	}
	return s.deviceRepo.GetByID(ctx, deviceID)
}

// RequestTransfer opens a transfer of the device to toAccountID. The current
// owner receives a single-use verification code out-of-band; only they can
// approve. At most one pending request may exist per device.
func (s *RegistryService) RequestTransfer(ctx context.Context, deviceID, toAccountID uuid.UUID) (*models.TransferRequest, error) {
	device, err := s.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if _, err := s.accountRepo.GetByID(ctx, toAccountID); err != nil {
		return nil, err
	}

	if device.OwnerAccountID == toAccountID {
		return nil, repositories.ErrConflict
	}

	request := &models.TransferRequest{
		DeviceID:      deviceID,
		FromAccountID: device.OwnerAccountID,
		ToAccountID:   toAccountID,
	}
	if err := s.transferRepo.Create(ctx, request); err != nil {
		return nil, err
	}

	code, err := generateVerificationCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification code: %w", err)
	}
	if err := s.codeRepo.Store(ctx, request.ID, code, s.codeTTL); err != nil {
		return nil, err
	}

	if err := s.notifier.NotifyVerificationCode(ctx, device.OwnerAccountID, code); err != nil {
		// The request stands; the owner can still reject it, and a failed
		// delivery expires with the code.
		s.logger.Warn("verification code delivery failed",
			zap.String("request_id", request.ID.String()),
			zap.Error(err),
		)
	}

	return request, nil
}

// ApproveTransfer completes a transfer. Only the current owner may approve,
// with the unexpired code issued for this request. The status flip and the
// ownership reassignment commit as one atomic unit.
func (s *RegistryService) ApproveTransfer(ctx context.Context, requestID, callerAccountID uuid.UUID, code string) (*models.TransferRequest, error) {
	request, err := s.transferRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if request.FromAccountID != callerAccountID {
		return nil, ErrForbidden
	}
	if request.Status.Terminal() {
		return nil, repositories.ErrConflict
	}

	stored, err := s.codeRepo.Get(ctx, requestID)
	if errors.Is(err, repositories.ErrNotFound) {
		// Code expired: terminate the request so a fresh one can be opened.
		if _, rejErr := s.transferRepo.Reject(ctx, requestID); rejErr != nil {
			s.logger.Warn("failed to reject expired transfer request",
				zap.String("request_id", requestID.String()),
				zap.Error(rejErr),
			)
		}
		return nil, ErrExpired
	}
	if err != nil {
		return nil, err
	}

	// A wrong guess must not consume the stored code
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return nil, ErrInvalidCode
	}

	approved, err := s.transferRepo.Approve(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if err := s.codeRepo.Consume(ctx, requestID); err != nil {
		s.logger.Warn("failed to consume verification code",
			zap.String("request_id", requestID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("device ownership transferred",
		zap.String("device_id", approved.DeviceID.String()),
		zap.String("to_account_id", approved.ToAccountID.String()),
	)
	return approved, nil
}

// RejectTransfer declines a transfer. Only the current owner may reject.
// Rejecting an already-terminal request returns its current state unchanged.
func (s *RegistryService) RejectTransfer(ctx context.Context, requestID, callerAccountID uuid.UUID) (*models.TransferRequest, error) {
	request, err := s.transferRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if request.FromAccountID != callerAccountID {
		return nil, ErrForbidden
	}

	rejected, err := s.transferRepo.Reject(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if err := s.codeRepo.Consume(ctx, requestID); err != nil {
		s.logger.Warn("failed to discard verification code",
			zap.String("request_id", requestID.String()),
			zap.Error(err),
		)
	}
	return rejected, nil
}

func generateVerificationCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < verificationCodeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", verificationCodeDigits, n), nil
}
