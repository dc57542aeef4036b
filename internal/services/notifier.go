package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier delivers a transfer verification code to the device's current
// owner out-of-band (mail, push, SMS). The relay network itself never shows
// the code to the requesting party.
type Notifier interface {
	NotifyVerificationCode(ctx context.Context, accountID uuid.UUID, code string) error
}

// LogNotifier is the default Notifier for deployments without a delivery
// channel wired up. Operators read the code from the server log.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyVerificationCode(ctx context.Context, accountID uuid.UUID, code string) error {
	n.logger.Info("transfer verification code issued",
		zap.String("account_id", accountID.String()),
		zap.String("code", code),
	)
	return nil
}
