package authkit

import (
	"context"

	"go.uber.org/zap"
)

// Mailer delivers account emails.
type Mailer interface {
	SendPasswordReset(ctx context.Context, recipient User, resetURL string) error
}

// LogMailer writes outgoing mail to the log instead of delivering it.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer constructs a LogMailer; a nil logger discards messages.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// SendPasswordReset logs the reset link for recipient.
func (mailer *LogMailer) SendPasswordReset(ctx context.Context, recipient User, resetURL string) error {
	mailer.logger.Info("password reset email",
		zap.String("to", recipient.Email),
		zap.Uint("user_id", recipient.ID),
		zap.String("reset_url", resetURL),
	)
	return nil
}
