package service

import (
	"context"

	"github.com/atinyakov/nilavanti/internal/models"
	"go.uber.org/zap"
)

// LogNotifier "delivers" reset tokens by writing them to the server log.
// It stands in for a mail transport in development deployments.
type LogNotifier struct {
	log *zap.Logger
}

// NewLogNotifier returns a Notifier writing to log.
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendResetToken(_ context.Context, user *models.User, token string) error {
	n.log.Info("password reset requested",
		zap.String("username", user.Username),
		zap.String("reset_token", token),
	)
	return nil
}
