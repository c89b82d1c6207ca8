// Package notification delivers outbound notifications. Delivery is best
// effort: lifecycle transitions never roll back because a notification could
// not be sent.
package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/portal/backend/internal/domain/shared"
)

// LogNotifier writes notifications to the application log. It stands in for a
// real mail integration; operators tail the log or ship it to an alerting
// pipeline.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the notification and always succeeds
func (n *LogNotifier) Send(ctx context.Context, msg shared.Notification) error {
	n.logger.Info("Notification",
		zap.String("recipient", msg.Recipient),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

var _ shared.Notifier = (*LogNotifier)(nil)
