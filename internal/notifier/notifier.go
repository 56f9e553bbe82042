// Package notifier defines the best-effort message delivery collaborator.
// Workflows log and swallow send failures; a broken mail relay never fails a
// triage run.
package notifier

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Notifier sends a message to an address.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogNotifier records notifications instead of delivering them. Used when no
// SMTP relay is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates the logging stub.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Send logs the notification and reports success.
func (n *LogNotifier) Send(_ context.Context, to, subject, body string) error {
	n.logger.Info("notification (smtp not configured)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)))
	n.logger.Debug("notification body", zap.String("body", strings.TrimSpace(body)))
	return nil
}
