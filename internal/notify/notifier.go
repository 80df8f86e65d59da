// Package notify delivers customer-facing messages for the reminder
// dispatcher.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/almonzer-fadl/teramotors/internal/model"
)

// Notifier sends one message to one contact.
type Notifier interface {
	Send(ctx context.Context, contact *model.Contact, subject, body string) error
}

// SendError wraps a delivery failure with the target contact.
type SendError struct {
	Contact string
	Err     error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to %s: %v", e.Contact, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// LogNotifier writes messages to the log instead of delivering them.
// Used when no webhook endpoint is configured.
type LogNotifier struct {
	logger *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, contact *model.Contact, subject, body string) error {
	n.logger.Info().
		Str("email", contact.Email).
		Str("subject", subject).
		Str("body", body).
		Msg("notification (log only)")
	return nil
}
