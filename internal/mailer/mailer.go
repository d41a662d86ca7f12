// Package mailer delivers borrower notifications.
package mailer

import (
	"context"
	"log/slog"
)

type Kind string

const (
	KindDueSoon              Kind = "due_soon"
	KindOverdue              Kind = "overdue"
	KindReservationAvailable Kind = "reservation_available"
)

type Recipient struct {
	Name  string
	Email string
}

// Mailer sends one notification. data feeds the template for kind.
type Mailer interface {
	Send(ctx context.Context, kind Kind, to Recipient, data map[string]any) error
}

// LogMailer renders messages and logs them instead of sending.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, kind Kind, to Recipient, data map[string]any) error {
	msg, err := Render(kind, to, data)
	if err != nil {
		return err
	}
	m.logger.Info("mail not sent, log mailer in use",
		"kind", kind,
		"to", to.Email,
		"subject", msg.Subject,
	)
	return nil
}
