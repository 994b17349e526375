package mail

import (
	"context"
	"log/slog"
)

// Log writes messages to the structured log instead of sending them.
type Log struct {
	from Sender
}

// NewLog creates a log-only transport.
func NewLog(from Sender) *Log {
	return &Log{from: from}
}

func (l *Log) Send(ctx context.Context, to, subject, body string) error {
	if err := validAddress(to); err != nil {
		return err
	}
	slog.InfoContext(ctx, "mail",
		"from", l.from.String(),
		"to", to,
		"subject", subject,
		"body", body,
	)
	return nil
}
