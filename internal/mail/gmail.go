package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Gmail sends through the Gmail API as the sender mailbox.
type Gmail struct {
	svc  *gmail.Service
	from Sender
	now  func() time.Time
}

// NewGmail creates a Gmail transport from a service-account key file. The
// account must have domain-wide delegation; it impersonates from.Address.
func NewGmail(ctx context.Context, credentialsFile string, from Sender) (*Gmail, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	conf, err := google.JWTConfigFromJSON(data, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	conf.Subject = from.Address

	svc, err := gmail.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &Gmail{svc: svc, from: from, now: time.Now}, nil
}

func (g *Gmail) Send(ctx context.Context, to, subject, body string) error {
	if err := validAddress(to); err != nil {
		return err
	}
	raw := buildMessage(g.from, to, subject, body, g.now())
	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	if _, err := g.svc.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gmail send to %s: %w", to, err)
	}
	return nil
}
