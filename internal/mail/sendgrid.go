package mail

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendGrid sends through the SendGrid v3 API.
type SendGrid struct {
	key  string
	from *sgmail.Email
}

// NewSendGrid creates a SendGrid transport.
func NewSendGrid(key string, from Sender) *SendGrid {
	return &SendGrid{key: key, from: sgmail.NewEmail(from.Name, from.Address)}
}

func (s *SendGrid) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validAddress(to); err != nil {
		return err
	}

	req := sendgrid.GetRequest(s.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(to, subject, body))

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid send to %s: %w", to, err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send to %s: status %d: %s", to, res.StatusCode, res.Body)
	}
	return nil
}

func (s *SendGrid) prepare(to, subject, body string) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = subject
	p.AddTos(sgmail.NewEmail("", to))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", body))
	return m
}
